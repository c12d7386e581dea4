package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stevedore-labs/stevedore/internal/config"
	"github.com/stevedore-labs/stevedore/internal/installer"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <package>",
	Short: "Remove an installed package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		if err := installer.Remove(args[0], config.InstallDir()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uninstalled %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
