package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stevedore-labs/stevedore/internal/config"
	"github.com/stevedore-labs/stevedore/internal/installer"
	"github.com/stevedore-labs/stevedore/internal/manifest"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	config.Load()

	installed, err := installer.List(config.InstallDir())
	if err != nil {
		return err
	}

	if len(installed) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No packages installed.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tDESCRIPTION")
	for _, pkg := range installed {
		desc := ""
		if path, err := manifest.Find(pkg.Dir); err == nil {
			if m, err := manifest.Parse(path); err == nil {
				desc = m.Description
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", pkg.Name, pkg.Version, desc)
	}
	return w.Flush()
}
