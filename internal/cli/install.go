package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stevedore-labs/stevedore/internal/config"
	"github.com/stevedore-labs/stevedore/internal/installer"
	"github.com/stevedore-labs/stevedore/internal/registry"
)

var installVersion string

var installCmd = &cobra.Command{
	Use:   "install <package>",
	Short: "Install a package from the local cache",
	Long: `Resolve a package name against the merged cache and unpack its files
into the installed root (~/.stevedore/installed/ by default). Run
'update' first so the cache reflects the configured sources.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installVersion, "version", "", "Install a specific version")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	name := args[0]

	reg, err := buildRegistry()
	if err != nil {
		return err
	}

	entry, err := reg.Resolve(name, installVersion)
	if err != nil {
		var notFound *registry.NotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("%w (try '%s update' to refresh sources)", err, rootCmd.Use)
		}
		return err
	}

	fmt.Fprintf(stderr, "Installing %s %s from %s...\n", entry.Name, entry.Version, entry.SourceURI)

	if err := installer.Install(entry, config.InstallDir()); err != nil {
		return fmt.Errorf("unpacking %s: %w", entry.Name, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Installed %s %s\n", entry.Name, entry.Version)
	return nil
}
