package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resolveVersion string

var resolveCmd = &cobra.Command{
	Use:   "resolve <package>",
	Short: "Print the winning (source, version) pair for a package",
	Long: `Resolve a package name against the merged cache and print which source
and version would be installed. Useful for scripting and for checking
the cross-source conflict rule (first-configured source wins ties).`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveVersion, "version", "", "Resolve a specific version")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	reg, err := buildRegistry()
	if err != nil {
		return err
	}

	entry, err := reg.Resolve(args[0], resolveVersion)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", entry.Name, entry.Version, entry.SourceURI)
	return nil
}
