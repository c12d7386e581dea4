package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stevedore-labs/stevedore/internal/config"
	"github.com/stevedore-labs/stevedore/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured package sources",
	Long: `Print the configured sources in priority order (first listed wins
conflicts), with each source's identity hash, scheme, and last
successful fetch time.`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	reg, err := buildRegistry()
	if err != nil {
		return err
	}

	descriptors, err := source.ParseAll(config.Sources())
	if err != nil {
		return err
	}

	if len(descriptors) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sources configured (set package.sources).")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "HASH\tSCHEME\tURI\tLAST UPDATED")
	for _, d := range descriptors {
		updated := "never"
		if t, ok := reg.LastUpdated(d.URI); ok {
			updated = t.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Hash()[:12], d.Scheme, d.URI, updated)
	}
	return w.Flush()
}
