package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stevedore-labs/stevedore/internal/registry"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Synchronize the local cache from all configured sources",
	Long: `Fetch every configured package source, rebuild its index, and atomically
replace the local cache with the merged result.

Sources fail independently: one unreachable source does not block the
others, and the per-source breakdown is always printed. The previous
cache stays live until the new one is fully committed.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	reg, err := buildRegistry()
	if err != nil {
		return err
	}

	fmt.Fprintln(stderr, "Updating package sources...")

	report, err := reg.Update(cmd.Context())
	printUpdateReport(cmd, report)

	if err != nil {
		if errors.Is(err, registry.ErrNoSourcesUpdated) && len(report.Outcomes) == 0 {
			return fmt.Errorf("no package sources configured (set package.sources)")
		}
		return fmt.Errorf("update failed: %w", err)
	}
	return nil
}

func printUpdateReport(cmd *cobra.Command, report *registry.UpdateReport) {
	if len(report.Outcomes) == 0 {
		return
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tSCHEME\tSTATUS\tPACKAGES")
	for _, o := range report.Outcomes {
		status := "ok"
		packages := fmt.Sprintf("%d", o.Packages)
		if !o.Succeeded() {
			status = "failed: " + o.Err.Error()
			packages = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.URI, o.Scheme, status, packages)
	}
	w.Flush()

	if !report.Committed {
		fmt.Fprintln(cmd.OutOrStdout(), "Cache not updated; previous contents preserved.")
	}
}
