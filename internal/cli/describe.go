package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	describeVersion string
	describeJSON    bool
)

var describeCmd = &cobra.Command{
	Use:   "describe <package>",
	Short: "Show details for a package",
	Long: `Print the resolved entry for a package: winning version, source,
manifest metadata, and file list. Use --version for a specific version;
'describe' otherwise picks the same entry 'install' would.`,
	Args: cobra.ExactArgs(1),
	RunE: runDescribe,
}

func init() {
	describeCmd.Flags().StringVar(&describeVersion, "version", "", "Describe a specific version")
	describeCmd.Flags().BoolVar(&describeJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	reg, err := buildRegistry()
	if err != nil {
		return err
	}

	entry, err := reg.Describe(args[0], describeVersion)
	if err != nil {
		return err
	}

	if describeJSON {
		data, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:        %s\n", entry.Name)
	fmt.Fprintf(out, "Version:     %s\n", entry.Version)
	if entry.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", entry.Description)
	}
	if len(entry.Tags) > 0 {
		fmt.Fprintf(out, "Tags:        %s\n", strings.Join(entry.Tags, ", "))
	}
	fmt.Fprintf(out, "Source:      %s (priority %d)\n", entry.SourceURI, entry.SourcePriority)
	if len(entry.Files) > 0 {
		fmt.Fprintln(out, "Files:")
		for _, f := range entry.Files {
			fmt.Fprintf(out, "  %s\n", f)
		}
	}
	return nil
}
