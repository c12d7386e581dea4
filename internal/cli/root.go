package cli

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/stevedore-labs/stevedore/internal/branding"
	"github.com/stevedore-labs/stevedore/internal/cache"
	"github.com/stevedore-labs/stevedore/internal/config"
	"github.com/stevedore-labs/stevedore/internal/registry"
	"github.com/stevedore-labs/stevedore/internal/source"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string

	rootVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` synchronizes one or more remote package sources into a local
cache and resolves package names to installable artifacts. Sources are
configured as an ordered list; earlier sources win conflicts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if rootVerbose {
			log.SetLevel(log.DebugLevel)
		} else {
			log.SetLevel(log.WarnLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		return err
	}
	return nil
}

// buildRegistry loads configuration and assembles the registry over the
// configured sources and cache root.
func buildRegistry() (*registry.Registry, error) {
	config.Load()

	descriptors, err := source.ParseAll(config.Sources())
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(config.CacheDir())
	if err != nil {
		return nil, err
	}

	return registry.New(store, descriptors,
		registry.WithFetchTimeout(config.FetchTimeout()),
		registry.WithWorkers(config.Workers()),
		registry.WithLogger(log.Default()),
	), nil
}

// stderr is where progress and diagnostics go; stdout carries results.
var stderr = os.Stderr
