package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/stevedore-labs/stevedore/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Keys understood by the package subsystem.
const (
	KeySources      = "package.sources"
	KeyCacheDir     = "package.cache_dir"
	KeyInstallDir   = "package.install_dir"
	KeyFetchTimeout = "package.fetch_timeout"
	KeyWorkers      = "package.workers"
)

// Defaults applied when the config file does not set a value.
const (
	DefaultFetchTimeout = 2 * time.Minute
	DefaultWorkers      = 4
)

// Dir returns the path to the config directory (~/.stevedore/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.stevedore/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	viper.SetDefault(KeyCacheDir, filepath.Join(Dir(), "cache"))
	viper.SetDefault(KeyInstallDir, filepath.Join(Dir(), "installed"))
	viper.SetDefault(KeyFetchTimeout, DefaultFetchTimeout)
	viper.SetDefault(KeyWorkers, DefaultWorkers)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Sources returns the configured source URIs in priority order
// (first entry = highest priority).
func Sources() []string {
	return viper.GetStringSlice(KeySources)
}

// CacheDir returns the local package cache root.
func CacheDir() string {
	return viper.GetString(KeyCacheDir)
}

// InstallDir returns the root directory for installed packages.
func InstallDir() string {
	return viper.GetString(KeyInstallDir)
}

// FetchTimeout returns the per-source fetch timeout.
func FetchTimeout() time.Duration {
	return viper.GetDuration(KeyFetchTimeout)
}

// Workers returns the size of the source-update worker pool.
func Workers() int {
	return viper.GetInt(KeyWorkers)
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
