// Package config wraps Viper access to the stevedore config file
// (~/.stevedore/config.yaml) and STEVEDORE_* environment variables. It
// owns the package.sources list, the cache and install roots, and the
// update tuning knobs.
package config
