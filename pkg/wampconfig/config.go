// Package wampconfig loads the router's listener/realm configuration from
// YAML with a load-then-validate split: loading never fails softly, and
// Validate reports every
// field-level problem at once rather than stopping at the first.
package wampconfig

import (
	"fmt"
	"log/slog"

	"github.com/wampd/wampd/pkg/logging"
)

// Config is the top-level router configuration.
type Config struct {
	Listen  string        `yaml:"listen"`
	Realms  []RealmConfig `yaml:"realms"`
	Logging LoggingConfig `yaml:"logging"`
}

// RealmConfig names one realm to create before the router starts serving.
type RealmConfig struct {
	Name string `yaml:"name"`
}

// LoggingConfig mirrors pkg/logging.Config's fields for YAML unmarshaling.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a single-realm configuration suitable for local
// development.
func Default() *Config {
	return &Config{
		Listen: ":8181",
		Realms: []RealmConfig{{Name: "realm1"}},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// loggingConfig translates c.Logging into a pkg/logging.Config.
func (c *Config) loggingConfig() logging.Config {
	return logging.Config{
		Level:  logging.ParseLevel(c.Logging.Level),
		Format: logging.ParseFormat(c.Logging.Format),
	}
}

// NewLogger builds the *slog.Logger this configuration describes.
func (c *Config) NewLogger() *slog.Logger {
	return logging.New(c.loggingConfig())
}

// ValidationError collects every field-level problem Validate finds.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("wampconfig: %d validation error(s): %v", len(e.Errors), e.Errors)
}

// Validate checks the configuration for problems that would make BuildRealms
// fail or behave unexpectedly. It accumulates every issue instead of
// stopping at the first.
func (c *Config) Validate() error {
	var errs []string

	if c.Listen == "" {
		errs = append(errs, "listen address is required")
	}
	if len(c.Realms) == 0 {
		errs = append(errs, "at least one realm is required")
	}

	seen := map[string]bool{}
	for i, r := range c.Realms {
		if r.Name == "" {
			errs = append(errs, fmt.Sprintf("realms[%d]: name is required", i))
			continue
		}
		if seen[r.Name] {
			errs = append(errs, fmt.Sprintf("realms[%d]: duplicate realm name %q", i, r.Name))
		}
		seen[r.Name] = true
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
