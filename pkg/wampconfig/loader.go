package wampconfig

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wampd/wampd/pkg/wampcore/realm"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound     = errors.New("wampconfig: configuration file not found")
	ErrPermissionDenied = errors.New("wampconfig: permission denied")
	ErrEmptyFile        = errors.New("wampconfig: configuration file is empty")
)

// Load reads and parses a router configuration from a YAML file. It does
// not validate; call Validate explicitly so callers can distinguish a
// malformed file from a merely incomplete one.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("wampconfig: open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("wampconfig: read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("wampconfig: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// BuildRealms creates and seals a realm.Table from the configuration's
// realm list, per §4.5's requirement that realms exist before the listener
// starts serving.
func (c *Config) BuildRealms() (*realm.Table, error) {
	table := realm.NewTable()
	for _, r := range c.Realms {
		if _, err := table.AddRealm(r.Name); err != nil {
			return nil, fmt.Errorf("wampconfig: realm %q: %w", r.Name, err)
		}
	}
	table.Seal()
	return table, nil
}
