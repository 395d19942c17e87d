package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by Init when the target file is already present.
var ErrConfigExists = errors.New("config file already exists")

// DefaultPath returns the config file location in the user's config directory.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Save writes the config to the user's config directory.
func (c *Config) Save() error {
	return c.SaveTo(DefaultPath())
}

// SaveTo writes the config to a specific path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Init writes the default config to path, or to DefaultPath when path is
// empty, and returns where it was written. An existing file is kept unless
// force is set.
func Init(path string, force bool) (string, error) {
	target := path
	if target == "" {
		target = DefaultPath()
	}
	if _, err := os.Stat(target); err == nil && !force {
		return target, fmt.Errorf("%w: %s", ErrConfigExists, target)
	}

	cfg := Default()
	if path == "" {
		return target, cfg.Save()
	}
	return target, cfg.SaveTo(path)
}
