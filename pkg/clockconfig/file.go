// ABOUTME: YAML snapshot of the clock configuration
// ABOUTME: Loads and saves ClockConfig so it survives restarts
package clockconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a configuration snapshot. A missing file yields Default().
func LoadFile(path string) (ClockConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return ClockConfig{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ClockConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if cfg.ClockRange == "" {
		cfg.ClockRange = RangeUnbounded
	}
	if !cfg.ClockRange.Valid() {
		return ClockConfig{}, fmt.Errorf("failed to load %s: %w: %q", path, ErrInvalidClockRange, cfg.ClockRange)
	}

	return cfg, nil
}

// SaveFile writes cfg to path, replacing any existing file atomically.
func SaveFile(path string, cfg ClockConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode clock config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".clock-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write clock config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close clock config: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
