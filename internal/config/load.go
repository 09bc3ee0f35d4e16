package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "AnimDirector")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "AnimDirector")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "animdirector")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "animdirector")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	return cfg.validate()
}

// validate rejects values the director cannot use. Zero values fall back to
// director defaults and are accepted.
func (c *Config) validate() error {
	if c.Director.PreviewFraction < 0 || c.Director.PreviewFraction > 1 {
		return fmt.Errorf("director.preview_fraction %v outside [0, 1]", c.Director.PreviewFraction)
	}
	if c.Director.MinimalDuration < 0 {
		return fmt.Errorf("director.minimal_duration %v is negative", c.Director.MinimalDuration)
	}
	if c.Director.BoundsRefreshInterval < 0 {
		return fmt.Errorf("director.bounds_refresh_interval %d is negative", c.Director.BoundsRefreshInterval)
	}
	if c.Stage.FPS < 0 || c.Stage.Frames < 0 {
		return fmt.Errorf("stage fps/frames must not be negative")
	}
	return nil
}
