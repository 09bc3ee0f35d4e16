// Package config handles animdirector configuration loading and management.
package config

import (
	"time"

	"github.com/Faultbox/animdirector/internal/director"
)

// Config holds all settings.
type Config struct {
	Director DirectorConfig `yaml:"director"`
	Stage    StageConfig    `yaml:"stage"`
	Bindings BindingsConfig `yaml:"bindings"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DirectorConfig holds directing tunables.
type DirectorConfig struct {
	PreviewFraction       float64 `yaml:"preview_fraction"`
	MinimalDuration       float64 `yaml:"minimal_duration"`
	BoundsRefreshInterval int     `yaml:"bounds_refresh_interval"` // frames
	MillisecondThreshold  float64 `yaml:"millisecond_threshold"`
	EndEpsilon            float64 `yaml:"end_epsilon"`
	DefaultSpeed          float64 `yaml:"default_speed"`
	DefaultWeightPercent  float64 `yaml:"default_weight_percent"`
}

// StageConfig holds stage runner settings.
type StageConfig struct {
	Path   string `yaml:"path"`
	FPS    int    `yaml:"fps"`
	Frames int    `yaml:"frames"` // 0 runs the script plus one second
}

// BindingsConfig holds binding persistence settings.
type BindingsConfig struct {
	AppName  string `yaml:"app_name"` // empty keeps bindings in memory only
	Autosave bool   `yaml:"autosave"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Director: DirectorConfig{
			PreviewFraction:       0.25,
			MinimalDuration:       1.0 / 60.0,
			BoundsRefreshInterval: 10,
			MillisecondThreshold:  30,
			EndEpsilon:            1e-3,
			DefaultSpeed:          1,
			DefaultWeightPercent:  100,
		},
		Stage: StageConfig{
			FPS: 60,
		},
		Bindings: BindingsConfig{
			AppName:  "animdirector",
			Autosave: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DirectorOptions maps the director section onto director.Options. Logger
// and highlighter are left for the caller.
func (c *Config) DirectorOptions() director.Options {
	return director.Options{
		PreviewFraction:       c.Director.PreviewFraction,
		MinimalDuration:       c.Director.MinimalDuration,
		BoundsRefreshInterval: c.Director.BoundsRefreshInterval,
		MillisecondThreshold:  c.Director.MillisecondThreshold,
		EndEpsilon:            c.Director.EndEpsilon,
		DefaultSpeed:          c.Director.DefaultSpeed,
		DefaultWeight:         c.Director.DefaultWeightPercent,
		Now:                   time.Now,
	}
}

// FrameStep returns the fixed frame delta in seconds.
func (c *Config) FrameStep() float64 {
	if c.Stage.FPS <= 0 {
		return 1.0 / 60.0
	}
	return 1 / float64(c.Stage.FPS)
}
