package config

import "flag"

var (
	flagConfig  = flag.String("config", "", "Path to config file")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagStage   = flag.String("stage", "", "Stage file to run")
	flagFPS     = flag.Int("fps", 0, "Frames per second")
	flagFrames  = flag.Int("frames", 0, "Number of frames to run")
	flagMemory  = flag.Bool("memory", false, "Keep bindings in memory only")
	flagLogFile = flag.String("log-file", "", "Rotating log file path")
	flagNoSave  = flag.Bool("no-autosave", false, "Do not save bindings on exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagStage != "" {
		cfg.Stage.Path = *flagStage
	} else if flag.NArg() > 0 {
		cfg.Stage.Path = flag.Arg(0)
	}
	if *flagFPS > 0 {
		cfg.Stage.FPS = *flagFPS
	}
	if *flagFrames > 0 {
		cfg.Stage.Frames = *flagFrames
	}
	if *flagMemory {
		cfg.Bindings.AppName = ""
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagNoSave {
		cfg.Bindings.Autosave = false
	}
}
