// Package main runs a stage file through the animation director.
package main

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/animdirector/internal/bindstore"
	"github.com/Faultbox/animdirector/internal/config"
	"github.com/Faultbox/animdirector/internal/highlight"
	"github.com/Faultbox/animdirector/internal/logger"
	"github.com/Faultbox/animdirector/internal/stage"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
		fileCfg.JSON = cfg.Logging.JSON
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, true); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) (err error) {
	if cfg.Stage.Path == "" {
		return errors.New("no stage file: pass -stage or a path argument")
	}
	st, err := stage.Load(cfg.Stage.Path)
	if err != nil {
		return err
	}
	profile := st.Name

	store, err := bindstore.Open(cfg.Bindings.AppName, logger.Named("bindstore"))
	if err != nil {
		logger.Warn("bindings will not persist", zap.Error(err))
		store = bindstore.New(nil, logger.Named("bindstore"))
	}

	opts := cfg.DirectorOptions()
	opts.Logger = logger.Named("director")
	opts.Highlighter = highlight.NewRecorder(logger.Named("highlight"))

	world, err := st.Build(opts)
	if err != nil {
		return fmt.Errorf("building stage: %w", err)
	}
	defer func() {
		err = multierr.Append(err, world.Close())
	}()

	if records, err := store.Load(profile); err != nil {
		logger.Warn("saved bindings unreadable", zap.String("profile", profile), zap.Error(err))
	} else if len(records) > 0 {
		n := world.Director.ImportBindings(records)
		logger.Info("bindings restored", zap.String("profile", profile), zap.Int("count", n), zap.Int("saved", len(records)))
	}

	runner := stage.NewRunner(st, world, store, logger.Named("stage"))
	defer runner.Close()

	frames := cfg.Stage.Frames
	if frames == 0 {
		frames = st.Length() + cfg.Stage.FPS
	}
	logger.Info("running stage",
		zap.String("stage", cfg.Stage.Path),
		zap.Int("frames", frames),
		zap.Int("fps", cfg.Stage.FPS))

	failed := 0
	for _, res := range runner.Run(frames, cfg.FrameStep()) {
		fmt.Println(res.String())
		if !res.OK {
			failed++
		}
	}
	logger.Info("stage finished",
		zap.Int("commands", len(runner.Results())),
		zap.Int("no_effect", failed),
		zap.Int("events", len(runner.Events())))

	if cfg.Bindings.Autosave {
		if err := store.Save(profile, world.Director.ExportBindings()); err != nil {
			return fmt.Errorf("saving bindings: %w", err)
		}
	}
	return nil
}
