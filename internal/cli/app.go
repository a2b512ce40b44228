// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/storage"
)

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	configPath string
	backend    string
	logLevel   string
}

// App holds what every command needs.
type App struct {
	ConfigPath string
	Config     *config.Config
	Logger     *slog.Logger
	Store      *storage.Manager

	logCloser io.Closer
}

// openApp loads the config, opens the logger and the store.
func openApp(flags *globalFlags) (*App, error) {
	path := flags.configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		path = p
	}

	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if flags.backend != "" {
		cfg.Storage.Backend = flags.backend
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	logger, closer, err := logging.Open(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}

	dbPath := cfg.Storage.Path
	if cfg.Storage.Backend != config.BackendMemory {
		if dbPath, err = config.ResolvePath(cfg.Storage.Path); err != nil {
			closer.Close()
			return nil, err
		}
	}
	store, err := storage.Open(storage.Config{Backend: cfg.Storage.Backend, Path: dbPath, Logger: logger})
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}
	logger.Debug("store opened", "backend", cfg.Storage.Backend, "path", dbPath)

	return &App{
		ConfigPath: path,
		Config:     cfg,
		Logger:     logger,
		Store:      storage.NewManager(store, logger),
		logCloser:  closer,
	}, nil
}

// Close closes the store and the log.
func (a *App) Close() error {
	return errors.Join(a.Store.Close(), a.logCloser.Close())
}

// Settings returns the stored settings with config overrides applied.
func (a *App) Settings() (config.Settings, error) {
	s, err := a.Store.Settings()
	if err != nil {
		return config.Settings{}, err
	}
	return a.Config.Overlay(s), nil
}

// Connect builds a client for settings using the current config.
func (a *App) Connect(s config.Settings) *cloud.Client {
	return a.connectWith(a.Config, s)
}

func (a *App) connectWith(cfg *config.Config, s config.Settings) *cloud.Client {
	timeout, err := cfg.APITimeout()
	if err != nil {
		timeout = cloud.DefaultTimeout
	}
	return cloud.New(cloud.Config{
		BaseURL: cfg.API.BaseURL,
		APIKey:  s.APIKey,
		Timeout: timeout,
		Logger:  a.Logger,
	})
}

// rawConfig reads the config file without environment overrides, for
// commands that write it back.
func (a *App) rawConfig() (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(a.ConfigPath); err == nil {
		if err := config.LoadTOML(cfg, a.ConfigPath); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
	}
	return cfg, nil
}

// watchConfig starts a watcher on the config file. The returned channel
// holds at most the latest reload; stop ends the watch.
func (a *App) watchConfig() (reloads <-chan *config.Config, stop func()) {
	ch := make(chan *config.Config, 1)
	w, err := config.NewWatcher(a.ConfigPath, 0, a.Logger, func(cfg *config.Config, err error) {
		if err != nil {
			return
		}
		select {
		case <-ch:
		default:
		}
		ch <- cfg
	})
	if err == nil {
		err = w.Start()
	}
	if err != nil {
		a.Logger.Warn("config watch disabled", "error", err)
		return nil, func() {}
	}
	return ch, func() { w.Close() }
}
