package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config whenever config.toml changes and hands each
// successfully parsed result to onChange. It blocks until ctx is canceled.
//
// The watch is registered on the containing directory rather than the file
// itself, so editors that replace the file on save keep triggering events.
func (c *Configer) Watch(ctx context.Context, logger *slog.Logger, onChange func(*Config)) error {
	if c.targetPath == "" {
		return errors.New("cannot watch empty target path")
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(c.targetPath)); err != nil {
		return fmt.Errorf("watching config dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event := <-watcher.Events:
			if filepath.Clean(event.Name) != filepath.Clean(c.targetPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			cfg, err := c.LoadConfig()
			if err != nil {
				logger.Warn("config reload failed", "error", err)
				continue
			}
			logger.Info("config reloaded", "path", c.targetPath)
			onChange(cfg)

		case err := <-watcher.Errors:
			return fmt.Errorf("config watcher error: %w", err)
		}
	}
}
