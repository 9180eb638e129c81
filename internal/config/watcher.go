package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher reloads the printer definitions whenever the config file changes.
type Watcher struct {
	path     string
	onChange func([]PrinterDevice)
	logger   zerolog.Logger
	delay    time.Duration

	mu       sync.Mutex
	debounce *time.Timer
}

func NewWatcher(path string, logger zerolog.Logger, onChange func([]PrinterDevice)) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		logger:   logger.With().Str("component", "config_watcher").Logger(),
		delay:    defaultDebounce,
	}
}

// Run blocks until ctx is cancelled. The parent directory is watched rather
// than the file so that editors which replace the file are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.debounce != nil {
				w.debounce.Stop()
			}
			w.mu.Unlock()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.delay, w.reload)
}

func (w *Watcher) reload() {
	// A rename away from the path is followed by a create; wait for it.
	if _, err := os.Stat(w.path); err != nil {
		w.logger.Debug().Err(err).Msg("config file not present, skipping reload")
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error().Err(err).Msg("reload failed, keeping previous printers")
		return
	}
	if err := ValidateDevices(cfg.Printers.Devices); err != nil {
		w.logger.Error().Err(err).Msg("reloaded printers invalid, keeping previous printers")
		return
	}

	w.logger.Info().Int("printers", len(cfg.Printers.Devices)).Msg("printer definitions reloaded")
	w.onChange(cfg.Printers.Devices)
}
