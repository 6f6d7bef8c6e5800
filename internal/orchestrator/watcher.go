package orchestrator

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/logging"
)

// Watcher re-scans plugins whose files change on disk. After the
// initial full run it watches the game directory and coalesces bursts
// of file events (mod managers rewrite many files at once) into one
// update-mode rescan of just the changed plugins.
type Watcher struct {
	runner *Runner
	logger *slog.Logger

	// limiter paces rescans so a burst of events triggers one.
	limiter *rate.Limiter
	// poll is how often pending changes are checked against the limiter.
	poll time.Duration
}

// NewWatcher creates a watcher around an existing runner.
func NewWatcher(runner *Runner, logger *slog.Logger) *Watcher {
	return &Watcher{
		runner:  runner,
		logger:  logging.Default(logger).With("component", "watcher"),
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		poll:    500 * time.Millisecond,
	}
}

// Watch performs the initial run, then blocks rescanning changed
// plugins until ctx is cancelled. Each rescan gets a fresh cancellation
// context derived from ctx; a run's context is never reused for the
// next run.
func (w *Watcher) Watch(ctx context.Context, params Params, progress ProgressFunc) error {
	if err := params.Validate(); err != nil {
		return err
	}

	if err := w.runOnce(ctx, params, progress); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(params.GameDir); err != nil {
		return err
	}
	w.logger.Info("watching for plugin changes", "dir", params.GameDir)

	selected := make(map[string]bool, len(params.Plugins))
	for _, p := range params.Plugins {
		selected[strings.ToLower(p)] = true
	}

	pending := make(map[string]struct{})
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Base(event.Name)
			if !isPluginFile(name) || !selected[strings.ToLower(name)] {
				continue
			}
			pending[name] = struct{}{}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-ticker.C:
			if len(pending) == 0 || !w.limiter.Allow() {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]struct{})

			rescan := params
			rescan.Plugins = changed
			rescan.UpdateMode = true
			w.logger.Info("rescanning changed plugins", "plugins", changed)
			if err := w.runOnce(ctx, rescan, progress); err != nil {
				return err
			}
		}
	}
}

// runOnce executes one run under a fresh, single-shot cancellation
// context.
func (w *Watcher) runOnce(ctx context.Context, params Params, progress ProgressFunc) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	_, err := w.runner.Run(runCtx, params, progress)
	return err
}

// isPluginFile reports whether name has a plugin extension.
func isPluginFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".esm", ".esp", ".esl":
		return true
	}
	return false
}
