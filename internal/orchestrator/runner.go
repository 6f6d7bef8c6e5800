package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/esm"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/logging"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/scanner"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/storage"
)

// Runner drives a whole run: sequential plugins sharing one store
// connection, progress reporting, cooperative cancellation, and
// aggregation of per-plugin outcomes.
type Runner struct {
	logger *slog.Logger

	// openStore is swappable for tests.
	openStore func(path string, logger *slog.Logger) (storage.Store, error)
}

// NewRunner creates a run driver.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{
		logger: logging.Default(logger).With("component", "orchestrator"),
		openStore: func(path string, logger *slog.Logger) (storage.Store, error) {
			return storage.New(path, logger)
		},
	}
}

// Run executes one run to completion, cancellation, or failure. Only
// run-fatal conditions (invalid parameters, store initialization
// failure) return a non-nil error; per-plugin failures are aggregated
// into the summary and the run continues.
func (r *Runner) Run(ctx context.Context, params Params, progress ProgressFunc) (*Summary, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	emit := func(msg string, pct *float64) {
		if progress != nil {
			progress(Progress{Message: msg, Percent: pct})
		}
	}

	summary := &Summary{RunID: uuid.NewString(), Status: StatusCompleted}
	r.logger.Info("run starting", "run_id", summary.RunID, "game", params.Game, "dry_run", params.DryRun)

	if params.DryRun {
		r.dryRun(params, emit)
		summary.Message = "dry run: nothing written"
		return summary, nil
	}

	store, err := r.openStore(params.DBPath, r.logger)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.InitGame(ctx, params.Game); err != nil {
		return nil, fmt.Errorf("initializing game table: %w", err)
	}

	recent, err := lru.New[int, string](params.RecentErrors)
	if err != nil {
		return nil, err
	}
	errSeq := 0
	keepError := func(msg string) {
		recent.Add(errSeq, msg)
		errSeq++
	}

	if params.FormIDListPath != "" {
		err = r.importFormIDList(ctx, store, params, emit, summary)
	} else {
		err = r.scanPlugins(ctx, store, params, emit, summary, keepError)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			summary.Status = StatusCancelled
		} else {
			summary.Status = StatusFailed
			keepError(err.Error())
		}
	}

	if summary.Status == StatusCompleted {
		if err := store.Optimize(ctx); err != nil {
			r.logger.Warn("database optimize failed", "error", err)
		}
	}

	for _, k := range recent.Keys() {
		if msg, ok := recent.Get(k); ok {
			summary.RecentErrors = append(summary.RecentErrors, msg)
		}
	}

	summary.Message = summary.finishMessage()
	emit(summary.Message, nil)
	r.logger.Info("run finished",
		"run_id", summary.RunID,
		"status", summary.Status,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"records", summary.RecordsWritten)
	return summary, nil
}

// dryRun emits what would happen without opening the store or any
// container.
func (r *Runner) dryRun(params Params, emit func(string, *float64)) {
	if params.FormIDListPath != "" {
		emit(fmt.Sprintf("would process FormID list file: %s", params.FormIDListPath), nil)
		return
	}
	for _, p := range params.Plugins {
		emit(fmt.Sprintf("would process %s", p), nil)
	}
}

// scanPlugins is the plugin-list ingestion mode: sequential, one open
// container at a time, cancellation checked at each plugin boundary.
func (r *Runner) scanPlugins(ctx context.Context, store storage.Store, params Params,
	emit func(string, *float64), summary *Summary, keepError func(string)) error {

	sc := scanner.New(store, params.Game,
		scanner.NewClassifier(params.IgnorablePatterns), params.ScanBatchSize, r.logger)

	total := len(params.Plugins)
	for i, plugin := range params.Plugins {
		if err := ctx.Err(); err != nil {
			return err
		}

		emit(fmt.Sprintf("processing %s (%d/%d)", plugin, i+1, total), nil)

		outcome, err := r.scanOne(ctx, sc, params, plugin)
		if err != nil {
			// Cancellation mid-plugin: the scanner already rolled the
			// in-flight plugin back.
			return err
		}

		summary.Outcomes = append(summary.Outcomes, *outcome)
		for _, w := range outcome.Warnings {
			keepError(w)
		}
		if outcome.Succeeded {
			summary.Successful++
			summary.RecordsWritten += outcome.RecordsWritten
		} else {
			summary.Failed++
			keepError(fmt.Sprintf("%s: %s", plugin, outcome.ErrorMessage))
			r.logger.Warn("plugin failed", "plugin", plugin, "error", outcome.ErrorMessage)
		}

		pct := float64(i+1) / float64(total) * 100
		emit(fmt.Sprintf("finished %s: %d records", plugin, outcome.RecordsWritten), &pct)
	}
	return nil
}

// scanOne opens, scans, and closes a single plugin container. The
// container is always released before the next plugin opens.
func (r *Runner) scanOne(ctx context.Context, sc *scanner.Scanner, params Params, plugin string) (*scanner.Outcome, error) {
	path := filepath.Join(params.GameDir, plugin)
	container, err := esm.Open(path, params.Game)
	if err != nil {
		// Container open failure is plugin-fatal, not run-fatal.
		return &scanner.Outcome{Plugin: plugin, ErrorMessage: err.Error()}, nil
	}
	defer func() { _ = container.Close() }()

	var tables *esm.StringTables
	if container.Header.IsLocalized() && params.Game.SupportsLocalization() {
		tables, err = esm.LoadStringTables(params.GameDir, plugin, params.StringsLanguage)
		if err != nil {
			// Missing or broken tables degrade label resolution, they do
			// not fail the plugin.
			r.logger.Warn("string tables unavailable", "plugin", plugin, "error", err)
			tables = nil
		}
	}

	return sc.Scan(ctx, container, tables, plugin, params.UpdateMode)
}
