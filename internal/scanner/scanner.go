package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/esm"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/logging"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/storage"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/pkg/types"
)

// Outcome is the per-plugin scan result.
type Outcome struct {
	Plugin         string
	RecordsWritten int
	Skipped        int
	Succeeded      bool
	ErrorMessage   string
	Warnings       []string
}

// Scanner extracts FormID entries from open plugin containers into the
// store, one transaction per plugin.
type Scanner struct {
	store      storage.Store
	game       types.GameRelease
	classifier *Classifier
	batchSize  int
	logger     *slog.Logger
}

// New builds a scanner for one game release.
func New(store storage.Store, game types.GameRelease, classifier *Classifier, batchSize int, logger *slog.Logger) *Scanner {
	return &Scanner{
		store:      store,
		game:       game,
		classifier: classifier,
		batchSize:  batchSize,
		logger:     logging.Default(logger).With("component", "scanner"),
	}
}

// Scan iterates every record in the container and writes extracted
// entries under one transaction for the plugin.
//
// Per-record failures never abort the plugin: ignorable errors are
// swallowed, reportable ones produce a warning and the scan continues.
// A mid-plugin flush failure rolls the whole plugin back and fails only
// this plugin. Cancellation is checked at each record boundary, rolls
// back the plugin, and is returned as the (wrapped) context error.
// tables carries the plugin's loaded localization tables; nil when the
// plugin stores names inline.
func (s *Scanner) Scan(ctx context.Context, c *esm.Container, tables *esm.StringTables, plugin string, updateMode bool) (*Outcome, error) {
	outcome := &Outcome{Plugin: plugin}

	localized := c.Header.IsLocalized()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		outcome.ErrorMessage = fmt.Sprintf("beginning transaction: %v", err)
		return outcome, nil
	}

	if updateMode {
		if err := tx.DeleteByPlugin(ctx, s.game, plugin); err != nil {
			_ = tx.Rollback()
			outcome.ErrorMessage = fmt.Sprintf("clearing existing rows: %v", err)
			return outcome, nil
		}
	}

	resolver := NewResolver(localized, tables)
	batch := storage.NewBatch(tx, s.game, s.batchSize)

	for {
		if err := ctx.Err(); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("scan of %s cancelled: %w", plugin, err)
		}

		rec, err := c.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var recErr *esm.RecordError
			if errors.As(err, &recErr) {
				s.handleRecordError(outcome, recErr)
				continue
			}
			// Broken framing: nothing more can be read from this
			// container. Keep what was extracted so far.
			s.warn(outcome, fmt.Sprintf("%s: iteration stopped early: %v", plugin, err))
			break
		}

		if rec.FormID == 0 {
			outcome.Skipped++
			continue
		}

		entry := types.Entry{
			Plugin: plugin,
			FormID: rec.FormID.String(),
			Name:   resolver.Resolve(rec),
		}
		if err := batch.Add(ctx, entry); err != nil {
			// A failed flush leaves the open transaction unusable; the
			// plugin fails as a unit and the run moves on.
			_ = tx.Rollback()
			outcome.ErrorMessage = fmt.Sprintf("batch flush failed: %v", err)
			outcome.RecordsWritten = 0
			s.logger.Warn("plugin scan failed", "plugin", plugin, "error", err)
			return outcome, nil
		}
	}

	if err := batch.Flush(ctx); err != nil {
		_ = tx.Rollback()
		outcome.ErrorMessage = fmt.Sprintf("final flush failed: %v", err)
		outcome.RecordsWritten = 0
		s.logger.Warn("plugin scan failed", "plugin", plugin, "error", err)
		return outcome, nil
	}
	if err := tx.Commit(); err != nil {
		outcome.ErrorMessage = fmt.Sprintf("commit failed: %v", err)
		outcome.RecordsWritten = 0
		return outcome, nil
	}

	outcome.Succeeded = true
	outcome.RecordsWritten = batch.Written()
	return outcome, nil
}

func (s *Scanner) handleRecordError(outcome *Outcome, recErr *esm.RecordError) {
	switch s.classifier.Classify(recErr) {
	case Ignorable:
		outcome.Skipped++
	case Reportable:
		msg := fmt.Sprintf("%s: %v", outcome.Plugin, recErr)
		s.warn(outcome, msg)
	}
}

func (s *Scanner) warn(outcome *Outcome, msg string) {
	outcome.Warnings = append(outcome.Warnings, msg)
	s.logger.Warn("record extraction warning", "plugin", outcome.Plugin, "error", msg)
}
