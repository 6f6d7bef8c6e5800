package orchestrator

import (
	"errors"
	"fmt"

	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/config"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/scanner"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/pkg/types"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Progress is one progress event. Percent is nil for purely textual
// status updates.
type Progress struct {
	Message string
	Percent *float64
}

// ProgressFunc receives progress events during a run. May be nil.
type ProgressFunc func(Progress)

// Params describes one run. The two ingestion modes, plugin-list and
// flat FormID-list, are mutually exclusive.
type Params struct {
	Game    types.GameRelease
	GameDir string
	Plugins []string

	// FormIDListPath selects flat-list ingestion instead of binary
	// plugin scanning.
	FormIDListPath string

	UpdateMode bool
	DryRun     bool
	DBPath     string

	ScanBatchSize     int
	ImportBatchSize   int
	ProgressInterval  int
	IgnorablePatterns []string
	StringsLanguage   string
	RecentErrors      int
}

// Validate checks the parameter combination and fills defaults.
func (p *Params) Validate() error {
	if _, err := types.ParseGameRelease(string(p.Game)); err != nil {
		return err
	}

	pluginMode := len(p.Plugins) > 0 || p.GameDir != ""
	listMode := p.FormIDListPath != ""
	switch {
	case pluginMode && listMode:
		return errors.New("plugin-list and formid-list ingestion are mutually exclusive")
	case !pluginMode && !listMode:
		return errors.New("either plugins with a game directory or a formid-list path is required")
	case pluginMode && p.GameDir == "":
		return errors.New("game directory is required for plugin scanning")
	case pluginMode && len(p.Plugins) == 0:
		return errors.New("no plugins selected")
	}

	if !p.DryRun && p.DBPath == "" {
		return errors.New("database path is required")
	}

	if p.ScanBatchSize <= 0 {
		p.ScanBatchSize = config.DefaultScanBatchSize
	}
	if p.ImportBatchSize <= 0 {
		p.ImportBatchSize = config.DefaultImportBatchSize
	}
	if p.ProgressInterval <= 0 {
		p.ProgressInterval = config.DefaultProgressInterval
	}
	if len(p.IgnorablePatterns) == 0 {
		p.IgnorablePatterns = config.DefaultIgnorablePatterns
	}
	if p.StringsLanguage == "" {
		p.StringsLanguage = config.DefaultStringsLanguage
	}
	if p.RecentErrors <= 0 {
		p.RecentErrors = config.DefaultRecentErrors
	}
	return nil
}

// Summary is the run-level result.
type Summary struct {
	RunID          string
	Status         Status
	Successful     int
	Failed         int
	RecordsWritten int
	Outcomes       []scanner.Outcome

	// RecentErrors holds the most recent reportable warnings, bounded;
	// older entries are evicted in long runs.
	RecentErrors []string

	Message string
}

func (s *Summary) finishMessage() string {
	switch s.Status {
	case StatusCancelled:
		return fmt.Sprintf("cancelled after %d plugins, %d records written", s.Successful, s.RecordsWritten)
	case StatusFailed:
		return fmt.Sprintf("failed after %d successful and %d failed plugins", s.Successful, s.Failed)
	}
	if s.Failed == 0 {
		return fmt.Sprintf("completed successfully: %d plugins processed, %d total records", s.Successful, s.RecordsWritten)
	}
	return fmt.Sprintf("completed with %d successful and %d failed plugins, %d total records",
		s.Successful, s.Failed, s.RecordsWritten)
}
