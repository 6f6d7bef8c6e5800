package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/storage"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/pkg/types"
)

// yieldInterval is how often the import loop voluntarily yields to keep
// a responsive host alive on very large files.
const yieldInterval = 1000

// importFormIDList is the flat-list ingestion mode: a line-oriented
// pipe-delimited file of pluginName|formIDHex|label triples. Lines with
// any other field count are skipped silently. Lines are grouped by
// contiguous runs of the same plugin name: the pending batch is flushed
// at every plugin change so different plugins never share a flush, and
// under update mode a plugin's existing rows are cleared the first time
// its name is seen in the run.
func (r *Runner) importFormIDList(ctx context.Context, store storage.Store, params Params,
	emit func(string, *float64), summary *Summary) error {

	f, err := os.Open(params.FormIDListPath)
	if err != nil {
		return fmt.Errorf("opening formid list: %w", err)
	}
	defer func() { _ = f.Close() }()

	emit(fmt.Sprintf("importing FormID list file: %s", params.FormIDListPath), nil)

	batch := storage.NewBatch(store, params.Game, params.ImportBatchSize)
	seen := make(map[string]bool)

	var current string
	var lines int

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			// Batches already flushed stay committed; only the pending
			// partial batch is dropped.
			return err
		}

		lines++
		if lines%params.ProgressInterval == 0 {
			emit(fmt.Sprintf("processed %d lines, %d records written", lines, batch.Written()), nil)
		}
		if lines%yieldInterval == 0 {
			runtime.Gosched()
		}

		parts := strings.Split(sc.Text(), "|")
		if len(parts) != 3 {
			continue // malformed line, skipped silently
		}
		plugin, formID, label := parts[0], parts[1], parts[2]

		if plugin != current {
			if err := batch.Flush(ctx); err != nil {
				return fmt.Errorf("flushing batch at plugin boundary: %w", err)
			}
			if !seen[plugin] {
				seen[plugin] = true
				summary.Successful++
				if params.UpdateMode {
					if err := store.DeleteByPlugin(ctx, params.Game, plugin); err != nil {
						return fmt.Errorf("clearing rows for %s: %w", plugin, err)
					}
				}
			}
			current = plugin
		}

		entry := types.Entry{Plugin: plugin, FormID: canonicalFormID(formID), Name: label}
		if err := batch.Add(ctx, entry); err != nil {
			return fmt.Errorf("writing batch: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading formid list: %w", err)
	}

	if err := batch.Flush(ctx); err != nil {
		return fmt.Errorf("flushing final batch: %w", err)
	}

	summary.RecordsWritten = batch.Written()
	return nil
}

// canonicalFormID re-renders a parseable hex id as six uppercase digits;
// unparseable values are kept verbatim, the file is pre-extracted data.
func canonicalFormID(s string) string {
	id, err := types.ParseFormID(s)
	if err != nil {
		return s
	}
	return id.String()
}
