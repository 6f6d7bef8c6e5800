package storage

import (
	"context"

	"github.com/evildarkarchon/FormID-Database-Manager-sub001/pkg/types"
)

// Batch accumulates entries up to a fixed cap and flushes them as one
// write against an EntryWriter. In the scan path the writer is the
// plugin's open transaction; in the import path it is the store itself,
// making each flush its own transaction.
//
// The buffer is cleared on every flush, success or failure; a failed
// batch is never retried.
type Batch struct {
	w       EntryWriter
	game    types.GameRelease
	cap     int
	buf     []types.Entry
	flushes int
	written int
}

// NewBatch creates a batch sink with the given cap.
func NewBatch(w EntryWriter, game types.GameRelease, capacity int) *Batch {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Batch{
		w:    w,
		game: game,
		cap:  capacity,
		buf:  make([]types.Entry, 0, capacity),
	}
}

// Add appends an entry, flushing automatically when the cap is reached.
func (b *Batch) Add(ctx context.Context, e types.Entry) error {
	b.buf = append(b.buf, e)
	if len(b.buf) >= b.cap {
		return b.Flush(ctx)
	}
	return nil
}

// Flush writes the pending entries in source order. A no-op when the
// buffer is empty.
func (b *Batch) Flush(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}
	entries := b.buf
	b.buf = make([]types.Entry, 0, b.cap)

	b.flushes++
	if err := b.w.InsertEntries(ctx, b.game, entries); err != nil {
		return err
	}
	b.written += len(entries)
	return nil
}

// Len returns the number of buffered, unflushed entries.
func (b *Batch) Len() int { return len(b.buf) }

// Flushes returns how many flush operations have been attempted.
func (b *Batch) Flushes() int { return b.flushes }

// Written returns how many entries have been successfully flushed.
func (b *Batch) Written() int { return b.written }
