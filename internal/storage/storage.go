package storage

import (
	"context"

	"github.com/evildarkarchon/FormID-Database-Manager-sub001/pkg/types"
)

// Store defines the persistence sink for extracted FormID entries. Each
// game release has its own table, resolved only through the release
// whitelist.
type Store interface {
	EntryWriter

	// InitGame creates the game's table and indexes if absent. Idempotent.
	InitGame(ctx context.Context, game types.GameRelease) error

	// DeleteByPlugin removes every row for the plugin. Deleting a plugin
	// with no rows is a no-op, not an error.
	DeleteByPlugin(ctx context.Context, game types.GameRelease, plugin string) error

	// Query surface.
	CountByPlugin(ctx context.Context, game types.GameRelease, plugin string) (int64, error)
	ListPlugins(ctx context.Context, game types.GameRelease) ([]string, error)
	LookupFormID(ctx context.Context, game types.GameRelease, formID string) ([]types.Entry, error)
	SearchByName(ctx context.Context, game types.GameRelease, name string, limit int) ([]types.Entry, error)

	// Optimize runs database maintenance. Called once at the very end of
	// a full run, never per plugin.
	Optimize(ctx context.Context) error

	BeginTx(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is an open per-plugin transaction. Writes issued through it become
// visible only on Commit; the plugin's rows are all-or-nothing.
type Tx interface {
	Commit() error
	Rollback() error

	EntryWriter
	DeleteByPlugin(ctx context.Context, game types.GameRelease, plugin string) error
}

// EntryWriter accepts batches of extracted entries. Both the Store
// (implicit transaction per call, the import path) and a Tx (writes
// inside the caller's plugin transaction, the scan path) implement it.
type EntryWriter interface {
	InsertEntries(ctx context.Context, game types.GameRelease, entries []types.Entry) error
}
