// Package storage provides SQLite-based persistence for extracted FormID
// entries.
//
// Each game release owns one table of (plugin, form_id, entry) rows. The
// table name is resolved only through the release whitelist in pkg/types,
// never interpolated from unchecked input. Rows are append-only log
// entries: duplicate form ids across flushes are permitted, and update
// mode replaces a plugin's rows by deleting them first.
//
// # Basic Usage
//
//	store, err := storage.New("formids.db", logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if err := store.InitGame(ctx, types.SkyrimSE); err != nil {
//	    return err
//	}
//
// # Transactions and batching
//
// The scan path opens one transaction per plugin and flushes batches
// through it, so the plugin's rows land all-or-nothing:
//
//	tx, _ := store.BeginTx(ctx)
//	batch := storage.NewBatch(tx, types.SkyrimSE, 1000)
//	for _, e := range entries {
//	    if err := batch.Add(ctx, e); err != nil {
//	        _ = tx.Rollback()
//	        return err
//	    }
//	}
//	if err := batch.Flush(ctx); err != nil {
//	    _ = tx.Rollback()
//	    return err
//	}
//	return tx.Commit()
//
// The import path hands the Batch the store itself, making every flush
// its own implicit transaction.
//
// # Build Tags
//
// The default build uses the pure Go driver (modernc.org/sqlite) and
// needs no C compiler. Building with -tags sqlite_cgo switches to
// github.com/mattn/go-sqlite3.
package storage
