package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/logging"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/pkg/types"
)

// ErrNotFound is returned when a requested entity doesn't exist.
var ErrNotFound = errors.New("not found")

// SQLite implements the Store interface using SQLite.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// openDatabase opens a SQLite database with appropriate settings.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// New opens (creating if necessary) the FormID database at dbPath and
// applies pending migrations.
func New(dbPath string, logger *slog.Logger) (*SQLite, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLite{
		db:     db,
		logger: logging.Default(logger).With("component", "storage"),
	}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction.
func (s *SQLite) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction.
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) InsertEntries(ctx context.Context, game types.GameRelease, entries []types.Entry) error {
	return insertEntries(ctx, t.tx, game, entries)
}

func (t *sqliteTx) DeleteByPlugin(ctx context.Context, game types.GameRelease, plugin string) error {
	return deleteByPlugin(ctx, t.tx, game, plugin)
}

// InitGame creates the release's table and indexes if absent.
func (s *SQLite) InitGame(ctx context.Context, game types.GameRelease) error {
	table, err := game.TableName()
	if err != nil {
		return err
	}

	// The table name comes from the release whitelist, never from input.
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			plugin TEXT NOT NULL,
			form_id TEXT NOT NULL,
			entry TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_form_id ON %[1]s(form_id);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_plugin ON %[1]s(plugin);
	`, table)

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table for %s: %w", game, err)
	}
	return nil
}

// InsertEntries writes the batch inside one implicit transaction.
func (s *SQLite) InsertEntries(ctx context.Context, game types.GameRelease, entries []types.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := insertEntries(ctx, tx, game, entries); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// insertEntries writes rows through one prepared statement so every row
// in a batch reuses the same compiled insert.
func insertEntries(ctx context.Context, tx *sql.Tx, game types.GameRelease, entries []types.Entry) error {
	table, err := game.TableName()
	if err != nil {
		return err
	}

	query := fmt.Sprintf("INSERT INTO %s (plugin, form_id, entry) VALUES (?, ?, ?)", table)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Plugin, e.FormID, e.Name); err != nil {
			return fmt.Errorf("failed to insert entry %s/%s: %w", e.Plugin, e.FormID, err)
		}
	}
	return nil
}

// DeleteByPlugin removes every row for the plugin.
func (s *SQLite) DeleteByPlugin(ctx context.Context, game types.GameRelease, plugin string) error {
	return deleteByPlugin(ctx, s.db, game, plugin)
}

func deleteByPlugin(ctx context.Context, q querier, game types.GameRelease, plugin string) error {
	table, err := game.TableName()
	if err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE plugin = ?", table)
	if _, err := q.ExecContext(ctx, query, plugin); err != nil {
		return fmt.Errorf("failed to delete rows for %s: %w", plugin, err)
	}
	return nil
}

// CountByPlugin returns the number of rows stored for the plugin.
func (s *SQLite) CountByPlugin(ctx context.Context, game types.GameRelease, plugin string) (int64, error) {
	table, err := game.TableName()
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE plugin = ?", table)
	var count int64
	if err := s.db.QueryRowContext(ctx, query, plugin).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows for %s: %w", plugin, err)
	}
	return count, nil
}

// ListPlugins returns the distinct plugin names stored for the release.
func (s *SQLite) ListPlugins(ctx context.Context, game types.GameRelease) ([]string, error) {
	table, err := game.TableName()
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT DISTINCT plugin FROM %s ORDER BY plugin", table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plugins: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var plugins []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		plugins = append(plugins, p)
	}
	return plugins, rows.Err()
}

// LookupFormID returns every row whose form id matches exactly.
func (s *SQLite) LookupFormID(ctx context.Context, game types.GameRelease, formID string) ([]types.Entry, error) {
	table, err := game.TableName()
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT plugin, form_id, entry FROM %s WHERE form_id = ? ORDER BY plugin", table)
	entries, err := s.queryEntries(ctx, query, formID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries, nil
}

// SearchByName returns rows whose entry name contains the substring,
// case-insensitive, up to limit rows.
func (s *SQLite) SearchByName(ctx context.Context, game types.GameRelease, name string, limit int) ([]types.Entry, error) {
	table, err := game.TableName()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(
		"SELECT plugin, form_id, entry FROM %s WHERE entry LIKE '%%' || ? || '%%' ORDER BY plugin, form_id LIMIT ?",
		table)
	return s.queryEntries(ctx, query, name, limit)
}

func (s *SQLite) queryEntries(ctx context.Context, query string, args ...interface{}) ([]types.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []types.Entry
	for rows.Next() {
		var e types.Entry
		if err := rows.Scan(&e.Plugin, &e.FormID, &e.Name); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Optimize runs SQLite maintenance. Called once at the end of a run.
func (s *SQLite) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("failed to optimize database: %w", err)
	}
	s.logger.Debug("database optimized")
	return nil
}
