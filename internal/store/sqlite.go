package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tartampluch/go-noor/internal/config"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - empty file
// 1 - collections registry and records table
const currentSchemaVersion = config.SchemaVersion

type sqliteBackend struct {
	db  *sqlx.DB
	now func() time.Time
}

type row struct {
	Collection string `db:"collection"`
	Key        string `db:"key"`
	Value      []byte `db:"value"`
	UpdatedAt  int64  `db:"updated_at"`
}

func openSQLite(ctx context.Context, path string, now func() time.Time) (*sqliteBackend, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrCreateDir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		path, config.SQLiteBusyTimeout)
	db, err := sqlx.Open(config.SQLiteDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; one connection avoids SQLITE_BUSY between
	// the reader and a transaction.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	b := &sqliteBackend{db: db, now: now}
	if err := b.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrSchemaMigration, err)
	}
	return b, nil
}

// migrate upgrades the file to currentSchemaVersion and registers any missing
// collection. Existing records are never touched, and running it again on an
// up-to-date file changes nothing.
func (b *sqliteBackend) migrate(ctx context.Context) error {
	var version int
	if err := b.db.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if _, err := b.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	created := b.now().UnixNano()
	for _, name := range Collections {
		if _, err := b.db.ExecContext(ctx,
			`INSERT INTO collections (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
			name, created); err != nil {
			return fmt.Errorf("register collection %s: %w", name, err)
		}
	}

	if version != currentSchemaVersion {
		if _, err := b.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
		slog.Info(config.MsgStoreMigrated,
			slog.String(config.LogKeyComponent, config.CompStore),
			slog.Int(config.LogKeyVersion, currentSchemaVersion),
		)
	}
	return nil
}

func (b *sqliteBackend) kind() string { return config.SQLiteDriver }

func (b *sqliteBackend) close() error { return b.db.Close() }

func (b *sqliteBackend) get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	var value []byte
	err := b.db.GetContext(ctx, &value,
		`SELECT value FROM records WHERE collection = ? AND key = ?`, collection, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}
	return value, true, nil
}

func (b *sqliteBackend) getAll(ctx context.Context, collection string) ([]Record, error) {
	var rows []row
	if err := b.db.SelectContext(ctx, &rows,
		`SELECT collection, key, value, updated_at FROM records WHERE collection = ? ORDER BY key`,
		collection); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}

	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{
			Collection: r.Collection,
			Key:        r.Key,
			Value:      r.Value,
			UpdatedAt:  time.Unix(0, r.UpdatedAt),
		})
	}
	return out, nil
}

func (b *sqliteBackend) collections(ctx context.Context) ([]string, error) {
	var names []string
	if err := b.db.SelectContext(ctx, &names, `SELECT name FROM collections ORDER BY name`); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}
	return names, nil
}

func (b *sqliteBackend) update(ctx context.Context, fn func(Tx) error) error {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", config.ErrStoreWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&sqliteTx{ctx: ctx, tx: tx, now: b.now().UnixNano()}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", config.ErrStoreWrite, err)
	}
	return nil
}

type sqliteTx struct {
	ctx context.Context
	tx  *sqlx.Tx
	now int64
}

func (t *sqliteTx) Get(collection, key string) ([]byte, bool, error) {
	var value []byte
	err := t.tx.GetContext(t.ctx, &value,
		`SELECT value FROM records WHERE collection = ? AND key = ?`, collection, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}
	return value, true, nil
}

func (t *sqliteTx) Put(collection, key string, value []byte) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO records (collection, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		collection, key, value, t.now)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	return nil
}

func (t *sqliteTx) Delete(collection, key string) error {
	if _, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM records WHERE collection = ? AND key = ?`, collection, key); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	return nil
}
