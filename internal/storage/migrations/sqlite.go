package migrations

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"
)

// RunSQLiteMigrations applies the embedded SQLite migrations not yet recorded
// in schema_migrations, statement by statement inside one transaction per file.
func RunSQLiteMigrations(ctx context.Context, db *sql.DB, log logrus.FieldLogger) error {
	_, err := run(ctx, "sqlite", SQLiteFS, "sqlite", sqliteTarget{db: db}, log)
	return err
}

type sqliteTarget struct {
	db *sql.DB
}

func (t sqliteTarget) prepare(ctx context.Context) (map[string]bool, error) {
	if _, err := t.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at INTEGER NOT NULL DEFAULT (unixepoch())
		)`); err != nil {
		return nil, err
	}

	rows, err := t.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versionSet(versions), rows.Err()
}

func (t sqliteTarget) apply(ctx context.Context, m migration) error {
	stmts, err := statements(m)
	if err != nil {
		return err
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
		return err
	}
	return tx.Commit()
}
