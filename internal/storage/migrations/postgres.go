package migrations

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// RunPostgresMigrations applies the embedded PostgreSQL migrations not yet
// recorded in schema_migrations. Each file runs in its own transaction
// together with its version row.
func RunPostgresMigrations(ctx context.Context, pool *pgxpool.Pool, log logrus.FieldLogger) error {
	_, err := run(ctx, "postgres", PostgresFS, "postgres", pgTarget{pool: pool}, log)
	return err
}

type pgTarget struct {
	pool *pgxpool.Pool
}

func (t pgTarget) prepare(ctx context.Context) (map[string]bool, error) {
	if _, err := t.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return nil, err
	}

	rows, err := t.pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return versionSet(versions), nil
}

func (t pgTarget) apply(ctx context.Context, m migration) error {
	return pgx.BeginFunc(ctx, t.pool, func(tx pgx.Tx) error {
		// No arguments, so pgx sends the whole file over the simple protocol.
		if _, err := tx.Exec(ctx, m.body); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.version)
		return err
	})
}
