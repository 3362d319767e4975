package migrations

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"
)

// RunClickhouseMigrations applies the embedded ClickHouse migrations not yet
// recorded in schema_migrations. The database must already exist; see
// clickhouse.EnsureDatabase. ClickHouse has no DDL transactions, so a file
// that fails halfway is retried from its first statement on the next run,
// which the IF NOT EXISTS guards in the files make safe.
func RunClickhouseMigrations(ctx context.Context, conn driver.Conn, log logrus.FieldLogger) error {
	_, err := run(ctx, "clickhouse", ClickhouseFS, "clickhouse", chTarget{conn: conn}, log)
	return err
}

type chTarget struct {
	conn driver.Conn
}

func (t chTarget) prepare(ctx context.Context) (map[string]bool, error) {
	if err := t.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    String,
			applied_at DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree
		ORDER BY version`); err != nil {
		return nil, err
	}

	rows, err := t.conn.Query(ctx, `SELECT DISTINCT version FROM schema_migrations`)
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

func (t chTarget) apply(ctx context.Context, m migration) error {
	stmts, err := statements(m)
	if err != nil {
		return err
	}
	// The native protocol executes one statement per call.
	for _, stmt := range stmts {
		if err := t.conn.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return t.conn.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.version)
}
