package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestSplitStatements(t *testing.T) {
	input := `
-- header comment
CREATE TABLE a (x INTEGER);

-- second
CREATE INDEX i ON a (x);
`
	stmts := splitStatements(input)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x INTEGER)", stmts[0])
	assert.Equal(t, "CREATE INDEX i ON a (x)", stmts[1])
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'it''s fine';`))
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT '';`))
	assert.Error(t, validateNoSemicolonInStrings(`SELECT 'a;b';`))
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	for dir, fsys := range map[string]embed.FS{
		"postgres":   PostgresFS,
		"clickhouse": ClickhouseFS,
		"sqlite":     SQLiteFS,
	} {
		entries, err := fsys.ReadDir(dir)
		require.NoError(t, err, dir)
		assert.NotEmpty(t, entries, dir)
	}
}

// memTarget records applied versions in memory.
type memTarget struct {
	recorded []string
	failOn   string
}

func (m *memTarget) prepare(context.Context) (map[string]bool, error) {
	return versionSet(m.recorded), nil
}

func (m *memTarget) apply(_ context.Context, mig migration) error {
	if mig.version == m.failOn {
		return errors.New("syntax error")
	}
	m.recorded = append(m.recorded, mig.version)
	return nil
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"db/002_b.sql":   {Data: []byte("CREATE TABLE b (x INTEGER);")},
		"db/001_a.sql":   {Data: []byte("CREATE TABLE a (x INTEGER);")},
		"db/003_c.sql":   {Data: []byte("  \n")},
		"db/README.md":   {Data: []byte("not a migration")},
		"db/old/004.sql": {Data: []byte("CREATE TABLE d (x INTEGER);")},
	}
}

func TestRun_AppliesPendingInOrderOnce(t *testing.T) {
	logger, hook := test.NewNullLogger()
	tgt := &memTarget{}

	n, err := run(context.Background(), "mem", testFS(), "db", tgt, logger)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"001_a.sql", "002_b.sql"}, tgt.recorded)
	assert.Equal(t, "001_a.sql", hook.AllEntries()[0].Data["version"])

	n, err = run(context.Background(), "mem", testFS(), "db", tgt, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, tgt.recorded, 2)
}

func TestRun_StopsAtFailure(t *testing.T) {
	tgt := &memTarget{failOn: "002_b.sql"}

	n, err := run(context.Background(), "mem", testFS(), "db", tgt, nil)
	assert.ErrorContains(t, err, "apply mem migration 002_b.sql")
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"001_a.sql"}, tgt.recorded)
}

func TestRunSQLiteMigrations_RecordsVersions(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunSQLiteMigrations(ctx, db, nil))
	require.NoError(t, RunSQLiteMigrations(ctx, db, nil))

	var versions []string
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var v string
		require.NoError(t, rows.Scan(&v))
		versions = append(versions, v)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"001_init.sql"}, versions)

	_, err = db.ExecContext(ctx, `INSERT INTO rules (id, name, amount, slippage_pct, created_at, updated_at) VALUES ('r1', 'frogs', 0.1, 10, 1, 1)`)
	assert.NoError(t, err, "schema usable after migration")
}
