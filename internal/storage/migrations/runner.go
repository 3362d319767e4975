package migrations

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// migration is one embedded SQL file, versioned by its file name.
type migration struct {
	version string
	body    string
}

// target is a database the runner can migrate. Each backend keeps its
// applied versions in a schema_migrations table of its own dialect.
type target interface {
	// prepare creates the bookkeeping table and returns the versions already applied.
	prepare(ctx context.Context) (map[string]bool, error)
	// apply runs m and records its version.
	apply(ctx context.Context, m migration) error
}

// run applies every migration under dir in fsys that t has not recorded yet,
// in lexical order, and returns how many were applied.
func run(ctx context.Context, backend string, fsys fs.FS, dir string, t target, log logrus.FieldLogger) (int, error) {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	log = log.WithFields(logrus.Fields{"component": "migrations", "backend": backend})

	pending, err := load(fsys, dir)
	if err != nil {
		return 0, err
	}

	applied, err := t.prepare(ctx)
	if err != nil {
		return 0, fmt.Errorf("prepare %s schema_migrations: %w", backend, err)
	}

	n := 0
	for _, m := range pending {
		if applied[m.version] {
			continue
		}
		if err := t.apply(ctx, m); err != nil {
			return n, fmt.Errorf("apply %s migration %s: %w", backend, m.version, err)
		}
		log.WithField("version", m.version).Info("migration applied")
		n++
	}

	log.WithFields(logrus.Fields{"applied": n, "known": len(pending)}).Debug("schema up to date")
	return n, nil
}

func load(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations %s: %w", dir, err)
	}

	var out []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		out = append(out, migration{version: entry.Name(), body: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// statements splits a migration for drivers that execute one statement per call.
func statements(m migration) ([]string, error) {
	if err := validateNoSemicolonInStrings(m.body); err != nil {
		return nil, err
	}
	return splitStatements(m.body), nil
}

// splitStatements drops blank and "--" comment lines and splits on ";".
// Semicolons inside string literals or block comments are not supported;
// validateNoSemicolonInStrings rejects the former before splitting.
func splitStatements(input string) []string {
	var kept []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				i++ // escaped quote
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return fmt.Errorf("semicolon inside string literal at offset %d", i)
			}
		}
	}
	return nil
}

func versionSet(versions []string) map[string]bool {
	set := make(map[string]bool, len(versions))
	for _, v := range versions {
		set[v] = true
	}
	return set
}
