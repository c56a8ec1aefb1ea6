package store

import (
	"cmp"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type migration struct {
	version int
	name    string
	sql     string
}

func (m migration) String() string {
	return fmt.Sprintf("%04d_%s", m.version, m.name)
}

// migrator brings a kv database up to the newest embedded schema version.
type migrator struct {
	db  *sql.DB
	src fs.FS
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	return migrator{db: db, src: migrationsFS}.run(ctx)
}

func (m migrator) run(ctx context.Context) error {
	const bookkeeping = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := m.db.ExecContext(ctx, bookkeeping); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	pending, err := m.available()
	if err != nil {
		return err
	}
	if err := adoptUntrackedSchema(ctx, m.db, pending); err != nil {
		return err
	}

	done, err := m.applied(ctx)
	if err != nil {
		return err
	}
	pending = slices.DeleteFunc(pending, func(mg migration) bool { return done[mg.version] })

	for _, mg := range pending {
		if err := m.apply(ctx, mg); err != nil {
			return err
		}
	}
	return nil
}

// available lists the embedded migrations in version order.
func (m migrator) available() ([]migration, error) {
	files, err := fs.Glob(m.src, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	out := make([]migration, 0, len(files))
	for _, file := range files {
		version, name, err := parseMigrationFilename(path.Base(file))
		if err != nil {
			return nil, err
		}
		body, err := fs.ReadFile(m.src, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		out = append(out, migration{version: version, name: name, sql: string(body)})
	}

	slices.SortFunc(out, func(a, b migration) int { return cmp.Compare(a.version, b.version) })
	for i := 1; i < len(out); i++ {
		if out[i].version == out[i-1].version {
			return nil, fmt.Errorf("duplicate migration version: %d", out[i].version)
		}
	}
	return out, nil
}

func (m migrator) applied(ctx context.Context) (map[int]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		done[v] = true
	}
	return done, rows.Err()
}

// apply runs one migration and records it in the same transaction.
func (m migrator) apply(ctx context.Context, mg migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", mg, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mg.sql); err != nil {
		return fmt.Errorf("failed to apply migration %s: %w", mg, err)
	}
	if err := recordMigration(ctx, tx, mg); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", mg, err)
	}
	return nil
}

// parseMigrationFilename splits "<version>_<name>.sql".
func parseMigrationFilename(filename string) (int, string, error) {
	base := strings.TrimSuffix(filename, path.Ext(filename))
	versionPart, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return 0, "", fmt.Errorf("invalid migration filename %q: expected '<version>_<name>.sql'", filename)
	}

	version, err := strconv.Atoi(versionPart)
	if err != nil {
		return 0, "", fmt.Errorf("invalid migration version in %q: %w", filename, err)
	}

	return version, name, nil
}

func recordMigration(ctx context.Context, tx *sql.Tx, mg migration) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, mg.version, mg.name)
	if err != nil {
		return fmt.Errorf("failed to record migration %s: %w", mg, err)
	}
	return nil
}

// adoptUntrackedSchema marks the initial migration as applied when a kv
// table already exists in a database that predates schema_migrations.
func adoptUntrackedSchema(ctx context.Context, db *sql.DB, migrations []migration) error {
	if len(migrations) == 0 {
		return nil
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count existing migrations: %w", err)
	}
	if count > 0 {
		return nil
	}

	hasKV, err := tableExists(ctx, db, "kv")
	if err != nil || !hasKV {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema adoption: %w", err)
	}
	defer tx.Rollback()

	if err := recordMigration(ctx, tx, migrations[0]); err != nil {
		return err
	}

	return tx.Commit()
}

func tableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var name string
	err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}

	return true, nil
}
