package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	checkStoreContract(t, setupTestDB(t))
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tasks.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := s.Set(ctx, "tasks", "persisted"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	s.Close()

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, "tasks")
	if err != nil || !ok {
		t.Fatalf("expected value after reopen, ok=%v err=%v", ok, err)
	}
	if got != "persisted" {
		t.Errorf("expected %q, got %q", "persisted", got)
	}
}

func TestSQLiteStore_SetHonoursCancelledContext(t *testing.T) {
	s := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Set(ctx, "tasks", "x"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if _, ok, _ := s.Get(context.Background(), "tasks"); ok {
		t.Error("expected no value after failed Set")
	}
}

func TestMigrations_AppliedOnce(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tasks.db")

	for i := 0; i < 2; i++ {
		s, err := NewSQLiteStore(dbPath)
		if err != nil {
			t.Fatalf("open %d failed: %v", i, err)
		}
		s.Close()
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer db.Close()

	migrations, err := migrator{src: migrationsFS}.available()
	if err != nil {
		t.Fatalf("listing migrations failed: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("expected %d recorded migrations, got %d", len(migrations), count)
	}
}

func TestMigrations_AdoptsUntrackedKVTable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "legacy.db")

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE kv (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at DATETIME)`); err != nil {
		t.Fatalf("failed to create legacy table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO kv (key, value) VALUES ('tasks', '[]')`); err != nil {
		t.Fatalf("failed to seed legacy table: %v", err)
	}
	db.Close()

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore on legacy db failed: %v", err)
	}
	defer s.Close()

	got, ok, err := s.Get(context.Background(), "tasks")
	if err != nil || !ok || got != "[]" {
		t.Errorf("expected legacy value to survive, got %q ok=%v err=%v", got, ok, err)
	}
}

func TestMigrations_OrderedAndUnique(t *testing.T) {
	src := fstest.MapFS{
		"migrations/0002_second.sql": {Data: []byte("SELECT 2;")},
		"migrations/0001_first.sql":  {Data: []byte("SELECT 1;")},
		"migrations/README.md":       {Data: []byte("ignored")},
	}

	got, err := migrator{src: src}.available()
	if err != nil {
		t.Fatalf("available failed: %v", err)
	}
	if len(got) != 2 || got[0].version != 1 || got[1].version != 2 {
		t.Fatalf("expected versions 1, 2 in order, got %v", got)
	}

	src["migrations/0002_again.sql"] = &fstest.MapFile{Data: []byte("SELECT 3;")}
	if _, err := (migrator{src: src}).available(); err == nil {
		t.Error("expected error for duplicate migration version")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion int
		wantName    string
		wantErr     bool
	}{
		{filename: "0001_create_kv.sql", wantVersion: 1, wantName: "create_kv"},
		{filename: "12_add_index.sql", wantVersion: 12, wantName: "add_index"},
		{filename: "create_kv.sql", wantErr: true},
		{filename: "abc_create.sql", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, err := parseMigrationFilename(tt.filename)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if version != tt.wantVersion || name != tt.wantName {
				t.Errorf("got (%d, %q), want (%d, %q)", version, name, tt.wantVersion, tt.wantName)
			}
		})
	}
}
