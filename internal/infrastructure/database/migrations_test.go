package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260101_000000_variables.up.sql":   {Data: []byte("CREATE TABLE vars (key TEXT PRIMARY KEY, value TEXT NOT NULL);")},
		"20260101_000000_variables.down.sql": {Data: []byte("DROP TABLE vars;")},
		"20260102_000000_history.up.sql":     {Data: []byte("CREATE TABLE hist (id INTEGER PRIMARY KEY);")},
		"20260102_000000_history.down.sql":   {Data: []byte("DROP TABLE hist;")},
		"README.md":                          {Data: []byte("ignored")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrateFS(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.MigrateFS(ctx, testMigrations()); err != nil {
		t.Fatalf("MigrateFS() error = %v", err)
	}
	if !tableExists(t, db, "vars") || !tableExists(t, db, "hist") {
		t.Fatal("migrations did not create both tables")
	}

	applied, pending, err := db.migrationStatus(ctx, testMigrations())
	if err != nil {
		t.Fatalf("migrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied = %d, pending = %d; want 2, 0", len(applied), len(pending))
	}
	if applied[0].Version != "20260101_000000" {
		t.Errorf("first applied = %s", applied[0].Version)
	}

	if err := db.MigrateFS(ctx, testMigrations()); err != nil {
		t.Fatalf("second MigrateFS() error = %v", err)
	}
}

func TestMigrateDownFS(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.MigrateFS(ctx, testMigrations()); err != nil {
		t.Fatalf("MigrateFS() error = %v", err)
	}
	if err := db.MigrateDownFS(ctx, testMigrations()); err != nil {
		t.Fatalf("MigrateDownFS() error = %v", err)
	}

	if tableExists(t, db, "hist") {
		t.Error("hist should be dropped by rollback")
	}
	if !tableExists(t, db, "vars") {
		t.Error("vars should survive rollback of the later migration")
	}
}

func TestMigrateFS_FailureRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := testMigrations()
	fsys["20260103_000000_broken.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE broken (;")}

	if err := db.MigrateFS(ctx, fsys); err == nil {
		t.Fatal("MigrateFS() expected error for broken migration")
	}

	applied, _, err := db.migrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("migrationStatus() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("applied = %d, want 2 (earlier migrations stay committed)", len(applied))
	}
}

func TestMigrateFS_Nil(t *testing.T) {
	db := openTestDB(t)
	if err := db.MigrateFS(context.Background(), nil); err != nil {
		t.Errorf("MigrateFS(nil) error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		wantVersion string
		wantUp      bool
		wantOK      bool
	}{
		{"20260101_000000_initial_schema.up.sql", "20260101_000000", true, true},
		{"20260101_000000_initial_schema.down.sql", "20260101_000000", false, true},
		{"20260101_000000_initial_schema.sql", "", false, false},
		{"notes.txt", "", false, false},
		{"single.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.name)
			if version != tt.wantVersion || isUp != tt.wantUp || ok != tt.wantOK {
				t.Errorf("parseMigrationFilename() = %q, %v, %v; want %q, %v, %v",
					version, isUp, ok, tt.wantVersion, tt.wantUp, tt.wantOK)
			}
		})
	}
}

func TestMigrationName(t *testing.T) {
	if got := migrationName("20260101_000000_initial_schema.up.sql"); got != "initial_schema" {
		t.Errorf("migrationName() = %q, want initial_schema", got)
	}
}
