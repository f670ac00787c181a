package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestMigrationManager_UpDown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migration-test.db")

	mgr, err := NewMigrationManager(dbPath)
	if err != nil {
		t.Fatalf("Failed to create migration manager: %v", err)
	}
	defer func() { _ = mgr.Close() }()

	version, _, err := mgr.Version()
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if version != 0 {
		t.Errorf("Expected fresh database at version 0, got %d", version)
	}

	if err := mgr.Up(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	if err := mgr.Up(); err != nil {
		t.Errorf("Expected second Up to be a no-op, got %v", err)
	}

	version, dirty, err := mgr.Version()
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if dirty {
		t.Error("Database is in dirty state after migrations")
	}
	if version != 1 {
		t.Errorf("Expected version 1, got %d", version)
	}

	if err := mgr.Down(); err != nil {
		t.Fatalf("Failed to roll back: %v", err)
	}
}

func TestMigrate_CreatesTables(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tables.db")
	if err := Migrate(dbPath); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = conn.Close() }()

	for _, table := range []string{"game_logs", "game_analytics"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("Expected table %s: %v", table, err)
		}
	}
}

func TestDatabaseURL(t *testing.T) {
	if got := databaseURL("/var/lib/bingo.db"); got != "sqlite:///var/lib/bingo.db" {
		t.Errorf("Expected sqlite:///var/lib/bingo.db, got %s", got)
	}
	if got := databaseURL("rel/bingo.db"); got != "sqlite://rel/bingo.db" {
		t.Errorf("Expected sqlite://rel/bingo.db, got %s", got)
	}
}
