package shared

import (
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		if migrations[0].Name != "create_merges" {
			t.Errorf("expected first migration to be create_merges, got %s", migrations[0].Name)
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(1)

		version, err := CurrentVersion(db)
		if err != nil {
			t.Fatalf("CurrentVersion() error = %v", err)
		}
		if version != -1 {
			t.Errorf("expected no applied migrations, got version %d", version)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		if _, err := db.Exec("SELECT 1 FROM merges LIMIT 1"); err != nil {
			t.Errorf("merges table should exist after migrations: %v", err)
		}

		version, err = CurrentVersion(db)
		if err != nil {
			t.Fatalf("CurrentVersion() error = %v", err)
		}
		if version != 0 {
			t.Errorf("expected version 0, got %d", version)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("running migrations twice should be a no-op: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		if _, err := db.Exec("SELECT 1 FROM merges LIMIT 1"); err == nil {
			t.Error("merges table should not exist after rollback")
		}

		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when nothing is left to roll back")
		}
	})

	t.Run("removeComments", func(t *testing.T) {
		got := removeComments("-- header\nSELECT 1; -- trailing\n\n  ")
		if got != "SELECT 1;" {
			t.Errorf("removeComments() = %q", got)
		}
	})
}
