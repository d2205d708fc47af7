package shared

import "testing"

func TestMigrations(t *testing.T) {
	t.Run("applies schema to a fresh database", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatal(err)
		}

		if _, err := db.Exec(
			"INSERT INTO processed_tracks (track_id, run_id) VALUES (?, ?)", "t1", "r1",
		); err != nil {
			t.Errorf("processed_tracks table missing after migrations: %v", err)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatal(err)
		}
		if err := RunMigrations(db); err != nil {
			t.Errorf("second run should be a no-op, got %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("expected 1 recorded migration, got %d", count)
		}
	})
}
