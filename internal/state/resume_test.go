package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResumeState(t *testing.T) {
	t.Run("round-trip", func(t *testing.T) {
		dir := t.TempDir()
		rs, err := OpenResumeState(dir)
		if err != nil {
			t.Fatal(err)
		}
		defer rs.Close()

		if rs.Contains("t1") {
			t.Error("fresh state must be empty")
		}
		if !rs.ShouldProcess("t1") {
			t.Error("unseen track must be processed")
		}

		if err := rs.MarkProcessed("t1", "run-1"); err != nil {
			t.Fatal(err)
		}
		if !rs.Contains("t1") {
			t.Error("marked track must be contained")
		}
		if rs.ShouldProcess("t1") {
			t.Error("marked track must not be reprocessed")
		}
		if rs.Count() != 1 {
			t.Errorf("expected count 1, got %d", rs.Count())
		}
	})

	t.Run("marking twice is a no-op", func(t *testing.T) {
		rs, err := OpenResumeState(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		defer rs.Close()

		if err := rs.MarkProcessed("t1", "run-1"); err != nil {
			t.Fatal(err)
		}
		if err := rs.MarkProcessed("t1", "run-2"); err != nil {
			t.Errorf("duplicate mark should not error: %v", err)
		}
		if rs.Count() != 1 {
			t.Errorf("expected count 1, got %d", rs.Count())
		}
	})

	t.Run("persists across reopen", func(t *testing.T) {
		dir := t.TempDir()

		rs, err := OpenResumeState(dir)
		if err != nil {
			t.Fatal(err)
		}
		if err := rs.MarkProcessed("t1", "run-1"); err != nil {
			t.Fatal(err)
		}
		rs.Close()

		rs, err = OpenResumeState(dir)
		if err != nil {
			t.Fatal(err)
		}
		defer rs.Close()
		if !rs.Contains("t1") {
			t.Error("state must survive reopen")
		}
	})

	t.Run("Remove", func(t *testing.T) {
		rs, err := OpenResumeState(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		defer rs.Close()

		if err := rs.MarkProcessed("t1", "run-1"); err != nil {
			t.Fatal(err)
		}
		if err := rs.Remove("t1"); err != nil {
			t.Fatal(err)
		}
		if rs.Contains("t1") {
			t.Error("removed track must not be contained")
		}

		if err := rs.Remove("absent"); err == nil {
			t.Error("removing an absent id must error")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		rs, err := OpenResumeState(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		defer rs.Close()

		for _, id := range []string{"t1", "t2", "t3"} {
			if err := rs.MarkProcessed(id, "run-1"); err != nil {
				t.Fatal(err)
			}
		}
		if err := rs.Clear(); err != nil {
			t.Fatal(err)
		}
		if rs.Count() != 0 {
			t.Errorf("expected empty state after clear, got %d", rs.Count())
		}
	})

	t.Run("List preserves insertion order", func(t *testing.T) {
		rs, err := OpenResumeState(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		defer rs.Close()

		want := []string{"a", "b", "c"}
		for _, id := range want {
			if err := rs.MarkProcessed(id, "run-1"); err != nil {
				t.Fatal(err)
			}
		}

		ids, err := rs.List()
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != len(want) {
			t.Fatalf("expected %d ids, got %d", len(want), len(ids))
		}
		for i, id := range want {
			if ids[i] != id {
				t.Errorf("position %d: expected %s, got %s", i, id, ids[i])
			}
		}
	})

	t.Run("corrupt database starts over empty", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, StateDBName)
		if err := os.WriteFile(path, []byte("this is not a sqlite file"), 0644); err != nil {
			t.Fatal(err)
		}

		rs, err := OpenResumeState(dir)
		if err != nil {
			t.Fatalf("corrupt database must be recreated, got %v", err)
		}
		defer rs.Close()

		if rs.Count() != 0 {
			t.Errorf("expected empty state after recreation, got %d", rs.Count())
		}
		if err := rs.MarkProcessed("t1", "run-1"); err != nil {
			t.Errorf("recreated state must be writable: %v", err)
		}
	})
}
