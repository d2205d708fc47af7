package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rmzi/crate/internal/shared"
)

// StateDBName is the resume-state database file under the output directory.
const StateDBName = "enrichment_state.db"

// ResumeState is the durable set of already-processed track ids. Inserts
// happen after every completed track, so a crash loses at most the in-flight
// track's work. The set grows monotonically and shrinks only through the
// explicit Remove and Clear operations.
type ResumeState struct {
	db *sql.DB
}

// OpenResumeState opens (or creates) the resume database under dir. A
// corrupt database is treated as absent: losing the set only redoes work,
// while trusting corrupt data silently would not be safe.
func OpenResumeState(dir string) (*ResumeState, error) {
	path := filepath.Join(dir, StateDBName)

	db, err := openAndMigrate(path)
	if err != nil {
		// unreadable or malformed; start over with an empty set
		os.Remove(path)
		db, err = openAndMigrate(path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize resume state: %w", err)
		}
	}

	return &ResumeState{db: db}, nil
}

func openAndMigrate(path string) (*sql.DB, error) {
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// ShouldProcess reports whether the track has not been processed yet.
func (s *ResumeState) ShouldProcess(trackID string) bool {
	return !s.Contains(trackID)
}

// Contains reports whether the track id is in the processed set.
func (s *ResumeState) Contains(trackID string) bool {
	var exists bool
	err := s.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM processed_tracks WHERE track_id = ?)", trackID,
	).Scan(&exists)
	return err == nil && exists
}

// MarkProcessed adds the track id to the processed set. The insert commits
// immediately; there is no batching.
func (s *ResumeState) MarkProcessed(trackID, runID string) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO processed_tracks (track_id, run_id) VALUES (?, ?)",
		trackID, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark track processed: %w", err)
	}
	return nil
}

// Remove deletes one track id from the set so the next run reprocesses
// exactly that track.
func (s *ResumeState) Remove(trackID string) error {
	res, err := s.db.Exec("DELETE FROM processed_tracks WHERE track_id = ?", trackID)
	if err != nil {
		return fmt.Errorf("failed to remove track from state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("track %q not present in resume state", trackID)
	}
	return nil
}

// Clear empties the processed set.
func (s *ResumeState) Clear() error {
	if _, err := s.db.Exec("DELETE FROM processed_tracks"); err != nil {
		return fmt.Errorf("failed to clear resume state: %w", err)
	}
	return nil
}

// Count returns the size of the processed set.
func (s *ResumeState) Count() int {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM processed_tracks").Scan(&count); err != nil {
		return 0
	}
	return count
}

// List returns the processed track ids in insertion order.
func (s *ResumeState) List() ([]string, error) {
	rows, err := s.db.Query("SELECT track_id FROM processed_tracks ORDER BY processed_at, track_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list resume state: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan track id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close releases the underlying database handle.
func (s *ResumeState) Close() error {
	return s.db.Close()
}
