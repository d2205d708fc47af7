package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rmzi/crate/internal/models"
	"github.com/rmzi/crate/internal/shared"
)

// DryRunReportName is the preview snapshot file under the output directory.
const DryRunReportName = "dry_run_report.json"

// DryRunCache replays the results of a preview run so a real run can apply
// them without re-querying the lookup services.
type DryRunCache struct {
	path    string
	entries map[string]models.EnrichmentResult
}

// LoadDryRunCache reads the dry-run report under dir. A missing, corrupt, or
// non-dry-run file yields an empty cache; stale previews are safe to redo,
// silently trusting garbage is not.
func LoadDryRunCache(dir string) *DryRunCache {
	cache := &DryRunCache{
		path:    filepath.Join(dir, DryRunReportName),
		entries: map[string]models.EnrichmentResult{},
	}

	data, err := os.ReadFile(cache.path)
	if err != nil {
		return cache
	}

	var report models.DryRunReport
	if err := json.Unmarshal(data, &report); err != nil || report.Mode != "dry_run" {
		return cache
	}

	for _, entry := range report.Tracks {
		if entry.TrackID != "" {
			cache.entries[entry.TrackID] = entry
		}
	}
	return cache
}

// Get returns the cached result for a track id.
func (c *DryRunCache) Get(trackID string) (models.EnrichmentResult, bool) {
	entry, ok := c.entries[trackID]
	return entry, ok
}

// Len returns the number of cached results.
func (c *DryRunCache) Len() int {
	return len(c.entries)
}

// Consume deletes the report file after a successful apply so stale matches
// cannot be reapplied. Consuming an absent report is a no-op.
func (c *DryRunCache) Consume() error {
	err := os.Remove(c.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove dry-run report: %w", err)
	}
	return nil
}

// WriteDryRunReport persists the preview snapshot under dir.
func WriteDryRunReport(dir string, results []models.EnrichmentResult) (string, error) {
	report := models.DryRunReport{
		Version:   1,
		Generated: shared.Timestamp(),
		Mode:      "dry_run",
		Tracks:    results,
	}
	for _, r := range results {
		report.Summary.Total++
		if r.Enrichment != nil {
			switch r.Enrichment.Status {
			case models.StatusEnriched:
				report.Summary.AutoAccept++
			case models.StatusFlagged:
				report.Summary.ReviewNeeded++
			}
			if len(r.Enrichment.Conflicts) > 0 {
				report.Summary.WithConflicts++
			}
		}
		if !r.Updates.IsEmpty() {
			report.Summary.WithUpdates++
		}
	}

	data, err := shared.MarshalJSON(report, true)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, DryRunReportName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write dry-run report: %w", err)
	}
	return path, nil
}
