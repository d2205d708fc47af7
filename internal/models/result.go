package models

// Track statuses recorded in the enriched output.
const (
	StatusEnriched = "enriched" // auto-accepted at high confidence
	StatusFlagged  = "flagged"  // needs a human decision
	StatusNoMatch  = "no_match" // best candidate below the review threshold
	StatusSkipped  = "skipped"  // resume skip, offline pass-through, or data error
)

// Review reasons attached to ReviewItem entries.
const (
	ReasonConfidenceBand   = "confidence_between_thresholds"
	ReasonNoArtistOrTitle  = "no_artist_or_title"
	ReasonCandidatesDiffer = "multiple_high_confidence_disagree"
	ReasonArtworkUpgrade   = "artwork_upgrade_with_existing"
	ReasonLikelyCorrection = "likely_correction"
)

// Enrichment is the per-track annotation attached to the enriched output.
type Enrichment struct {
	Status          string             `json:"status"`
	Reason          string             `json:"reason,omitempty"`
	Timestamp       string             `json:"timestamp"`
	MatchConfidence float64            `json:"match_confidence,omitempty"`
	Source          string             `json:"source,omitempty"`
	FieldsUpdated   []string           `json:"fields_updated,omitempty"`
	FieldsConfirmed []string           `json:"fields_confirmed,omitempty"`
	Conflicts       []FieldDisposition `json:"conflicts,omitempty"`
	MBRecordingID   string             `json:"mb_recording_id,omitempty"`
	MBReleaseID     string             `json:"mb_release_id,omitempty"`
	Artwork         *ArtworkDecision   `json:"artwork,omitempty"`
}

// EnrichmentResult is the full outcome of processing one track: the
// annotation, the field mutations to apply, and an optional review entry.
type EnrichmentResult struct {
	TrackID    string        `json:"track_id"`
	Enrichment *Enrichment   `json:"enrichment"`
	Updates    *FieldUpdates `json:"proposed_updates,omitempty"`
	Review     *ReviewItem   `json:"review,omitempty"`

	// ArtworkCandidate survives only inside dry-run reports so the apply
	// run can download the chosen art without re-querying the archives.
	ArtworkCandidate *ArtworkCandidate `json:"artwork_candidate,omitempty"`
}

// Suggestion is one candidate surfaced to the operator on a review item.
type Suggestion struct {
	Source     string            `json:"source"`
	Confidence float64           `json:"confidence"`
	Fields     map[string]string `json:"fields"`
}

// ReviewItem is one entry in the review queue: a track needing a human
// decision, the reasons it was flagged, and the competing values.
type ReviewItem struct {
	TrackID     string             `json:"track_id"`
	Filename    string             `json:"filename,omitempty"`
	Reasons     []string           `json:"reason"`
	Existing    map[string]string  `json:"existing"`
	Suggestions []Suggestion       `json:"suggestions"`
	Conflicts   []FieldDisposition `json:"conflicts,omitempty"`
}

// ReviewQueue is the persisted review artifact.
type ReviewQueue struct {
	Version   int          `json:"version"`
	Generated string       `json:"generated"`
	Items     []ReviewItem `json:"items"`
}

// DryRunSummary aggregates a preview run for the operator.
type DryRunSummary struct {
	Total         int `json:"total"`
	AutoAccept    int `json:"auto_accept"`
	ReviewNeeded  int `json:"review_needed"`
	WithUpdates   int `json:"with_updates"`
	WithConflicts int `json:"with_conflicts"`
}

// DryRunReport is the durable snapshot of a preview run. Applying it is
// idempotent: the report is deleted after a successful apply, and the resume
// state has by then recorded every affected id.
type DryRunReport struct {
	Version   int                `json:"version"`
	Generated string             `json:"generated"`
	Mode      string             `json:"mode"` // always "dry_run"
	Summary   DryRunSummary      `json:"summary"`
	Tracks    []EnrichmentResult `json:"tracks"`
}

// RunStats is the end-of-run accounting surfaced to the operator.
type RunStats struct {
	Total         int `json:"total"`
	Processed     int `json:"processed"`
	FromCache     int `json:"from_cache"`
	SkippedResume int `json:"skipped_resume"`
	AutoAccepted  int `json:"auto_accepted"`
	Flagged       int `json:"flagged"`
	NoMatch       int `json:"no_match"`
	Skipped       int `json:"skipped"`
}
