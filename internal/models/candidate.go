package models

import "strconv"

// MatchCandidate is one external lookup result compared against a track
// record. Candidates are ephemeral: they live for a single run unless
// captured inside a dry-run report.
type MatchCandidate struct {
	Source        string  `json:"source"`
	Artist        string  `json:"artist,omitempty"`
	Title         string  `json:"title,omitempty"`
	Album         string  `json:"album,omitempty"`
	Year          int     `json:"year,omitempty"`
	Duration      int     `json:"duration,omitempty"` // seconds
	MBRecordingID string  `json:"mb_recording_id,omitempty"`
	MBReleaseID   string  `json:"mb_release_id,omitempty"`
	RawScore      int     `json:"raw_score,omitempty"` // server-side relevance, 0-100
	Confidence    float64 `json:"confidence"`          // Scorer output, 0.0-1.0
}

// Field returns the named candidate field as a string, or "" when unset.
func (c *MatchCandidate) Field(name string) string {
	switch name {
	case "artist":
		return c.Artist
	case "title":
		return c.Title
	case "album":
		return c.Album
	case "year":
		if c.Year == 0 {
			return ""
		}
		return strconv.Itoa(c.Year)
	}
	return ""
}

// ArtworkCandidate describes one piece of album art offered by an external
// source.
type ArtworkCandidate struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Type   string `json:"type"`   // "front", "back", "unknown"
	Format string `json:"format"` // "jpeg", "jpg", "png"
	Source string `json:"source"` // "coverartarchive", "itunes", "discogs", "existing"
}

// ArtworkDecision records the outcome of artwork selection for a track.
type ArtworkDecision struct {
	Outcome       string `json:"outcome"` // "unchanged", "filled", "upgraded"
	Available     bool   `json:"available"`
	NewScore      int    `json:"new_score,omitempty"`
	ExistingScore int    `json:"existing_score"`
	Upgrade       bool   `json:"upgrade"`
	Source        string `json:"source,omitempty"`
}

const (
	ArtworkUnchanged = "unchanged"
	ArtworkFilled    = "filled"
	ArtworkUpgraded  = "upgraded"
)
