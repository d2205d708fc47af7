package models

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
)

// TrackRecord is the unit of work: one song with its existing tags.
// Identity is the track id; enrichment never changes it.
type TrackRecord struct {
	ID               string      `json:"id"`
	Path             string      `json:"path,omitempty"`
	OriginalFilename string      `json:"original_filename,omitempty"`
	Artist           string      `json:"artist,omitempty"`
	Title            string      `json:"title,omitempty"`
	Album            string      `json:"album,omitempty"`
	Year             int         `json:"year,omitempty"`
	Duration         int         `json:"duration,omitempty"` // seconds
	Genre            string      `json:"genre,omitempty"`
	ArtworkPath      string      `json:"artwork_path,omitempty"`
	Enrichment       *Enrichment `json:"enrichment,omitempty"`
}

// Validate checks that the record can be processed at all.
func (t *TrackRecord) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("track record has no id")
	}
	return nil
}

// DisplayName returns the most human-readable handle for log lines.
func (t *TrackRecord) DisplayName() string {
	if t.OriginalFilename != "" {
		return t.OriginalFilename
	}
	if t.Path != "" {
		return path.Base(t.Path)
	}
	return t.ID
}

// Field returns the named tag field as a string, or "" when unset.
func (t *TrackRecord) Field(name string) string {
	switch name {
	case "artist":
		return t.Artist
	case "title":
		return t.Title
	case "album":
		return t.Album
	case "genre":
		return t.Genre
	case "year":
		if t.Year == 0 {
			return ""
		}
		return fmt.Sprintf("%d", t.Year)
	}
	return ""
}

// FieldUpdates carries proposed tag mutations for a track. Pointer fields
// distinguish "no change" from "set to empty".
type FieldUpdates struct {
	Artist      *string `json:"artist,omitempty"`
	Title       *string `json:"title,omitempty"`
	Album       *string `json:"album,omitempty"`
	Genre       *string `json:"genre,omitempty"`
	Year        *int    `json:"year,omitempty"`
	ArtworkPath *string `json:"artwork_path,omitempty"`
}

// IsEmpty reports whether no update is carried.
func (u *FieldUpdates) IsEmpty() bool {
	return u == nil || (u.Artist == nil && u.Title == nil && u.Album == nil &&
		u.Genre == nil && u.Year == nil && u.ArtworkPath == nil)
}

// Set records an update for the named tag field.
func (u *FieldUpdates) Set(field, value string) {
	switch field {
	case "artist":
		u.Artist = &value
	case "title":
		u.Title = &value
	case "album":
		u.Album = &value
	case "genre":
		u.Genre = &value
	}
}

// SetYear records a year update.
func (u *FieldUpdates) SetYear(year int) {
	u.Year = &year
}

// Apply mutates t with every update carried by u.
func (u *FieldUpdates) Apply(t *TrackRecord) {
	if u == nil {
		return
	}
	if u.Artist != nil {
		t.Artist = *u.Artist
	}
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Album != nil {
		t.Album = *u.Album
	}
	if u.Genre != nil {
		t.Genre = *u.Genre
	}
	if u.Year != nil {
		t.Year = *u.Year
	}
	if u.ArtworkPath != nil {
		t.ArtworkPath = *u.ArtworkPath
	}
}

// UpdatedFields lists the tag fields carried by u, in a stable order.
func (u *FieldUpdates) UpdatedFields() []string {
	if u == nil {
		return nil
	}
	var fields []string
	if u.Artist != nil {
		fields = append(fields, "artist")
	}
	if u.Title != nil {
		fields = append(fields, "title")
	}
	if u.Album != nil {
		fields = append(fields, "album")
	}
	if u.Genre != nil {
		fields = append(fields, "genre")
	}
	if u.Year != nil {
		fields = append(fields, "year")
	}
	if u.ArtworkPath != nil {
		fields = append(fields, "artwork")
	}
	sort.Strings(fields)
	return fields
}

// Library is the track-record collection document read from the extractor
// and written back out enriched. The tracks element accepts both the list
// form (manifest.json) and the map-keyed-by-path form (metadata_base.json).
type Library struct {
	Version   int           `json:"version,omitempty"`
	Generated string        `json:"generated,omitempty"`
	Tracks    []TrackRecord `json:"tracks"`
}

// UnmarshalJSON accepts tracks as either a JSON array or an object keyed by
// file path. Map entries without an id inherit their key as path-derived id.
func (l *Library) UnmarshalJSON(data []byte) error {
	var doc struct {
		Version   int             `json:"version"`
		Generated string          `json:"generated"`
		Tracks    json.RawMessage `json:"tracks"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	l.Version = doc.Version
	l.Generated = doc.Generated
	l.Tracks = nil

	if len(doc.Tracks) == 0 {
		return nil
	}

	trimmed := strings.TrimSpace(string(doc.Tracks))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(doc.Tracks, &l.Tracks)
	}

	var byPath map[string]TrackRecord
	if err := json.Unmarshal(doc.Tracks, &byPath); err != nil {
		return err
	}

	keys := make([]string, 0, len(byPath))
	for k := range byPath {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		track := byPath[k]
		if track.ID == "" {
			track.ID = k
		}
		if track.Path == "" {
			track.Path = k
		}
		if track.OriginalFilename == "" {
			track.OriginalFilename = path.Base(k)
		}
		l.Tracks = append(l.Tracks, track)
	}
	return nil
}

// Find returns the track with the given id, or nil.
func (l *Library) Find(trackID string) *TrackRecord {
	for i := range l.Tracks {
		if l.Tracks[i].ID == trackID {
			return &l.Tracks[i]
		}
	}
	return nil
}
