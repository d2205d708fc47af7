package match

import (
	"math"

	"github.com/rmzi/crate/internal/models"
	"github.com/rmzi/crate/internal/shared"
)

// Field weights for candidate scoring. Title and artist dominate; album,
// year and duration are corroborating signal.
var fieldWeights = map[string]float64{
	"artist":   0.35,
	"title":    0.35,
	"album":    0.15,
	"year":     0.10,
	"duration": 0.05,
}

// Scorer computes a normalized similarity score between a track record and
// a lookup candidate. Deterministic: identical inputs always produce the
// identical score.
type Scorer struct{}

// NewScorer returns a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score returns the weighted match confidence in [0.0, 1.0]. A missing
// field on either side contributes zero similarity for that field.
// sourceCount is the number of independent sources backing the candidate;
// corroboration earns a small bonus.
func (s *Scorer) Score(track *models.TrackRecord, candidate *models.MatchCandidate, sourceCount int) float64 {
	total := 0.0
	for field, weight := range fieldWeights {
		switch field {
		case "year":
			total += weight * yearSimilarity(track.Year, candidate.Year)
		case "duration":
			total += weight * durationSimilarity(track.Duration, candidate.Duration)
		default:
			total += weight * shared.StringSimilarity(track.Field(field), candidate.Field(field))
		}
	}

	if sourceCount >= 3 {
		total = math.Min(1.0, total+0.10)
	} else if sourceCount >= 2 {
		total = math.Min(1.0, total+0.05)
	}

	// fixed precision keeps scores stable across runs and platforms
	return math.Round(total*10000) / 10000
}

// yearSimilarity tiers agreement by distance; a year off by one is usually
// a reissue, off by three a region difference.
func yearSimilarity(a, b int) float64 {
	if a == 0 || b == 0 {
		return 0.0
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return 1.0
	case diff == 1:
		return 0.8
	case diff <= 3:
		return 0.4
	}
	return 0.0
}

// durationSimilarity tiers agreement in seconds.
func durationSimilarity(a, b int) float64 {
	if a == 0 || b == 0 {
		return 0.0
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 2:
		return 1.0
	case diff <= 5:
		return 0.7
	case diff <= 10:
		return 0.3
	}
	return 0.0
}
