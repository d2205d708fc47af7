package match

import (
	"strings"

	"github.com/rmzi/crate/internal/models"
)

// Artwork sub-score tables. Resolution dominates, then source trust, image
// type, and format. The total is on a 0-100 scale.
var (
	artResolutionTiers = []struct {
		minWidth int
		points   int
	}{
		{1200, 40},
		{1000, 35},
		{500, 20},
		{250, 10},
	}

	artSourceScores = map[string]int{
		"coverartarchive": 30,
		"itunes":          25,
		"discogs":         20,
		"existing":        15,
	}

	artTypeScores = map[string]int{
		"front":   20,
		"unknown": 10,
	}

	artFormatScores = map[string]int{
		"jpeg": 10,
		"jpg":  10,
		"png":  7,
	}
)

// ArtworkSelector scores candidate artwork and decides whether replacing the
// existing art is worth the churn.
type ArtworkSelector struct {
	// UpgradeMargin is the hysteresis band: a candidate must beat the
	// existing score by strictly more than this to trigger a replacement.
	UpgradeMargin int
}

// NewArtworkSelector returns a selector with the given hysteresis margin.
func NewArtworkSelector(margin int) *ArtworkSelector {
	return &ArtworkSelector{UpgradeMargin: margin}
}

// Score rates one artwork candidate on the 0-100 scale.
func (s *ArtworkSelector) Score(art models.ArtworkCandidate) int {
	score := 0
	for _, tier := range artResolutionTiers {
		if art.Width >= tier.minWidth {
			score += tier.points
			break
		}
	}
	score += artSourceScores[art.Source]
	score += artTypeScores[art.Type]
	score += artFormatScores[strings.ToLower(art.Format)]
	return score
}

// ExistingScore rates artwork a track already carries. Prior art has no
// recorded resolution or provenance, so it gets a fixed conservative rating.
func (s *ArtworkSelector) ExistingScore(track *models.TrackRecord) int {
	if track.ArtworkPath == "" {
		return 0
	}
	return s.Score(models.ArtworkCandidate{
		Width:  500,
		Source: "existing",
		Type:   "front",
		Format: "jpeg",
	})
}

// ShouldUpgrade applies the hysteresis rule: replace only when the candidate
// beats the existing score by strictly more than the margin.
func (s *ArtworkSelector) ShouldUpgrade(existingScore, newScore int) bool {
	return newScore > existingScore+s.UpgradeMargin
}

// Decide picks the best of the offered candidates and returns the decision
// for the track, or nil when no candidate was offered.
func (s *ArtworkSelector) Decide(track *models.TrackRecord, candidates []models.ArtworkCandidate) (*models.ArtworkDecision, *models.ArtworkCandidate) {
	if len(candidates) == 0 {
		return nil, nil
	}

	best := candidates[0]
	bestScore := s.Score(best)
	for _, cand := range candidates[1:] {
		// strict comparison keeps the first-seen candidate on ties
		if sc := s.Score(cand); sc > bestScore {
			best = cand
			bestScore = sc
		}
	}

	existingScore := s.ExistingScore(track)
	decision := &models.ArtworkDecision{
		Available:     true,
		NewScore:      bestScore,
		ExistingScore: existingScore,
		Upgrade:       s.ShouldUpgrade(existingScore, bestScore),
		Source:        best.Source,
		Outcome:       models.ArtworkUnchanged,
	}
	if decision.Upgrade {
		if track.ArtworkPath == "" {
			decision.Outcome = models.ArtworkFilled
		} else {
			decision.Outcome = models.ArtworkUpgraded
		}
	}
	return decision, &best
}
