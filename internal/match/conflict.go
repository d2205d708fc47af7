package match

import (
	"github.com/rmzi/crate/internal/models"
	"github.com/rmzi/crate/internal/shared"
)

// ConflictClassifier compares an accepted candidate's fields against a
// track's existing tags and emits one disposition per field.
type ConflictClassifier struct {
	// ConfirmSimilarity is the normalized-similarity floor above which an
	// existing value counts as agreeing with the external value.
	ConfirmSimilarity float64
}

// NewConflictClassifier returns a classifier with the given agreement floor.
func NewConflictClassifier(confirmSimilarity float64) *ConflictClassifier {
	return &ConflictClassifier{ConfirmSimilarity: confirmSimilarity}
}

// Classify emits the disposition for one field. sourceCount is the number of
// independent sources that proposed the external value; corroboration is what
// separates a likely correction from a mere alternative.
func (c *ConflictClassifier) Classify(field, existing, proposed string, sourceCount int) models.FieldDisposition {
	d := models.FieldDisposition{
		Field:       field,
		OldValue:    existing,
		NewValue:    proposed,
		SourceCount: sourceCount,
	}

	if proposed == "" {
		d.Kind = models.DispositionNoData
		d.NewValue = ""
		return d
	}

	if existing == "" {
		d.Kind = models.DispositionSupplement
		return d
	}

	sim := shared.StringSimilarity(existing, proposed)
	d.Similarity = sim

	if sim >= c.ConfirmSimilarity {
		d.Kind = models.DispositionConfirmed
		return d
	}

	if sourceCount >= 2 {
		d.Kind = models.DispositionLikelyCorrection
		return d
	}

	d.Kind = models.DispositionAlternative
	return d
}
