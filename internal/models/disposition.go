package models

// DispositionKind classifies the relationship between an existing tag value
// and the value proposed by external sources. The four-valued taxonomy is
// closed: the classifier returns exactly one of these per field.
type DispositionKind string

const (
	// DispositionConfirmed: existing value is non-empty and agrees with the
	// external value after normalization. No mutation.
	DispositionConfirmed DispositionKind = "confirmed"

	// DispositionSupplement: existing value is empty and an external value
	// exists at sufficient confidence. The field is auto-filled.
	DispositionSupplement DispositionKind = "supplement"

	// DispositionLikelyCorrection: existing value is non-empty and multiple
	// independent sources agree on a different value. The field is not
	// mutated; a review item carries the old and proposed values.
	DispositionLikelyCorrection DispositionKind = "likely_correction"

	// DispositionAlternative: existing value is non-empty and exactly one
	// source disagrees, without corroboration. Recorded for visibility only.
	DispositionAlternative DispositionKind = "alternative"

	// DispositionNoData: the external sources offered nothing for this
	// field. Nothing is recorded in the output.
	DispositionNoData DispositionKind = "no_data"
)

// FieldDisposition is the classified outcome for one tag field.
type FieldDisposition struct {
	Kind        DispositionKind `json:"classification"`
	Field       string          `json:"field"`
	OldValue    string          `json:"existing,omitempty"`
	NewValue    string          `json:"proposed,omitempty"`
	Similarity  float64         `json:"similarity,omitempty"`
	SourceCount int             `json:"source_count,omitempty"`
}

// Mutates reports whether this disposition results in an automatic write to
// the track record.
func (d FieldDisposition) Mutates() bool {
	return d.Kind == DispositionSupplement
}

// NeedsReview reports whether this disposition alone forces a review item.
func (d FieldDisposition) NeedsReview() bool {
	return d.Kind == DispositionLikelyCorrection
}
