// package shared defines shared helpers
package shared

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// Timestamp returns the current UTC time formatted as RFC 3339 with a Z
// suffix. All persisted artifacts stamp their generation time with this.
func Timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// MarshalJSON marshals v to JSON, optionally indented with two spaces.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

// Normalize lowercases s, strips featuring credits and punctuation, and
// collapses runs of whitespace into the canonical form used for all tag
// comparisons.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(strings.TrimSpace(s))
	for _, noise := range []string{"featuring", "feat.", "ft."} {
		s = strings.ReplaceAll(s, noise, " ")
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			// punctuation and whitespace both separate tokens, so
			// "AC/DC" and "AC DC" normalize identically
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// TokenSet splits the normalized form of s into its unique tokens.
func TokenSet(s string) map[string]struct{} {
	tokens := map[string]struct{}{}
	for _, tok := range strings.Fields(Normalize(s)) {
		tokens[tok] = struct{}{}
	}
	return tokens
}

// StringSimilarity computes a similarity between two strings in [0.0, 1.0].
//
// Equal normalized forms score 1.0; otherwise the score is the Jaccard
// overlap of their token sets. Either side being empty scores 0.0 so that
// sparse tags cannot inflate confidence.
func StringSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0.0
	}
	if na == nb {
		return 1.0
	}
	ta, tb := TokenSet(a), TokenSet(b)
	intersection := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
