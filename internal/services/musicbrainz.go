// MusicBrainz recording search [MetadataService] implementation.
//
// Queries the /recording endpoint of the MusicBrainz web service with Lucene
// queries and maps the results to [models.MatchCandidate]. The public API
// allows one request per second per client; the shared [Limiter] enforces it.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rmzi/crate/internal/models"
	"github.com/rmzi/crate/internal/shared"
)

const defaultMBBaseURL = "https://musicbrainz.org/ws/2"

// MusicBrainzService implements [MetadataService] against the MusicBrainz
// web service.
type MusicBrainzService struct {
	baseURL        string
	userAgent      string
	httpClient     *http.Client
	limiter        *Limiter
	candidateLimit int
	retry          shared.RetryConfig
}

// MusicBrainzOpts configures a MusicBrainzService.
type MusicBrainzOpts struct {
	BaseURL        string
	UserAgent      string
	HTTPClient     *http.Client
	Limiter        *Limiter
	CandidateLimit int
	Retry          shared.RetryConfig
}

// NewMusicBrainzService creates a MusicBrainz client.
func NewMusicBrainzService(opts MusicBrainzOpts) *MusicBrainzService {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultMBBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Limiter == nil {
		opts.Limiter = NewLimiter(1.0)
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = 5
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = 3
	}
	if opts.Retry.InitialBackoffMS <= 0 {
		opts.Retry.InitialBackoffMS = 500
	}
	return &MusicBrainzService{
		baseURL:        opts.BaseURL,
		userAgent:      opts.UserAgent,
		httpClient:     opts.HTTPClient,
		limiter:        opts.Limiter,
		candidateLimit: opts.CandidateLimit,
		retry:          opts.Retry,
	}
}

// Name returns the service name.
func (m *MusicBrainzService) Name() string {
	return "MusicBrainz"
}

// Ping checks that the recording endpoint is reachable.
func (m *MusicBrainzService) Ping(ctx context.Context) error {
	_, err := m.query(ctx, "test", 1)
	return err
}

// SearchArtistTitle searches recordings by artist and title.
func (m *MusicBrainzService) SearchArtistTitle(ctx context.Context, artist, title string) ([]models.MatchCandidate, error) {
	q := fmt.Sprintf(`artist:%s AND recording:%s`, luceneQuote(artist), luceneQuote(title))
	return m.query(ctx, q, m.candidateLimit)
}

// SearchArtistAlbum searches recordings by artist and release title.
func (m *MusicBrainzService) SearchArtistAlbum(ctx context.Context, artist, album string) ([]models.MatchCandidate, error) {
	q := fmt.Sprintf(`artist:%s AND release:%s`, luceneQuote(artist), luceneQuote(album))
	return m.query(ctx, q, m.candidateLimit)
}

// SearchTitle searches recordings by title alone.
func (m *MusicBrainzService) SearchTitle(ctx context.Context, title string) ([]models.MatchCandidate, error) {
	q := fmt.Sprintf(`recording:%s`, luceneQuote(title))
	return m.query(ctx, q, m.candidateLimit)
}

// luceneQuote wraps a value in double quotes with embedded quotes escaped.
func luceneQuote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}

// mbRecording mirrors the parts of the MusicBrainz recording search response
// the pipeline consumes.
type mbRecording struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Score        int    `json:"score"`
	Length       int    `json:"length"` // milliseconds
	ArtistCredit []struct {
		Name   string `json:"name"`
		Artist struct {
			Name string `json:"name"`
		} `json:"artist"`
	} `json:"artist-credit"`
	Releases []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Date  string `json:"date"`
	} `json:"releases"`
}

type mbSearchResponse struct {
	Recordings []mbRecording `json:"recordings"`
}

// query executes one recording search, retrying transient failures with
// exponential backoff before reporting the service unavailable.
func (m *MusicBrainzService) query(ctx context.Context, q string, limit int) ([]models.MatchCandidate, error) {
	params := url.Values{}
	params.Set("query", q)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fmt", "json")
	fullURL := m.baseURL + "/recording?" + params.Encode()

	body, err := m.getWithRetry(ctx, fullURL)
	if err != nil {
		return nil, err
	}
	if body == nil {
		// client error from the service; treat as an empty result
		return nil, nil
	}

	var parsed mbSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding recording search: %v", shared.ErrAPIRequest, err)
	}

	candidates := make([]models.MatchCandidate, 0, len(parsed.Recordings))
	for _, rec := range parsed.Recordings {
		cand := models.MatchCandidate{
			Source:        "musicbrainz",
			Title:         rec.Title,
			MBRecordingID: rec.ID,
			RawScore:      rec.Score,
		}
		if len(rec.ArtistCredit) > 0 {
			cand.Artist = rec.ArtistCredit[0].Name
			if cand.Artist == "" {
				cand.Artist = rec.ArtistCredit[0].Artist.Name
			}
		}
		if rec.Length > 0 {
			cand.Duration = rec.Length / 1000
		}
		if len(rec.Releases) > 0 {
			rel := rec.Releases[0]
			cand.Album = rel.Title
			cand.MBReleaseID = rel.ID
			if len(rel.Date) >= 4 {
				if year, err := strconv.Atoi(rel.Date[:4]); err == nil {
					cand.Year = year
				}
			}
		}
		candidates = append(candidates, cand)
	}

	return candidates, nil
}

// getWithRetry performs a GET with the bounded retry budget. Network errors
// and 5xx responses are retried; other non-2xx statuses return (nil, nil) so
// the caller can treat them as an empty result. Exhausting the budget wraps
// [shared.ErrServiceUnavailable], which flips the engine to offline mode.
func (m *MusicBrainzService) getWithRetry(ctx context.Context, fullURL string) ([]byte, error) {
	backoff := time.Duration(m.retry.InitialBackoffMS) * time.Millisecond
	var lastErr error

	for attempt := 1; attempt <= m.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if err := m.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", m.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := m.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return body, nil
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		default:
			return nil, nil
		}
	}

	return nil, fmt.Errorf("%w: %s after %d attempts: %v",
		shared.ErrServiceUnavailable, m.Name(), m.retry.MaxAttempts, lastErr)
}
