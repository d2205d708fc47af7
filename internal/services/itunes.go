// iTunes Search API [ArtSearchService] implementation.
//
// Fallback artwork source when the Cover Art Archive has nothing for a
// release. The search API returns 100x100 thumbnails whose URLs can be
// rewritten to 1200x1200 originals.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rmzi/crate/internal/models"
	"github.com/rmzi/crate/internal/shared"
)

const defaultITunesBaseURL = "https://itunes.apple.com"

// artistSimilarityFloor rejects search hits whose artist does not resemble
// the track's artist; free-text search returns plenty of covers and karaoke.
const artistSimilarityFloor = 0.5

// ITunesService implements [ArtSearchService] against the iTunes Search API.
type ITunesService struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *Limiter
}

// ITunesOpts configures an ITunesService.
type ITunesOpts struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
	Limiter    *Limiter
}

// NewITunesService creates an iTunes Search API client.
func NewITunesService(opts ITunesOpts) *ITunesService {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultITunesBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Limiter == nil {
		opts.Limiter = NewLimiter(1.0)
	}
	return &ITunesService{
		baseURL:    opts.BaseURL,
		userAgent:  opts.UserAgent,
		httpClient: opts.HTTPClient,
		limiter:    opts.Limiter,
	}
}

// Name returns the service name.
func (i *ITunesService) Name() string {
	return "iTunes"
}

type itunesSearchResponse struct {
	Results []struct {
		ArtistName    string `json:"artistName"`
		ArtworkURL100 string `json:"artworkUrl100"`
	} `json:"results"`
}

// SearchArt searches for artwork matching artist and title. The first hit
// whose artist clears the similarity floor wins.
func (i *ITunesService) SearchArt(ctx context.Context, artist, title string) (*models.ArtworkCandidate, error) {
	if artist == "" || title == "" {
		return nil, shared.ErrArtworkNotFound
	}

	if err := i.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("term", artist+" "+title)
	params.Set("media", "music")
	params.Set("limit", "3")
	fullURL := i.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", i.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: iTunes search: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: iTunes search status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed itunesSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding iTunes search: %v", shared.ErrAPIRequest, err)
	}

	for _, result := range parsed.Results {
		if result.ArtistName == "" || result.ArtworkURL100 == "" {
			continue
		}
		if shared.StringSimilarity(artist, result.ArtistName) < artistSimilarityFloor {
			continue
		}

		return &models.ArtworkCandidate{
			URL:    strings.Replace(result.ArtworkURL100, "100x100", "1200x1200", 1),
			Width:  1200,
			Type:   "front",
			Format: "jpeg",
			Source: "itunes",
		}, nil
	}

	return nil, shared.ErrArtworkNotFound
}

// Download fetches the raw image bytes for a candidate URL.
func (i *ITunesService) Download(ctx context.Context, imageURL string) ([]byte, error) {
	return downloadImage(ctx, i.httpClient, i.userAgent, imageURL)
}
