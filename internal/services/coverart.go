// Cover Art Archive [ReleaseArtService] implementation.
//
// Uses the gocaa client keyed by MusicBrainz release ids. The archive hosts
// community-sourced scans, front covers flagged explicitly.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rmzi/crate/internal/models"
	"github.com/rmzi/crate/internal/shared"
	cca "gopkg.in/mineo/gocaa.v1"
)

// CoverArtService implements [ReleaseArtService] against the Cover Art
// Archive.
type CoverArtService struct {
	caa        *cca.CAAClient
	httpClient *http.Client
	limiter    *Limiter
	userAgent  string
}

// CoverArtOpts configures a CoverArtService.
type CoverArtOpts struct {
	BaseURL    string // overrides the archive URL, for tests
	UserAgent  string
	HTTPClient *http.Client
	Limiter    *Limiter
}

// NewCoverArtService creates a Cover Art Archive client.
func NewCoverArtService(opts CoverArtOpts) *CoverArtService {
	client := cca.NewCAAClient(opts.UserAgent)
	if opts.BaseURL != "" {
		client.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Limiter == nil {
		opts.Limiter = NewLimiter(1.0)
	}
	return &CoverArtService{
		caa:        client,
		httpClient: opts.HTTPClient,
		limiter:    opts.Limiter,
		userAgent:  opts.UserAgent,
	}
}

// Name returns the service name.
func (c *CoverArtService) Name() string {
	return "CoverArtArchive"
}

// ReleaseArt fetches the archive's record for a release and returns the
// best image as an artwork candidate: the front cover when flagged, else the
// first image. Returns [shared.ErrArtworkNotFound] when the archive has no
// entry for the release.
func (c *CoverArtService) ReleaseArt(ctx context.Context, releaseID string) (*models.ArtworkCandidate, error) {
	if releaseID == "" {
		return nil, shared.ErrArtworkNotFound
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	info, err := c.caa.GetReleaseInfo(cca.StringToUUID(releaseID))
	if err != nil {
		var httpErr cca.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, shared.ErrArtworkNotFound
		}
		return nil, fmt.Errorf("%w: cover art lookup: %v", shared.ErrAPIRequest, err)
	}
	if info == nil || len(info.Images) == 0 {
		return nil, shared.ErrArtworkNotFound
	}

	best := info.Images[0]
	for _, img := range info.Images {
		if img.Front {
			best = img
			break
		}
	}

	// Prefer the 1200 thumbnail, then the large (500px) one, then the
	// original scan. The original's width is unrecorded; estimate high.
	artURL := best.Thumbnails["1200"]
	width := 1200
	if artURL == "" {
		artURL = best.Thumbnails["large"]
		width = 500
	}
	if artURL == "" {
		artURL = best.Image
		width = 1200
	}
	if artURL == "" {
		return nil, shared.ErrArtworkNotFound
	}

	artType := "unknown"
	if best.Front {
		artType = "front"
	}

	format := "png"
	if strings.HasSuffix(artURL, ".jpg") || strings.HasSuffix(artURL, ".jpeg") {
		format = "jpeg"
	}

	return &models.ArtworkCandidate{
		URL:    artURL,
		Width:  width,
		Type:   artType,
		Format: format,
		Source: "coverartarchive",
	}, nil
}

// Download fetches the raw image bytes for a candidate URL.
func (c *CoverArtService) Download(ctx context.Context, imageURL string) ([]byte, error) {
	return downloadImage(ctx, c.httpClient, c.userAgent, imageURL)
}

// downloadImage fetches image bytes with the shared user agent. Used by both
// artwork services.
func downloadImage(ctx context.Context, client *http.Client, userAgent, imageURL string) ([]byte, error) {
	if imageURL == "" {
		return nil, fmt.Errorf("%w: empty image URL", shared.ErrInvalidInput)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: image download: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: image download status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}
