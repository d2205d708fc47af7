// package services defines interfaces and HTTP clients for the external
// lookup services: MusicBrainz recording search, the Cover Art Archive, and
// the iTunes Search API artwork fallback.
package services

import (
	"context"

	"github.com/rmzi/crate/internal/models"
)

// MetadataService is a recording lookup service. The three search methods
// correspond to the staged matching strategy: artist+title is the most
// precise, artist+album and title-only trade precision for recall.
type MetadataService interface {
	// Name returns the service name (e.g., "MusicBrainz").
	Name() string

	// Ping checks that the service is reachable.
	Ping(ctx context.Context) error

	// SearchArtistTitle searches recordings by artist and title.
	SearchArtistTitle(ctx context.Context, artist, title string) ([]models.MatchCandidate, error)

	// SearchArtistAlbum searches recordings by artist and release title.
	SearchArtistAlbum(ctx context.Context, artist, album string) ([]models.MatchCandidate, error)

	// SearchTitle searches recordings by title alone.
	SearchTitle(ctx context.Context, title string) ([]models.MatchCandidate, error)
}

// ReleaseArtService resolves album art for a known release identifier.
type ReleaseArtService interface {
	Name() string

	// ReleaseArt returns the best artwork on record for a release, or
	// [shared.ErrArtworkNotFound] when the archive has nothing.
	ReleaseArt(ctx context.Context, releaseID string) (*models.ArtworkCandidate, error)

	// Download fetches the raw image bytes for a candidate URL.
	Download(ctx context.Context, url string) ([]byte, error)
}

// ArtSearchService finds album art by free-text search. Used as a fallback
// when the release-keyed archive has nothing.
type ArtSearchService interface {
	Name() string

	// SearchArt returns artwork matching artist and title, or
	// [shared.ErrArtworkNotFound].
	SearchArt(ctx context.Context, artist, title string) (*models.ArtworkCandidate, error)

	// Download fetches the raw image bytes for a candidate URL.
	Download(ctx context.Context, url string) ([]byte, error)
}
