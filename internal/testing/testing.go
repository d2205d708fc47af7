// package testing contains shared testing utilities
package testing

import (
	"context"

	"github.com/rmzi/crate/internal/models"
	"github.com/rmzi/crate/internal/shared"
)

// MockMetadataService is a configurable test double for
// [services.MetadataService]. The per-stage funcs default to empty results.
type MockMetadataService struct {
	PingErr         error
	ArtistTitleFunc func(artist, title string) ([]models.MatchCandidate, error)
	ArtistAlbumFunc func(artist, album string) ([]models.MatchCandidate, error)
	TitleFunc       func(title string) ([]models.MatchCandidate, error)

	// Calls records the stages queried, in order.
	Calls []string
}

func (m *MockMetadataService) Name() string { return "mock" }

func (m *MockMetadataService) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockMetadataService) SearchArtistTitle(ctx context.Context, artist, title string) ([]models.MatchCandidate, error) {
	m.Calls = append(m.Calls, "artist_title")
	if m.ArtistTitleFunc == nil {
		return nil, nil
	}
	return m.ArtistTitleFunc(artist, title)
}

func (m *MockMetadataService) SearchArtistAlbum(ctx context.Context, artist, album string) ([]models.MatchCandidate, error) {
	m.Calls = append(m.Calls, "artist_album")
	if m.ArtistAlbumFunc == nil {
		return nil, nil
	}
	return m.ArtistAlbumFunc(artist, album)
}

func (m *MockMetadataService) SearchTitle(ctx context.Context, title string) ([]models.MatchCandidate, error) {
	m.Calls = append(m.Calls, "title")
	if m.TitleFunc == nil {
		return nil, nil
	}
	return m.TitleFunc(title)
}

// MockReleaseArtService is a test double for [services.ReleaseArtService].
type MockReleaseArtService struct {
	Art       *models.ArtworkCandidate
	Err       error
	ImageData []byte
	Downloads []string
}

func (m *MockReleaseArtService) Name() string { return "mock-release-art" }

func (m *MockReleaseArtService) ReleaseArt(ctx context.Context, releaseID string) (*models.ArtworkCandidate, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Art == nil {
		return nil, shared.ErrArtworkNotFound
	}
	return m.Art, nil
}

func (m *MockReleaseArtService) Download(ctx context.Context, url string) ([]byte, error) {
	m.Downloads = append(m.Downloads, url)
	if m.ImageData == nil {
		return []byte("image-bytes"), nil
	}
	return m.ImageData, nil
}

// MockArtSearchService is a test double for [services.ArtSearchService].
type MockArtSearchService struct {
	Art       *models.ArtworkCandidate
	Err       error
	ImageData []byte
	Downloads []string
}

func (m *MockArtSearchService) Name() string { return "mock-art-search" }

func (m *MockArtSearchService) SearchArt(ctx context.Context, artist, title string) (*models.ArtworkCandidate, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Art == nil {
		return nil, shared.ErrArtworkNotFound
	}
	return m.Art, nil
}

func (m *MockArtSearchService) Download(ctx context.Context, url string) ([]byte, error) {
	m.Downloads = append(m.Downloads, url)
	if m.ImageData == nil {
		return []byte("image-bytes"), nil
	}
	return m.ImageData, nil
}
