// package formatter reads and writes the pipeline's persisted artifacts:
// the track library, the enriched output, the review queue, and downloaded
// artwork files.
package formatter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rmzi/crate/internal/models"
	"github.com/rmzi/crate/internal/shared"
)

// Artifact names under the output directory. Deployment convention, not a
// core contract.
const (
	EnrichedName    = "metadata_enriched.json"
	ReviewQueueName = "review_queue.json"
	ArtworkDirName  = "artwork"
)

// LoadLibrary reads a track-record collection from path. Both the list form
// and the map-keyed-by-path form are accepted (see [models.Library]).
func LoadLibrary(path string) (*models.Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read library: %w", err)
	}

	var lib models.Library
	if err := json.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("%w: parsing library %s: %v", shared.ErrInvalidInput, path, err)
	}
	return &lib, nil
}

// WriteEnrichedLibrary persists the enriched track collection under dir.
func WriteEnrichedLibrary(dir string, lib *models.Library) (string, error) {
	lib.Generated = shared.Timestamp()

	data, err := shared.MarshalJSON(lib, true)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, EnrichedName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write enriched library: %w", err)
	}
	return path, nil
}

// WriteReviewQueue persists the review queue under dir. An empty queue
// writes nothing and returns an empty path.
func WriteReviewQueue(dir string, items []models.ReviewItem) (string, error) {
	if len(items) == 0 {
		return "", nil
	}

	queue := models.ReviewQueue{
		Version:   1,
		Generated: shared.Timestamp(),
		Items:     items,
	}

	data, err := shared.MarshalJSON(queue, true)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, ReviewQueueName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write review queue: %w", err)
	}
	return path, nil
}

// LoadReviewQueue reads the review queue under dir. A missing file returns
// an empty queue.
func LoadReviewQueue(dir string) (*models.ReviewQueue, error) {
	data, err := os.ReadFile(filepath.Join(dir, ReviewQueueName))
	if err != nil {
		if os.IsNotExist(err) {
			return &models.ReviewQueue{Version: 1}, nil
		}
		return nil, fmt.Errorf("failed to read review queue: %w", err)
	}

	var queue models.ReviewQueue
	if err := json.Unmarshal(data, &queue); err != nil {
		return nil, fmt.Errorf("%w: parsing review queue: %v", shared.ErrInvalidInput, err)
	}
	return &queue, nil
}

// ArtworkExt maps an artwork format to its file extension.
func ArtworkExt(format string) string {
	switch format {
	case "jpeg", "jpg":
		return "jpg"
	default:
		return "png"
	}
}

// WriteArtwork stores downloaded artwork bytes for a track and returns the
// written path.
func WriteArtwork(dir, trackID, format string, data []byte) (string, error) {
	artDir := filepath.Join(dir, ArtworkDirName)
	if err := os.MkdirAll(artDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artwork directory: %w", err)
	}

	path := filepath.Join(artDir, fmt.Sprintf("%s_enriched.%s", trackID, ArtworkExt(format)))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artwork: %w", err)
	}
	return path, nil
}
