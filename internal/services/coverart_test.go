package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rmzi/crate/internal/shared"
)

const testReleaseID = "76df3287-6cda-33eb-8e9a-044b5e15ffdd"

func newCoverArtService(baseURL string) *CoverArtService {
	return NewCoverArtService(CoverArtOpts{
		BaseURL:   baseURL,
		UserAgent: "crate-test/1.0",
		Limiter:   NewLimiter(1000),
	})
}

func TestCoverArtService(t *testing.T) {
	t.Run("prefers the 1200 thumbnail of the front cover", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/release/"+testReleaseID {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(`{
				"images": [
					{"front": false, "image": "https://caa.example/back.jpg", "types": ["Back"]},
					{"front": true, "image": "https://caa.example/front.jpg",
					 "thumbnails": {"1200": "https://caa.example/front-1200.jpg",
					                "large": "https://caa.example/front-500.jpg"}, "types": ["Front"]}
				],
				"release": "https://musicbrainz.org/release/` + testReleaseID + `"
			}`))
		}))
		defer server.Close()

		svc := newCoverArtService(server.URL)
		art, err := svc.ReleaseArt(context.Background(), testReleaseID)
		if err != nil {
			t.Fatal(err)
		}

		if art.URL != "https://caa.example/front-1200.jpg" {
			t.Errorf("expected the 1200 thumbnail, got %s", art.URL)
		}
		if art.Width != 1200 || art.Type != "front" || art.Format != "jpeg" {
			t.Errorf("unexpected candidate %+v", art)
		}
		if art.Source != "coverartarchive" {
			t.Errorf("unexpected source %s", art.Source)
		}
	})

	t.Run("falls back to the large thumbnail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"images": [
					{"front": true, "image": "https://caa.example/front.png",
					 "thumbnails": {"large": "https://caa.example/front-500.png"}, "types": ["Front"]}
				]
			}`))
		}))
		defer server.Close()

		svc := newCoverArtService(server.URL)
		art, err := svc.ReleaseArt(context.Background(), testReleaseID)
		if err != nil {
			t.Fatal(err)
		}
		if art.URL != "https://caa.example/front-500.png" || art.Width != 500 {
			t.Errorf("expected the 500px thumbnail, got %+v", art)
		}
		if art.Format != "png" {
			t.Errorf("expected png format, got %s", art.Format)
		}
	})

	t.Run("falls back to the original scan when no thumbnails exist", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"images": [
					{"front": true, "image": "https://caa.example/front.jpg", "types": ["Front"]}
				]
			}`))
		}))
		defer server.Close()

		svc := newCoverArtService(server.URL)
		art, err := svc.ReleaseArt(context.Background(), testReleaseID)
		if err != nil {
			t.Fatal(err)
		}
		if art.URL != "https://caa.example/front.jpg" || art.Width != 1200 {
			t.Errorf("expected the original scan, got %+v", art)
		}
	})

	t.Run("missing release maps to ErrArtworkNotFound", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		svc := newCoverArtService(server.URL)
		_, err := svc.ReleaseArt(context.Background(), testReleaseID)
		if !errors.Is(err, shared.ErrArtworkNotFound) {
			t.Errorf("expected ErrArtworkNotFound, got %v", err)
		}
	})

	t.Run("release with no images maps to ErrArtworkNotFound", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"images": []}`))
		}))
		defer server.Close()

		svc := newCoverArtService(server.URL)
		_, err := svc.ReleaseArt(context.Background(), testReleaseID)
		if !errors.Is(err, shared.ErrArtworkNotFound) {
			t.Errorf("expected ErrArtworkNotFound, got %v", err)
		}
	})

	t.Run("empty release id short-circuits", func(t *testing.T) {
		svc := newCoverArtService("http://unused.invalid")
		if _, err := svc.ReleaseArt(context.Background(), ""); !errors.Is(err, shared.ErrArtworkNotFound) {
			t.Errorf("expected ErrArtworkNotFound, got %v", err)
		}
	})

	t.Run("Download fetches image bytes", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("front-cover"))
		}))
		defer server.Close()

		svc := newCoverArtService(server.URL)
		data, err := svc.Download(context.Background(), server.URL+"/front.jpg")
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "front-cover" {
			t.Errorf("unexpected image data %q", data)
		}
	})
}
