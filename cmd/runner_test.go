package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/rmzi/crate/internal/formatter"
	"github.com/rmzi/crate/internal/models"
	"github.com/rmzi/crate/internal/shared"
	"github.com/rmzi/crate/internal/state"
	tu "github.com/rmzi/crate/internal/testing"
)

func TestNewRunner(t *testing.T) {
	t.Run("with all dependencies provided", func(t *testing.T) {
		config := shared.DefaultConfig()
		logger := shared.NewLogger(nil)
		output := &bytes.Buffer{}
		metadata := &tu.MockMetadataService{}

		runner := NewRunner(RunnerOpts{
			Config:   config,
			Logger:   logger,
			Output:   output,
			Metadata: metadata,
		})

		if runner.config != config {
			t.Error("expected config to be set")
		}
		if runner.logger != logger {
			t.Error("expected logger to be set")
		}
		if runner.output != output {
			t.Error("expected output to be set")
		}
		if runner.metadata != metadata {
			t.Error("expected metadata service to be set")
		}
	})

	t.Run("with nil config uses defaults", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if runner.config == nil {
			t.Error("expected default config to be set")
		}
	})

	t.Run("with nil output uses stdout", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if runner.output != os.Stdout {
			t.Error("expected output to default to os.Stdout")
		}
	})

	t.Run("buildServices constructs missing services", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		metadata, releaseArt, artSearch := runner.buildServices(runner.config)
		if metadata == nil || releaseArt == nil || artSearch == nil {
			t.Error("expected all services constructed from config")
		}
	})

	t.Run("buildServices keeps injected services", func(t *testing.T) {
		mock := &tu.MockMetadataService{}
		runner := NewRunner(RunnerOpts{Metadata: mock})
		metadata, _, _ := runner.buildServices(runner.config)
		if metadata != mock {
			t.Error("expected the injected service back")
		}
	})
}

func TestRunnerOutput(t *testing.T) {
	t.Run("writeJSON", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writeJSON(map[string]int{"count": 3}, false); err != nil {
			t.Fatal(err)
		}
		if output.String() != "{\"count\":3}\n" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("%d tracks\n", 5); err != nil {
			t.Fatal(err)
		}
		if output.String() != "5 tracks\n" {
			t.Errorf("unexpected output %q", output.String())
		}
	})
}

// runCLI executes one CLI invocation against a fresh command tree wired to
// the given mocks. Commands are not reusable across parses, so every call
// builds its own.
func runCLI(metadata *tu.MockMetadataService, buf *bytes.Buffer, args ...string) error {
	runner := NewRunner(RunnerOpts{
		Metadata:   metadata,
		ReleaseArt: &tu.MockReleaseArtService{},
		ArtSearch:  &tu.MockArtSearchService{},
		Output:     buf,
	})
	app := &cli.Command{Name: "crate", Commands: runner.register()}
	return app.Run(context.Background(), append([]string{"crate"}, args...))
}

func writeTestLibrary(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "library.json")
	content := `{
		"version": 1,
		"tracks": [
			{"id": "t1", "artist": "Daft Punk", "title": "One More Time", "album": "Discovery", "duration": 320}
		]
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func acceptingMetadata() *tu.MockMetadataService {
	return &tu.MockMetadataService{
		ArtistTitleFunc: func(artist, title string) ([]models.MatchCandidate, error) {
			return []models.MatchCandidate{{
				Source:        "musicbrainz",
				Artist:        "Daft Punk",
				Title:         "One More Time",
				Album:         "Discovery",
				Year:          2001,
				Duration:      320,
				MBRecordingID: "rec-1",
			}}, nil
		},
	}
}

func TestEnrichCommand(t *testing.T) {
	t.Run("apply run writes the artifacts", func(t *testing.T) {
		dir := t.TempDir()
		input := writeTestLibrary(t, dir)
		buf := &bytes.Buffer{}

		err := runCLI(acceptingMetadata(), buf,
			"enrich", "--input", input, "--output", dir, "--skip-artwork")
		if err != nil {
			t.Fatal(err)
		}

		lib, err := formatter.LoadLibrary(filepath.Join(dir, formatter.EnrichedName))
		if err != nil {
			t.Fatalf("expected enriched output: %v", err)
		}
		track := lib.Find("t1")
		if track == nil || track.Enrichment == nil || track.Enrichment.Status != models.StatusEnriched {
			t.Fatalf("expected enriched track, got %+v", track)
		}
		if track.Year != 2001 {
			t.Errorf("expected supplemented year, got %d", track.Year)
		}

		if !strings.Contains(buf.String(), "Auto-accepted:    1") {
			t.Errorf("summary missing from output:\n%s", buf.String())
		}
	})

	t.Run("dry run then apply consumes the report", func(t *testing.T) {
		dir := t.TempDir()
		input := writeTestLibrary(t, dir)
		metadata := acceptingMetadata()
		buf := &bytes.Buffer{}

		err := runCLI(metadata, buf,
			"enrich", "--input", input, "--output", dir, "--dry-run", "--skip-artwork")
		if err != nil {
			t.Fatal(err)
		}

		reportPath := filepath.Join(dir, state.DryRunReportName)
		if _, err := os.Stat(reportPath); err != nil {
			t.Fatalf("expected dry-run report: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, formatter.EnrichedName)); !os.IsNotExist(err) {
			t.Error("dry run must not write the enriched library")
		}

		searchesAfterPreview := len(metadata.Calls)
		err = runCLI(metadata, buf,
			"enrich", "--input", input, "--output", dir, "--skip-artwork")
		if err != nil {
			t.Fatal(err)
		}

		if len(metadata.Calls) != searchesAfterPreview {
			t.Errorf("apply run must replay the cache, got extra calls %v", metadata.Calls[searchesAfterPreview:])
		}
		if _, err := os.Stat(reportPath); !os.IsNotExist(err) {
			t.Error("apply must consume the dry-run report")
		}
		if _, err := os.Stat(filepath.Join(dir, formatter.EnrichedName)); err != nil {
			t.Errorf("expected enriched output after apply: %v", err)
		}
	})

	t.Run("limited apply keeps the dry-run report for later", func(t *testing.T) {
		dir := t.TempDir()
		input := filepath.Join(dir, "library.json")
		content := `{
			"version": 1,
			"tracks": [
				{"id": "t1", "artist": "Daft Punk", "title": "One More Time", "album": "Discovery", "duration": 320},
				{"id": "t2", "artist": "Daft Punk", "title": "One More Time", "album": "Discovery", "duration": 320}
			]
		}`
		if err := os.WriteFile(input, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		metadata := acceptingMetadata()
		buf := &bytes.Buffer{}

		err := runCLI(metadata, buf,
			"enrich", "--input", input, "--output", dir, "--dry-run", "--skip-artwork")
		if err != nil {
			t.Fatal(err)
		}
		searchesAfterPreview := len(metadata.Calls)

		err = runCLI(metadata, buf,
			"enrich", "--input", input, "--output", dir, "--skip-artwork", "--limit", "1")
		if err != nil {
			t.Fatal(err)
		}
		reportPath := filepath.Join(dir, state.DryRunReportName)
		if _, err := os.Stat(reportPath); err != nil {
			t.Fatalf("limit-capped apply must keep the report: %v", err)
		}

		err = runCLI(metadata, buf,
			"enrich", "--input", input, "--output", dir, "--skip-artwork")
		if err != nil {
			t.Fatal(err)
		}
		if len(metadata.Calls) != searchesAfterPreview {
			t.Errorf("remaining tracks must replay the cache, got extra calls %v", metadata.Calls[searchesAfterPreview:])
		}
		if _, err := os.Stat(reportPath); !os.IsNotExist(err) {
			t.Error("full apply must consume the report")
		}
	})

	t.Run("second run resumes past processed tracks", func(t *testing.T) {
		dir := t.TempDir()
		input := writeTestLibrary(t, dir)
		metadata := acceptingMetadata()
		buf := &bytes.Buffer{}

		args := []string{"enrich", "--input", input, "--output", dir, "--skip-artwork"}
		if err := runCLI(metadata, buf, args...); err != nil {
			t.Fatal(err)
		}
		searchesAfterFirst := len(metadata.Calls)

		buf.Reset()
		if err := runCLI(metadata, buf, args...); err != nil {
			t.Fatal(err)
		}
		if len(metadata.Calls) != searchesAfterFirst {
			t.Error("resumed run must not re-query processed tracks")
		}
		if !strings.Contains(buf.String(), "Skipped (resume): 1") {
			t.Errorf("expected resume skip in summary:\n%s", buf.String())
		}
	})

	t.Run("no-resume clears prior state", func(t *testing.T) {
		dir := t.TempDir()
		input := writeTestLibrary(t, dir)
		metadata := acceptingMetadata()
		buf := &bytes.Buffer{}

		if err := runCLI(metadata, buf,
			"enrich", "--input", input, "--output", dir, "--skip-artwork"); err != nil {
			t.Fatal(err)
		}
		searchesAfterFirst := len(metadata.Calls)

		if err := runCLI(metadata, buf,
			"enrich", "--input", input, "--output", dir, "--skip-artwork", "--no-resume"); err != nil {
			t.Fatal(err)
		}
		if len(metadata.Calls) <= searchesAfterFirst {
			t.Error("no-resume must reprocess every track")
		}
	})
}

func TestStateCommands(t *testing.T) {
	dir := t.TempDir()
	input := writeTestLibrary(t, dir)
	buf := &bytes.Buffer{}

	err := runCLI(acceptingMetadata(), buf,
		"enrich", "--input", input, "--output", dir, "--skip-artwork")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("list shows processed ids", func(t *testing.T) {
		buf.Reset()
		if err := runCLI(nil, buf, "state", "list", "--output", dir); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "t1") {
			t.Errorf("expected t1 in listing:\n%s", buf.String())
		}
	})

	t.Run("remove forgets one id", func(t *testing.T) {
		buf.Reset()
		if err := runCLI(nil, buf, "state", "remove", "--output", dir, "t1"); err != nil {
			t.Fatal(err)
		}

		buf.Reset()
		if err := runCLI(nil, buf, "state", "list", "--output", dir); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "0 tracks processed") {
			t.Errorf("expected empty state:\n%s", buf.String())
		}
	})

	t.Run("remove unknown id errors", func(t *testing.T) {
		if err := runCLI(nil, buf, "state", "remove", "--output", dir, "nope"); err == nil {
			t.Error("expected error for unknown id")
		}
	})

	t.Run("clear empties the state", func(t *testing.T) {
		rs, err := state.OpenResumeState(dir)
		if err != nil {
			t.Fatal(err)
		}
		if err := rs.MarkProcessed("t9", "run"); err != nil {
			t.Fatal(err)
		}
		rs.Close()

		if err := runCLI(nil, buf, "state", "clear", "--output", dir); err != nil {
			t.Fatal(err)
		}

		rs, err = state.OpenResumeState(dir)
		if err != nil {
			t.Fatal(err)
		}
		defer rs.Close()
		if rs.Count() != 0 {
			t.Errorf("expected empty state, got %d", rs.Count())
		}
	})
}

func TestReviewCommand(t *testing.T) {
	t.Run("empty queue", func(t *testing.T) {
		dir := t.TempDir()
		buf := &bytes.Buffer{}

		if err := runCLI(nil, buf, "review", "list", "--output", dir); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "Review queue is empty") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})

	t.Run("lists flagged tracks", func(t *testing.T) {
		dir := t.TempDir()
		items := []models.ReviewItem{{
			TrackID:  "t1",
			Filename: "one_more_time.mp3",
			Reasons:  []string{models.ReasonConfidenceBand},
			Existing: map[string]string{"artist": "Daft Punk"},
			Suggestions: []models.Suggestion{
				{Source: "musicbrainz", Confidence: 0.7, Fields: map[string]string{"artist": "Daft Punk", "title": "One More Time"}},
			},
		}}
		if _, err := formatter.WriteReviewQueue(dir, items); err != nil {
			t.Fatal(err)
		}

		buf := &bytes.Buffer{}
		if err := runCLI(nil, buf, "review", "list", "--output", dir); err != nil {
			t.Fatal(err)
		}

		out := buf.String()
		if !strings.Contains(out, "one_more_time.mp3") || !strings.Contains(out, models.ReasonConfidenceBand) {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("json output", func(t *testing.T) {
		dir := t.TempDir()
		buf := &bytes.Buffer{}

		if err := runCLI(nil, buf, "review", "list", "--output", dir, "--json"); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), `"version"`) {
			t.Errorf("expected JSON output:\n%s", buf.String())
		}
	})
}

func TestSetupCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	buf := &bytes.Buffer{}

	if err := runCLI(nil, buf, "setup", "--config", path); err != nil {
		t.Fatal(err)
	}
	if _, err := shared.LoadConfig(path); err != nil {
		t.Errorf("created config not loadable: %v", err)
	}

	if err := runCLI(nil, buf, "setup", "--config", path); err == nil {
		t.Error("expected error when config already exists")
	}
}
