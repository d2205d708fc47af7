package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/rmzi/crate/internal/formatter"
	"github.com/rmzi/crate/internal/state"
	"github.com/rmzi/crate/internal/tasks"
	"github.com/rmzi/crate/internal/ui"
)

// Enrich runs the full enrichment pipeline over a track library.
func (r *Runner) Enrich(ctx context.Context, cmd *cli.Command) error {
	input := cmd.String("input")
	outputDir := cmd.String("output")
	dryRun := cmd.Bool("dry-run")
	noResume := cmd.Bool("no-resume")
	resume := cmd.Bool("resume") && !noResume

	config, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// A resumed run picks up the prior enriched output when one exists, so
	// annotations on already-processed tracks carry forward.
	source := input
	if resume {
		enriched := filepath.Join(outputDir, formatter.EnrichedName)
		if _, err := os.Stat(enriched); err == nil {
			source = enriched
		}
	}

	lib, err := formatter.LoadLibrary(source)
	if err != nil {
		return err
	}
	r.logger.Info("library loaded", "tracks", len(lib.Tracks), "input", source)

	resumeState, err := state.OpenResumeState(outputDir)
	if err != nil {
		return err
	}
	defer resumeState.Close()

	if noResume {
		if err := resumeState.Clear(); err != nil {
			return err
		}
		r.logger.Info("run state cleared")
	}

	var cache *state.DryRunCache
	if !dryRun {
		cache = state.LoadDryRunCache(outputDir)
		if cache.Len() > 0 {
			r.writePlain("Applying cached dry-run results for %d tracks\n", cache.Len())
		}
	}

	metadata, releaseArt, artSearch := r.buildServices(config)
	engine := tasks.NewEnrichmentEngine(tasks.EngineOpts{
		Metadata:   metadata,
		ReleaseArt: releaseArt,
		ArtSearch:  artSearch,
		Resume:     resumeState,
		Matching:   config.Matching,
		Artwork:    config.Artwork,
		Logger:     r.logger,
	})

	mode := "apply"
	if dryRun {
		mode = "dry run"
	}
	r.writePlain("Enriching %d tracks (%s)...\n\n", len(lib.Tracks), mode)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.PhaseConnectivity:
				r.writePlain("• %s\n", update.Message)
			case tasks.PhaseLookup:
				r.writePlain("[%d/%d] %s\n", update.Current, update.Total, update.Message)
			case tasks.PhaseCheckpoint:
				r.writePlain("  %s\n", update.Message)
			}
		}
	}()

	// periodic snapshots so an interrupted apply run leaves usable artifacts
	checkpoint := func(partial *tasks.RunResult) error {
		if dryRun {
			_, err := state.WriteDryRunReport(outputDir, partial.DryRunResults)
			return err
		}
		if _, err := formatter.WriteEnrichedLibrary(outputDir, partial.Library); err != nil {
			return err
		}
		_, err := formatter.WriteReviewQueue(outputDir, partial.Review)
		return err
	}

	result, runErr := engine.Run(ctx, lib, progressCh, tasks.RunOpts{
		OutputDir:   outputDir,
		DryRun:      dryRun,
		Resume:      resume,
		SkipArtwork: cmd.Bool("skip-artwork"),
		Limit:       cmd.Int("limit"),
		Cache:       cache,
		Checkpoint:  checkpoint,
	})
	close(progressCh)
	<-done

	if runErr != nil {
		return runErr
	}

	if result.Offline {
		r.logger.Warn("run completed in offline mode; unprocessed tracks will be retried next run")
	}

	if dryRun {
		path, err := state.WriteDryRunReport(outputDir, result.DryRunResults)
		if err != nil {
			return err
		}
		r.writePlain("\nDry-run report written to %s\n", path)
	} else {
		if _, err := formatter.WriteEnrichedLibrary(outputDir, result.Library); err != nil {
			return err
		}
		if _, err := formatter.WriteReviewQueue(outputDir, result.Review); err != nil {
			return err
		}
		// A limit-capped run leaves report entries unapplied; keep the
		// report so the next apply can replay them without new lookups.
		if cache != nil && !result.LimitReached {
			if err := cache.Consume(); err != nil {
				return err
			}
		}
	}

	r.writePlain("\n%s\n", ui.RenderSummary(result.Stats, len(result.Review), dryRun))
	return nil
}
