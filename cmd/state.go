package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/rmzi/crate/internal/formatter"
	"github.com/rmzi/crate/internal/shared"
	"github.com/rmzi/crate/internal/state"
)

// StateList prints the processed track ids recorded by previous runs.
func (r *Runner) StateList(ctx context.Context, cmd *cli.Command) error {
	resumeState, err := state.OpenResumeState(cmd.String("output"))
	if err != nil {
		return err
	}
	defer resumeState.Close()

	ids, err := resumeState.List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"count": len(ids), "track_ids": ids}, true)
	}

	r.writePlain("%d tracks processed\n", len(ids))
	for _, id := range ids {
		r.writePlain("  %s\n", id)
	}
	return nil
}

// StateClear empties the run state so the next run starts from scratch.
func (r *Runner) StateClear(ctx context.Context, cmd *cli.Command) error {
	resumeState, err := state.OpenResumeState(cmd.String("output"))
	if err != nil {
		return err
	}
	defer resumeState.Close()

	count := resumeState.Count()
	if err := resumeState.Clear(); err != nil {
		return err
	}

	r.writePlain("Cleared %d tracks from run state\n", count)
	return nil
}

// StateRemove removes one track id so the next run reprocesses it.
func (r *Runner) StateRemove(ctx context.Context, cmd *cli.Command) error {
	trackID := strings.TrimSpace(cmd.StringArg("track-id"))
	if trackID == "" {
		return fmt.Errorf("%w: track-id", shared.ErrMissingArgument)
	}

	resumeState, err := state.OpenResumeState(cmd.String("output"))
	if err != nil {
		return err
	}
	defer resumeState.Close()

	if err := resumeState.Remove(trackID); err != nil {
		return err
	}

	r.writePlain("Removed %s from run state\n", trackID)
	return nil
}

// ReviewList prints the review queue produced by the last apply run.
func (r *Runner) ReviewList(ctx context.Context, cmd *cli.Command) error {
	queue, err := formatter.LoadReviewQueue(cmd.String("output"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(queue, true)
	}

	if len(queue.Items) == 0 {
		r.writePlain("Review queue is empty\n")
		return nil
	}

	r.writePlain("%d tracks need review\n\n", len(queue.Items))
	for i, item := range queue.Items {
		name := item.Filename
		if name == "" {
			name = item.TrackID
		}
		r.writePlain("%d. %s\n", i+1, name)
		r.writePlain("   reasons: %s\n", strings.Join(item.Reasons, ", "))
		for _, s := range item.Suggestions {
			r.writePlain("   %s (%.2f): %s - %s\n", s.Source, s.Confidence, s.Fields["artist"], s.Fields["title"])
		}
		for _, c := range item.Conflicts {
			r.writePlain("   %s: %q -> %q (%s)\n", c.Field, c.OldValue, c.NewValue, c.Kind)
		}
		r.writePlain("\n")
	}
	return nil
}

// Setup writes a starter configuration file.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.writePlain("Wrote %s\n", path)
	return nil
}
