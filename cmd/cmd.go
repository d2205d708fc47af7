// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output directory for enrichment artifacts",
		Value:   ".",
	}
}

// enrichCommand handles the enrichment pipeline.
func enrichCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "enrich",
		Usage: "Enrich a track library with metadata from external sources",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Path to the track library JSON file",
				Required: true,
			},
			outputFlag(),
			configFlag(),
			&cli.BoolFlag{
				Name:  "resume",
				Usage: "Skip tracks already processed by a previous run",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "no-resume",
				Usage: "Clear prior run state and reprocess every track",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Preview changes without modifying any output artifact",
			},
			&cli.BoolFlag{
				Name:  "skip-artwork",
				Usage: "Skip artwork lookup and download",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of tracks to process this run",
			},
		},
		Action: r.Enrich,
	}
}

// stateCommand manages the resume-state database.
func stateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Inspect and manage enrichment run state",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List processed track ids",
				Flags: []cli.Flag{
					outputFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.StateList,
			},
			{
				Name:   "clear",
				Usage:  "Clear all run state so the next run starts fresh",
				Flags:  []cli.Flag{outputFlag()},
				Action: r.StateClear,
			},
			{
				Name:  "remove",
				Usage: "Remove one track id so the next run reprocesses it",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "track-id",
					},
				},
				Flags:  []cli.Flag{outputFlag()},
				Action: r.StateRemove,
			},
		},
	}
}

// reviewCommand surfaces the review queue.
func reviewCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Work with the manual review queue",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print flagged tracks awaiting a human decision",
				Flags: []cli.Flag{
					outputFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ReviewList,
			},
		},
	}
}

// setupCommand handles configuration scaffolding.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Write a starter config.toml to the current directory",
		Flags: []cli.Flag{
			configFlag(),
		},
		Action: r.Setup,
	}
}
