package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/rmzi/crate/internal/services"
	"github.com/rmzi/crate/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for
// each command action.
type Runner struct {
	config     *shared.Config
	metadata   services.MetadataService
	releaseArt services.ReleaseArtService
	artSearch  services.ArtSearchService
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner. Nil
// services are constructed from the config at command time, so tests can
// inject fakes.
type RunnerOpts struct {
	Config     *shared.Config
	Metadata   services.MetadataService
	ReleaseArt services.ReleaseArtService
	ArtSearch  services.ArtSearchService
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		metadata:   opts.Metadata,
		releaseArt: opts.ReleaseArt,
		artSearch:  opts.ArtSearch,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		enrichCommand, stateCommand, reviewCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// resolveConfig returns the runner's config, overridden by the --config flag
// when one was passed.
func (r *Runner) resolveConfig(cmd *cli.Command) (*shared.Config, error) {
	path := cmd.String("config")
	if path == "" || !cmd.IsSet("config") {
		return r.config, nil
	}
	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return config, nil
}

// buildServices fills any service the runner was not constructed with from
// the config.
func (r *Runner) buildServices(config *shared.Config) (services.MetadataService, services.ReleaseArtService, services.ArtSearchService) {
	metadata := r.metadata
	if metadata == nil {
		metadata = services.NewMusicBrainzService(services.MusicBrainzOpts{
			BaseURL:        config.Services.MusicBrainz.BaseURL,
			UserAgent:      config.Services.UserAgent,
			Limiter:        services.NewLimiter(config.Services.MusicBrainz.RateLimit),
			CandidateLimit: config.Matching.CandidateLimit,
			Retry:          config.Retry,
		})
	}

	releaseArt := r.releaseArt
	if releaseArt == nil {
		releaseArt = services.NewCoverArtService(services.CoverArtOpts{
			BaseURL:   config.Services.CoverArt.BaseURL,
			UserAgent: config.Services.UserAgent,
			Limiter:   services.NewLimiter(config.Services.CoverArt.RateLimit),
		})
	}

	artSearch := r.artSearch
	if artSearch == nil {
		artSearch = services.NewITunesService(services.ITunesOpts{
			BaseURL:   config.Services.ITunes.BaseURL,
			UserAgent: config.Services.UserAgent,
			Limiter:   services.NewLimiter(config.Services.ITunes.RateLimit),
		})
	}

	return metadata, releaseArt, artSearch
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
