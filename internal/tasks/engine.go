// package tasks implements the enrichment engine that orchestrates matching,
// scoring, conflict classification, and artwork selection per track.
//
// The core abstraction is EnrichmentEngine. Tracks are processed strictly one
// at a time in input order; the only suspension points are the rate-limited
// waits before outbound calls. Operations emit progress updates via channels
// for non-blocking status reporting to the CLI layer.
package tasks

import (
	"context"
	"errors"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/rmzi/crate/internal/formatter"
	"github.com/rmzi/crate/internal/match"
	"github.com/rmzi/crate/internal/models"
	"github.com/rmzi/crate/internal/services"
	"github.com/rmzi/crate/internal/shared"
	"github.com/rmzi/crate/internal/state"
)

// The tag fields the classifier walks, in output order.
var classifiedFields = []string{"artist", "title", "album", "year"}

// closeScoreBand: a runner-up within this distance of the best candidate at
// review confidence or better counts as a disagreement worth flagging.
const closeScoreBand = 0.10

// EnrichmentEngine orchestrates per-track enrichment and produces the
// enriched record set plus the review queue.
type EnrichmentEngine struct {
	metadata   services.MetadataService
	releaseArt services.ReleaseArtService
	artSearch  services.ArtSearchService
	scorer     *match.Scorer
	classifier *match.ConflictClassifier
	selector   *match.ArtworkSelector
	resume     *state.ResumeState
	matching   shared.MatchingConfig
	logger     *log.Logger
}

// EngineOpts contains the dependencies for an EnrichmentEngine.
type EngineOpts struct {
	Metadata   services.MetadataService
	ReleaseArt services.ReleaseArtService
	ArtSearch  services.ArtSearchService
	Resume     *state.ResumeState
	Matching   shared.MatchingConfig
	Artwork    shared.ArtworkConfig
	Logger     *log.Logger
}

// NewEnrichmentEngine creates an engine with the provided services.
func NewEnrichmentEngine(opts EngineOpts) *EnrichmentEngine {
	if opts.Matching.AutoAcceptThreshold == 0 {
		opts.Matching.AutoAcceptThreshold = 0.85
	}
	if opts.Matching.ReviewThreshold == 0 {
		opts.Matching.ReviewThreshold = 0.50
	}
	if opts.Matching.ConfirmSimilarity == 0 {
		opts.Matching.ConfirmSimilarity = 0.90
	}
	if opts.Artwork.UpgradeMargin == 0 {
		opts.Artwork.UpgradeMargin = 10
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &EnrichmentEngine{
		metadata:   opts.Metadata,
		releaseArt: opts.ReleaseArt,
		artSearch:  opts.ArtSearch,
		scorer:     match.NewScorer(),
		classifier: match.NewConflictClassifier(opts.Matching.ConfirmSimilarity),
		selector:   match.NewArtworkSelector(opts.Artwork.UpgradeMargin),
		resume:     opts.Resume,
		matching:   opts.Matching,
		logger:     opts.Logger,
	}
}

// RunOpts configures one engine run.
type RunOpts struct {
	OutputDir   string
	RunID       string
	DryRun      bool
	Resume      bool
	SkipArtwork bool
	Limit       int // cap on newly processed tracks; 0 = unlimited

	// Cache replays a previous preview run instead of live lookups.
	Cache *state.DryRunCache

	// Checkpoint, when set, is invoked with the partial result every
	// CheckpointEvery processed tracks.
	Checkpoint      func(*RunResult) error
	CheckpointEvery int
}

// RunResult is everything one run produced.
type RunResult struct {
	Library       *models.Library
	Review        []models.ReviewItem
	DryRunResults []models.EnrichmentResult
	Stats         models.RunStats
	Offline       bool
	LimitReached  bool
}

// scoredCandidate pairs a candidate with its confidence for ranking.
type scoredCandidate struct {
	score float64
	cand  models.MatchCandidate
}

// Run enriches every track in lib according to opts. Per-track failures are
// recovered locally; the returned error is reserved for unrecoverable
// internal problems.
func (e *EnrichmentEngine) Run(ctx context.Context, lib *models.Library, progress chan<- ProgressUpdate, opts RunOpts) (*RunResult, error) {
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = 25
	}
	if opts.RunID == "" {
		opts.RunID = shared.GenerateID()
	}

	res := &RunResult{Library: lib}
	res.Stats.Total = len(lib.Tracks)

	// Connectivity is checked lazily before the first live lookup, so a
	// cache-only apply run issues zero network calls.
	pinged := false
	offline := false
	total := len(lib.Tracks)

	for i := range lib.Tracks {
		track := &lib.Tracks[i]

		if opts.Limit > 0 && res.Stats.Processed >= opts.Limit {
			res.LimitReached = true
			break
		}

		if err := track.Validate(); err != nil {
			e.logger.Warn("skipping malformed track", "index", i, "err", err)
			track.Enrichment = skippedEnrichment("data_error")
			res.Stats.Skipped++
			continue
		}

		if opts.Resume && e.resume != nil && e.resume.Contains(track.ID) {
			res.Stats.SkippedResume++
			continue
		}

		e.sendProgress(progress, lookupUpdate(i+1, total, track.ID, track.DisplayName()))

		var result *models.EnrichmentResult

		if cached, ok := e.cachedResult(opts, track.ID); ok {
			result = e.applyCachedArtwork(ctx, cached, opts)
			res.Stats.FromCache++
		} else {
			if !offline && !pinged {
				pinged = true
				if err := e.metadata.Ping(ctx); err != nil {
					e.logger.Warn("metadata service unreachable, switching to offline mode", "err", err)
					offline = true
				}
				e.sendProgress(progress, connectivityUpdate(!offline))
			}

			if offline {
				// pass through unchanged; the id stays out of the resume
				// set so a later online run picks the track up again
				track.Enrichment = skippedEnrichment("offline")
				res.Stats.Skipped++
				continue
			}

			var err error
			result, err = e.enrichTrack(ctx, track, opts)
			if err != nil {
				if errors.Is(err, shared.ErrServiceUnavailable) {
					e.logger.Warn("metadata service failed, switching to offline mode", "err", err)
					offline = true
					track.Enrichment = skippedEnrichment("offline")
					res.Stats.Skipped++
					continue
				}
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					res.Offline = offline
					return res, err
				}
				e.logger.Error("track enrichment failed", "track", track.ID, "err", err)
				track.Enrichment = skippedEnrichment("data_error")
				if !opts.DryRun && e.resume != nil {
					if merr := e.resume.MarkProcessed(track.ID, opts.RunID); merr != nil {
						return res, merr
					}
				}
				res.Stats.Skipped++
				continue
			}
		}

		track.Enrichment = result.Enrichment
		if !opts.DryRun {
			result.Updates.Apply(track)
		}

		if opts.DryRun {
			res.DryRunResults = append(res.DryRunResults, *result)
		} else if e.resume != nil {
			if err := e.resume.MarkProcessed(track.ID, opts.RunID); err != nil {
				return res, err
			}
		}

		if result.Review != nil {
			res.Review = append(res.Review, *result.Review)
			res.Stats.Flagged++
		}

		switch result.Enrichment.Status {
		case models.StatusEnriched:
			res.Stats.AutoAccepted++
		case models.StatusNoMatch:
			res.Stats.NoMatch++
		case models.StatusSkipped:
			res.Stats.Skipped++
		}

		res.Stats.Processed++
		e.sendProgress(progress, trackDoneUpdate(i+1, total, track.ID, result.Enrichment.Status))

		if opts.Checkpoint != nil && res.Stats.Processed%opts.CheckpointEvery == 0 {
			if err := opts.Checkpoint(res); err != nil {
				return res, err
			}
			e.sendProgress(progress, checkpointUpdate(res.Stats.Processed))
		}
	}

	res.Offline = offline
	return res, nil
}

// cachedResult looks up a replayable preview result for the track.
func (e *EnrichmentEngine) cachedResult(opts RunOpts, trackID string) (*models.EnrichmentResult, bool) {
	if opts.DryRun || opts.Cache == nil {
		return nil, false
	}
	entry, ok := opts.Cache.Get(trackID)
	if !ok {
		return nil, false
	}
	return &entry, true
}

// applyCachedArtwork finishes a cached preview result: artwork downloads are
// deferred during preview, so an upgrade recorded there is fetched now.
func (e *EnrichmentEngine) applyCachedArtwork(ctx context.Context, result *models.EnrichmentResult, opts RunOpts) *models.EnrichmentResult {
	if result.Enrichment != nil {
		result.Enrichment.Timestamp = shared.Timestamp()
	}
	if result.Updates == nil {
		result.Updates = &models.FieldUpdates{}
	}

	needsArt := !opts.SkipArtwork &&
		result.ArtworkCandidate != nil &&
		result.Enrichment != nil &&
		result.Enrichment.Artwork != nil &&
		result.Enrichment.Artwork.Upgrade &&
		result.Updates.ArtworkPath == nil

	if needsArt {
		if path, err := e.fetchArtwork(ctx, result.TrackID, *result.ArtworkCandidate, opts.OutputDir); err != nil {
			e.logger.Warn("cached artwork download failed", "track", result.TrackID, "err", err)
		} else {
			result.Updates.ArtworkPath = &path
			result.Enrichment.FieldsUpdated = append(result.Enrichment.FieldsUpdated, "artwork")
		}
	}

	result.ArtworkCandidate = nil
	return result
}

// enrichTrack runs the full matching pipeline for one track.
func (e *EnrichmentEngine) enrichTrack(ctx context.Context, track *models.TrackRecord, opts RunOpts) (*models.EnrichmentResult, error) {
	result := &models.EnrichmentResult{
		TrackID: track.ID,
		Enrichment: &models.Enrichment{
			Timestamp: shared.Timestamp(),
		},
		Updates: &models.FieldUpdates{},
	}
	enrichment := result.Enrichment
	var reasons []string

	// Too little ground truth to trust any auto-accept.
	if track.Artist == "" && track.Title == "" {
		enrichment.Status = models.StatusFlagged
		reasons = append(reasons, models.ReasonNoArtistOrTitle)
		result.Review = e.buildReviewItem(track, reasons, nil, nil)
		return result, nil
	}

	all, accepted, err := e.stagedSearch(ctx, track)
	if err != nil {
		return nil, err
	}

	if len(all) == 0 {
		enrichment.Status = models.StatusNoMatch
		return result, nil
	}

	best := all[0]
	if accepted != nil {
		best = *accepted
	} else {
		for _, sc := range all[1:] {
			// strictly greater keeps stable input order on ties
			if sc.score > best.score {
				best = sc
			}
		}
	}

	enrichment.MatchConfidence = best.score
	enrichment.Source = best.cand.Source
	enrichment.MBRecordingID = best.cand.MBRecordingID
	enrichment.MBReleaseID = best.cand.MBReleaseID

	if second := runnerUp(all, best); second != nil &&
		second.score >= e.matching.ReviewThreshold &&
		best.score-second.score < closeScoreBand &&
		shared.Normalize(best.cand.Title) != shared.Normalize(second.cand.Title) {
		reasons = append(reasons, models.ReasonCandidatesDiffer)
	}

	switch {
	case best.score >= e.matching.AutoAcceptThreshold:
		enrichment.Status = models.StatusEnriched
	case best.score >= e.matching.ReviewThreshold:
		enrichment.Status = models.StatusFlagged
		reasons = append(reasons, models.ReasonConfidenceBand)
	default:
		// below the review threshold no field is ever touched
		enrichment.Status = models.StatusNoMatch
		return result, nil
	}

	for _, field := range classifiedFields {
		proposed := best.cand.Field(field)
		sources := agreementCount(all, field, proposed, e.matching.ReviewThreshold)
		d := e.classifier.Classify(field, track.Field(field), proposed, sources)

		switch d.Kind {
		case models.DispositionConfirmed:
			enrichment.FieldsConfirmed = append(enrichment.FieldsConfirmed, field)
		case models.DispositionSupplement:
			if field == "year" {
				result.Updates.SetYear(best.cand.Year)
			} else {
				result.Updates.Set(field, proposed)
			}
			enrichment.FieldsUpdated = append(enrichment.FieldsUpdated, field)
		case models.DispositionLikelyCorrection:
			enrichment.Conflicts = append(enrichment.Conflicts, d)
			reasons = append(reasons, models.ReasonLikelyCorrection+":"+field)
		case models.DispositionAlternative:
			enrichment.Conflicts = append(enrichment.Conflicts, d)
		}
	}

	if !opts.SkipArtwork {
		e.selectArtwork(ctx, track, best.cand, result, opts, &reasons)
	}

	if len(reasons) > 0 {
		result.Review = e.buildReviewItem(track, reasons, all, enrichment.Conflicts)
	}

	return result, nil
}

// stagedSearch walks the three query stages, terminal on first acceptance.
// Exact artist+title queries are most precise but fail on incomplete tags;
// later stages trade precision for recall under the same acceptance ceiling.
func (e *EnrichmentEngine) stagedSearch(ctx context.Context, track *models.TrackRecord) (all []scoredCandidate, accepted *scoredCandidate, err error) {
	stages := []struct {
		ready bool
		query func(context.Context) ([]models.MatchCandidate, error)
	}{
		{track.Artist != "" && track.Title != "", func(ctx context.Context) ([]models.MatchCandidate, error) {
			return e.metadata.SearchArtistTitle(ctx, track.Artist, track.Title)
		}},
		{track.Artist != "" && track.Album != "", func(ctx context.Context) ([]models.MatchCandidate, error) {
			return e.metadata.SearchArtistAlbum(ctx, track.Artist, track.Album)
		}},
		{track.Title != "", func(ctx context.Context) ([]models.MatchCandidate, error) {
			return e.metadata.SearchTitle(ctx, track.Title)
		}},
	}

	for _, stage := range stages {
		if !stage.ready {
			continue
		}

		candidates, err := stage.query(ctx)
		if err != nil {
			return nil, nil, err
		}

		scored := make([]scoredCandidate, 0, len(candidates))
		for _, cand := range candidates {
			cand.Confidence = e.scorer.Score(track, &cand, 1)
			scored = append(scored, scoredCandidate{score: cand.Confidence, cand: cand})
		}
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].score > scored[j].score
		})

		all = append(all, scored...)

		if len(scored) > 0 && scored[0].score >= e.matching.AutoAcceptThreshold {
			top := scored[0]
			return all, &top, nil
		}
	}

	return all, nil, nil
}

// runnerUp returns the best-scoring candidate that is a different recording
// from best, or nil.
func runnerUp(all []scoredCandidate, best scoredCandidate) *scoredCandidate {
	var second *scoredCandidate
	for i := range all {
		sc := &all[i]
		if sc.cand.MBRecordingID == best.cand.MBRecordingID && sc.score == best.score {
			continue
		}
		if second == nil || sc.score > second.score {
			second = sc
		}
	}
	return second
}

// agreementCount counts distinct recordings at review confidence or better
// that propose the same normalized value for the field.
func agreementCount(all []scoredCandidate, field, proposed string, floor float64) int {
	if proposed == "" {
		return 0
	}
	want := shared.Normalize(proposed)
	seen := map[string]struct{}{}
	for _, sc := range all {
		if sc.score < floor {
			continue
		}
		if shared.Normalize(sc.cand.Field(field)) != want {
			continue
		}
		key := sc.cand.MBRecordingID
		if key == "" {
			key = sc.cand.Source + "|" + sc.cand.Title + "|" + sc.cand.Artist
		}
		seen[key] = struct{}{}
	}
	if len(seen) == 0 {
		return 1
	}
	return len(seen)
}

// selectArtwork gathers art candidates, applies the upgrade rule, and in a
// real run downloads the chosen image. In a preview the chosen candidate is
// recorded on the result so the apply run can fetch it later.
func (e *EnrichmentEngine) selectArtwork(ctx context.Context, track *models.TrackRecord, cand models.MatchCandidate, result *models.EnrichmentResult, opts RunOpts, reasons *[]string) {
	candidates := e.artworkCandidates(ctx, track, cand)
	decision, bestArt := e.selector.Decide(track, candidates)
	if decision == nil {
		return
	}

	result.Enrichment.Artwork = decision
	if !decision.Upgrade {
		return
	}

	// operator visibility into asset churn
	if track.ArtworkPath != "" {
		*reasons = append(*reasons, models.ReasonArtworkUpgrade)
	}

	if opts.DryRun {
		result.ArtworkCandidate = bestArt
		return
	}

	path, err := e.fetchArtwork(ctx, track.ID, *bestArt, opts.OutputDir)
	if err != nil {
		e.logger.Warn("artwork download failed", "track", track.ID, "err", err)
		return
	}
	result.Updates.ArtworkPath = &path
	result.Enrichment.FieldsUpdated = append(result.Enrichment.FieldsUpdated, "artwork")
}

// artworkCandidates queries the Cover Art Archive by release id, falling
// back to iTunes free-text search when the archive has nothing.
func (e *EnrichmentEngine) artworkCandidates(ctx context.Context, track *models.TrackRecord, cand models.MatchCandidate) []models.ArtworkCandidate {
	var candidates []models.ArtworkCandidate

	if e.releaseArt != nil && cand.MBReleaseID != "" {
		art, err := e.releaseArt.ReleaseArt(ctx, cand.MBReleaseID)
		switch {
		case err == nil:
			candidates = append(candidates, *art)
		case !errors.Is(err, shared.ErrArtworkNotFound):
			e.logger.Warn("cover art lookup failed", "track", track.ID, "err", err)
		}
	}

	if len(candidates) == 0 && e.artSearch != nil && track.Artist != "" && track.Title != "" {
		art, err := e.artSearch.SearchArt(ctx, track.Artist, track.Title)
		switch {
		case err == nil:
			candidates = append(candidates, *art)
		case !errors.Is(err, shared.ErrArtworkNotFound):
			e.logger.Warn("artwork search failed", "track", track.ID, "err", err)
		}
	}

	return candidates
}

// fetchArtwork downloads an artwork candidate and stores it under the
// output directory.
func (e *EnrichmentEngine) fetchArtwork(ctx context.Context, trackID string, art models.ArtworkCandidate, outputDir string) (string, error) {
	var (
		data []byte
		err  error
	)
	if art.Source == "itunes" && e.artSearch != nil {
		data, err = e.artSearch.Download(ctx, art.URL)
	} else if e.releaseArt != nil {
		data, err = e.releaseArt.Download(ctx, art.URL)
	} else {
		return "", shared.ErrArtworkNotFound
	}
	if err != nil {
		return "", err
	}
	return formatter.WriteArtwork(outputDir, trackID, art.Format, data)
}

// buildReviewItem assembles the operator-facing entry for a flagged track.
func (e *EnrichmentEngine) buildReviewItem(track *models.TrackRecord, reasons []string, all []scoredCandidate, conflicts []models.FieldDisposition) *models.ReviewItem {
	item := &models.ReviewItem{
		TrackID:   track.ID,
		Filename:  track.OriginalFilename,
		Reasons:   reasons,
		Existing:  map[string]string{},
		Conflicts: conflicts,
	}
	for _, field := range classifiedFields {
		item.Existing[field] = track.Field(field)
	}

	// surface the best candidate plus a close runner-up
	if len(all) > 0 {
		best := all[0]
		for _, sc := range all[1:] {
			if sc.score > best.score {
				best = sc
			}
		}
		item.Suggestions = append(item.Suggestions, suggestion(best))
		if second := runnerUp(all, best); second != nil && second.score >= e.matching.ReviewThreshold {
			item.Suggestions = append(item.Suggestions, suggestion(*second))
		}
	}

	return item
}

func suggestion(sc scoredCandidate) models.Suggestion {
	fields := map[string]string{}
	for _, field := range classifiedFields {
		fields[field] = sc.cand.Field(field)
	}
	return models.Suggestion{
		Source:     sc.cand.Source,
		Confidence: sc.score,
		Fields:     fields,
	}
}

// skippedEnrichment annotates a track that was written through unchanged.
func skippedEnrichment(reason string) *models.Enrichment {
	return &models.Enrichment{
		Status:    models.StatusSkipped,
		Reason:    reason,
		Timestamp: shared.Timestamp(),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *EnrichmentEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
