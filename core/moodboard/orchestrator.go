// Package moodboard assembles composite moodboard results from the
// three provider clients and manages their persistence.
package moodboard

import (
	"context"
	"fmt"
	"sync"

	"moodmuse/core/imagegen"
	"moodmuse/logger"
	"moodmuse/model"
)

// playlistTarget is the number of tracks a full playlist carries.
const playlistTarget = 6

// Placeholders applied when provider suggestions are used verbatim.
const (
	fallbackAlbum    = "Unknown Album"
	fallbackDuration = "3:30"
)

// Stage names a pipeline stage, in execution order.
type Stage string

const (
	StageAnalyzing Stage = "analyzing" // completion provider
	StageCurating  Stage = "curating"  // catalog lookup
	StageRendering Stage = "rendering" // image generation
)

// ProgressFunc receives a notification when a pipeline stage starts.
type ProgressFunc func(stage Stage)

// OrchestrationError reports which stage sank the pipeline. Only the
// completion stage can; catalog and image failures are absorbed.
type OrchestrationError struct {
	Stage Stage
	Err   error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("moodboard pipeline failed at %s stage: %v", e.Stage, e.Err)
}

func (e *OrchestrationError) Unwrap() error {
	return e.Err
}

// CompletionProvider interprets a mood description.
type CompletionProvider interface {
	IsConfigured() bool
	Analyze(ctx context.Context, mood string) (*model.CompletionResult, error)
}

// CatalogProvider resolves tracks against a music catalog.
type CatalogProvider interface {
	IsConfigured() bool
	Resolve(ctx context.Context, candidates []model.TrackCandidate) []model.Track
	SearchByQuery(ctx context.Context, query string, limit int) ([]model.Track, error)
}

// ImageProvider generates mood artwork.
type ImageProvider interface {
	IsConfigured() bool
	Generate(ctx context.Context, prompt string, count int) ([]string, error)
}

// Orchestrator sequences the three providers and merges their output
// into one composite result. Providers are injected so tests can
// substitute fakes.
type Orchestrator struct {
	completion CompletionProvider
	catalog    CatalogProvider
	images     ImageProvider
}

// NewOrchestrator creates an orchestrator over the given providers.
func NewOrchestrator(completion CompletionProvider, catalog CatalogProvider, images ImageProvider) *Orchestrator {
	return &Orchestrator{
		completion: completion,
		catalog:    catalog,
		images:     images,
	}
}

// CreateMoodboard runs the full pipeline for one mood description.
// The completion stage gates everything: without an interpretation of
// the mood there is no board. Catalog and image failures degrade to
// fallback content and are never surfaced. progress may be nil.
func (o *Orchestrator) CreateMoodboard(ctx context.Context, mood string, progress ProgressFunc) (*model.MoodboardResult, error) {
	notify := func(stage Stage) {
		if progress != nil {
			progress(stage)
		}
	}

	notify(StageAnalyzing)
	analysis, err := o.completion.Analyze(ctx, mood)
	if err != nil {
		logger.Error("Mood analysis failed",
			logger.String("mood", mood),
			logger.ErrorField(err))
		return nil, &OrchestrationError{Stage: StageAnalyzing, Err: err}
	}

	// Catalog resolution and image generation both consume the
	// analysis but not each other; run them concurrently.
	notify(StageCurating)
	notify(StageRendering)

	var (
		wg       sync.WaitGroup
		playlist []model.Track
		images   []string
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		playlist = o.buildPlaylist(ctx, analysis)
	}()
	go func() {
		defer wg.Done()
		images = o.buildImages(ctx, analysis.ImagePrompt)
	}()
	wg.Wait()

	return &model.MoodboardResult{
		OriginalMood:  mood,
		PoeticCaption: analysis.PoeticCaption,
		Playlist:      playlist,
		Images:        images,
	}, nil
}

// buildPlaylist resolves the suggested tracks against the catalog,
// padding from a free-text mood search when fewer than six resolve.
// Any catalog trouble degrades to the raw suggestions.
func (o *Orchestrator) buildPlaylist(ctx context.Context, analysis *model.CompletionResult) []model.Track {
	if !o.catalog.IsConfigured() {
		logger.Warn("Catalog not configured, using provider suggestions")
		return suggestionsAsTracks(analysis.SuggestedTracks)
	}

	candidates := make([]model.TrackCandidate, 0, len(analysis.SuggestedTracks))
	for _, s := range analysis.SuggestedTracks {
		candidates = append(candidates, model.TrackCandidate{Name: s.Name, Artist: s.Artist})
	}

	playlist := o.catalog.Resolve(ctx, candidates)

	if len(playlist) < playlistTarget {
		more, err := o.catalog.SearchByQuery(ctx, analysis.CatalogQuery, playlistTarget-len(playlist))
		if err != nil {
			logger.Warn("Catalog mood search failed, keeping partial playlist",
				logger.String("query", analysis.CatalogQuery),
				logger.ErrorField(err))
		} else {
			playlist = append(playlist, more...)
		}
	}

	if len(playlist) > playlistTarget {
		playlist = playlist[:playlistTarget]
	}

	return playlist
}

// buildImages generates the artwork batch, substituting the static
// fallback set when generation produces nothing at all.
func (o *Orchestrator) buildImages(ctx context.Context, prompt string) []string {
	if !o.images.IsConfigured() {
		logger.Warn("Image provider not configured, using fallback images")
		return imagegen.FallbackImages()
	}

	urls, err := o.images.Generate(ctx, prompt, imagegen.MaxImages)
	if err != nil || len(urls) == 0 {
		logger.Warn("Image generation failed, using fallback images",
			logger.ErrorField(err))
		return imagegen.FallbackImages()
	}

	return urls
}

// suggestionsAsTracks maps provider suggestions straight onto tracks,
// filling absent album and duration with placeholders.
func suggestionsAsTracks(suggestions []model.SuggestedTrack) []model.Track {
	tracks := make([]model.Track, 0, len(suggestions))
	for _, s := range suggestions {
		album := s.Album
		if album == "" {
			album = fallbackAlbum
		}
		duration := s.Duration
		if duration == "" {
			duration = fallbackDuration
		}
		tracks = append(tracks, model.Track{
			Name:     s.Name,
			Artist:   s.Artist,
			Album:    album,
			Duration: duration,
		})
	}

	if len(tracks) > playlistTarget {
		tracks = tracks[:playlistTarget]
	}
	return tracks
}
