package moodboard

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"moodmuse/core/imagegen"
	"moodmuse/core/provider"
	"moodmuse/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompletion struct {
	configured bool
	result     *model.CompletionResult
	err        error
}

func (f *fakeCompletion) IsConfigured() bool { return f.configured }

func (f *fakeCompletion) Analyze(ctx context.Context, mood string) (*model.CompletionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeCatalog struct {
	configured bool

	resolved      []model.Track
	searchResults []model.Track
	searchErr     error

	resolveCandidates []model.TrackCandidate
	searchQuery       string
	searchLimit       int
}

func (f *fakeCatalog) IsConfigured() bool { return f.configured }

func (f *fakeCatalog) Resolve(ctx context.Context, candidates []model.TrackCandidate) []model.Track {
	f.resolveCandidates = candidates
	return f.resolved
}

func (f *fakeCatalog) SearchByQuery(ctx context.Context, query string, limit int) ([]model.Track, error) {
	f.searchQuery = query
	f.searchLimit = limit
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if limit < len(f.searchResults) {
		return f.searchResults[:limit], nil
	}
	return f.searchResults, nil
}

type fakeImages struct {
	configured bool
	urls       []string
	err        error

	prompt string
	count  int
}

func (f *fakeImages) IsConfigured() bool { return f.configured }

func (f *fakeImages) Generate(ctx context.Context, prompt string, count int) ([]string, error) {
	f.prompt = prompt
	f.count = count
	if f.err != nil {
		return nil, f.err
	}
	return f.urls, nil
}

func makeTracks(n int, prefix string) []model.Track {
	tracks := make([]model.Track, 0, n)
	for i := 0; i < n; i++ {
		tracks = append(tracks, model.Track{
			Name:      fmt.Sprintf("%s Track %d", prefix, i+1),
			Artist:    "Artist",
			Album:     "Album",
			Duration:  "3:00",
			CatalogID: fmt.Sprintf("%s-%d", prefix, i+1),
		})
	}
	return tracks
}

func sampleAnalysis() *model.CompletionResult {
	return &model.CompletionResult{
		PoeticCaption: "A soft hush settles over everything you carry.",
		CatalogQuery:  "melancholy indie acoustic",
		ImagePrompt:   "misty blue landscape, watercolor",
		SuggestedTracks: []model.SuggestedTrack{
			{Name: "Holocene", Artist: "Bon Iver"},
			{Name: "Motion Picture Soundtrack", Artist: "Radiohead"},
		},
	}
}

func TestCreateMoodboardSuccess(t *testing.T) {
	completion := &fakeCompletion{configured: true, result: sampleAnalysis()}
	catalog := &fakeCatalog{configured: true, resolved: makeTracks(6, "resolved")}
	images := &fakeImages{configured: true, urls: []string{"https://img/1", "https://img/2"}}

	o := NewOrchestrator(completion, catalog, images)

	var stages []Stage
	result, err := o.CreateMoodboard(context.Background(), "quietly hopeful after the rain", func(s Stage) {
		stages = append(stages, s)
	})
	require.NoError(t, err)

	assert.Equal(t, "quietly hopeful after the rain", result.OriginalMood)
	assert.Equal(t, "A soft hush settles over everything you carry.", result.PoeticCaption)
	assert.Equal(t, makeTracks(6, "resolved"), result.Playlist)
	assert.Equal(t, []string{"https://img/1", "https://img/2"}, result.Images)

	assert.Equal(t, []Stage{StageAnalyzing, StageCurating, StageRendering}, stages)

	// candidates passed to the catalog come from the analysis
	require.Len(t, catalog.resolveCandidates, 2)
	assert.Equal(t, "Holocene", catalog.resolveCandidates[0].Name)
	assert.Equal(t, "misty blue landscape, watercolor", images.prompt)
	assert.Equal(t, imagegen.MaxImages, images.count)
}

func TestCreateMoodboardNilProgress(t *testing.T) {
	o := NewOrchestrator(
		&fakeCompletion{configured: true, result: sampleAnalysis()},
		&fakeCatalog{configured: true, resolved: makeTracks(6, "r")},
		&fakeImages{configured: true, urls: []string{"u"}},
	)

	_, err := o.CreateMoodboard(context.Background(), "calm", nil)
	assert.NoError(t, err)
}

func TestCreateMoodboardCompletionFailureIsFatal(t *testing.T) {
	cause := provider.HTTPError("completion", 503, nil)
	o := NewOrchestrator(
		&fakeCompletion{configured: true, err: cause},
		&fakeCatalog{configured: true},
		&fakeImages{configured: true},
	)

	var stages []Stage
	result, err := o.CreateMoodboard(context.Background(), "restless", func(s Stage) {
		stages = append(stages, s)
	})

	assert.Nil(t, result)
	require.Error(t, err)

	var oe *OrchestrationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, StageAnalyzing, oe.Stage)
	assert.ErrorIs(t, err, cause)

	// the pipeline never reached the later stages
	assert.Equal(t, []Stage{StageAnalyzing}, stages)
}

func TestCreateMoodboardCatalogUnconfigured(t *testing.T) {
	analysis := sampleAnalysis()
	analysis.SuggestedTracks = []model.SuggestedTrack{
		{Name: "Song A", Artist: "Artist A"},
		{Name: "Song B", Artist: "Artist B", Album: "Known Album", Duration: "4:12"},
	}

	o := NewOrchestrator(
		&fakeCompletion{configured: true, result: analysis},
		&fakeCatalog{configured: false},
		&fakeImages{configured: true, urls: []string{"u"}},
	)

	result, err := o.CreateMoodboard(context.Background(), "wistful", nil)
	require.NoError(t, err)

	require.Len(t, result.Playlist, 2)
	first := result.Playlist[0]
	assert.Equal(t, "Song A", first.Name)
	assert.Equal(t, fallbackAlbum, first.Album)
	assert.Equal(t, fallbackDuration, first.Duration)
	assert.Empty(t, first.CatalogID)
	assert.Empty(t, first.CatalogURL)

	// suggestion metadata survives when the provider supplied it
	second := result.Playlist[1]
	assert.Equal(t, "Known Album", second.Album)
	assert.Equal(t, "4:12", second.Duration)
}

func TestCreateMoodboardPadsShortPlaylist(t *testing.T) {
	catalog := &fakeCatalog{
		configured:    true,
		resolved:      makeTracks(4, "resolved"),
		searchResults: makeTracks(5, "padded"),
	}

	o := NewOrchestrator(
		&fakeCompletion{configured: true, result: sampleAnalysis()},
		catalog,
		&fakeImages{configured: true, urls: []string{"u"}},
	)

	result, err := o.CreateMoodboard(context.Background(), "mood", nil)
	require.NoError(t, err)

	assert.Equal(t, "melancholy indie acoustic", catalog.searchQuery)
	assert.Equal(t, 2, catalog.searchLimit)

	require.Len(t, result.Playlist, 6)
	assert.Equal(t, "resolved-4", result.Playlist[3].CatalogID)
	assert.Equal(t, "padded-1", result.Playlist[4].CatalogID)
	assert.Equal(t, "padded-2", result.Playlist[5].CatalogID)
}

func TestCreateMoodboardPadSearchFailureKeepsPartial(t *testing.T) {
	catalog := &fakeCatalog{
		configured: true,
		resolved:   makeTracks(3, "resolved"),
		searchErr:  errors.New("search down"),
	}

	o := NewOrchestrator(
		&fakeCompletion{configured: true, result: sampleAnalysis()},
		catalog,
		&fakeImages{configured: true, urls: []string{"u"}},
	)

	result, err := o.CreateMoodboard(context.Background(), "mood", nil)
	require.NoError(t, err)
	assert.Len(t, result.Playlist, 3)
}

func TestCreateMoodboardTruncatesLongPlaylist(t *testing.T) {
	o := NewOrchestrator(
		&fakeCompletion{configured: true, result: sampleAnalysis()},
		&fakeCatalog{configured: true, resolved: makeTracks(9, "resolved")},
		&fakeImages{configured: true, urls: []string{"u"}},
	)

	result, err := o.CreateMoodboard(context.Background(), "mood", nil)
	require.NoError(t, err)
	assert.Len(t, result.Playlist, 6)
}

func TestCreateMoodboardImageFailureUsesFallback(t *testing.T) {
	o := NewOrchestrator(
		&fakeCompletion{configured: true, result: sampleAnalysis()},
		&fakeCatalog{configured: true, resolved: makeTracks(6, "r")},
		&fakeImages{configured: true, err: provider.NoImages("imagegen")},
	)

	result, err := o.CreateMoodboard(context.Background(), "mood", nil)
	require.NoError(t, err)
	assert.Equal(t, imagegen.FallbackImages(), result.Images)
}

func TestCreateMoodboardImageProviderUnconfigured(t *testing.T) {
	images := &fakeImages{configured: false}
	o := NewOrchestrator(
		&fakeCompletion{configured: true, result: sampleAnalysis()},
		&fakeCatalog{configured: true, resolved: makeTracks(6, "r")},
		images,
	)

	result, err := o.CreateMoodboard(context.Background(), "mood", nil)
	require.NoError(t, err)
	assert.Equal(t, imagegen.FallbackImages(), result.Images)
	assert.Empty(t, images.prompt, "an unconfigured provider must not be called")
}
