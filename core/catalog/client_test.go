package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"moodmuse/core/provider"
	"moodmuse/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalogServer emulates the token exchange and search endpoints.
type fakeCatalogServer struct {
	t          *testing.T
	tokenCalls int
	expiresIn  int
	tokenFail  bool
	searchFail bool

	// hits maps a query string to the items returned for it
	hits map[string][]map[string]interface{}
}

func trackItem(id, name, artist, album string, durationMS int) map[string]interface{} {
	return map[string]interface{}{
		"id":            id,
		"name":          name,
		"artists":       []map[string]string{{"name": artist}},
		"album":         map[string]string{"name": album},
		"duration_ms":   durationMS,
		"external_urls": map[string]string{"spotify": "https://open.spotify.com/track/" + id},
		"preview_url":   nil,
	}
}

func (f *fakeCatalogServer) start() (*httptest.Server, *Client) {
	if f.expiresIn == 0 {
		f.expiresIn = 3600
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls++
		if f.tokenFail {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.Equal(f.t, "POST", r.Method)
		require.NoError(f.t, r.ParseForm())
		require.Equal(f.t, "client_credentials", r.FormValue("grant_type"))
		require.True(f.t, strings.HasPrefix(r.Header.Get("Authorization"), "Basic "))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": fmt.Sprintf("token-%d", f.tokenCalls),
			"expires_in":   f.expiresIn,
		})
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		if f.searchFail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		require.True(f.t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer token-"))

		query := r.URL.Query().Get("q")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		items := f.hits[query]
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"tracks": map[string]interface{}{"items": items},
		})
	})

	ts := httptest.NewServer(mux)
	f.t.Cleanup(ts.Close)

	client := NewClient(&Config{ClientID: "id", ClientSecret: "secret"})
	client.SetBaseURLs(ts.URL+"/token", ts.URL+"/api")
	client.SetRequestDelay(0)

	return ts, client
}

func TestIsConfigured(t *testing.T) {
	assert.False(t, NewClient(&Config{}).IsConfigured())
	assert.False(t, NewClient(&Config{ClientID: "id"}).IsConfigured())
	assert.True(t, NewClient(&Config{ClientID: "id", ClientSecret: "s"}).IsConfigured())
}

func TestResolveExactMatch(t *testing.T) {
	fake := &fakeCatalogServer{t: t, hits: map[string][]map[string]interface{}{
		`track:"Yesterday" artist:"The Beatles"`: {
			trackItem("t1", "Yesterday", "The Beatles", "Help!", 125000),
		},
	}}
	_, client := fake.start()

	tracks := client.Resolve(context.Background(), []model.TrackCandidate{
		{Name: "Yesterday", Artist: "The Beatles"},
	})

	require.Len(t, tracks, 1)
	assert.Equal(t, "Yesterday", tracks[0].Name)
	assert.Equal(t, "The Beatles", tracks[0].Artist)
	assert.Equal(t, "Help!", tracks[0].Album)
	assert.Equal(t, "2:05", tracks[0].Duration)
	assert.Equal(t, "t1", tracks[0].CatalogID)
	assert.Equal(t, "https://open.spotify.com/track/t1", tracks[0].CatalogURL)
}

func TestResolveBroadFallback(t *testing.T) {
	// exact query misses, free-text query hits
	fake := &fakeCatalogServer{t: t, hits: map[string][]map[string]interface{}{
		"Yesterday The Beatles": {
			trackItem("t2", "Yesterday - Remastered", "The Beatles", "Help!", 126000),
		},
	}}
	_, client := fake.start()

	tracks := client.Resolve(context.Background(), []model.TrackCandidate{
		{Name: "Yesterday", Artist: "The Beatles"},
	})

	require.Len(t, tracks, 1)
	assert.Equal(t, "t2", tracks[0].CatalogID)
}

func TestResolveMissDegradesToPlaceholder(t *testing.T) {
	fake := &fakeCatalogServer{t: t, hits: map[string][]map[string]interface{}{}}
	_, client := fake.start()

	tracks := client.Resolve(context.Background(), []model.TrackCandidate{
		{Name: "Imaginary Song", Artist: "Nobody"},
	})

	require.Len(t, tracks, 1)
	assert.Equal(t, "Imaginary Song", tracks[0].Name)
	assert.Equal(t, "Nobody", tracks[0].Artist)
	assert.Equal(t, placeholderAlbum, tracks[0].Album)
	assert.Equal(t, placeholderDuration, tracks[0].Duration)
	assert.Empty(t, tracks[0].CatalogID)
	assert.Empty(t, tracks[0].CatalogURL)
}

func TestResolveSearchErrorDegradesToPlaceholder(t *testing.T) {
	fake := &fakeCatalogServer{t: t, searchFail: true}
	_, client := fake.start()

	tracks := client.Resolve(context.Background(), []model.TrackCandidate{
		{Name: "Song A", Artist: "Artist A"},
		{Name: "Song B", Artist: "Artist B"},
	})

	// one placeholder per candidate, never an error outward
	require.Len(t, tracks, 2)
	for _, track := range tracks {
		assert.Equal(t, placeholderAlbum, track.Album)
		assert.Equal(t, placeholderDuration, track.Duration)
	}
}

func TestSearchByQueryEmptyIsSuccess(t *testing.T) {
	fake := &fakeCatalogServer{t: t, hits: map[string][]map[string]interface{}{}}
	_, client := fake.start()

	tracks, err := client.SearchByQuery(context.Background(), "obscure nonexistent genre", 6)

	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestSearchByQueryAuthFailure(t *testing.T) {
	fake := &fakeCatalogServer{t: t, tokenFail: true}
	_, client := fake.start()

	_, err := client.SearchByQuery(context.Background(), "melancholy indie acoustic", 6)

	require.Error(t, err)
	assert.Equal(t, provider.KindHTTP, provider.KindOf(err))
}

func TestSearchByQueryUnconfigured(t *testing.T) {
	client := NewClient(&Config{})

	_, err := client.SearchByQuery(context.Background(), "anything", 6)

	assert.True(t, provider.IsUnconfigured(err))
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	fake := &fakeCatalogServer{t: t, hits: map[string][]map[string]interface{}{}}
	_, client := fake.start()

	for i := 0; i < 3; i++ {
		_, err := client.SearchByQuery(context.Background(), "same query", 1)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, fake.tokenCalls, "token should be fetched once and reused")
}

func TestTokenRefreshedBeforeExpiry(t *testing.T) {
	// lifetime shorter than the safety margin: every call needs a fresh token
	fake := &fakeCatalogServer{t: t, expiresIn: 30, hits: map[string][]map[string]interface{}{}}
	_, client := fake.start()

	for i := 0; i < 2; i++ {
		_, err := client.SearchByQuery(context.Background(), "q", 1)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, fake.tokenCalls)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "3:30", formatDuration(210000))
	assert.Equal(t, "0:05", formatDuration(5900))
	assert.Equal(t, "10:00", formatDuration(600000))
	assert.Equal(t, "0:00", formatDuration(0))
}
