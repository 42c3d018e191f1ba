// Package catalog resolves candidate tracks against a real music
// catalog (Spotify search API, client-credentials flow).
package catalog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"moodmuse/core/provider"
	"moodmuse/logger"
	"moodmuse/model"
)

// ProviderName identifies this client in provider errors and logs.
const ProviderName = "catalog"

const (
	defaultAuthURL    = "https://accounts.spotify.com/api/token"
	defaultAPIBaseURL = "https://api.spotify.com/v1"

	// placeholders used when a candidate cannot be resolved
	placeholderAlbum    = "Unknown Album"
	placeholderDuration = "3:30"

	// politeness delay between successive candidate lookups
	defaultRequestDelay = 100 * time.Millisecond
)

// Config contains configuration for the catalog client.
type Config struct {
	ClientID     string
	ClientSecret string
}

// Client is the catalog lookup client. It caches a bearer token and
// refreshes it proactively before expiry; concurrent lookups share the
// cached token.
type Client struct {
	config     *Config
	authURL    string
	apiBaseURL string
	httpClient *http.Client

	requestDelay time.Duration
	now          func() time.Time

	mu    sync.Mutex
	token Token
}

// NewClient creates a new catalog client.
func NewClient(config *Config) *Client {
	return &Client{
		config:       config,
		authURL:      defaultAuthURL,
		apiBaseURL:   defaultAPIBaseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		requestDelay: defaultRequestDelay,
		now:          time.Now,
	}
}

// SetBaseURLs overrides the auth and API endpoints.
func (c *Client) SetBaseURLs(authURL, apiBaseURL string) {
	c.authURL = authURL
	c.apiBaseURL = apiBaseURL
}

// SetRequestDelay overrides the inter-request politeness delay.
func (c *Client) SetRequestDelay(d time.Duration) {
	c.requestDelay = d
}

// IsConfigured reports whether credentials are available.
func (c *Client) IsConfigured() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

// accessToken returns a valid bearer token, refreshing the cache if the
// current one is missing or about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if !c.IsConfigured() {
		return "", provider.Unconfigured(ProviderName)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.Valid(c.now()) {
		return c.token.Value, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, "POST", c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	basic := base64.StdEncoding.EncodeToString([]byte(c.config.ClientID + ":" + c.config.ClientSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", provider.HTTPError(ProviderName, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		logger.Warn("Catalog token exchange failed",
			logger.Int("status", resp.StatusCode),
			logger.String("body", string(body)))
		return "", provider.HTTPError(ProviderName, resp.StatusCode, nil)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", provider.MalformedErr(ProviderName, fmt.Errorf("failed to decode token response: %w", err))
	}
	if tokenResp.AccessToken == "" {
		return "", provider.Malformed(ProviderName, "access_token")
	}

	c.token = NewToken(tokenResp.AccessToken, tokenResp.ExpiresIn, c.now())
	logger.Debug("Catalog token refreshed",
		logger.Int("expiresIn", tokenResp.ExpiresIn))

	return c.token.Value, nil
}

// spotifyTrack mirrors the catalog's track item shape.
type spotifyTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name string `json:"name"`
	} `json:"album"`
	DurationMS   int `json:"duration_ms"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
	PreviewURL *string `json:"preview_url"`
}

// search performs one catalog search call.
func (c *Client) search(ctx context.Context, query string, limit int) ([]spotifyTrack, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	searchURL := fmt.Sprintf("%s/search?q=%s&type=track&limit=%d", c.apiBaseURL, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.HTTPError(ProviderName, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		logger.Warn("Catalog search failed",
			logger.Int("status", resp.StatusCode),
			logger.String("query", query),
			logger.String("body", string(body)))
		return nil, provider.HTTPError(ProviderName, resp.StatusCode, nil)
	}

	var result struct {
		Tracks struct {
			Items []spotifyTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, provider.MalformedErr(ProviderName, fmt.Errorf("failed to decode search response: %w", err))
	}

	return result.Tracks.Items, nil
}

// searchOne returns the catalog's top hit for a query, or nil when the
// query matched nothing.
func (c *Client) searchOne(ctx context.Context, query string) (*spotifyTrack, error) {
	items, err := c.search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// Resolve looks up each candidate against the catalog, trying an exact
// field query first and a broad free-text query second. It never fails
// outward: a candidate that cannot be resolved degrades to a
// provider-suggested track with placeholder album and duration.
func (c *Client) Resolve(ctx context.Context, candidates []model.TrackCandidate) []model.Track {
	tracks := make([]model.Track, 0, len(candidates))

	for i, candidate := range candidates {
		track := c.resolveOne(ctx, candidate)
		tracks = append(tracks, track)

		if i < len(candidates)-1 && c.requestDelay > 0 {
			time.Sleep(c.requestDelay)
		}
	}

	return tracks
}

func (c *Client) resolveOne(ctx context.Context, candidate model.TrackCandidate) model.Track {
	exact := fmt.Sprintf("track:%q artist:%q", candidate.Name, candidate.Artist)
	hit, err := c.searchOne(ctx, exact)
	if err == nil && hit == nil {
		// one-shot alternate strategy, not a retry loop
		broad := candidate.Name + " " + candidate.Artist
		hit, err = c.searchOne(ctx, broad)
	}
	if err != nil {
		logger.Warn("Catalog lookup failed, keeping suggestion",
			logger.String("name", candidate.Name),
			logger.String("artist", candidate.Artist),
			logger.ErrorField(err))
	}

	if hit == nil {
		return model.Track{
			Name:     candidate.Name,
			Artist:   candidate.Artist,
			Album:    placeholderAlbum,
			Duration: placeholderDuration,
		}
	}

	return toTrack(*hit)
}

// SearchByQuery searches the catalog with a free-text query. Zero
// results is a normal success; only a failed call is an error.
func (c *Client) SearchByQuery(ctx context.Context, query string, limit int) ([]model.Track, error) {
	items, err := c.search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	tracks := make([]model.Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, toTrack(item))
	}
	return tracks, nil
}

func toTrack(st spotifyTrack) model.Track {
	artists := make([]string, 0, len(st.Artists))
	for _, a := range st.Artists {
		artists = append(artists, a.Name)
	}

	return model.Track{
		Name:       st.Name,
		Artist:     strings.Join(artists, ", "),
		Album:      st.Album.Name,
		Duration:   formatDuration(st.DurationMS),
		CatalogURL: st.ExternalURLs.Spotify,
		CatalogID:  st.ID,
		PreviewURL: st.PreviewURL,
	}
}

// formatDuration converts milliseconds to an mm:ss string.
func formatDuration(ms int) string {
	minutes := ms / 60000
	seconds := (ms % 60000) / 1000
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
