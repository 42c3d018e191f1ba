// Package completion talks to the text-completion provider that turns a
// mood description into a caption, a catalog query, an image prompt and
// a set of candidate tracks.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"moodmuse/core/provider"
	"moodmuse/logger"
	"moodmuse/model"
)

// ProviderName identifies this client in provider errors and logs.
const ProviderName = "completion"

// Config contains configuration for the completion client.
type Config struct {
	APIBaseURL  string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Client is the completion provider client. It performs a single
// attempt per call; retry policy belongs to the caller.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a new completion client.
func NewClient(config *Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 60 * time.Second, // model calls are slow
		},
	}
}

// IsConfigured reports whether a credential is available.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

const systemPrompt = "You are an empathetic AI that creates beautiful, poetic interpretations " +
	"of human emotions and suggests matching music and art. Always respond with valid JSON only."

const analyzePromptTemplate = `
You are a highly empathetic AI that understands human emotions deeply. A user has described their current mood as: %q

Please respond with a JSON object containing:

1. "poeticCaption": A beautiful, poetic 1-2 sentence interpretation of their mood. Write like you're their inner voice - empathetic, understanding, and slightly poetic.

2. "spotifyQuery": A search query string that would help find music matching this exact emotional state (3-5 words max, like "melancholy indie acoustic" or "upbeat nostalgic pop")

3. "visualPrompt": A detailed prompt for AI image generation that would create abstract, dreamy artwork representing this mood. Include colors, textures, lighting, and artistic style.

4. "suggestedTracks": An array of exactly 6 real songs that perfectly match this mood. Each song should be an object with "name", "artist", "album", and "duration" fields. Use exact song names and artists that exist.

IMPORTANT:
- Respond only with valid JSON, no other text
- Escape all quotes properly in strings
- Do not use trailing commas
- Make sure the JSON is complete and valid
`

// Analyze sends a mood description to the provider and parses the
// structured result. It fails hard on any missing field: a completion
// without all four fields is useless to the pipeline.
func (c *Client) Analyze(ctx context.Context, mood string) (*model.CompletionResult, error) {
	if !c.IsConfigured() {
		return nil, provider.Unconfigured(ProviderName)
	}

	reqBody := model.OpenAIChatRequest{
		Model: c.config.Model,
		Messages: []model.OpenAIChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(analyzePromptTemplate, mood)},
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.APIBaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.HTTPError(ProviderName, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		logger.Warn("Completion API returned non-success status",
			logger.Int("status", resp.StatusCode),
			logger.String("body", truncate(string(body), 512)))
		return nil, provider.HTTPError(ProviderName, resp.StatusCode, nil)
	}

	var chatResp model.OpenAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, provider.MalformedErr(ProviderName, fmt.Errorf("failed to decode response: %w", err))
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return nil, provider.Malformed(ProviderName, "choices")
	}

	return parseAnalysis(chatResp.Choices[0].Message.Content)
}

// parseAnalysis cleans and validates the model's reply.
func parseAnalysis(content string) (*model.CompletionResult, error) {
	cleaned, err := ExtractJSONObject(content)
	if err != nil {
		return nil, provider.MalformedErr(ProviderName, err)
	}

	var result model.CompletionResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		logger.Warn("Completion reply is not valid JSON",
			logger.ErrorField(err),
			logger.String("content", truncate(cleaned, 512)))
		return nil, provider.MalformedErr(ProviderName, fmt.Errorf("invalid JSON in reply: %w", err))
	}

	var missing []string
	if result.PoeticCaption == "" {
		missing = append(missing, "poeticCaption")
	}
	if result.CatalogQuery == "" {
		missing = append(missing, "spotifyQuery")
	}
	if result.ImagePrompt == "" {
		missing = append(missing, "visualPrompt")
	}
	if len(result.SuggestedTracks) == 0 {
		missing = append(missing, "suggestedTracks")
	}
	if len(missing) > 0 {
		return nil, provider.Malformed(ProviderName, missing...)
	}

	return &result, nil
}

// ExtractJSONObject strips prose and code fences around a JSON object
// by taking the substring from the first '{' to the last '}'. Missing
// either brace is an error; the function never guesses at partial
// objects.
func ExtractJSONObject(s string) (string, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")

	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first == -1 || last == -1 || last < first {
		return "", fmt.Errorf("no JSON object found in reply")
	}
	return s[first : last+1], nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
