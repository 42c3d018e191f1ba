// Package imagegen requests mood artwork from an image-generation
// provider, varying the style per image so a batch is diverse.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"moodmuse/core/provider"
	"moodmuse/logger"
	"moodmuse/model"
)

// ProviderName identifies this client in provider errors and logs.
const ProviderName = "imagegen"

// MaxImages is the largest batch a single call will request.
const MaxImages = 4

// defaultRequestDelay spaces out generation requests to stay under the
// provider's rate limits.
const defaultRequestDelay = 1 * time.Second

// styleTemplates give each image in a batch a distinct framing so the
// four results are not near-duplicates.
var styleTemplates = []struct {
	name   string
	suffix string
}{
	{"lifestyle", "Pinterest-style lifestyle photography, aesthetic flat lay, cozy atmosphere, natural lighting, real objects and spaces that evoke this mood."},
	{"nature", "Beautiful nature photography, landscapes, flowers, or natural scenes that capture this emotional feeling. Pinterest aesthetic, high quality photography."},
	{"interior", "Aesthetic interior design, cozy spaces, room decor, or architectural details that reflect this mood. Pinterest home decor style, warm and inviting."},
	{"fashion", "Fashion photography, outfit styling, accessories, or beauty shots that embody this emotional state. Pinterest fashion aesthetic, stylish and mood-driven."},
}

// fallbackImages is the fixed static set substituted when generation
// fails entirely.
var fallbackImages = []string{
	"https://images.unsplash.com/photo-1518837695005-2083093ee35b?w=400&h=400&fit=crop&crop=center",
	"https://images.unsplash.com/photo-1506905925346-21bda4d32df4?w=400&h=400&fit=crop&crop=center",
	"https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=400&h=400&fit=crop&crop=center",
	"https://images.unsplash.com/photo-1511593358241-7eea1f3c84e5?w=400&h=400&fit=crop&crop=center",
}

// FallbackImages returns a copy of the static fallback set.
func FallbackImages() []string {
	out := make([]string, len(fallbackImages))
	copy(out, fallbackImages)
	return out
}

// Config contains configuration for the image generation client.
type Config struct {
	APIBaseURL string
	APIKey     string
	Model      string
}

// Client is the image generation client.
type Client struct {
	config       *Config
	httpClient   *http.Client
	requestDelay time.Duration
}

// NewClient creates a new image generation client.
func NewClient(config *Config) *Client {
	return &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		requestDelay: defaultRequestDelay,
	}
}

// SetRequestDelay overrides the inter-request delay.
func (c *Client) SetRequestDelay(d time.Duration) {
	c.requestDelay = d
}

// IsConfigured reports whether a credential is available.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Generate issues up to count independent generation requests, each
// with a different style framing. Individual failures are logged and
// absorbed; a shorter-than-requested result is a success. Only a batch
// in which every attempt failed is an error.
func (c *Client) Generate(ctx context.Context, prompt string, count int) ([]string, error) {
	if !c.IsConfigured() {
		return nil, provider.Unconfigured(ProviderName)
	}

	if count > MaxImages {
		count = MaxImages
	}
	if count <= 0 {
		count = MaxImages
	}

	urls := make([]string, 0, count)

	for i := 0; i < count; i++ {
		style := styleTemplates[i]
		styledPrompt := fmt.Sprintf("%s. %s", prompt, style.suffix)

		url, err := c.generateOne(ctx, styledPrompt)
		if err != nil {
			logger.Warn("Image generation attempt failed",
				logger.String("style", style.name),
				logger.ErrorField(err))
		} else {
			urls = append(urls, url)
		}

		if i < count-1 && c.requestDelay > 0 {
			time.Sleep(c.requestDelay)
		}
	}

	if len(urls) == 0 {
		return nil, provider.NoImages(ProviderName)
	}

	logger.Info("Image batch generated",
		logger.Int("requested", count),
		logger.Int("produced", len(urls)))

	return urls, nil
}

// generateOne performs a single generation request and returns the
// resulting image URL.
func (c *Client) generateOne(ctx context.Context, prompt string) (string, error) {
	reqBody := model.OpenAIImageRequest{
		Model:   c.config.Model,
		Prompt:  prompt,
		N:       1,
		Size:    "1024x1024",
		Quality: "standard",
		Style:   "natural",
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.APIBaseURL+"/images/generations", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", provider.HTTPError(ProviderName, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", provider.HTTPError(ProviderName, resp.StatusCode, fmt.Errorf("%s", bytes.TrimSpace(body)))
	}

	var imageResp model.OpenAIImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&imageResp); err != nil {
		return "", provider.MalformedErr(ProviderName, fmt.Errorf("failed to decode response: %w", err))
	}

	if len(imageResp.Data) == 0 || imageResp.Data[0].URL == "" {
		return "", provider.Malformed(ProviderName, "data[0].url")
	}

	return imageResp.Data[0].URL, nil
}
