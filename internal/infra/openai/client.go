// Package openai implements the moderation.Classifier contract against
// the OpenAI moderations endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/atakee72/community-platform/internal/services/moderation"
)

var ErrNotConfigured = errors.New("openai api key is not configured")

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

func NewClient(httpClient *http.Client, cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "omni-moderation-latest"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
	}
}

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged        bool               `json:"flagged"`
		Categories     map[string]bool    `json:"categories"`
		CategoryScores map[string]float64 `json:"category_scores"`
	} `json:"results"`
}

// Classify sends text to the moderations endpoint. Any transport error,
// non-2xx status or malformed body comes back as an error; the caller's
// fail-safe policy decides what that means.
func (c *Client) Classify(ctx context.Context, text string) (moderation.Classification, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return moderation.Classification{}, ErrNotConfigured
	}

	payload, err := json.Marshal(moderationRequest{Model: c.model, Input: text})
	if err != nil {
		return moderation.Classification{}, fmt.Errorf("marshal moderation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/moderations", bytes.NewReader(payload))
	if err != nil {
		return moderation.Classification{}, fmt.Errorf("build moderation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return moderation.Classification{}, fmt.Errorf("call moderation endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return moderation.Classification{}, fmt.Errorf("moderation endpoint status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed moderationResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return moderation.Classification{}, fmt.Errorf("decode moderation response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return moderation.Classification{}, fmt.Errorf("moderation response has no results")
	}

	// Multiple results can come back for multimodal input; keep the worst.
	worst := parsed.Results[0]
	for _, result := range parsed.Results[1:] {
		if result.Flagged && !worst.Flagged {
			worst = result
			continue
		}
		if maxScore(result.CategoryScores) > maxScore(worst.CategoryScores) {
			worst = result
		}
	}

	categories := make([]string, 0, len(worst.Categories))
	for category, hit := range worst.Categories {
		if hit {
			categories = append(categories, category)
		}
	}

	scores := worst.CategoryScores
	if scores == nil {
		scores = map[string]float64{}
	}

	return moderation.Classification{
		Flagged:    worst.Flagged,
		Categories: categories,
		Scores:     scores,
	}, nil
}

func maxScore(scores map[string]float64) float64 {
	max := 0.0
	for _, score := range scores {
		if score > max {
			max = score
		}
	}
	return max
}
