package gemini

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platformhttp "github.com/tarasov-md/GoldSignals/internal/platform/http"
	"github.com/tarasov-md/GoldSignals/internal/providers"
	"github.com/tarasov-md/GoldSignals/models"
)

const (
	baseURL      = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel = "gemini-1.5-flash"
)

// Client talks to the Gemini generateContent REST endpoint.
type Client struct {
	apiKey string
	model  string
	http   *platformhttp.Client
	logger zerolog.Logger
}

// NewClient creates a new Gemini provider.
func NewClient(apiKey string, httpClient *platformhttp.Client) *Client {
	if httpClient == nil {
		httpClient = platformhttp.NewClient(platformhttp.ClientOptions{})
	}
	return &Client{
		apiKey: apiKey,
		model:  defaultModel,
		http:   httpClient,
		logger: log.With().Str("component", "gemini_provider").Logger(),
	}
}

func (c *Client) Name() string { return "gemini" }

type generateRequest struct {
	SystemInstruction *content  `json:"system_instruction,omitempty"`
	Contents          []content `json:"contents"`
	GenerationConfig  genConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Predict sends the market summary to Gemini and parses the structured
// prediction out of the generated text.
func (c *Client) Predict(ctx context.Context, summary models.MarketSummary) (*models.ProviderPrediction, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		baseURL, c.model, url.QueryEscape(c.apiKey))

	req := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: providers.SystemPrompt}}},
		Contents: []content{
			{Role: "user", Parts: []part{{Text: providers.BuildPrompt(summary)}}},
		},
		GenerationConfig: genConfig{Temperature: 0.2},
	}

	var resp generateResponse
	if err := c.http.PostJSON(ctx, endpoint, req, &resp); err != nil {
		c.logger.Error().Err(err).Msg("Gemini API error")
		return nil, fmt.Errorf("gemini generateContent: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	prediction, err := providers.ParsePrediction(resp.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		c.logger.Warn().Err(err).Msg("unparseable Gemini completion")
		return nil, err
	}
	return prediction, nil
}
