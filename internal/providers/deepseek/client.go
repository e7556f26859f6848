package deepseek

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/tarasov-md/GoldSignals/internal/providers"
	"github.com/tarasov-md/GoldSignals/models"
)

const (
	baseURL      = "https://api.deepseek.com/v1"
	defaultModel = "deepseek-chat"
)

// Client talks to DeepSeek through its OpenAI-compatible endpoint.
type Client struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// NewClient creates a new DeepSeek provider.
func NewClient(apiKey string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  defaultModel,
		logger: log.With().Str("component", "deepseek_provider").Logger(),
	}
}

func (c *Client) Name() string { return "deepseek" }

// Predict sends the market summary to DeepSeek and parses the structured
// prediction out of the completion.
func (c *Client) Predict(ctx context.Context, summary models.MarketSummary) (*models.ProviderPrediction, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: providers.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: providers.BuildPrompt(summary)},
		},
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("DeepSeek API error")
		return nil, fmt.Errorf("deepseek completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("deepseek returned no choices")
	}

	prediction, err := providers.ParsePrediction(resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.Warn().Err(err).Msg("unparseable DeepSeek completion")
		return nil, err
	}
	return prediction, nil
}
