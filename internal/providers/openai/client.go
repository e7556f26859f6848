package openai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/tarasov-md/GoldSignals/internal/providers"
	"github.com/tarasov-md/GoldSignals/models"
)

const defaultModel = openai.GPT4o

// Client wraps the OpenAI chat completion API as a prediction provider.
type Client struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// NewClient creates a new OpenAI provider.
func NewClient(apiKey string) *Client {
	return &Client{
		client: openai.NewClient(apiKey),
		model:  defaultModel,
		logger: log.With().Str("component", "openai_provider").Logger(),
	}
}

func (c *Client) Name() string { return "openai" }

// Predict sends the market summary to OpenAI and parses the structured
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
		c.logger.Error().Err(err).Msg("OpenAI API error")
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	prediction, err := providers.ParsePrediction(resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.Warn().Err(err).Msg("unparseable OpenAI completion")
		return nil, err
	}
	return prediction, nil
}
