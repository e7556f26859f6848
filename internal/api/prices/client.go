package prices

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platformhttp "github.com/tarasov-md/GoldSignals/internal/platform/http"
)

// Client fetches spot prices from the Twelve Data API.
type Client struct {
	apiKey     string
	symbol     string
	baseURL    string
	httpClient *platformhttp.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new price client
type ClientOptions struct {
	APIKey          string
	Symbol          string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new price client
func NewClient(options ClientOptions) *Client {
	if options.Symbol == "" {
		options.Symbol = "XAU/USD"
	}
	return &Client{
		apiKey:  options.APIKey,
		symbol:  options.Symbol,
		baseURL: "https://api.twelvedata.com",
		httpClient: platformhttp.NewClient(platformhttp.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetryTimeout: options.MaxRetryTimeout,
		}),
		logger: log.With().Str("component", "price_client").Logger(),
	}
}

type priceResponse struct {
	Price   string `json:"price"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// GetSpotPrice fetches the current spot price for the configured symbol.
func (c *Client) GetSpotPrice(ctx context.Context) (float64, error) {
	url := fmt.Sprintf("%s/price?symbol=%s&apikey=%s", c.baseURL, c.symbol, c.apiKey)

	var data priceResponse
	if err := c.httpClient.GetJSON(ctx, url, &data); err != nil {
		return 0, fmt.Errorf("fetching spot price: %w", err)
	}
	if data.Status == "error" {
		c.logger.Error().Str("message", data.Message).Msg("Twelve Data API error")
		return 0, fmt.Errorf("Twelve Data API error: %s", data.Message)
	}

	price, err := strconv.ParseFloat(data.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing price %q: %w", data.Price, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("non-positive spot price %v", price)
	}

	c.logger.Debug().Str("symbol", c.symbol).Float64("price", price).Msg("Fetched spot price")
	return price, nil
}
