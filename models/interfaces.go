package models

import (
	"context"
	"time"
)

// SnapshotStore is the snapshot persistence collaborator.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *MarketSnapshot) (int64, error)
	GetLatestSnapshot(ctx context.Context, product string) (*MarketSnapshot, error)
	GetPreviousSnapshot(ctx context.Context, product string, before time.Time) (*MarketSnapshot, error)
}

// PredictionStore is the prediction/stats persistence collaborator.
type PredictionStore interface {
	SavePrediction(ctx context.Context, p *Prediction) (int64, error)
	FindPending(ctx context.Context, expiredBefore time.Time) ([]Prediction, error)
	// ResolvePrediction flips a PENDING prediction to a terminal outcome.
	// Resolving an already-resolved prediction is a no-op and returns false.
	ResolvePrediction(ctx context.Context, id int64, outcome string, price float64) (bool, error)
	ListByProvider(ctx context.Context, provider string) ([]Prediction, error)
	Providers(ctx context.Context) ([]string, error)
	UpsertStats(ctx context.Context, stats *AccuracyStats) error
	GetStats(ctx context.Context, provider string) (*AccuracyStats, error)
}

// Provider is one external AI prediction source. Predict is
// all-or-nothing: a structured prediction or an error, never partial.
type Provider interface {
	Name() string
	Predict(ctx context.Context, summary MarketSummary) (*ProviderPrediction, error)
}

// PriceClient fetches the current spot price for evaluation sweeps.
type PriceClient interface {
	GetSpotPrice(ctx context.Context) (float64, error)
}

// Notifier delivers rendered signals and consensus results.
type Notifier interface {
	SendSignal(ctx context.Context, signal *Signal) error
	SendConsensus(ctx context.Context, product string, result *ConsensusResult) error
}
