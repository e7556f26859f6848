package accuracy

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tarasov-md/GoldSignals/models"
)

// minResolvedForBest is how many resolved predictions a provider needs
// before its win rate is trusted over the consensus default.
const minResolvedForBest = 10

// Tracker evaluates expired predictions against the realized price and
// maintains the per-provider accuracy rollups.
type Tracker struct {
	store  models.PredictionStore
	logger zerolog.Logger
}

func NewTracker(store models.PredictionStore) *Tracker {
	return &Tracker{
		store:  store,
		logger: log.With().Str("component", "accuracy").Logger(),
	}
}

// EvaluatePending resolves every expired PENDING prediction against the
// given spot price, then recomputes stats for each affected provider.
// Resolution is conditional in the store, so concurrent or repeated
// sweeps never double-count a prediction.
func (t *Tracker) EvaluatePending(ctx context.Context, price float64) (*models.EvaluationSummary, error) {
	pending, err := t.store.FindPending(ctx, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("finding pending predictions: %w", err)
	}

	summary := &models.EvaluationSummary{}
	touched := make(map[string]bool)
	for _, p := range pending {
		outcome := Grade(&p, price)
		resolved, err := t.store.ResolvePrediction(ctx, p.ID, outcome, price)
		if err != nil {
			t.logger.Error().Err(err).Int64("prediction_id", p.ID).Msg("failed to resolve prediction")
			continue
		}
		if !resolved {
			continue
		}
		touched[p.Provider] = true
		summary.Evaluated++
		switch outcome {
		case models.OutcomeWin:
			summary.Wins++
		case models.OutcomeLoss:
			summary.Losses++
		default:
			summary.Breakevens++
		}
		t.logger.Info().
			Int64("prediction_id", p.ID).
			Str("provider", p.Provider).
			Str("outcome", outcome).
			Float64("price", price).
			Msg("prediction resolved")
	}

	for provider := range touched {
		if err := t.RecomputeStats(ctx, provider); err != nil {
			t.logger.Error().Err(err).Str("provider", provider).Msg("failed to recompute stats")
		}
	}
	return summary, nil
}

// Grade decides the terminal outcome of one prediction at the realized
// price. Buy-family forecasts win when price reached the first take
// profit and lose when it fell to the stop; sell-family forecasts
// mirror that; everything else settles breakeven.
func Grade(p *models.Prediction, price float64) string {
	switch {
	case models.IsBuyFamily(p.Recommendation):
		if len(p.TakeProfits) > 0 && price >= p.TakeProfits[0] {
			return models.OutcomeWin
		}
		if p.StopLoss > 0 && price <= p.StopLoss {
			return models.OutcomeLoss
		}
	case models.IsSellFamily(p.Recommendation):
		if len(p.TakeProfits) > 0 && price <= p.TakeProfits[0] {
			return models.OutcomeWin
		}
		if p.StopLoss > 0 && price >= p.StopLoss {
			return models.OutcomeLoss
		}
	}
	return models.OutcomeBreakeven
}

// RecomputeStats rebuilds a provider's rollup from its full prediction
// history. The rollup is a cache of the history, never incremental
// state, so a recompute after any resolution batch is always correct.
func (t *Tracker) RecomputeStats(ctx context.Context, provider string) error {
	history, err := t.store.ListByProvider(ctx, provider)
	if err != nil {
		return fmt.Errorf("listing predictions for %s: %w", provider, err)
	}

	stats := computeStats(provider, history, time.Now().UTC())
	if err := t.store.UpsertStats(ctx, stats); err != nil {
		return fmt.Errorf("saving stats for %s: %w", provider, err)
	}
	return nil
}

// BestProvider returns the provider with the highest win rate among
// those with enough resolved history, falling back to "consensus" when
// nobody qualifies yet.
func (t *Tracker) BestProvider(ctx context.Context) (string, error) {
	providers, err := t.store.Providers(ctx)
	if err != nil {
		return "", fmt.Errorf("listing providers: %w", err)
	}

	best := "consensus"
	bestRate := -1.0
	for _, provider := range providers {
		stats, err := t.store.GetStats(ctx, provider)
		if err != nil || stats == nil {
			continue
		}
		resolved := stats.Wins + stats.Losses + stats.Breakevens
		if resolved < minResolvedForBest {
			continue
		}
		if stats.WinRate > bestRate {
			bestRate = stats.WinRate
			best = provider
		}
	}
	return best, nil
}

func computeStats(provider string, history []models.Prediction, now time.Time) *models.AccuracyStats {
	stats := &models.AccuracyStats{Provider: provider, UpdatedAt: now}

	var confidenceSum float64
	var buyWins, buyResolved, sellWins, sellResolved int
	var tp1Hits, tp2Hits, slHits, directionalResolved int
	var wins7d, resolved7d, wins30d, resolved30d int

	for _, p := range history {
		stats.TotalPredictions++
		confidenceSum += p.Confidence

		switch p.Outcome {
		case models.OutcomeWin:
			stats.Wins++
		case models.OutcomeLoss:
			stats.Losses++
		case models.OutcomeBreakeven:
			stats.Breakevens++
		default:
			continue // still pending
		}

		isBuy := models.IsBuyFamily(p.Recommendation)
		isSell := models.IsSellFamily(p.Recommendation)
		if isBuy || isSell {
			directionalResolved++
			if p.Outcome == models.OutcomeLoss {
				slHits++
			}
			if tpHit(&p, 0, isBuy) {
				tp1Hits++
			}
			if tpHit(&p, 1, isBuy) {
				tp2Hits++
			}
		}
		if isBuy {
			buyResolved++
			if p.Outcome == models.OutcomeWin {
				buyWins++
			}
		}
		if isSell {
			sellResolved++
			if p.Outcome == models.OutcomeWin {
				sellWins++
			}
		}

		if p.ResolvedAt != nil {
			if now.Sub(*p.ResolvedAt) <= 7*24*time.Hour {
				resolved7d++
				if p.Outcome == models.OutcomeWin {
					wins7d++
				}
			}
			if now.Sub(*p.ResolvedAt) <= 30*24*time.Hour {
				resolved30d++
				if p.Outcome == models.OutcomeWin {
					wins30d++
				}
			}
		}
	}

	resolved := stats.Wins + stats.Losses + stats.Breakevens
	stats.WinRate = ratio(stats.Wins, resolved)
	stats.BuyAccuracy = ratio(buyWins, buyResolved)
	stats.SellAccuracy = ratio(sellWins, sellResolved)
	stats.TP1HitRate = ratio(tp1Hits, directionalResolved)
	stats.TP2HitRate = ratio(tp2Hits, directionalResolved)
	stats.SLHitRate = ratio(slHits, directionalResolved)
	stats.WinRate7d = ratio(wins7d, resolved7d)
	stats.WinRate30d = ratio(wins30d, resolved30d)
	if stats.TotalPredictions > 0 {
		stats.AvgConfidence = confidenceSum / float64(stats.TotalPredictions)
	}
	return stats
}

// tpHit reports whether the resolved price reached take-profit level
// idx in the trade's direction.
func tpHit(p *models.Prediction, idx int, isBuy bool) bool {
	if idx >= len(p.TakeProfits) || p.ResolvedPrice == 0 {
		return false
	}
	if isBuy {
		return p.ResolvedPrice >= p.TakeProfits[idx]
	}
	return p.ResolvedPrice <= p.TakeProfits[idx]
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
