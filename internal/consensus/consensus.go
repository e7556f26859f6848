package consensus

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tarasov-md/GoldSignals/models"
)

const (
	// DefaultMinProviders is how many providers must answer before a
	// consensus is considered trustworthy.
	DefaultMinProviders = 2

	// DefaultCallTimeout bounds each provider call independently so one
	// slow provider never stalls the others.
	DefaultCallTimeout = 45 * time.Second

	maxWarnings = 5
)

// InsufficientProvidersError is returned when fewer providers succeeded
// than the consensus requires. It is the one typed failure the caller
// can branch on; a degraded single-provider consensus is never returned
// silently in its place.
type InsufficientProvidersError struct {
	Required  int
	Succeeded int
	Failures  []models.ProviderFailure
}

func (e *InsufficientProvidersError) Error() string {
	return fmt.Sprintf("insufficient providers: %d succeeded, %d required", e.Succeeded, e.Required)
}

// Aggregator fans a market summary out to the registered providers and
// statistically combines their independent answers.
type Aggregator struct {
	registry     *Registry
	minProviders int
	callTimeout  time.Duration
	logger       zerolog.Logger
}

// Options configures an Aggregator.
type Options struct {
	MinProviders int
	CallTimeout  time.Duration
}

func NewAggregator(registry *Registry, opts Options) *Aggregator {
	if opts.MinProviders <= 0 {
		opts.MinProviders = DefaultMinProviders
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	return &Aggregator{
		registry:     registry,
		minProviders: opts.MinProviders,
		callTimeout:  opts.CallTimeout,
		logger:       log.With().Str("component", "consensus").Logger(),
	}
}

// GetConsensus queries the named providers concurrently (all of them if
// names is empty), waits for every call to settle, and aggregates the
// successes. Individual failures are collected, never propagated, unless
// fewer than minProviders succeed.
func (a *Aggregator) GetConsensus(ctx context.Context, summary models.MarketSummary, names []string) (*models.ConsensusResult, error) {
	if len(names) == 0 {
		names = a.registry.Names()
	}

	type outcome struct {
		prediction *models.ProviderPrediction
		failure    *models.ProviderFailure
	}
	outcomes := make([]outcome, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			provider, err := a.registry.Get(name)
			if err != nil {
				outcomes[i] = outcome{failure: &models.ProviderFailure{Provider: name, Error: err.Error()}}
				return
			}

			callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
			defer cancel()

			started := time.Now()
			prediction, err := provider.Predict(callCtx, summary)
			elapsed := time.Since(started)
			if err != nil {
				a.logger.Warn().Err(err).Str("provider", name).Dur("elapsed", elapsed).Msg("provider call failed")
				outcomes[i] = outcome{failure: &models.ProviderFailure{Provider: name, Error: err.Error()}}
				return
			}
			if _, err := models.RecommendationScore(prediction.Recommendation); err != nil {
				a.logger.Warn().Err(err).Str("provider", name).Msg("provider returned invalid recommendation")
				outcomes[i] = outcome{failure: &models.ProviderFailure{Provider: name, Error: err.Error()}}
				return
			}
			prediction.Provider = name
			a.logger.Debug().Str("provider", name).Str("recommendation", prediction.Recommendation).Dur("elapsed", elapsed).Msg("provider answered")
			outcomes[i] = outcome{prediction: prediction}
		}(i, name)
	}
	wg.Wait()

	var predictions []models.ProviderPrediction
	var failures []models.ProviderFailure
	for _, o := range outcomes {
		if o.prediction != nil {
			predictions = append(predictions, *o.prediction)
		} else if o.failure != nil {
			failures = append(failures, *o.failure)
		}
	}

	if len(predictions) < a.minProviders {
		return nil, &InsufficientProvidersError{
			Required:  a.minProviders,
			Succeeded: len(predictions),
			Failures:  failures,
		}
	}

	result := aggregate(predictions)
	result.Failures = failures
	return result, nil
}

// aggregate combines successful predictions: recommendation votes are
// averaged on the {-2..2} scale and re-bucketed, numeric levels are
// arithmetic means rounded to two decimals, and agreement reflects the
// concentration of the largest vote block.
func aggregate(predictions []models.ProviderPrediction) *models.ConsensusResult {
	n := float64(len(predictions))

	var scoreSum, confidenceSum float64
	var entryLowSum, entryHighSum, stopLossSum float64
	tpSums := make([]float64, 0, 3)
	tpCounts := make([]int, 0, 3)
	var buyVotes, neutralVotes, sellVotes int

	warnings := make([]string, 0)
	seenWarnings := make(map[string]bool)

	for _, p := range predictions {
		score, _ := models.RecommendationScore(p.Recommendation)
		scoreSum += float64(score)
		confidenceSum += p.Confidence
		entryLowSum += p.EntryLow
		entryHighSum += p.EntryHigh
		stopLossSum += p.StopLoss

		switch {
		case models.IsBuyFamily(p.Recommendation):
			buyVotes++
		case models.IsSellFamily(p.Recommendation):
			sellVotes++
		default:
			neutralVotes++
		}

		for i, tp := range p.TakeProfits {
			if i >= 3 {
				break
			}
			for len(tpSums) <= i {
				tpSums = append(tpSums, 0)
				tpCounts = append(tpCounts, 0)
			}
			tpSums[i] += tp
			tpCounts[i]++
		}

		for _, w := range p.Warnings {
			if !seenWarnings[w] {
				seenWarnings[w] = true
				warnings = append(warnings, w)
			}
		}
	}
	if len(warnings) > maxWarnings {
		warnings = warnings[:maxWarnings]
	}

	takeProfits := make([]float64, 0, len(tpSums))
	for i := range tpSums {
		if tpCounts[i] > 0 {
			takeProfits = append(takeProfits, round2(tpSums[i]/float64(tpCounts[i])))
		}
	}

	avgScore := scoreSum / n
	return &models.ConsensusResult{
		Recommendation: bucketScore(avgScore),
		AverageScore:   avgScore,
		Confidence:     int(math.Round(confidenceSum / n)),
		Agreement:      agreementLevel(buyVotes, neutralVotes, sellVotes, len(predictions)),
		EntryLow:       round2(entryLowSum / n),
		EntryHigh:      round2(entryHighSum / n),
		StopLoss:       round2(stopLossSum / n),
		TakeProfits:    takeProfits,
		Warnings:       warnings,
		Predictions:    predictions,
		GeneratedAt:    time.Now().UTC(),
	}
}

// bucketScore maps the averaged vote back to a category.
func bucketScore(avg float64) string {
	switch {
	case avg >= 1.5:
		return models.SignalStrongBuy
	case avg >= 0.5:
		return models.SignalBuy
	case avg <= -1.5:
		return models.SignalStrongSell
	case avg <= -0.5:
		return models.SignalSell
	}
	return models.SignalNeutral
}

// agreementLevel grades vote concentration: the largest of the three
// blocks (buy family, neutral, sell family) over the number of
// successful providers.
func agreementLevel(buyVotes, neutralVotes, sellVotes, total int) string {
	maxBlock := buyVotes
	if neutralVotes > maxBlock {
		maxBlock = neutralVotes
	}
	if sellVotes > maxBlock {
		maxBlock = sellVotes
	}
	ratio := float64(maxBlock) / float64(total)
	switch {
	case ratio >= 0.9:
		return models.AgreementHigh
	case ratio >= 0.7:
		return models.AgreementMedium
	case ratio >= 0.5:
		return models.AgreementLow
	}
	return models.AgreementConflict
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
