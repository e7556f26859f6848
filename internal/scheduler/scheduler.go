package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tarasov-md/GoldSignals/internal/accuracy"
	"github.com/tarasov-md/GoldSignals/internal/analyze"
	"github.com/tarasov-md/GoldSignals/internal/consensus"
	"github.com/tarasov-md/GoldSignals/models"
)

// Deps are the collaborators the scheduled jobs drive.
type Deps struct {
	Snapshots  models.SnapshotStore
	Aggregator *consensus.Aggregator
	Tracker    *accuracy.Tracker
	Prices     models.PriceClient
	Notifier   models.Notifier

	Product          string
	AnalyzeOpts      analyze.Options
	AlertMinStrength int
	JobTimeout       time.Duration
}

// Scheduler runs the periodic analysis and evaluation sweeps.
type Scheduler struct {
	cron   *cron.Cron
	deps   Deps
	logger zerolog.Logger
}

// New creates a scheduler. Cron specs use the six-field form with a
// seconds column.
func New(deps Deps) *Scheduler {
	if deps.Product == "" {
		deps.Product = "GC"
	}
	if deps.AlertMinStrength <= 0 {
		deps.AlertMinStrength = 4
	}
	if deps.JobTimeout <= 0 {
		deps.JobTimeout = 2 * time.Minute
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		deps:   deps,
		logger: log.With().Str("component", "scheduler").Logger(),
	}
}

// Schedule registers the analysis and evaluation jobs.
func (s *Scheduler) Schedule(analysisSpec, evaluationSpec string) error {
	if _, err := s.cron.AddFunc(analysisSpec, s.runAnalysis); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(evaluationSpec, s.runEvaluation); err != nil {
		return err
	}
	return nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("scheduler stopped")
}

// runAnalysis recomputes the signal from the latest stored snapshot and
// alerts when it is strong enough.
func (s *Scheduler) runAnalysis() {
	ctx, cancel := context.WithTimeout(context.Background(), s.deps.JobTimeout)
	defer cancel()

	current, err := s.deps.Snapshots.GetLatestSnapshot(ctx, s.deps.Product)
	if err != nil {
		s.logger.Error().Err(err).Msg("analysis job: loading latest snapshot")
		return
	}
	if current == nil {
		s.logger.Debug().Msg("analysis job: no snapshot stored yet")
		return
	}
	previous, err := s.deps.Snapshots.GetPreviousSnapshot(ctx, s.deps.Product, current.CapturedAt)
	if err != nil {
		s.logger.Error().Err(err).Msg("analysis job: loading previous snapshot")
		return
	}

	signal := analyze.GenerateSignal(current, previous, s.deps.AnalyzeOpts)
	s.logger.Info().
		Str("type", signal.Type).
		Int("strength", signal.Strength).
		Int("confidence", signal.Confidence).
		Msg("analysis job: signal computed")

	if signal.Strength < s.deps.AlertMinStrength || s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.SendSignal(ctx, signal); err != nil {
		s.logger.Error().Err(err).Msg("analysis job: sending signal alert")
	}

	if s.deps.Aggregator == nil {
		return
	}
	summary := analyze.Summarize(current, previous, s.deps.AnalyzeOpts)
	result, err := s.deps.Aggregator.GetConsensus(ctx, summary, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("analysis job: consensus unavailable")
		return
	}
	if err := s.deps.Notifier.SendConsensus(ctx, s.deps.Product, result); err != nil {
		s.logger.Error().Err(err).Msg("analysis job: sending consensus alert")
	}
}

// runEvaluation grades expired predictions against the live spot price.
func (s *Scheduler) runEvaluation() {
	ctx, cancel := context.WithTimeout(context.Background(), s.deps.JobTimeout)
	defer cancel()

	price, err := s.deps.Prices.GetSpotPrice(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("evaluation job: fetching spot price")
		return
	}

	summary, err := s.deps.Tracker.EvaluatePending(ctx, price)
	if err != nil {
		s.logger.Error().Err(err).Msg("evaluation job: evaluating predictions")
		return
	}
	if summary.Evaluated > 0 {
		s.logger.Info().
			Int("evaluated", summary.Evaluated).
			Int("wins", summary.Wins).
			Int("losses", summary.Losses).
			Msg("evaluation job: predictions resolved")
	}
}
