package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tarasov-md/GoldSignals/internal/accuracy"
	"github.com/tarasov-md/GoldSignals/internal/analyze"
	"github.com/tarasov-md/GoldSignals/internal/consensus"
	"github.com/tarasov-md/GoldSignals/models"
)

// Deps are the collaborators the HTTP surface exposes.
type Deps struct {
	Snapshots   models.SnapshotStore
	Predictions models.PredictionStore
	Aggregator  *consensus.Aggregator
	Tracker     *accuracy.Tracker
	Prices      models.PriceClient
	Notifier    models.Notifier

	Product       string
	AnalyzeOpts   analyze.Options
	PredictionTTL time.Duration

	// Defaults for the gamma profile, overridable per request.
	GEXDaysToExpiry int
	GEXImpliedVol   float64
}

// Server is the Echo HTTP server over the analytics engine.
type Server struct {
	echo   *echo.Echo
	deps   Deps
	logger zerolog.Logger
}

// New creates the server and registers all routes.
func New(deps Deps) *Server {
	if deps.Product == "" {
		deps.Product = "GC"
	}
	if deps.PredictionTTL <= 0 {
		deps.PredictionTTL = 24 * time.Hour
	}
	if deps.GEXDaysToExpiry <= 0 {
		deps.GEXDaysToExpiry = analyze.DefaultDaysToExp
	}
	if deps.GEXImpliedVol <= 0 {
		deps.GEXImpliedVol = analyze.DefaultImpliedVol
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		echo:   e,
		deps:   deps,
		logger: log.With().Str("component", "http_server").Logger(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.health)

	g := s.echo.Group("/api")
	g.POST("/snapshots", s.saveSnapshot)
	g.GET("/signal", s.getSignal)
	g.GET("/gex", s.getGEX)
	g.POST("/consensus", s.runConsensus)
	g.POST("/evaluate", s.runEvaluation)
	g.GET("/accuracy", s.getAccuracy)
	g.GET("/accuracy/best", s.getBestProvider)
}

// Start runs the server until the listener fails or Stop is called.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("http server listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) saveSnapshot(c echo.Context) error {
	var snap models.MarketSnapshot
	if err := c.Bind(&snap); err != nil {
		return badRequest(c, fmt.Errorf("invalid snapshot payload: %w", err))
	}
	if snap.Product == "" {
		snap.Product = s.deps.Product
	}
	if snap.CurrentPrice <= 0 {
		return badRequest(c, errors.New("currentPrice must be positive"))
	}
	if len(snap.Strikes) == 0 {
		return badRequest(c, errors.New("snapshot has no strikes"))
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now().UTC()
	}

	id, err := s.deps.Snapshots.SaveSnapshot(c.Request().Context(), &snap)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to save snapshot")
		return internalError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) getSignal(c echo.Context) error {
	ctx := c.Request().Context()
	current, previous, err := s.loadSnapshots(ctx, s.product(c))
	if err != nil {
		return internalError(c, err)
	}
	if current == nil {
		return notFound(c, errors.New("no snapshot stored yet"))
	}

	signal := analyze.GenerateSignal(current, previous, s.deps.AnalyzeOpts)
	return c.JSON(http.StatusOK, signal)
}

func (s *Server) getGEX(c echo.Context) error {
	ctx := c.Request().Context()
	current, err := s.deps.Snapshots.GetLatestSnapshot(ctx, s.product(c))
	if err != nil {
		return internalError(c, err)
	}
	if current == nil {
		return notFound(c, errors.New("no snapshot stored yet"))
	}

	days := s.deps.GEXDaysToExpiry
	if raw := c.QueryParam("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest(c, fmt.Errorf("invalid days parameter %q", raw))
		}
		days = parsed
	}
	vol := s.deps.GEXImpliedVol
	if raw := c.QueryParam("vol"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			return badRequest(c, fmt.Errorf("invalid vol parameter %q", raw))
		}
		vol = parsed
	}

	result := analyze.CalculateGEX(current.Strikes, current.CurrentPrice, days, vol)
	return c.JSON(http.StatusOK, result)
}

type consensusRequest struct {
	Product   string   `json:"product"`
	Providers []string `json:"providers"`
	Notify    bool     `json:"notify"`
}

func (s *Server) runConsensus(c echo.Context) error {
	var req consensusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, fmt.Errorf("invalid consensus request: %w", err))
	}
	if req.Product == "" {
		req.Product = s.deps.Product
	}

	ctx := c.Request().Context()
	current, previous, err := s.loadSnapshots(ctx, req.Product)
	if err != nil {
		return internalError(c, err)
	}
	if current == nil {
		return notFound(c, errors.New("no snapshot stored yet"))
	}

	summary := analyze.Summarize(current, previous, s.deps.AnalyzeOpts)
	result, err := s.deps.Aggregator.GetConsensus(ctx, summary, req.Providers)
	if err != nil {
		var insufficient *consensus.InsufficientProvidersError
		if errors.As(err, &insufficient) {
			return c.JSON(http.StatusBadGateway, map[string]any{
				"error":    insufficient.Error(),
				"failures": insufficient.Failures,
			})
		}
		return internalError(c, err)
	}

	s.storePredictions(ctx, req.Product, current.CurrentPrice, result)

	if req.Notify && s.deps.Notifier != nil {
		if err := s.deps.Notifier.SendConsensus(ctx, req.Product, result); err != nil {
			s.logger.Error().Err(err).Msg("failed to deliver consensus notification")
		}
	}
	return c.JSON(http.StatusOK, result)
}

// storePredictions persists the consensus and each individual vote so
// the accuracy tracker can grade them later. Persistence failures are
// logged, not surfaced: the consensus itself already succeeded.
func (s *Server) storePredictions(ctx context.Context, product string, price float64, result *models.ConsensusResult) {
	if s.deps.Predictions == nil {
		return
	}
	now := time.Now().UTC()
	expires := now.Add(s.deps.PredictionTTL)

	save := func(p *models.Prediction) {
		if _, err := s.deps.Predictions.SavePrediction(ctx, p); err != nil {
			s.logger.Error().Err(err).Str("provider", p.Provider).Msg("failed to save prediction")
		}
	}

	save(&models.Prediction{
		Provider:       "consensus",
		Product:        product,
		Recommendation: result.Recommendation,
		Confidence:     float64(result.Confidence),
		EntryLow:       result.EntryLow,
		EntryHigh:      result.EntryHigh,
		StopLoss:       result.StopLoss,
		TakeProfits:    result.TakeProfits,
		PriceAtTime:    price,
		Outcome:        models.OutcomePending,
		CreatedAt:      now,
		ExpiresAt:      expires,
	})
	for _, p := range result.Predictions {
		save(&models.Prediction{
			Provider:       p.Provider,
			Product:        product,
			Recommendation: p.Recommendation,
			Confidence:     p.Confidence,
			EntryLow:       p.EntryLow,
			EntryHigh:      p.EntryHigh,
			StopLoss:       p.StopLoss,
			TakeProfits:    p.TakeProfits,
			PriceAtTime:    price,
			Outcome:        models.OutcomePending,
			CreatedAt:      now,
			ExpiresAt:      expires,
		})
	}
}

func (s *Server) runEvaluation(c echo.Context) error {
	ctx := c.Request().Context()
	price, err := s.deps.Prices.GetSpotPrice(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch spot price for evaluation")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	summary, err := s.deps.Tracker.EvaluatePending(ctx, price)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) getAccuracy(c echo.Context) error {
	ctx := c.Request().Context()

	if provider := c.QueryParam("provider"); provider != "" {
		stats, err := s.deps.Predictions.GetStats(ctx, provider)
		if err != nil {
			return internalError(c, err)
		}
		if stats == nil {
			return notFound(c, fmt.Errorf("no stats for provider %q", provider))
		}
		return c.JSON(http.StatusOK, stats)
	}

	providers, err := s.deps.Predictions.Providers(ctx)
	if err != nil {
		return internalError(c, err)
	}
	all := make([]models.AccuracyStats, 0, len(providers))
	for _, provider := range providers {
		stats, err := s.deps.Predictions.GetStats(ctx, provider)
		if err != nil {
			return internalError(c, err)
		}
		if stats != nil {
			all = append(all, *stats)
		}
	}
	return c.JSON(http.StatusOK, all)
}

func (s *Server) getBestProvider(c echo.Context) error {
	best, err := s.deps.Tracker.BestProvider(c.Request().Context())
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"provider": best})
}

func (s *Server) loadSnapshots(ctx context.Context, product string) (current, previous *models.MarketSnapshot, err error) {
	current, err = s.deps.Snapshots.GetLatestSnapshot(ctx, product)
	if err != nil || current == nil {
		return current, nil, err
	}
	previous, err = s.deps.Snapshots.GetPreviousSnapshot(ctx, product, current.CapturedAt)
	if err != nil {
		return current, nil, err
	}
	return current, previous, nil
}

func (s *Server) product(c echo.Context) string {
	if product := c.QueryParam("product"); product != "" {
		return product
	}
	return s.deps.Product
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func notFound(c echo.Context, err error) error {
	return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
}

func internalError(c echo.Context, err error) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
