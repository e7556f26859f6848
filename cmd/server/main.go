package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tarasov-md/GoldSignals/config"
	"github.com/tarasov-md/GoldSignals/internal/accuracy"
	"github.com/tarasov-md/GoldSignals/internal/analyze"
	"github.com/tarasov-md/GoldSignals/internal/api/prices"
	"github.com/tarasov-md/GoldSignals/internal/consensus"
	"github.com/tarasov-md/GoldSignals/internal/database"
	"github.com/tarasov-md/GoldSignals/internal/notifier"
	"github.com/tarasov-md/GoldSignals/internal/providers/deepseek"
	"github.com/tarasov-md/GoldSignals/internal/providers/gemini"
	"github.com/tarasov-md/GoldSignals/internal/providers/openai"
	"github.com/tarasov-md/GoldSignals/internal/scheduler"
	"github.com/tarasov-md/GoldSignals/internal/server"
	"github.com/tarasov-md/GoldSignals/models"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	setupLogging(cfg.LogLevel)
	log.Info().Str("product", cfg.Product).Msg("Starting GoldSignals server")

	// 3. Connect to the database
	db, err := database.New(database.ConnectionParams{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// 4. Wire the AI providers
	registry := buildRegistry(cfg)
	aggregator := consensus.NewAggregator(registry, consensus.Options{
		MinProviders: cfg.MinProviders,
		CallTimeout:  time.Duration(cfg.ProviderTimeout) * time.Second,
	})

	// 5. Shared collaborators
	tracker := accuracy.NewTracker(db)
	priceClient := prices.NewClient(prices.ClientOptions{
		APIKey:         cfg.PriceAPIKey,
		Symbol:         cfg.SpotSymbol,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
	})

	var alerts models.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notifier.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create telegram notifier")
		}
		alerts = tg
	} else {
		log.Warn().Msg("Telegram credentials missing, alerts disabled")
	}

	analyzeOpts := analyzeOptions(cfg)

	// 6. Background jobs
	jobs := scheduler.New(scheduler.Deps{
		Snapshots:        db,
		Aggregator:       aggregator,
		Tracker:          tracker,
		Prices:           priceClient,
		Notifier:         alerts,
		Product:          cfg.Product,
		AnalyzeOpts:      analyzeOpts,
		AlertMinStrength: cfg.AlertMinStrength,
	})
	if err := jobs.Schedule(cfg.AnalysisCron, cfg.EvaluationCron); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule jobs")
	}
	jobs.Start()
	defer jobs.Stop()

	// 7. HTTP surface
	srv := server.New(server.Deps{
		Snapshots:     db,
		Predictions:   db,
		Aggregator:    aggregator,
		Tracker:       tracker,
		Prices:        priceClient,
		Notifier:      alerts,
		Product:       cfg.Product,
		AnalyzeOpts:   analyzeOpts,
		PredictionTTL: time.Duration(cfg.PredictionTTLHrs) * time.Hour,

		GEXDaysToExpiry: cfg.GEXDaysToExpiry,
		GEXImpliedVol:   cfg.GEXImpliedVol,
	})

	go func() {
		if err := srv.Start(cfg.HTTPAddr); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// 8. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown error")
	}
}

// buildRegistry registers every provider that has credentials.
func buildRegistry(cfg *config.Config) *consensus.Registry {
	registry := consensus.NewRegistry()
	for _, name := range cfg.Providers {
		switch name {
		case "openai":
			if cfg.OpenAIAPIKey != "" {
				registry.Register(openai.NewClient(cfg.OpenAIAPIKey))
			}
		case "deepseek":
			if cfg.DeepSeekAPIKey != "" {
				registry.Register(deepseek.NewClient(cfg.DeepSeekAPIKey))
			}
		case "gemini":
			if cfg.GeminiAPIKey != "" {
				registry.Register(gemini.NewClient(cfg.GeminiAPIKey, nil))
			}
		default:
			log.Warn().Str("provider", name).Msg("Unknown provider in AI_PROVIDERS, skipping")
		}
	}
	if len(registry.Names()) == 0 {
		log.Warn().Msg("No AI providers configured, consensus endpoint will fail")
	}
	return registry
}

func analyzeOptions(cfg *config.Config) analyze.Options {
	return analyze.Options{
		OIPCRThresholds:     analyze.PCRThresholds{Bullish: cfg.PCRBullish, Bearish: cfg.PCRBearish},
		VolumePCRThresholds: analyze.PCRThresholds{Bullish: cfg.VolumePCRBullish, Bearish: cfg.VolumePCRBearish},
		ATMBandPct:          cfg.ATMBandPct,
		MaxPainTolerancePct: cfg.MaxPainTolerance,
	}
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
