package main

import (
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tarasov-md/GoldSignals/internal/analyze"
	"github.com/tarasov-md/GoldSignals/models"
)

// The analyzer is the offline companion to the server: it reads chain
// snapshots from JSON files and prints the full analysis to stdout, so
// the scoring can be inspected without a database or any API keys.
func main() {
	currentPath := flag.String("snapshot", "", "path to the current chain snapshot JSON (required)")
	previousPath := flag.String("previous", "", "path to the previous snapshot JSON (optional, enables OI flow)")
	days := flag.Int("days", analyze.DefaultDaysToExp, "days to expiry for the gamma profile")
	vol := flag.Float64("vol", analyze.DefaultImpliedVol, "implied volatility for the gamma profile")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	setupLogging(*logLevel)

	if *currentPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	current, err := loadSnapshot(*currentPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *currentPath).Msg("Failed to load snapshot")
	}
	var previous *models.MarketSnapshot
	if *previousPath != "" {
		previous, err = loadSnapshot(*previousPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *previousPath).Msg("Failed to load previous snapshot")
		}
	}

	opts := analyze.DefaultOptions()
	report := struct {
		Signal  *models.Signal      `json:"signal"`
		GEX     models.GEXResult    `json:"gex"`
		Summary models.MarketSummary `json:"summary"`
	}{
		Signal:  analyze.GenerateSignal(current, previous, opts),
		GEX:     analyze.CalculateGEX(current.Strikes, current.CurrentPrice, *days, *vol),
		Summary: analyze.Summarize(current, previous, opts),
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		log.Fatal().Err(err).Msg("Failed to encode report")
	}
}

func loadSnapshot(path string) (*models.MarketSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap models.MarketSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
}
