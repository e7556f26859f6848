package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	// Persistence
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Market
	Product     string
	SpotSymbol  string
	PriceAPIKey string

	// Analyzer thresholds. Two distinct PCR threshold pairs are used on
	// purpose: OI ratios classify on 0.7/1.0, volume ratios on the wider
	// 0.8/1.2 bands.
	PCRBullish        float64
	PCRBearish        float64
	VolumePCRBullish  float64
	VolumePCRBearish  float64
	ATMBandPct        float64
	MaxPainTolerance  float64
	GEXImpliedVol     float64
	GEXDaysToExpiry   int
	AlertMinStrength  int
	PredictionTTLHrs  int

	// Consensus
	Providers       []string
	MinProviders    int
	ProviderTimeout int // seconds

	// Provider credentials
	OpenAIAPIKey   string
	DeepSeekAPIKey string
	GeminiAPIKey   string

	// Delivery
	TelegramBotToken string
	TelegramChatID   int64

	// Service
	HTTPAddr       string
	AnalysisCron   string
	EvaluationCron string
	LogLevel       string
	RequestTimeout int // seconds
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := &Config{
		DBHost:     getEnvWithDefault("DB_HOST", "localhost"),
		DBPort:     getEnvWithDefault("DB_PORT", "5432"),
		DBUser:     getEnvWithDefault("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnvWithDefault("DB_NAME", "goldsignals"),
		DBSSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),

		Product:     getEnvWithDefault("PRODUCT", "GC"),
		SpotSymbol:  getEnvWithDefault("SPOT_SYMBOL", "XAU/USD"),
		PriceAPIKey: os.Getenv("TWELVE_API_KEY"),

		PCRBullish:       getEnvFloatWithDefault("PCR_BULLISH_THRESHOLD", 0.7),
		PCRBearish:       getEnvFloatWithDefault("PCR_BEARISH_THRESHOLD", 1.0),
		VolumePCRBullish: getEnvFloatWithDefault("VOLUME_PCR_BULLISH_THRESHOLD", 0.8),
		VolumePCRBearish: getEnvFloatWithDefault("VOLUME_PCR_BEARISH_THRESHOLD", 1.2),
		ATMBandPct:       getEnvFloatWithDefault("ATM_BAND_PCT", 5),
		MaxPainTolerance: getEnvFloatWithDefault("MAX_PAIN_TOLERANCE_PCT", 0.5),
		GEXImpliedVol:    getEnvFloatWithDefault("GEX_IMPLIED_VOL", 0.15),
		GEXDaysToExpiry:  getEnvIntWithDefault("GEX_DAYS_TO_EXPIRY", 30),
		AlertMinStrength: getEnvIntWithDefault("ALERT_MIN_STRENGTH", 4),
		PredictionTTLHrs: getEnvIntWithDefault("PREDICTION_TTL_HOURS", 24),

		Providers:       splitList(getEnvWithDefault("AI_PROVIDERS", "openai,deepseek,gemini")),
		MinProviders:    getEnvIntWithDefault("MIN_PROVIDERS", 2),
		ProviderTimeout: getEnvIntWithDefault("PROVIDER_TIMEOUT", 45),

		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		DeepSeekAPIKey: os.Getenv("DEEPSEEK_API_KEY"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0),

		HTTPAddr:       getEnvWithDefault("HTTP_ADDR", ":8080"),
		AnalysisCron:   getEnvWithDefault("ANALYSIS_CRON", "0 */15 * * * *"),
		EvaluationCron: getEnvWithDefault("EVALUATION_CRON", "0 5 * * * *"),
		LogLevel:       getEnvWithDefault("LOG_LEVEL", "info"),
		RequestTimeout: getEnvIntWithDefault("REQUEST_TIMEOUT", 30),
	}

	return cfg, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
