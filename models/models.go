package models

import (
	"fmt"
	"time"
)

// Signal types produced by the scoring engine and the AI providers.
const (
	SignalStrongBuy  = "STRONG_BUY"
	SignalBuy        = "BUY"
	SignalNeutral    = "NEUTRAL"
	SignalSell       = "SELL"
	SignalStrongSell = "STRONG_SELL"
)

// Sentiment labels shared by the factor analyzers.
const (
	SentimentBullish  = "BULLISH"
	SentimentBearish  = "BEARISH"
	SentimentNeutral  = "NEUTRAL"
	SentimentReversal = "REVERSAL"
)

// Prediction outcome states.
const (
	OutcomePending   = "PENDING"
	OutcomeWin       = "WIN"
	OutcomeLoss      = "LOSS"
	OutcomeBreakeven = "BREAKEVEN"
)

// Agreement levels for the provider consensus.
const (
	AgreementHigh     = "HIGH"
	AgreementMedium   = "MEDIUM"
	AgreementLow      = "LOW"
	AgreementConflict = "CONFLICT"
)

// RecommendationScore maps a categorical recommendation to the integer
// vote used by the consensus averaging.
func RecommendationScore(rec string) (int, error) {
	switch rec {
	case SignalStrongBuy:
		return 2, nil
	case SignalBuy:
		return 1, nil
	case SignalNeutral:
		return 0, nil
	case SignalSell:
		return -1, nil
	case SignalStrongSell:
		return -2, nil
	}
	return 0, fmt.Errorf("unknown recommendation %q", rec)
}

// IsBuyFamily reports whether a recommendation is BUY or STRONG_BUY.
func IsBuyFamily(rec string) bool {
	return rec == SignalBuy || rec == SignalStrongBuy
}

// IsSellFamily reports whether a recommendation is SELL or STRONG_SELL.
func IsSellFamily(rec string) bool {
	return rec == SignalSell || rec == SignalStrongSell
}

// StrikeRow is one option strike of a chain snapshot. OI change fields
// are deltas versus the prior snapshot as reported by the vendor.
type StrikeRow struct {
	Strike       float64 `json:"strike"`
	CallOI       int64   `json:"callOi"`
	PutOI        int64   `json:"putOi"`
	CallVolume   int64   `json:"callVolume"`
	PutVolume    int64   `json:"putVolume"`
	CallOIChange int64   `json:"callOiChange"`
	PutOIChange  int64   `json:"putOiChange"`
	VolSettle    float64 `json:"volSettle,omitempty"`
	Range        string  `json:"range,omitempty"`
}

// MarketSnapshot is one captured option chain. Snapshots are immutable:
// newer captures supersede older ones, nothing mutates a stored chain.
type MarketSnapshot struct {
	ID           int64       `json:"id,omitempty"`
	Product      string      `json:"product"`
	Expiry       string      `json:"expiry"`
	CurrentPrice float64     `json:"currentPrice"`
	CapturedAt   time.Time   `json:"capturedAt"`
	Strikes      []StrikeRow `json:"strikes"`
}

// PCRResult is a put/call ratio with its sentiment classification.
type PCRResult struct {
	Ratio     float64 `json:"ratio"`
	PutTotal  int64   `json:"putTotal"`
	CallTotal int64   `json:"callTotal"`
	Sentiment string  `json:"sentiment"`
}

// MaxPainResult is the writer-payout minimizing strike and its position
// relative to the current price.
type MaxPainResult struct {
	Strike      float64 `json:"strike"`
	TotalPayout float64 `json:"totalPayout"`
	Distance    float64 `json:"distance"`    // strike - currentPrice
	DistancePct float64 `json:"distancePct"` // signed, percent of currentPrice
	Tilt        string  `json:"tilt"`
}

// OIFlowResult classifies open-interest migration between two snapshots.
type OIFlowResult struct {
	TotalCallChange int64  `json:"totalCallChange"`
	TotalPutChange  int64  `json:"totalPutChange"`
	NetChange       int64  `json:"netChange"`
	Sentiment       string `json:"sentiment"` // BULLISH / BEARISH / REVERSAL / NEUTRAL
	Detail          string `json:"detail"`
}

// KeyLevel is one OI-ranked support or resistance strike.
type KeyLevel struct {
	Strike   float64 `json:"strike"`
	OI       int64   `json:"oi"`
	Strength int     `json:"strength"` // 3 strongest, 1 weakest
}

// KeyLevels groups the ranked levels plus the max-pain strike.
type KeyLevels struct {
	Support    []KeyLevel `json:"support"`
	Resistance []KeyLevel `json:"resistance"`
	MaxPain    float64    `json:"maxPain"`
}

// StrikeGEX is the per-strike gamma exposure contribution.
type StrikeGEX struct {
	Strike  float64 `json:"strike"`
	Gamma   float64 `json:"gamma"`
	CallGEX float64 `json:"callGex"`
	PutGEX  float64 `json:"putGex"`
}

// GEX regime labels, selected purely by the sign of total exposure.
const (
	RegimeMeanReverting = "MEAN_REVERTING"
	RegimeTrending      = "TRENDING"
)

// GEXResult is the dealer gamma-exposure profile. The sign convention
// (calls positive, puts negative) is a positioning heuristic carried
// over from the upstream data source, not a measured market quantity.
type GEXResult struct {
	TotalGEX  float64     `json:"totalGex"`
	ZeroGamma float64     `json:"zeroGamma"`
	Regime    string      `json:"regime"`
	Strikes   []StrikeGEX `json:"strikes,omitempty"`
}

// FactorScore is one named contribution to the 0-100 confidence scale.
type FactorScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"` // signed, bullish positive
}

// Signal is the blended directional signal. It is recomputed on every
// request; persisted copies are an audit trail, never the source of truth.
type Signal struct {
	Product        string        `json:"product"`
	Type           string        `json:"type"`
	Strength       int           `json:"strength"`   // 1..5
	Confidence     int           `json:"confidence"` // 0..100
	NetScore       float64       `json:"netScore"`
	BullishFactors []string      `json:"bullishFactors"`
	BearishFactors []string      `json:"bearishFactors"`
	FactorScores   []FactorScore `json:"factorScores"`
	KeyLevels      KeyLevels     `json:"keyLevels"`
	Price          float64       `json:"price"`
	GeneratedAt    time.Time     `json:"generatedAt"`
}

// MarketSummary is the condensed snapshot handed to AI providers.
type MarketSummary struct {
	Product     string    `json:"product"`
	Expiry      string    `json:"expiry"`
	Price       float64   `json:"price"`
	PCR         float64   `json:"pcr"`
	VolumePCR   float64   `json:"volumePcr"`
	MaxPain     float64   `json:"maxPain"`
	TotalGEX    float64   `json:"totalGex"`
	ZeroGamma   float64   `json:"zeroGamma"`
	NetOIChange int64     `json:"netOiChange"`
	Support     []float64 `json:"support"`
	Resistance  []float64 `json:"resistance"`
	CapturedAt  time.Time `json:"capturedAt"`
}

// Text renders the summary as the prompt block shared by all providers.
func (m MarketSummary) Text() string {
	return fmt.Sprintf(
		"Product: %s (expiry %s)\nSpot price: %.2f\nPut/Call OI ratio: %.2f\nPut/Call volume ratio: %.2f\nMax pain strike: %.2f\nTotal gamma exposure: %.0f\nZero-gamma level: %.2f\nNet OI change: %d\nSupport levels: %v\nResistance levels: %v\nCaptured at: %s",
		m.Product, m.Expiry, m.Price, m.PCR, m.VolumePCR, m.MaxPain,
		m.TotalGEX, m.ZeroGamma, m.NetOIChange, m.Support, m.Resistance,
		m.CapturedAt.Format(time.RFC3339),
	)
}

// ProviderPrediction is one provider's structured forecast.
type ProviderPrediction struct {
	Provider       string    `json:"provider"`
	Recommendation string    `json:"recommendation"`
	Confidence     float64   `json:"confidence"` // 0..100
	EntryLow       float64   `json:"entryLow"`
	EntryHigh      float64   `json:"entryHigh"`
	StopLoss       float64   `json:"stopLoss"`
	TakeProfits    []float64 `json:"takeProfits"` // up to three levels
	Rationale      string    `json:"rationale,omitempty"`
	Warnings       []string  `json:"warnings,omitempty"`
}

// ProviderFailure names a provider whose call failed or timed out.
type ProviderFailure struct {
	Provider string `json:"provider"`
	Error    string `json:"error"`
}

// ConsensusResult is the statistical blend of the successful providers.
type ConsensusResult struct {
	Recommendation string               `json:"recommendation"`
	AverageScore   float64              `json:"averageScore"`
	Confidence     int                  `json:"confidence"`
	Agreement      string               `json:"agreement"`
	EntryLow       float64              `json:"entryLow"`
	EntryHigh      float64              `json:"entryHigh"`
	StopLoss       float64              `json:"stopLoss"`
	TakeProfits    []float64            `json:"takeProfits"`
	Warnings       []string             `json:"warnings,omitempty"`
	Predictions    []ProviderPrediction `json:"predictions"`
	Failures       []ProviderFailure    `json:"failures,omitempty"`
	GeneratedAt    time.Time            `json:"generatedAt"`
}

// Prediction is a stored forecast awaiting (or past) evaluation.
// Outcome mutates exactly once, from PENDING to a terminal state.
type Prediction struct {
	ID             int64      `json:"id"`
	Provider       string     `json:"provider"` // provider name or "consensus"
	Product        string     `json:"product"`
	Recommendation string     `json:"recommendation"`
	Confidence     float64    `json:"confidence"`
	EntryLow       float64    `json:"entryLow"`
	EntryHigh      float64    `json:"entryHigh"`
	StopLoss       float64    `json:"stopLoss"`
	TakeProfits    []float64  `json:"takeProfits"`
	PriceAtTime    float64    `json:"priceAtTime"`
	Outcome        string     `json:"outcome"`
	CreatedAt      time.Time  `json:"createdAt"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
	ResolvedPrice  float64    `json:"resolvedPrice,omitempty"`
}

// AccuracyStats is the per-provider materialized rollup, recomputed in
// full from the prediction history after every evaluation batch.
type AccuracyStats struct {
	Provider         string    `json:"provider"`
	TotalPredictions int       `json:"totalPredictions"`
	Wins             int       `json:"wins"`
	Losses           int       `json:"losses"`
	Breakevens       int       `json:"breakevens"`
	WinRate          float64   `json:"winRate"`
	BuyAccuracy      float64   `json:"buyAccuracy"`
	SellAccuracy     float64   `json:"sellAccuracy"`
	TP1HitRate       float64   `json:"tp1HitRate"`
	TP2HitRate       float64   `json:"tp2HitRate"`
	SLHitRate        float64   `json:"slHitRate"`
	WinRate7d        float64   `json:"winRate7d"`
	WinRate30d       float64   `json:"winRate30d"`
	AvgConfidence    float64   `json:"avgConfidence"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// EvaluationSummary reports one evaluation sweep.
type EvaluationSummary struct {
	Evaluated  int `json:"evaluated"`
	Wins       int `json:"wins"`
	Losses     int `json:"losses"`
	Breakevens int `json:"breakevens"`
}
