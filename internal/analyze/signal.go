package analyze

import (
	"fmt"
	"math"
	"time"

	"github.com/tarasov-md/GoldSignals/models"
)

// Voting weights for the five directional factors.
const (
	weightWholePCR   = 2.0
	weightATMPCR     = 2.0
	weightMaxPain    = 1.5
	weightOITrend    = 2.0
	weightATMBuildup = 1.5
)

// Per-factor caps for the 0-100 confidence scale (base 50). The
// confidence scale is computed independently of the 1-5 strength and the
// two must never be conflated.
const (
	confPCRCap     = 6.0 // applied once for the whole-chain and once for the ATM ratio
	confVolumeCap  = 6.0
	confMaxPainCap = 7.0
	confFlowCap    = 8.0
	confWallCap    = 6.0
	confVWAPCap    = 5.0
)

// Options carries the analyzer knobs. Different call sites use different
// PCR cutoffs on purpose, so both pairs travel here rather than living
// as constants inside the analyzers.
type Options struct {
	OIPCRThresholds     PCRThresholds
	VolumePCRThresholds PCRThresholds
	ATMBandPct          float64
	MaxPainTolerancePct float64
}

// DefaultOptions are the documented production cutoffs.
func DefaultOptions() Options {
	return Options{
		OIPCRThresholds:     DefaultOIPCRThresholds,
		VolumePCRThresholds: DefaultVolumePCRThresholds,
		ATMBandPct:          5,
		MaxPainTolerancePct: DefaultMaxPainTolerancePct,
	}
}

// GenerateSignal blends the factor analyzers into one directional
// signal. Pure function of the snapshot pair: no history, no side
// effects. A nil previous snapshot silently disables the OI-flow
// factors; an empty chain yields a NEUTRAL strength-1 signal.
func GenerateSignal(current *models.MarketSnapshot, previous *models.MarketSnapshot, opts Options) *models.Signal {
	signal := &models.Signal{
		Type:        models.SignalNeutral,
		Strength:    1,
		Confidence:  50,
		GeneratedAt: time.Now().UTC(),
	}
	if current == nil {
		return signal
	}
	signal.Product = current.Product
	signal.Price = current.CurrentPrice
	if len(current.Strikes) == 0 || current.CurrentPrice <= 0 {
		return signal
	}

	price := current.CurrentPrice
	wholePCR := AnalyzePCR(current.Strikes, opts.OIPCRThresholds)
	atmPCR := AnalyzeATMPCR(current.Strikes, price, opts.ATMBandPct, opts.OIPCRThresholds)
	volumePCR := AnalyzeVolumePCR(current.Strikes, opts.VolumePCRThresholds)
	maxPain := CalculateMaxPain(current.Strikes, price, opts.MaxPainTolerancePct)

	var oiFlow, atmBuildup models.OIFlowResult
	oiFlow.Sentiment = models.SentimentNeutral
	atmBuildup.Sentiment = models.SentimentNeutral
	if previous != nil {
		oiFlow = AnalyzeOIFlow(current.Strikes, previous.Strikes)
		atmBuildup = AnalyzeATMBuildup(current.Strikes, previous.Strikes, price, opts.ATMBandPct)
	}

	// Weighted vote: BULLISH adds the factor weight to the bullish side,
	// BEARISH to the bearish side, everything else to neither.
	var bullishScore, bearishScore float64
	vote := func(sentiment string, weight float64) {
		switch sentiment {
		case models.SentimentBullish:
			bullishScore += weight
		case models.SentimentBearish:
			bearishScore += weight
		}
	}
	vote(wholePCR.Sentiment, weightWholePCR)
	vote(atmPCR.Sentiment, weightATMPCR)
	vote(maxPain.Tilt, weightMaxPain)
	vote(oiFlow.Sentiment, weightOITrend)
	vote(atmBuildup.Sentiment, weightATMBuildup)

	netScore := bullishScore - bearishScore
	activity := bullishScore + bearishScore
	signal.NetScore = netScore
	signal.Type, signal.Strength = scoreToStrength(netScore, activity)

	// Confidence: base 50 plus individually capped factor contributions,
	// read in the direction of the signal family.
	pcrScore := direction(wholePCR.Sentiment)*confPCRCap + direction(atmPCR.Sentiment)*confPCRCap
	vwapScore := vwapContribution(current.Strikes, price)
	signal.FactorScores = []models.FactorScore{
		{Name: "pcr_score", Score: pcrScore},
		{Name: "vwap_score", Score: vwapScore},
		{Name: "flow_score", Score: direction(oiFlow.Sentiment) * confFlowCap},
		{Name: "wall_score", Score: direction(atmBuildup.Sentiment) * confWallCap},
		{Name: "max_pain_score", Score: direction(maxPain.Tilt) * confMaxPainCap},
		{Name: "volume_score", Score: direction(volumePCR.Sentiment) * confVolumeCap},
	}
	var contribution float64
	for _, f := range signal.FactorScores {
		contribution += f.Score
	}
	switch {
	case models.IsBuyFamily(signal.Type):
		signal.Confidence = clampConfidence(50 + contribution)
	case models.IsSellFamily(signal.Type):
		signal.Confidence = clampConfidence(50 - contribution)
	default:
		signal.Confidence = clampConfidence(50 + contribution/4)
	}

	signal.BullishFactors, signal.BearishFactors = explainFactors(
		wholePCR, atmPCR, volumePCR, maxPain, oiFlow, atmBuildup)

	signal.KeyLevels = FindKeyLevels(current.Strikes)
	signal.KeyLevels.MaxPain = maxPain.Strike
	return signal
}

// scoreToStrength maps the net weighted vote to a signal family and
// 1-5 strength. The >=4 boundary is inclusive.
func scoreToStrength(netScore, activity float64) (string, int) {
	abs := math.Abs(netScore)
	buy := netScore > 0

	switch {
	case abs >= 4:
		return pick(buy, models.SignalStrongBuy, models.SignalStrongSell), 5
	case abs >= 2.5:
		return pick(buy, models.SignalStrongBuy, models.SignalStrongSell), 4
	case abs >= 1:
		return pick(buy, models.SignalBuy, models.SignalSell), 3
	}
	if activity > 3 {
		return models.SignalNeutral, 2
	}
	return models.SignalNeutral, 1
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

func direction(sentiment string) float64 {
	switch sentiment {
	case models.SentimentBullish:
		return 1
	case models.SentimentBearish:
		return -1
	}
	return 0
}

// vwapContribution compares spot against the volume-weighted average
// strike of today's flow: trading concentrated below spot reads bullish,
// above spot bearish.
func vwapContribution(strikes []models.StrikeRow, price float64) float64 {
	var weighted float64
	var volume int64
	for _, s := range strikes {
		v := s.CallVolume + s.PutVolume
		weighted += s.Strike * float64(v)
		volume += v
	}
	if volume == 0 {
		return 0
	}
	vwap := weighted / float64(volume)
	if price > vwap {
		return confVWAPCap
	}
	if price < vwap {
		return -confVWAPCap
	}
	return 0
}

func explainFactors(wholePCR, atmPCR, volumePCR models.PCRResult, maxPain models.MaxPainResult, oiFlow, atmBuildup models.OIFlowResult) (bullish, bearish []string) {
	add := func(sentiment, text string) {
		switch sentiment {
		case models.SentimentBullish:
			bullish = append(bullish, text)
		case models.SentimentBearish:
			bearish = append(bearish, text)
		}
	}
	add(wholePCR.Sentiment, fmt.Sprintf("Put/Call OI ratio at %.2f", wholePCR.Ratio))
	add(atmPCR.Sentiment, fmt.Sprintf("ATM Put/Call OI ratio at %.2f", atmPCR.Ratio))
	add(volumePCR.Sentiment, fmt.Sprintf("Put/Call volume ratio at %.2f", volumePCR.Ratio))
	add(maxPain.Tilt, fmt.Sprintf("Max pain at %.0f, %.1f%% from spot", maxPain.Strike, maxPain.DistancePct))
	add(oiFlow.Sentiment, fmt.Sprintf("OI flow shows %s (net %+d)", oiFlow.Detail, oiFlow.NetChange))
	if oiFlow.Sentiment == models.SentimentReversal {
		bearish = append(bearish, fmt.Sprintf("OI unwinding suggests %s", oiFlow.Detail))
	}
	add(atmBuildup.Sentiment, fmt.Sprintf("ATM OI buildup shows %s", atmBuildup.Detail))
	return bullish, bearish
}

func clampConfidence(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}
