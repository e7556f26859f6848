package analyze

import (
	"github.com/tarasov-md/GoldSignals/models"
)

// PCRThresholds are the classification cutoffs for a put/call ratio.
// Ratios below Bullish classify BULLISH, above Bearish classify BEARISH.
type PCRThresholds struct {
	Bullish float64
	Bearish float64
}

// The OI and volume ratios deliberately classify on different bands;
// both pairs are exported so call sites never inline the cutoffs.
var (
	DefaultOIPCRThresholds     = PCRThresholds{Bullish: 0.7, Bearish: 1.0}
	DefaultVolumePCRThresholds = PCRThresholds{Bullish: 0.8, Bearish: 1.2}
)

// AnalyzePCR computes the put/call open-interest ratio over the given
// strikes. An empty chain or zero call OI yields ratio 0 and NEUTRAL.
func AnalyzePCR(strikes []models.StrikeRow, thresholds PCRThresholds) models.PCRResult {
	var putTotal, callTotal int64
	for _, s := range strikes {
		putTotal += s.PutOI
		callTotal += s.CallOI
	}
	return classifyRatio(putTotal, callTotal, thresholds)
}

// AnalyzeVolumePCR computes the put/call volume ratio, an independent
// sentiment source read on wider bands than the OI ratio.
func AnalyzeVolumePCR(strikes []models.StrikeRow, thresholds PCRThresholds) models.PCRResult {
	var putTotal, callTotal int64
	for _, s := range strikes {
		putTotal += s.PutVolume
		callTotal += s.CallVolume
	}
	return classifyRatio(putTotal, callTotal, thresholds)
}

// AnalyzeATMPCR restricts the OI ratio to strikes within bandPct percent
// of the current price. An empty band yields ratio 0 and NEUTRAL.
func AnalyzeATMPCR(strikes []models.StrikeRow, currentPrice, bandPct float64, thresholds PCRThresholds) models.PCRResult {
	return AnalyzePCR(FilterATM(strikes, currentPrice, bandPct), thresholds)
}

// FilterATM returns the strikes inside [price*(1-bandPct/100), price*(1+bandPct/100)].
func FilterATM(strikes []models.StrikeRow, currentPrice, bandPct float64) []models.StrikeRow {
	if currentPrice <= 0 {
		return nil
	}
	low := currentPrice * (1 - bandPct/100)
	high := currentPrice * (1 + bandPct/100)
	var atm []models.StrikeRow
	for _, s := range strikes {
		if s.Strike >= low && s.Strike <= high {
			atm = append(atm, s)
		}
	}
	return atm
}

func classifyRatio(putTotal, callTotal int64, thresholds PCRThresholds) models.PCRResult {
	result := models.PCRResult{
		PutTotal:  putTotal,
		CallTotal: callTotal,
		Sentiment: models.SentimentNeutral,
	}
	if callTotal == 0 {
		return result
	}
	result.Ratio = float64(putTotal) / float64(callTotal)
	switch {
	case result.Ratio < thresholds.Bullish:
		result.Sentiment = models.SentimentBullish
	case result.Ratio > thresholds.Bearish:
		result.Sentiment = models.SentimentBearish
	}
	return result
}
