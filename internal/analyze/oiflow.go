package analyze

import (
	"github.com/tarasov-md/GoldSignals/models"
)

// Flow detail labels for the four cells of the OI decision table.
const (
	FlowNewLongs        = "new longs"
	FlowNewShorts       = "new shorts"
	FlowShortCovering   = "short covering"
	FlowLongLiquidation = "long liquidation"
)

// AnalyzeOIFlow compares two snapshots of the same chain and classifies
// the aggregate open-interest migration. Strikes are matched by price;
// a strike missing from either side counts as zero there. With no
// previous snapshot data the result is NEUTRAL, never an error.
func AnalyzeOIFlow(current, previous []models.StrikeRow) models.OIFlowResult {
	totalCall, totalPut := aggregateOIChanges(current, previous)
	return classifyFlow(totalCall, totalPut)
}

// AnalyzeATMBuildup runs the same decision table restricted to strikes
// within bandPct percent of the current price, to surface localized
// positioning independent of the whole-chain flow.
func AnalyzeATMBuildup(current, previous []models.StrikeRow, currentPrice, bandPct float64) models.OIFlowResult {
	atmCurrent := FilterATM(current, currentPrice, bandPct)
	atmPrevious := FilterATM(previous, currentPrice, bandPct)
	totalCall, totalPut := aggregateOIChanges(atmCurrent, atmPrevious)
	return classifyFlow(totalCall, totalPut)
}

func aggregateOIChanges(current, previous []models.StrikeRow) (totalCall, totalPut int64) {
	prevByStrike := make(map[float64]models.StrikeRow, len(previous))
	for _, s := range previous {
		prevByStrike[s.Strike] = s
	}

	seen := make(map[float64]bool, len(current))
	for _, s := range current {
		prev := prevByStrike[s.Strike] // zero row when unmatched
		totalCall += s.CallOI - prev.CallOI
		totalPut += s.PutOI - prev.PutOI
		seen[s.Strike] = true
	}
	// Strikes that disappeared from the current snapshot unwound fully.
	for _, s := range previous {
		if !seen[s.Strike] {
			totalCall -= s.CallOI
			totalPut -= s.PutOI
		}
	}
	return totalCall, totalPut
}

// classifyFlow applies the 2x2 table of (OI direction x flow dominance).
// Call-flow dominant means the signed call-OI change exceeds the signed
// put-OI change.
func classifyFlow(totalCall, totalPut int64) models.OIFlowResult {
	result := models.OIFlowResult{
		TotalCallChange: totalCall,
		TotalPutChange:  totalPut,
		NetChange:       totalCall + totalPut,
		Sentiment:       models.SentimentNeutral,
	}
	if totalCall == 0 && totalPut == 0 {
		return result
	}

	callDominant := totalCall > totalPut
	if result.NetChange > 0 {
		if callDominant {
			result.Sentiment = models.SentimentBullish
			result.Detail = FlowNewLongs
		} else {
			result.Sentiment = models.SentimentBearish
			result.Detail = FlowNewShorts
		}
		return result
	}

	result.Sentiment = models.SentimentReversal
	if callDominant {
		result.Detail = FlowShortCovering
	} else {
		result.Detail = FlowLongLiquidation
	}
	return result
}
