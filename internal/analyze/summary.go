package analyze

import (
	"github.com/tarasov-md/GoldSignals/models"
)

// Summarize condenses a chain snapshot into the compact summary handed
// to the AI providers. The previous snapshot is optional; without it
// the OI flow fields stay zero.
func Summarize(current, previous *models.MarketSnapshot, opts Options) models.MarketSummary {
	if current == nil {
		return models.MarketSummary{}
	}

	summary := models.MarketSummary{
		Product:    current.Product,
		Expiry:     current.Expiry,
		Price:      current.CurrentPrice,
		CapturedAt: current.CapturedAt,
	}

	summary.PCR = AnalyzePCR(current.Strikes, opts.OIPCRThresholds).Ratio
	summary.VolumePCR = AnalyzeVolumePCR(current.Strikes, opts.VolumePCRThresholds).Ratio
	summary.MaxPain = CalculateMaxPain(current.Strikes, current.CurrentPrice, opts.MaxPainTolerancePct).Strike

	gex := CalculateGEX(current.Strikes, current.CurrentPrice, DefaultDaysToExp, DefaultImpliedVol)
	summary.TotalGEX = gex.TotalGEX
	summary.ZeroGamma = gex.ZeroGamma

	levels := FindKeyLevels(current.Strikes)
	for _, l := range levels.Support {
		summary.Support = append(summary.Support, l.Strike)
	}
	for _, l := range levels.Resistance {
		summary.Resistance = append(summary.Resistance, l.Strike)
	}

	if previous != nil {
		flow := AnalyzeOIFlow(current.Strikes, previous.Strikes)
		summary.NetOIChange = flow.NetChange
	}
	return summary
}
