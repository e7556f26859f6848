package analyze

import (
	"math"

	"github.com/tarasov-md/GoldSignals/models"
)

// Fixed GEX model parameters. The profile is a dealer-positioning
// heuristic: a flat risk-free rate and a single caller-supplied implied
// vol stand in for a real surface.
const (
	RiskFreeRate       = 0.05
	DefaultImpliedVol  = 0.15
	DefaultDaysToExp   = 30
	ContractMultiplier = 100

	zeroGammaWindowPct = 0.10
	zeroGammaSteps     = 20
	zeroGammaMaxIters  = 100
)

// CalculateGEX computes the Black-Scholes gamma exposure profile over
// the chain. Calls contribute positive exposure, puts negative; the
// convention is carried over from the source data unchanged.
func CalculateGEX(strikes []models.StrikeRow, currentPrice float64, daysToExpiry int, impliedVol float64) models.GEXResult {
	if len(strikes) == 0 || currentPrice <= 0 {
		return models.GEXResult{Regime: models.RegimeMeanReverting}
	}
	if daysToExpiry <= 0 {
		daysToExpiry = DefaultDaysToExp
	}
	if impliedVol <= 0 {
		impliedVol = DefaultImpliedVol
	}

	result := models.GEXResult{
		Strikes: make([]models.StrikeGEX, 0, len(strikes)),
	}
	for _, s := range strikes {
		gamma := bsGamma(currentPrice, s.Strike, daysToExpiry, impliedVol)
		row := models.StrikeGEX{
			Strike:  s.Strike,
			Gamma:   gamma,
			CallGEX: gamma * float64(s.CallOI) * currentPrice * ContractMultiplier,
			PutGEX:  -gamma * float64(s.PutOI) * currentPrice * ContractMultiplier,
		}
		result.TotalGEX += row.CallGEX + row.PutGEX
		result.Strikes = append(result.Strikes, row)
	}

	result.ZeroGamma = findZeroGamma(strikes, currentPrice, daysToExpiry, impliedVol)
	if result.TotalGEX >= 0 {
		result.Regime = models.RegimeMeanReverting
	} else {
		result.Regime = models.RegimeTrending
	}
	return result
}

// totalGexAt recomputes total signed exposure pricing the same chain at
// a hypothetical spot.
func totalGexAt(strikes []models.StrikeRow, spot float64, daysToExpiry int, impliedVol float64) float64 {
	var total float64
	for _, s := range strikes {
		gamma := bsGamma(spot, s.Strike, daysToExpiry, impliedVol)
		total += gamma * float64(s.CallOI) * spot * ContractMultiplier
		total -= gamma * float64(s.PutOI) * spot * ContractMultiplier
	}
	return total
}

// findZeroGamma scans a +-10% window around spot in fixed steps and
// returns the candidate with the smallest absolute total exposure. An
// approximate root-find, not exact.
func findZeroGamma(strikes []models.StrikeRow, currentPrice float64, daysToExpiry int, impliedVol float64) float64 {
	low := currentPrice * (1 - zeroGammaWindowPct)
	step := currentPrice * 2 * zeroGammaWindowPct / zeroGammaSteps

	best := currentPrice
	bestAbs := math.Inf(1)
	for i := 0; i <= zeroGammaSteps && i < zeroGammaMaxIters; i++ {
		candidate := low + float64(i)*step
		if abs := math.Abs(totalGexAt(strikes, candidate, daysToExpiry, impliedVol)); abs < bestAbs {
			bestAbs = abs
			best = candidate
		}
	}
	return best
}

// bsGamma is the Black-Scholes gamma of a strike. Time to expiry is
// floored at 0.001 years so same-day chains never divide by zero.
func bsGamma(spot, strike float64, daysToExpiry int, impliedVol float64) float64 {
	if spot <= 0 || strike <= 0 {
		return 0
	}
	t := math.Max(float64(daysToExpiry)/365, 0.001)
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(spot/strike) + (RiskFreeRate+impliedVol*impliedVol/2)*t) / (impliedVol * sqrtT)
	return normPDF(d1) / (spot * impliedVol * sqrtT)
}

func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
