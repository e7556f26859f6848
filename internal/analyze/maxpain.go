package analyze

import (
	"math"

	"github.com/tarasov-md/GoldSignals/models"
)

// DefaultMaxPainTolerancePct is the band (percent of spot) inside which
// the max-pain strike is considered on top of the price and the tilt
// stays NEUTRAL.
const DefaultMaxPainTolerancePct = 0.5

// CalculateMaxPain finds the listed strike that minimizes total option
// writer payout if the underlying settles there. When several strikes
// share the minimum, the one closest to the current price wins; an exact
// distance tie goes to the lower strike.
func CalculateMaxPain(strikes []models.StrikeRow, currentPrice, tolerancePct float64) models.MaxPainResult {
	if len(strikes) == 0 || currentPrice <= 0 {
		return models.MaxPainResult{Tilt: models.SentimentNeutral}
	}

	best := models.MaxPainResult{Tilt: models.SentimentNeutral}
	haveBest := false
	for _, candidate := range strikes {
		payout := writerPayoutAt(strikes, candidate.Strike)
		if !haveBest || payout < best.TotalPayout ||
			(payout == best.TotalPayout && closerToPrice(candidate.Strike, best.Strike, currentPrice)) {
			best.Strike = candidate.Strike
			best.TotalPayout = payout
			haveBest = true
		}
	}

	best.Distance = best.Strike - currentPrice
	best.DistancePct = best.Distance / currentPrice * 100

	// Max pain above spot suggests pinning pressure upward, below spot
	// downward; inside the tolerance band it carries no tilt.
	switch {
	case best.DistancePct > tolerancePct:
		best.Tilt = models.SentimentBullish
	case best.DistancePct < -tolerancePct:
		best.Tilt = models.SentimentBearish
	}
	return best
}

// writerPayoutAt is the aggregate amount option writers pay out if the
// underlying settles at settle: call writers lose above their strike,
// put writers below theirs.
func writerPayoutAt(strikes []models.StrikeRow, settle float64) float64 {
	var total float64
	for _, s := range strikes {
		if settle > s.Strike {
			total += float64(s.CallOI) * (settle - s.Strike)
		}
		if s.Strike > settle {
			total += float64(s.PutOI) * (s.Strike - settle)
		}
	}
	return total
}

func closerToPrice(candidate, incumbent, price float64) bool {
	dc := math.Abs(candidate - price)
	di := math.Abs(incumbent - price)
	if dc != di {
		return dc < di
	}
	return candidate < incumbent
}
