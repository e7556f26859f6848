package analyze

import (
	"sort"

	"github.com/tarasov-md/GoldSignals/models"
)

const topLevels = 3

// FindKeyLevels ranks strikes by raw open-interest magnitude: the three
// heaviest put strikes become support, the three heaviest call strikes
// resistance. No smoothing or clustering, levels are recomputed on every
// call.
func FindKeyLevels(strikes []models.StrikeRow) models.KeyLevels {
	return models.KeyLevels{
		Support:    rankByOI(strikes, func(s models.StrikeRow) int64 { return s.PutOI }),
		Resistance: rankByOI(strikes, func(s models.StrikeRow) int64 { return s.CallOI }),
	}
}

func rankByOI(strikes []models.StrikeRow, oi func(models.StrikeRow) int64) []models.KeyLevel {
	ranked := make([]models.StrikeRow, 0, len(strikes))
	for _, s := range strikes {
		if oi(s) > 0 {
			ranked = append(ranked, s)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return oi(ranked[i]) > oi(ranked[j])
	})

	n := len(ranked)
	if n > topLevels {
		n = topLevels
	}
	levels := make([]models.KeyLevel, 0, n)
	for i := 0; i < n; i++ {
		levels = append(levels, models.KeyLevel{
			Strike:   ranked[i].Strike,
			OI:       oi(ranked[i]),
			Strength: topLevels - i,
		})
	}
	return levels
}
