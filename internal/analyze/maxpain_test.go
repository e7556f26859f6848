package analyze

import (
	"testing"

	"github.com/tarasov-md/GoldSignals/models"
)

func TestCalculateMaxPain(t *testing.T) {
	tests := []struct {
		name         string
		strikes      []models.StrikeRow
		currentPrice float64
		wantStrike   float64
		wantTilt     string
	}{
		{
			name: "all OI concentrated at one strike pins max pain there",
			strikes: []models.StrikeRow{
				{Strike: 2650},
				{Strike: 2700, CallOI: 5000, PutOI: 5000},
				{Strike: 2750},
			},
			currentPrice: 2700,
			wantStrike:   2700,
			wantTilt:     models.SentimentNeutral,
		},
		{
			name: "heavy put OI pulls max pain above spot",
			strikes: []models.StrikeRow{
				{Strike: 2650, CallOI: 100, PutOI: 100},
				{Strike: 2700, CallOI: 100, PutOI: 4000},
				{Strike: 2750, CallOI: 100, PutOI: 4000},
			},
			currentPrice: 2650,
			wantStrike:   2750,
			wantTilt:     models.SentimentBullish,
		},
		{
			name: "heavy call OI pushes max pain below spot",
			strikes: []models.StrikeRow{
				{Strike: 2650, CallOI: 4000, PutOI: 100},
				{Strike: 2700, CallOI: 4000, PutOI: 100},
				{Strike: 2750, CallOI: 100, PutOI: 100},
			},
			currentPrice: 2750,
			wantStrike:   2650,
			wantTilt:     models.SentimentBearish,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateMaxPain(tt.strikes, tt.currentPrice, DefaultMaxPainTolerancePct)
			if got.Strike != tt.wantStrike {
				t.Errorf("CalculateMaxPain() strike = %v, want %v", got.Strike, tt.wantStrike)
			}
			if got.Tilt != tt.wantTilt {
				t.Errorf("CalculateMaxPain() tilt = %v, want %v", got.Tilt, tt.wantTilt)
			}
		})
	}
}

// Equal-payout candidates resolve to the strike closest to spot; an
// exact distance tie resolves to the lower strike.
func TestCalculateMaxPainTieBreak(t *testing.T) {
	// Symmetric chain: strikes 2600 and 2800 carry mirrored OI, so both
	// produce the same writer payout.
	strikes := []models.StrikeRow{
		{Strike: 2600, CallOI: 1000, PutOI: 1000},
		{Strike: 2800, CallOI: 1000, PutOI: 1000},
	}

	if got := CalculateMaxPain(strikes, 2630, DefaultMaxPainTolerancePct); got.Strike != 2600 {
		t.Errorf("tie near 2600: strike = %v, want 2600", got.Strike)
	}
	if got := CalculateMaxPain(strikes, 2770, DefaultMaxPainTolerancePct); got.Strike != 2800 {
		t.Errorf("tie near 2800: strike = %v, want 2800", got.Strike)
	}
	// Equidistant: lower strike wins.
	if got := CalculateMaxPain(strikes, 2700, DefaultMaxPainTolerancePct); got.Strike != 2600 {
		t.Errorf("equidistant tie: strike = %v, want 2600", got.Strike)
	}
}

func TestCalculateMaxPainDegenerate(t *testing.T) {
	if got := CalculateMaxPain(nil, 2700, DefaultMaxPainTolerancePct); got.Tilt != models.SentimentNeutral {
		t.Errorf("empty chain tilt = %v, want NEUTRAL", got.Tilt)
	}
	strikes := []models.StrikeRow{{Strike: 2700, CallOI: 10, PutOI: 10}}
	if got := CalculateMaxPain(strikes, 0, DefaultMaxPainTolerancePct); got.Tilt != models.SentimentNeutral {
		t.Errorf("zero price tilt = %v, want NEUTRAL", got.Tilt)
	}
}
