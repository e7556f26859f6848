package analyze

import (
	"testing"

	"github.com/tarasov-md/GoldSignals/models"
)

func TestAnalyzePCR(t *testing.T) {
	tests := []struct {
		name          string
		strikes       []models.StrikeRow
		wantRatio     float64
		wantSentiment string
	}{
		{
			name:          "empty chain",
			strikes:       nil,
			wantRatio:     0,
			wantSentiment: models.SentimentNeutral,
		},
		{
			name: "zero call OI never divides",
			strikes: []models.StrikeRow{
				{Strike: 2700, PutOI: 500},
				{Strike: 2750, PutOI: 300},
			},
			wantRatio:     0,
			wantSentiment: models.SentimentNeutral,
		},
		{
			name: "call heavy chain is bullish",
			strikes: []models.StrikeRow{
				{Strike: 2700, CallOI: 1000, PutOI: 400},
				{Strike: 2750, CallOI: 1000, PutOI: 200},
			},
			wantRatio:     0.3,
			wantSentiment: models.SentimentBullish,
		},
		{
			name: "put heavy chain is bearish",
			strikes: []models.StrikeRow{
				{Strike: 2700, CallOI: 400, PutOI: 900},
			},
			wantRatio:     2.25,
			wantSentiment: models.SentimentBearish,
		},
		{
			name: "balanced chain is neutral",
			strikes: []models.StrikeRow{
				{Strike: 2700, CallOI: 1000, PutOI: 800},
			},
			wantRatio:     0.8,
			wantSentiment: models.SentimentNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzePCR(tt.strikes, DefaultOIPCRThresholds)
			if got.Ratio != tt.wantRatio {
				t.Errorf("AnalyzePCR() ratio = %v, want %v", got.Ratio, tt.wantRatio)
			}
			if got.Sentiment != tt.wantSentiment {
				t.Errorf("AnalyzePCR() sentiment = %v, want %v", got.Sentiment, tt.wantSentiment)
			}
		})
	}
}

// Adding put OI while call OI is fixed must never decrease the ratio,
// and the ratio is 0 exactly when total call OI is 0.
func TestAnalyzePCRMonotonicity(t *testing.T) {
	strikes := []models.StrikeRow{
		{Strike: 2650, CallOI: 800, PutOI: 100},
		{Strike: 2700, CallOI: 600, PutOI: 300},
		{Strike: 2750, CallOI: 400, PutOI: 200},
	}
	prev := AnalyzePCR(strikes, DefaultOIPCRThresholds).Ratio
	for step := 0; step < 10; step++ {
		strikes[step%len(strikes)].PutOI += 150
		got := AnalyzePCR(strikes, DefaultOIPCRThresholds).Ratio
		if got < prev {
			t.Fatalf("ratio decreased from %v to %v after adding put OI", prev, got)
		}
		prev = got
	}

	noCalls := []models.StrikeRow{{Strike: 2700, PutOI: 10000}}
	if got := AnalyzePCR(noCalls, DefaultOIPCRThresholds); got.Ratio != 0 {
		t.Errorf("ratio = %v with zero call OI, want 0", got.Ratio)
	}
}

func TestAnalyzeATMPCR(t *testing.T) {
	strikes := []models.StrikeRow{
		{Strike: 2000, CallOI: 10, PutOI: 5000}, // far OTM put wall, outside the band
		{Strike: 2690, CallOI: 500, PutOI: 200},
		{Strike: 2710, CallOI: 500, PutOI: 200},
		{Strike: 3400, CallOI: 5000, PutOI: 10}, // far OTM call wall, outside the band
	}

	got := AnalyzeATMPCR(strikes, 2700, 5, DefaultOIPCRThresholds)
	if got.Ratio != 0.4 {
		t.Errorf("ATM ratio = %v, want 0.4", got.Ratio)
	}
	if got.Sentiment != models.SentimentBullish {
		t.Errorf("ATM sentiment = %v, want BULLISH", got.Sentiment)
	}

	// Band with no strikes in it: ratio 0, NEUTRAL, no panic.
	empty := AnalyzeATMPCR(strikes, 5000, 1, DefaultOIPCRThresholds)
	if empty.Ratio != 0 || empty.Sentiment != models.SentimentNeutral {
		t.Errorf("empty band = %+v, want ratio 0 NEUTRAL", empty)
	}
}

func TestAnalyzeVolumePCRUsesWiderBands(t *testing.T) {
	// Ratio 0.75 is NEUTRAL on the OI bands (0.7/1.0) but BULLISH on the
	// wider volume bands (0.8/1.2).
	strikes := []models.StrikeRow{
		{Strike: 2700, CallVolume: 400, PutVolume: 300},
	}
	got := AnalyzeVolumePCR(strikes, DefaultVolumePCRThresholds)
	if got.Sentiment != models.SentimentBullish {
		t.Errorf("volume sentiment = %v, want BULLISH at ratio %.2f", got.Sentiment, got.Ratio)
	}

	bearish := []models.StrikeRow{{Strike: 2700, CallVolume: 100, PutVolume: 125}}
	if got := AnalyzeVolumePCR(bearish, DefaultVolumePCRThresholds); got.Sentiment != models.SentimentBearish {
		t.Errorf("volume sentiment = %v, want BEARISH at ratio %.2f", got.Sentiment, got.Ratio)
	}
}
