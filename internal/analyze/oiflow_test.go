package analyze

import (
	"testing"

	"github.com/tarasov-md/GoldSignals/models"
)

// Exhaustive table over (OI direction x flow dominance).
func TestAnalyzeOIFlowDecisionTable(t *testing.T) {
	tests := []struct {
		name          string
		current       []models.StrikeRow
		previous      []models.StrikeRow
		wantSentiment string
		wantDetail    string
	}{
		{
			name:          "increasing OI, call dominant: new longs",
			previous:      []models.StrikeRow{{Strike: 2700, CallOI: 1000, PutOI: 1000}},
			current:       []models.StrikeRow{{Strike: 2700, CallOI: 1800, PutOI: 1200}},
			wantSentiment: models.SentimentBullish,
			wantDetail:    FlowNewLongs,
		},
		{
			name:          "increasing OI, put dominant: new shorts",
			previous:      []models.StrikeRow{{Strike: 2700, CallOI: 1000, PutOI: 1000}},
			current:       []models.StrikeRow{{Strike: 2700, CallOI: 1200, PutOI: 1800}},
			wantSentiment: models.SentimentBearish,
			wantDetail:    FlowNewShorts,
		},
		{
			name:          "decreasing OI, call dominant: short covering",
			previous:      []models.StrikeRow{{Strike: 2700, CallOI: 1000, PutOI: 1000}},
			current:       []models.StrikeRow{{Strike: 2700, CallOI: 900, PutOI: 300}},
			wantSentiment: models.SentimentReversal,
			wantDetail:    FlowShortCovering,
		},
		{
			name:          "decreasing OI, put dominant: long liquidation",
			previous:      []models.StrikeRow{{Strike: 2700, CallOI: 1000, PutOI: 1000}},
			current:       []models.StrikeRow{{Strike: 2700, CallOI: 300, PutOI: 900}},
			wantSentiment: models.SentimentReversal,
			wantDetail:    FlowLongLiquidation,
		},
		{
			name:          "no change: neutral",
			previous:      []models.StrikeRow{{Strike: 2700, CallOI: 1000, PutOI: 1000}},
			current:       []models.StrikeRow{{Strike: 2700, CallOI: 1000, PutOI: 1000}},
			wantSentiment: models.SentimentNeutral,
			wantDetail:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeOIFlow(tt.current, tt.previous)
			if got.Sentiment != tt.wantSentiment {
				t.Errorf("AnalyzeOIFlow() sentiment = %v, want %v", got.Sentiment, tt.wantSentiment)
			}
			if got.Detail != tt.wantDetail {
				t.Errorf("AnalyzeOIFlow() detail = %q, want %q", got.Detail, tt.wantDetail)
			}
		})
	}
}

func TestAnalyzeOIFlowUnmatchedStrikes(t *testing.T) {
	previous := []models.StrikeRow{
		{Strike: 2650, CallOI: 500, PutOI: 100},
	}
	current := []models.StrikeRow{
		{Strike: 2700, CallOI: 800, PutOI: 200}, // brand new strike
	}

	got := AnalyzeOIFlow(current, previous)
	// New strike counts in full, vanished strike unwinds in full.
	if got.TotalCallChange != 300 {
		t.Errorf("TotalCallChange = %d, want 300", got.TotalCallChange)
	}
	if got.TotalPutChange != 100 {
		t.Errorf("TotalPutChange = %d, want 100", got.TotalPutChange)
	}
	if got.Sentiment != models.SentimentBullish {
		t.Errorf("sentiment = %v, want BULLISH", got.Sentiment)
	}
}

func TestAnalyzeATMBuildup(t *testing.T) {
	previous := []models.StrikeRow{
		{Strike: 2690, CallOI: 100, PutOI: 100},
		{Strike: 3200, CallOI: 100, PutOI: 100},
	}
	current := []models.StrikeRow{
		{Strike: 2690, CallOI: 900, PutOI: 150}, // inside the band, call buildup
		{Strike: 3200, CallOI: 100, PutOI: 9000},
	}

	got := AnalyzeATMBuildup(current, previous, 2700, 5)
	if got.Sentiment != models.SentimentBullish {
		t.Errorf("ATM buildup sentiment = %v, want BULLISH (far strikes excluded)", got.Sentiment)
	}

	// Empty band classifies NEUTRAL rather than erroring.
	empty := AnalyzeATMBuildup(current, previous, 5000, 1)
	if empty.Sentiment != models.SentimentNeutral {
		t.Errorf("empty band sentiment = %v, want NEUTRAL", empty.Sentiment)
	}
}
