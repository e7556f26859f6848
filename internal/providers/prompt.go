package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tarasov-md/GoldSignals/models"
)

// SystemPrompt frames every provider call. All providers share the same
// instructions so that their answers differ only by model, not by
// prompt wording.
const SystemPrompt = `You are a precious-metals derivatives analyst. You are given a condensed
options-chain summary for gold futures. Respond with a single JSON object
and nothing else, using exactly these keys:
{
  "recommendation": "STRONG_BUY" | "BUY" | "NEUTRAL" | "SELL" | "STRONG_SELL",
  "confidence": <number 0-100>,
  "entryLow": <number>,
  "entryHigh": <number>,
  "stopLoss": <number>,
  "takeProfits": [<up to three numbers>],
  "rationale": "<1-3 sentences>",
  "warnings": ["<optional short risk notes>"]
}`

// BuildPrompt renders the user message for a market summary.
func BuildPrompt(summary models.MarketSummary) string {
	var sb strings.Builder
	sb.WriteString("Current gold options positioning:\n\n")
	sb.WriteString(summary.Text())
	sb.WriteString("\n\nGive your trade recommendation as the JSON object described above.")
	return sb.String()
}

// ParsePrediction decodes a provider's raw completion into a structured
// prediction. Models wrap JSON in markdown fences often enough that the
// fences are stripped before decoding.
func ParsePrediction(raw string) (*models.ProviderPrediction, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("empty completion")
	}

	var p models.ProviderPrediction
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return nil, fmt.Errorf("parsing prediction JSON: %w", err)
	}

	if _, err := models.RecommendationScore(p.Recommendation); err != nil {
		return nil, err
	}
	if p.Confidence < 0 || p.Confidence > 100 {
		return nil, fmt.Errorf("confidence %.1f out of range", p.Confidence)
	}
	if len(p.TakeProfits) > 3 {
		p.TakeProfits = p.TakeProfits[:3]
	}
	return &p, nil
}

// stripFences removes a surrounding markdown code fence, if any, and
// trims whitespace around the payload.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
