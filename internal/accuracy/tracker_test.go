package accuracy

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/tarasov-md/GoldSignals/models"
)

type memoryStore struct {
	nextID      int64
	predictions map[int64]*models.Prediction
	stats       map[string]*models.AccuracyStats
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		predictions: make(map[int64]*models.Prediction),
		stats:       make(map[string]*models.AccuracyStats),
	}
}

func (s *memoryStore) SavePrediction(_ context.Context, p *models.Prediction) (int64, error) {
	s.nextID++
	cp := *p
	cp.ID = s.nextID
	if cp.Outcome == "" {
		cp.Outcome = models.OutcomePending
	}
	s.predictions[cp.ID] = &cp
	return cp.ID, nil
}

func (s *memoryStore) FindPending(_ context.Context, expiredBefore time.Time) ([]models.Prediction, error) {
	var out []models.Prediction
	for _, p := range s.predictions {
		if p.Outcome == models.OutcomePending && p.ExpiresAt.Before(expiredBefore) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) ResolvePrediction(_ context.Context, id int64, outcome string, price float64) (bool, error) {
	p, ok := s.predictions[id]
	if !ok || p.Outcome != models.OutcomePending {
		return false, nil
	}
	now := time.Now().UTC()
	p.Outcome = outcome
	p.ResolvedPrice = price
	p.ResolvedAt = &now
	return true, nil
}

func (s *memoryStore) ListByProvider(_ context.Context, provider string) ([]models.Prediction, error) {
	var out []models.Prediction
	for _, p := range s.predictions {
		if p.Provider == provider {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) Providers(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for _, p := range s.predictions {
		seen[p.Provider] = true
	}
	var out []string
	for provider := range seen {
		out = append(out, provider)
	}
	sort.Strings(out)
	return out, nil
}

func (s *memoryStore) UpsertStats(_ context.Context, stats *models.AccuracyStats) error {
	cp := *stats
	s.stats[stats.Provider] = &cp
	return nil
}

func (s *memoryStore) GetStats(_ context.Context, provider string) (*models.AccuracyStats, error) {
	stats, ok := s.stats[provider]
	if !ok {
		return nil, nil
	}
	cp := *stats
	return &cp, nil
}

func expiredPrediction(provider, rec string, sl float64, tps []float64) *models.Prediction {
	return &models.Prediction{
		Provider:       provider,
		Product:        "GC",
		Recommendation: rec,
		Confidence:     70,
		StopLoss:       sl,
		TakeProfits:    tps,
		CreatedAt:      time.Now().UTC().Add(-25 * time.Hour),
		ExpiresAt:      time.Now().UTC().Add(-time.Hour),
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		name  string
		rec   string
		sl    float64
		tps   []float64
		price float64
		want  string
	}{
		{"buy hits tp1", models.SignalBuy, 2650, []float64{2750, 2800}, 2760, models.OutcomeWin},
		{"buy at tp1 exactly", models.SignalStrongBuy, 2650, []float64{2750}, 2750, models.OutcomeWin},
		{"buy hits stop", models.SignalBuy, 2650, []float64{2750}, 2640, models.OutcomeLoss},
		{"buy drifts between", models.SignalBuy, 2650, []float64{2750}, 2700, models.OutcomeBreakeven},
		{"sell hits tp1", models.SignalSell, 2750, []float64{2650}, 2640, models.OutcomeWin},
		{"sell hits stop", models.SignalStrongSell, 2750, []float64{2650}, 2760, models.OutcomeLoss},
		{"sell drifts between", models.SignalSell, 2750, []float64{2650}, 2700, models.OutcomeBreakeven},
		{"neutral always breakeven", models.SignalNeutral, 2650, []float64{2750}, 2800, models.OutcomeBreakeven},
		{"buy without targets", models.SignalBuy, 2650, nil, 2900, models.OutcomeBreakeven},
		{"buy without stop never loses to zero", models.SignalBuy, 0, []float64{2750}, 2500, models.OutcomeBreakeven},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := expiredPrediction("openai", tt.rec, tt.sl, tt.tps)
			if got := Grade(p, tt.price); got != tt.want {
				t.Errorf("Grade(%s @ %.0f) = %v, want %v", tt.rec, tt.price, got, tt.want)
			}
		})
	}
}

func TestEvaluatePending(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()

	store.SavePrediction(ctx, expiredPrediction("openai", models.SignalBuy, 2650, []float64{2750}))
	store.SavePrediction(ctx, expiredPrediction("openai", models.SignalSell, 2850, []float64{2700}))
	store.SavePrediction(ctx, expiredPrediction("gemini", models.SignalNeutral, 0, nil))

	// Not yet expired: must stay pending.
	fresh := expiredPrediction("openai", models.SignalBuy, 2650, []float64{2750})
	fresh.ExpiresAt = time.Now().UTC().Add(time.Hour)
	freshID, _ := store.SavePrediction(ctx, fresh)

	tracker := NewTracker(store)
	summary, err := tracker.EvaluatePending(ctx, 2760)
	if err != nil {
		t.Fatalf("EvaluatePending() error = %v", err)
	}

	if summary.Evaluated != 3 {
		t.Errorf("Evaluated = %d, want 3", summary.Evaluated)
	}
	if summary.Wins != 1 {
		t.Errorf("Wins = %d, want 1 (the buy)", summary.Wins)
	}
	// The sell neither reached 2700 nor rose to 2850: breakeven, plus the neutral.
	if summary.Breakevens != 2 {
		t.Errorf("Breakevens = %d, want 2", summary.Breakevens)
	}
	if store.predictions[freshID].Outcome != models.OutcomePending {
		t.Error("unexpired prediction was resolved")
	}

	stats, _ := store.GetStats(ctx, "openai")
	if stats == nil {
		t.Fatal("stats for openai were not recomputed")
	}
	if stats.TotalPredictions != 3 || stats.Wins != 1 {
		t.Errorf("openai stats = %d total / %d wins, want 3/1", stats.TotalPredictions, stats.Wins)
	}
}

func TestEvaluatePendingIsIdempotent(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	store.SavePrediction(ctx, expiredPrediction("openai", models.SignalBuy, 2650, []float64{2750}))

	tracker := NewTracker(store)
	first, err := tracker.EvaluatePending(ctx, 2800)
	if err != nil {
		t.Fatalf("first sweep error = %v", err)
	}
	if first.Evaluated != 1 {
		t.Fatalf("first sweep Evaluated = %d, want 1", first.Evaluated)
	}

	second, err := tracker.EvaluatePending(ctx, 2500)
	if err != nil {
		t.Fatalf("second sweep error = %v", err)
	}
	if second.Evaluated != 0 {
		t.Errorf("second sweep Evaluated = %d, want 0", second.Evaluated)
	}

	// The first resolution stands even though the second price would
	// have graded it a loss.
	history, _ := store.ListByProvider(ctx, "openai")
	if history[0].Outcome != models.OutcomeWin {
		t.Errorf("Outcome = %v, want the original WIN preserved", history[0].Outcome)
	}
}

func TestBestProviderRequiresHistory(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	tracker := NewTracker(store)

	// Nobody registered at all.
	best, err := tracker.BestProvider(ctx)
	if err != nil {
		t.Fatalf("BestProvider() error = %v", err)
	}
	if best != "consensus" {
		t.Errorf("BestProvider() = %v, want consensus fallback", best)
	}

	// Thin history stays below the sample threshold.
	for i := 0; i < 5; i++ {
		store.SavePrediction(ctx, expiredPrediction("openai", models.SignalBuy, 2650, []float64{2750}))
	}
	if _, err := tracker.EvaluatePending(ctx, 2800); err != nil {
		t.Fatalf("EvaluatePending() error = %v", err)
	}
	best, _ = tracker.BestProvider(ctx)
	if best != "consensus" {
		t.Errorf("BestProvider() with 5 resolved = %v, want consensus", best)
	}
}

func TestBestProviderPicksHighestWinRate(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	tracker := NewTracker(store)

	// openai: 10 resolved, 8 wins. deepseek: 10 resolved, 4 wins.
	for i := 0; i < 8; i++ {
		store.SavePrediction(ctx, expiredPrediction("openai", models.SignalBuy, 2650, []float64{2750}))
	}
	for i := 0; i < 2; i++ {
		store.SavePrediction(ctx, expiredPrediction("openai", models.SignalSell, 2700, []float64{2600}))
	}
	for i := 0; i < 4; i++ {
		store.SavePrediction(ctx, expiredPrediction("deepseek", models.SignalBuy, 2650, []float64{2750}))
	}
	for i := 0; i < 6; i++ {
		store.SavePrediction(ctx, expiredPrediction("deepseek", models.SignalSell, 2700, []float64{2600}))
	}

	// Price 2800: every BUY wins, every SELL loses.
	if _, err := tracker.EvaluatePending(ctx, 2800); err != nil {
		t.Fatalf("EvaluatePending() error = %v", err)
	}

	best, err := tracker.BestProvider(ctx)
	if err != nil {
		t.Fatalf("BestProvider() error = %v", err)
	}
	if best != "openai" {
		t.Errorf("BestProvider() = %v, want openai", best)
	}
}

func TestComputeStatsRates(t *testing.T) {
	now := time.Now().UTC()
	recent := now.Add(-time.Hour)
	old := now.Add(-10 * 24 * time.Hour)

	history := []models.Prediction{
		{Recommendation: models.SignalBuy, Confidence: 80, Outcome: models.OutcomeWin,
			TakeProfits: []float64{2750, 2800}, ResolvedPrice: 2810, ResolvedAt: &recent},
		{Recommendation: models.SignalBuy, Confidence: 60, Outcome: models.OutcomeLoss,
			TakeProfits: []float64{2750}, StopLoss: 2650, ResolvedPrice: 2640, ResolvedAt: &old},
		{Recommendation: models.SignalSell, Confidence: 70, Outcome: models.OutcomeWin,
			TakeProfits: []float64{2600}, ResolvedPrice: 2590, ResolvedAt: &recent},
		{Recommendation: models.SignalNeutral, Confidence: 50, Outcome: models.OutcomeBreakeven,
			ResolvedAt: &recent},
		{Recommendation: models.SignalBuy, Confidence: 40, Outcome: models.OutcomePending},
	}

	stats := computeStats("openai", history, now)

	if stats.TotalPredictions != 5 {
		t.Errorf("TotalPredictions = %d, want 5 (pending included in the count)", stats.TotalPredictions)
	}
	if stats.Wins != 2 || stats.Losses != 1 || stats.Breakevens != 1 {
		t.Errorf("W/L/B = %d/%d/%d, want 2/1/1", stats.Wins, stats.Losses, stats.Breakevens)
	}
	if stats.WinRate != 0.5 {
		t.Errorf("WinRate = %v, want 0.5 (2 of 4 resolved)", stats.WinRate)
	}
	if stats.BuyAccuracy != 0.5 {
		t.Errorf("BuyAccuracy = %v, want 0.5", stats.BuyAccuracy)
	}
	if stats.SellAccuracy != 1.0 {
		t.Errorf("SellAccuracy = %v, want 1.0", stats.SellAccuracy)
	}
	// 3 directional resolved; tp1 reached by both wins, tp2 only by the
	// first (2810 >= 2800).
	if want := 2.0 / 3.0; stats.TP1HitRate != want {
		t.Errorf("TP1HitRate = %v, want %v", stats.TP1HitRate, want)
	}
	if want := 1.0 / 3.0; stats.TP2HitRate != want {
		t.Errorf("TP2HitRate = %v, want %v", stats.TP2HitRate, want)
	}
	if want := 1.0 / 3.0; stats.SLHitRate != want {
		t.Errorf("SLHitRate = %v, want %v", stats.SLHitRate, want)
	}
	// Within 7 days: win, win, breakeven resolved.
	if want := 2.0 / 3.0; stats.WinRate7d != want {
		t.Errorf("WinRate7d = %v, want %v", stats.WinRate7d, want)
	}
	if stats.WinRate30d != 0.5 {
		t.Errorf("WinRate30d = %v, want 0.5", stats.WinRate30d)
	}
	if want := (80 + 60 + 70 + 50 + 40) / 5.0; stats.AvgConfidence != want {
		t.Errorf("AvgConfidence = %v, want %v", stats.AvgConfidence, want)
	}
}
