package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/tarasov-md/GoldSignals/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Check connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id BIGSERIAL PRIMARY KEY,
			product TEXT NOT NULL,
			expiry TEXT NOT NULL,
			current_price DOUBLE PRECISION NOT NULL,
			captured_at TIMESTAMPTZ NOT NULL,
			strikes JSONB NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_snapshots_product_captured
		ON snapshots (product, captured_at DESC)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS predictions (
			id BIGSERIAL PRIMARY KEY,
			provider TEXT NOT NULL,
			product TEXT NOT NULL,
			recommendation TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			entry_low DOUBLE PRECISION NOT NULL DEFAULT 0,
			entry_high DOUBLE PRECISION NOT NULL DEFAULT 0,
			stop_loss DOUBLE PRECISION NOT NULL DEFAULT 0,
			take_profits JSONB NOT NULL DEFAULT '[]',
			price_at_time DOUBLE PRECISION NOT NULL DEFAULT 0,
			outcome TEXT NOT NULL DEFAULT 'PENDING',
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			resolved_at TIMESTAMPTZ,
			resolved_price DOUBLE PRECISION
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_predictions_outcome_expires
		ON predictions (outcome, expires_at)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS accuracy_stats (
			provider TEXT PRIMARY KEY,
			total_predictions INT NOT NULL,
			wins INT NOT NULL,
			losses INT NOT NULL,
			breakevens INT NOT NULL,
			win_rate DOUBLE PRECISION NOT NULL,
			buy_accuracy DOUBLE PRECISION NOT NULL,
			sell_accuracy DOUBLE PRECISION NOT NULL,
			tp1_hit_rate DOUBLE PRECISION NOT NULL,
			tp2_hit_rate DOUBLE PRECISION NOT NULL,
			sl_hit_rate DOUBLE PRECISION NOT NULL,
			win_rate_7d DOUBLE PRECISION NOT NULL,
			win_rate_30d DOUBLE PRECISION NOT NULL,
			avg_confidence DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

// SaveSnapshot stores an option-chain snapshot and returns its id.
func (db *DB) SaveSnapshot(ctx context.Context, snap *models.MarketSnapshot) (int64, error) {
	strikes, err := json.Marshal(snap.Strikes)
	if err != nil {
		return 0, fmt.Errorf("marshal strikes: %w", err)
	}

	capturedAt := snap.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	var id int64
	err = db.QueryRowContext(ctx, `
		INSERT INTO snapshots (product, expiry, current_price, captured_at, strikes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, snap.Product, snap.Expiry, snap.CurrentPrice, capturedAt, strikes).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetLatestSnapshot returns the most recent snapshot for a product, or
// nil when none is stored yet.
func (db *DB) GetLatestSnapshot(ctx context.Context, product string) (*models.MarketSnapshot, error) {
	return db.scanSnapshot(db.QueryRowContext(ctx, `
		SELECT id, product, expiry, current_price, captured_at, strikes
		FROM snapshots
		WHERE product = $1
		ORDER BY captured_at DESC
		LIMIT 1
	`, product))
}

// GetPreviousSnapshot returns the newest snapshot captured strictly
// before the given time, or nil when there is none.
func (db *DB) GetPreviousSnapshot(ctx context.Context, product string, before time.Time) (*models.MarketSnapshot, error) {
	return db.scanSnapshot(db.QueryRowContext(ctx, `
		SELECT id, product, expiry, current_price, captured_at, strikes
		FROM snapshots
		WHERE product = $1 AND captured_at < $2
		ORDER BY captured_at DESC
		LIMIT 1
	`, product, before))
}

func (db *DB) scanSnapshot(row *sql.Row) (*models.MarketSnapshot, error) {
	var snap models.MarketSnapshot
	var strikes []byte

	err := row.Scan(&snap.ID, &snap.Product, &snap.Expiry, &snap.CurrentPrice, &snap.CapturedAt, &strikes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(strikes, &snap.Strikes); err != nil {
		return nil, fmt.Errorf("unmarshal strikes: %w", err)
	}
	return &snap, nil
}

// SavePrediction stores a prediction in the PENDING state.
func (db *DB) SavePrediction(ctx context.Context, p *models.Prediction) (int64, error) {
	takeProfits, err := json.Marshal(p.TakeProfits)
	if err != nil {
		return 0, fmt.Errorf("marshal take profits: %w", err)
	}

	var id int64
	err = db.QueryRowContext(ctx, `
		INSERT INTO predictions (
			provider, product, recommendation, confidence,
			entry_low, entry_high, stop_loss, take_profits,
			price_at_time, outcome, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		p.Provider, p.Product, p.Recommendation, p.Confidence,
		p.EntryLow, p.EntryHigh, p.StopLoss, takeProfits,
		p.PriceAtTime, models.OutcomePending, p.CreatedAt, p.ExpiresAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// FindPending returns PENDING predictions whose evaluation window has
// closed.
func (db *DB) FindPending(ctx context.Context, expiredBefore time.Time) ([]models.Prediction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, provider, product, recommendation, confidence,
		       entry_low, entry_high, stop_loss, take_profits,
		       price_at_time, outcome, created_at, expires_at,
		       resolved_at, resolved_price
		FROM predictions
		WHERE outcome = $1 AND expires_at < $2
		ORDER BY id
	`, models.OutcomePending, expiredBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPredictions(rows)
}

// ResolvePrediction flips one PENDING prediction to a terminal outcome.
// The outcome guard in the WHERE clause makes the operation a no-op on
// an already-resolved row, reported through the boolean.
func (db *DB) ResolvePrediction(ctx context.Context, id int64, outcome string, price float64) (bool, error) {
	result, err := db.ExecContext(ctx, `
		UPDATE predictions
		SET outcome = $1, resolved_price = $2, resolved_at = NOW()
		WHERE id = $3 AND outcome = $4
	`, outcome, price, id, models.OutcomePending)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ListByProvider returns a provider's full prediction history.
func (db *DB) ListByProvider(ctx context.Context, provider string) ([]models.Prediction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, provider, product, recommendation, confidence,
		       entry_low, entry_high, stop_loss, take_profits,
		       price_at_time, outcome, created_at, expires_at,
		       resolved_at, resolved_price
		FROM predictions
		WHERE provider = $1
		ORDER BY id
	`, provider)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPredictions(rows)
}

// Providers lists the distinct providers that have stored predictions.
func (db *DB) Providers(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT provider FROM predictions ORDER BY provider
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []string
	for rows.Next() {
		var provider string
		if err := rows.Scan(&provider); err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}
	return providers, rows.Err()
}

func scanPredictions(rows *sql.Rows) ([]models.Prediction, error) {
	var out []models.Prediction
	for rows.Next() {
		var p models.Prediction
		var takeProfits []byte
		var resolvedAt sql.NullTime
		var resolvedPrice sql.NullFloat64

		err := rows.Scan(
			&p.ID, &p.Provider, &p.Product, &p.Recommendation, &p.Confidence,
			&p.EntryLow, &p.EntryHigh, &p.StopLoss, &takeProfits,
			&p.PriceAtTime, &p.Outcome, &p.CreatedAt, &p.ExpiresAt,
			&resolvedAt, &resolvedPrice,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(takeProfits, &p.TakeProfits); err != nil {
			return nil, fmt.Errorf("unmarshal take profits: %w", err)
		}
		if resolvedAt.Valid {
			t := resolvedAt.Time
			p.ResolvedAt = &t
		}
		if resolvedPrice.Valid {
			p.ResolvedPrice = resolvedPrice.Float64
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertStats writes a provider's accuracy rollup.
func (db *DB) UpsertStats(ctx context.Context, stats *models.AccuracyStats) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO accuracy_stats (
			provider, total_predictions, wins, losses, breakevens,
			win_rate, buy_accuracy, sell_accuracy,
			tp1_hit_rate, tp2_hit_rate, sl_hit_rate,
			win_rate_7d, win_rate_30d, avg_confidence, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (provider)
		DO UPDATE SET
			total_predictions = EXCLUDED.total_predictions,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			breakevens = EXCLUDED.breakevens,
			win_rate = EXCLUDED.win_rate,
			buy_accuracy = EXCLUDED.buy_accuracy,
			sell_accuracy = EXCLUDED.sell_accuracy,
			tp1_hit_rate = EXCLUDED.tp1_hit_rate,
			tp2_hit_rate = EXCLUDED.tp2_hit_rate,
			sl_hit_rate = EXCLUDED.sl_hit_rate,
			win_rate_7d = EXCLUDED.win_rate_7d,
			win_rate_30d = EXCLUDED.win_rate_30d,
			avg_confidence = EXCLUDED.avg_confidence,
			updated_at = EXCLUDED.updated_at
	`,
		stats.Provider, stats.TotalPredictions, stats.Wins, stats.Losses, stats.Breakevens,
		stats.WinRate, stats.BuyAccuracy, stats.SellAccuracy,
		stats.TP1HitRate, stats.TP2HitRate, stats.SLHitRate,
		stats.WinRate7d, stats.WinRate30d, stats.AvgConfidence, stats.UpdatedAt,
	)
	return err
}

// GetStats returns a provider's accuracy rollup, or nil when none has
// been computed yet.
func (db *DB) GetStats(ctx context.Context, provider string) (*models.AccuracyStats, error) {
	var stats models.AccuracyStats

	err := db.QueryRowContext(ctx, `
		SELECT provider, total_predictions, wins, losses, breakevens,
		       win_rate, buy_accuracy, sell_accuracy,
		       tp1_hit_rate, tp2_hit_rate, sl_hit_rate,
		       win_rate_7d, win_rate_30d, avg_confidence, updated_at
		FROM accuracy_stats
		WHERE provider = $1
	`, provider).Scan(
		&stats.Provider, &stats.TotalPredictions, &stats.Wins, &stats.Losses, &stats.Breakevens,
		&stats.WinRate, &stats.BuyAccuracy, &stats.SellAccuracy,
		&stats.TP1HitRate, &stats.TP2HitRate, &stats.SLHitRate,
		&stats.WinRate7d, &stats.WinRate30d, &stats.AvgConfidence, &stats.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &stats, nil
}
