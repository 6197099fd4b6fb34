package repository

import (
	"context"
	"fmt"

	"sentinel/models"
	"sentinel/observability"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateCandidate records a scored candidate against the cycle that
// produced it.
func (r *Repository) CreateCandidate(ctx context.Context, cycleID uuid.UUID, c *models.Candidate) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "candidates")

	_, err := r.db.Exec(ctx, `
		INSERT INTO candidates (id, cycle_id, ticker, action, conviction_score, scale_max,
			entry_price, stop_loss_price, target_price, sector, sell_quantity,
			research_score, sentiment_score, technical_score, confidence, reasoning, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, c.ID, cycleID, c.Ticker, c.Action, c.ConvictionScore, c.ScaleMax,
		c.EntryPrice, c.StopLossPrice, c.TargetPrice, c.Sector, c.SellQuantity,
		c.ResearchScore, c.SentimentScore, c.TechnicalScore, c.Confidence, c.Reasoning, c.CreatedAt)

	if err != nil {
		metrics.RecordDBError("insert", "candidates")
		return fmt.Errorf("failed to create candidate: %w", err)
	}

	return nil
}

// GetCandidatesByCycle returns every candidate scored in a cycle, highest
// conviction first.
func (r *Repository) GetCandidatesByCycle(ctx context.Context, cycleID uuid.UUID) ([]models.Candidate, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "candidates")

	rows, err := r.db.Query(ctx, `
		SELECT id, ticker, action, conviction_score, scale_max,
			   entry_price, stop_loss_price, target_price, sector, sell_quantity,
			   research_score, sentiment_score, technical_score, confidence, reasoning, created_at
		FROM candidates
		WHERE cycle_id = $1
		ORDER BY conviction_score DESC
	`, cycleID)
	if err != nil {
		metrics.RecordDBError("select", "candidates")
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			metrics.RecordDBError("select", "candidates")
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, *c)
	}

	return candidates, nil
}

func scanCandidate(row pgx.Row) (*models.Candidate, error) {
	var c models.Candidate
	err := row.Scan(&c.ID, &c.Ticker, &c.Action, &c.ConvictionScore, &c.ScaleMax,
		&c.EntryPrice, &c.StopLossPrice, &c.TargetPrice, &c.Sector, &c.SellQuantity,
		&c.ResearchScore, &c.SentimentScore, &c.TechnicalScore, &c.Confidence, &c.Reasoning, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
