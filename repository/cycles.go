package repository

import (
	"context"
	"fmt"

	"sentinel/models"
	"sentinel/observability"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateTradingCycle records a newly started cycle.
func (r *Repository) CreateTradingCycle(ctx context.Context, cycle *models.TradingCycle) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "trading_cycles")

	_, err := r.db.Exec(ctx, `
		INSERT INTO trading_cycles (id, status, candidate_count, order_count, rejected_count,
			total_allocated, error_message, duration_ms, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, cycle.ID, cycle.Status, cycle.CandidateCount, cycle.OrderCount, cycle.RejectedCount,
		cycle.TotalAllocated, cycle.ErrorMessage, cycle.DurationMs, cycle.StartedAt, cycle.CompletedAt)

	if err != nil {
		metrics.RecordDBError("insert", "trading_cycles")
		return fmt.Errorf("failed to create trading cycle: %w", err)
	}

	return nil
}

// UpdateTradingCycle writes the outcome of a completed or failed cycle.
func (r *Repository) UpdateTradingCycle(ctx context.Context, cycle *models.TradingCycle) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("update", "trading_cycles")

	_, err := r.db.Exec(ctx, `
		UPDATE trading_cycles
		SET status = $2, candidate_count = $3, order_count = $4, rejected_count = $5,
			total_allocated = $6, error_message = $7, duration_ms = $8, completed_at = $9
		WHERE id = $1
	`, cycle.ID, cycle.Status, cycle.CandidateCount, cycle.OrderCount, cycle.RejectedCount,
		cycle.TotalAllocated, cycle.ErrorMessage, cycle.DurationMs, cycle.CompletedAt)

	if err != nil {
		metrics.RecordDBError("update", "trading_cycles")
		return fmt.Errorf("failed to update trading cycle: %w", err)
	}

	return nil
}

// GetTradingCycle returns a single cycle by ID, or nil when not found.
func (r *Repository) GetTradingCycle(ctx context.Context, id uuid.UUID) (*models.TradingCycle, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, `
		SELECT id, status, candidate_count, order_count, rejected_count,
			   total_allocated, error_message, duration_ms, started_at, completed_at
		FROM trading_cycles WHERE id = $1
	`, id)

	cycle, err := scanTradingCycle(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query trading cycle: %w", err)
	}

	return cycle, nil
}

// GetRecentCycles returns the most recent cycles, newest first.
func (r *Repository) GetRecentCycles(ctx context.Context, limit int) ([]models.TradingCycle, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "trading_cycles")

	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, status, candidate_count, order_count, rejected_count,
			   total_allocated, error_message, duration_ms, started_at, completed_at
		FROM trading_cycles
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		metrics.RecordDBError("select", "trading_cycles")
		return nil, fmt.Errorf("failed to query trading cycles: %w", err)
	}
	defer rows.Close()

	var cycles []models.TradingCycle
	for rows.Next() {
		cycle, err := scanTradingCycle(rows)
		if err != nil {
			metrics.RecordDBError("select", "trading_cycles")
			return nil, fmt.Errorf("failed to scan trading cycle: %w", err)
		}
		cycles = append(cycles, *cycle)
	}

	return cycles, nil
}

func scanTradingCycle(row pgx.Row) (*models.TradingCycle, error) {
	var cycle models.TradingCycle
	err := row.Scan(&cycle.ID, &cycle.Status, &cycle.CandidateCount, &cycle.OrderCount,
		&cycle.RejectedCount, &cycle.TotalAllocated, &cycle.ErrorMessage,
		&cycle.DurationMs, &cycle.StartedAt, &cycle.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}
