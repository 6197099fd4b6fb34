package models

import (
	"time"

	"github.com/google/uuid"
)

// TradingCycle is the audit record for one full screen → score → allocate →
// rebalance → validate pass. The engine itself never reads these; they exist
// so a reviewer can reconstruct why each order was proposed.
type TradingCycle struct {
	ID              uuid.UUID          `json:"id"`
	Status          TradingCycleStatus `json:"status"`
	CandidateCount  int                `json:"candidate_count"`
	OrderCount      int                `json:"order_count"`
	RejectedCount   int                `json:"rejected_count"`
	TotalAllocated  string             `json:"total_allocated,omitempty"`
	ErrorMessage    string             `json:"error_message,omitempty"`
	DurationMs      int64              `json:"duration_ms"`
	StartedAt       time.Time          `json:"started_at"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
}

type TradingCycleStatus string

const (
	TradingCycleStatusRunning   TradingCycleStatus = "running"
	TradingCycleStatusCompleted TradingCycleStatus = "completed"
	TradingCycleStatusFailed    TradingCycleStatus = "failed"
)

func NewTradingCycle() *TradingCycle {
	return &TradingCycle{
		ID:        uuid.New(),
		Status:    TradingCycleStatusRunning,
		StartedAt: time.Now(),
	}
}

func (c *TradingCycle) Complete(candidates, orders, rejected int, totalAllocated string) {
	now := time.Now()
	c.CompletedAt = &now
	c.Status = TradingCycleStatusCompleted
	c.CandidateCount = candidates
	c.OrderCount = orders
	c.RejectedCount = rejected
	c.TotalAllocated = totalAllocated
	c.DurationMs = now.Sub(c.StartedAt).Milliseconds()
}

func (c *TradingCycle) Fail(err error) {
	now := time.Now()
	c.CompletedAt = &now
	c.Status = TradingCycleStatusFailed
	c.ErrorMessage = err.Error()
	c.DurationMs = now.Sub(c.StartedAt).Milliseconds()
}
