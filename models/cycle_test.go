package models

import (
	"errors"
	"testing"
)

func TestTradingCycle_Complete(t *testing.T) {
	c := NewTradingCycle()

	if c.Status != TradingCycleStatusRunning {
		t.Errorf("Status = %v, want TradingCycleStatusRunning", c.Status)
	}
	if c.CompletedAt != nil {
		t.Error("CompletedAt should be nil while running")
	}

	c.Complete(5, 3, 1, "42000.00")

	if c.Status != TradingCycleStatusCompleted {
		t.Errorf("Status = %v, want TradingCycleStatusCompleted", c.Status)
	}
	if c.CandidateCount != 5 || c.OrderCount != 3 || c.RejectedCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 5/3/1", c.CandidateCount, c.OrderCount, c.RejectedCount)
	}
	if c.TotalAllocated != "42000.00" {
		t.Errorf("TotalAllocated = %v, want '42000.00'", c.TotalAllocated)
	}
	if c.CompletedAt == nil {
		t.Error("CompletedAt should be set after completion")
	}
}

func TestTradingCycle_Fail(t *testing.T) {
	c := NewTradingCycle()
	c.Fail(errors.New("screener failed"))

	if c.Status != TradingCycleStatusFailed {
		t.Errorf("Status = %v, want TradingCycleStatusFailed", c.Status)
	}
	if c.ErrorMessage != "screener failed" {
		t.Errorf("ErrorMessage = %v, want 'screener failed'", c.ErrorMessage)
	}
	if c.CompletedAt == nil {
		t.Error("CompletedAt should be set after failure")
	}
}
