package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Candidate is a scored trade opportunity produced by the research desk.
// ConvictionScore is always paired with the scale it was produced on;
// nothing downstream assumes a scale.
type Candidate struct {
	ID              uuid.UUID       `json:"id"`
	Ticker          string          `json:"ticker"`
	Action          CandidateAction `json:"action"`
	ConvictionScore float64         `json:"conviction_score"`
	ScaleMax        float64         `json:"scale_max"`
	EntryPrice      decimal.Decimal `json:"entry_price"`
	StopLossPrice   decimal.Decimal `json:"stop_loss_price"`
	TargetPrice     decimal.Decimal `json:"target_price,omitempty"`
	Sector          string          `json:"sector,omitempty"`
	SellQuantity    decimal.Decimal `json:"sell_quantity,omitempty"` // zero = full position
	ResearchScore   float64         `json:"research_score"`
	SentimentScore  float64         `json:"sentiment_score"`
	TechnicalScore  float64         `json:"technical_score"`
	Confidence      float64         `json:"confidence"`
	Reasoning       string          `json:"reasoning"`
	CreatedAt       time.Time       `json:"created_at"`
}

type CandidateAction string

const (
	CandidateActionBuy  CandidateAction = "buy"
	CandidateActionSell CandidateAction = "sell"
)

func NewCandidate(ticker string, action CandidateAction, score, scaleMax float64) *Candidate {
	return &Candidate{
		ID:              uuid.New(),
		Ticker:          ticker,
		Action:          action,
		ConvictionScore: score,
		ScaleMax:        scaleMax,
		CreatedAt:       time.Now(),
	}
}

// Validate checks the structural invariants of a candidate. A malformed
// candidate is rejected outright rather than patched with defaults.
func (c *Candidate) Validate() error {
	if c.Ticker == "" {
		return fmt.Errorf("candidate has empty ticker")
	}
	if c.Action != CandidateActionBuy && c.Action != CandidateActionSell {
		return fmt.Errorf("candidate %s has invalid action %q", c.Ticker, c.Action)
	}
	if c.ScaleMax <= 0 {
		return fmt.Errorf("candidate %s has invalid scale_max %v", c.Ticker, c.ScaleMax)
	}
	if c.ConvictionScore < 0 || c.ConvictionScore > c.ScaleMax {
		return fmt.Errorf("candidate %s conviction %v outside scale [0, %v]",
			c.Ticker, c.ConvictionScore, c.ScaleMax)
	}
	if c.Action == CandidateActionBuy {
		if c.EntryPrice.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("candidate %s has non-positive entry price %s", c.Ticker, c.EntryPrice)
		}
		if c.StopLossPrice.GreaterThanOrEqual(c.EntryPrice) {
			return fmt.Errorf("candidate %s stop loss %s is not below entry %s",
				c.Ticker, c.StopLossPrice, c.EntryPrice)
		}
	}
	return nil
}
