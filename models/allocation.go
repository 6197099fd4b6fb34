package models

import "github.com/shopspring/decimal"

// TargetAllocation is a single entry of an allocation plan.
type TargetAllocation struct {
	Ticker     string          `json:"ticker"`
	Sector     string          `json:"sector,omitempty"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	Weight     float64         `json:"weight"`
	Amount     decimal.Decimal `json:"amount"`
}

// AllocationPlan holds the target dollar allocations for one cycle.
// Targets are ordered by descending conviction weight; the rebalancer relies
// on that ordering when it has to shrink buys to fit available cash.
type AllocationPlan struct {
	Targets      []TargetAllocation `json:"targets"`
	TotalCapital decimal.Decimal    `json:"total_capital"`
}

// Amount returns the target dollar amount for a ticker, or zero if the plan
// does not include it.
func (p *AllocationPlan) Amount(ticker string) decimal.Decimal {
	for _, t := range p.Targets {
		if t.Ticker == ticker {
			return t.Amount
		}
	}
	return decimal.Zero
}

// TotalAllocated returns the sum of all target amounts.
func (p *AllocationPlan) TotalAllocated() decimal.Decimal {
	total := decimal.Zero
	for _, t := range p.Targets {
		total = total.Add(t.Amount)
	}
	return total
}

// IsEmpty reports whether the plan allocates nothing.
func (p *AllocationPlan) IsEmpty() bool {
	return len(p.Targets) == 0
}
