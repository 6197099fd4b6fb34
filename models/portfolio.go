package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a single holding as reported by the brokerage.
type Position struct {
	Ticker        string          `json:"ticker"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	Sector        string          `json:"sector,omitempty"`
}

// UnrealizedPL returns the open profit or loss on the position.
func (p *Position) UnrealizedPL() decimal.Decimal {
	if p.CurrentPrice.IsZero() {
		return decimal.Zero
	}
	return p.CurrentPrice.Sub(p.AvgEntryPrice).Mul(p.Quantity)
}

// PortfolioState is an immutable snapshot of the trading account, assembled
// from the brokerage at the start of each cycle. The brokerage is the ground
// truth; this is never reconstructed from locally persisted history.
type PortfolioState struct {
	Cash                decimal.Decimal     `json:"cash"`
	BuyingPower         decimal.Decimal     `json:"buying_power"`
	Positions           map[string]Position `json:"positions"`
	TotalPortfolioValue decimal.Decimal     `json:"total_portfolio_value"`
	FetchedAt           time.Time           `json:"fetched_at"`
}

// NewPortfolioState builds a snapshot and recomputes the total portfolio
// value from cash plus position market values.
func NewPortfolioState(cash, buyingPower decimal.Decimal, positions []Position) *PortfolioState {
	state := &PortfolioState{
		Cash:        cash,
		BuyingPower: buyingPower,
		Positions:   make(map[string]Position, len(positions)),
		FetchedAt:   time.Now(),
	}

	total := cash
	for _, p := range positions {
		state.Positions[p.Ticker] = p
		total = total.Add(p.MarketValue)
	}
	state.TotalPortfolioValue = total

	return state
}

// Position returns the holding for a ticker, or nil if none exists.
func (s *PortfolioState) Position(ticker string) *Position {
	if p, ok := s.Positions[ticker]; ok {
		return &p
	}
	return nil
}

// SectorExposure returns the current market value held per sector.
func (s *PortfolioState) SectorExposure() map[string]decimal.Decimal {
	exposure := make(map[string]decimal.Decimal)
	for _, p := range s.Positions {
		if p.Sector == "" {
			continue
		}
		exposure[p.Sector] = exposure[p.Sector].Add(p.MarketValue)
	}
	return exposure
}
