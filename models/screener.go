package models

import (
	"time"

	"github.com/google/uuid"
)

// ScreenerCriteria defines the universe filter applied before scoring.
type ScreenerCriteria struct {
	MarketCapMin int64   `json:"market_cap_min"`
	PERatioMax   float64 `json:"pe_ratio_max"`
	PBRatioMax   float64 `json:"pb_ratio_max"`
	Sector       string  `json:"sector,omitempty"`
	Limit        int     `json:"limit"`
}

// ScreenerCandidate is a ticker that passed the universe filter and is
// eligible for full scoring by the research desk.
type ScreenerCandidate struct {
	Ticker        string  `json:"ticker"`
	CompanyName   string  `json:"company_name"`
	Sector        string  `json:"sector"`
	Industry      string  `json:"industry"`
	MarketCap     int64   `json:"market_cap"`
	PERatio       float64 `json:"pe_ratio"`
	PBRatio       float64 `json:"pb_ratio"`
	DividendYield float64 `json:"dividend_yield"`
	Price         float64 `json:"price"`
	Beta          float64 `json:"beta"`
	ValueScore    float64 `json:"value_score"`
}

// ScreenerRun records one execution of the universe screener.
type ScreenerRun struct {
	ID         uuid.UUID           `json:"id"`
	Criteria   ScreenerCriteria    `json:"criteria"`
	Candidates []ScreenerCandidate `json:"candidates"`
	DurationMs int64               `json:"duration_ms"`
	Error      string              `json:"error,omitempty"`
	RunAt      time.Time           `json:"run_at"`
}

func NewScreenerRun(criteria ScreenerCriteria) *ScreenerRun {
	return &ScreenerRun{
		ID:       uuid.New(),
		Criteria: criteria,
		RunAt:    time.Now(),
	}
}
