package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote represents real-time quote data for a ticker.
type Quote struct {
	Ticker    string          `json:"ticker"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	BidSize   int64           `json:"bid_size"`
	AskSize   int64           `json:"ask_size"`
	Last      decimal.Decimal `json:"last"`
	Volume    int64           `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

// Price returns the last trade price, falling back to the bid/ask midpoint
// when no trade price is available.
func (q *Quote) Price() decimal.Decimal {
	if !q.Last.IsZero() {
		return q.Last
	}
	if !q.Bid.IsZero() && !q.Ask.IsZero() {
		return q.Bid.Add(q.Ask).Div(decimal.NewFromInt(2))
	}
	return decimal.Zero
}

// Bar represents OHLCV price data for a time period.
type Bar struct {
	Ticker    string          `json:"ticker"`
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
	VWAP      decimal.Decimal `json:"vwap"`
}

// Fundamentals represents key fundamental data for a ticker.
type Fundamentals struct {
	Ticker        string          `json:"ticker"`
	CompanyName   string          `json:"company_name"`
	Sector        string          `json:"sector"`
	Industry      string          `json:"industry"`
	MarketCap     decimal.Decimal `json:"market_cap"`
	PERatio       float64         `json:"pe_ratio"`
	PBRatio       float64         `json:"pb_ratio"`
	EPS           decimal.Decimal `json:"eps"`
	DividendYield float64         `json:"dividend_yield"`
	Week52High    decimal.Decimal `json:"week52_high"`
	Week52Low     decimal.Decimal `json:"week52_low"`
	Beta          float64         `json:"beta"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewsArticle represents a news article about a ticker.
type NewsArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Author      string    `json:"author,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}
