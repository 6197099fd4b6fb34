package screener

import (
	"context"
	"fmt"
	"time"

	"sentinel/config"
	"sentinel/models"
	"sentinel/observability"
	"sentinel/services"
)

// UniverseScreener narrows the equity universe down to the tickers worth
// spending research desk calls on: a market-cap and ratio filter at the data
// provider, then a composite value score ranking client-side.
type UniverseScreener struct {
	fundamentals services.FundamentalsService
	cfg          *config.ScreenerConfig
}

// NewUniverseScreener creates a new UniverseScreener.
func NewUniverseScreener(fundamentals services.FundamentalsService, cfg *config.ScreenerConfig) *UniverseScreener {
	return &UniverseScreener{
		fundamentals: fundamentals,
		cfg:          cfg,
	}
}

// Screen runs the universe filter and returns a run record with candidates
// ranked best-value first, trimmed to the configured pre-filter limit.
func (s *UniverseScreener) Screen(ctx context.Context) (*models.ScreenerRun, error) {
	start := time.Now()

	criteria := models.ScreenerCriteria{
		MarketCapMin: s.cfg.MarketCapMin,
		PERatioMax:   s.cfg.PERatioMax,
		PBRatioMax:   s.cfg.PBRatioMax,
		// Fetch more than we keep so the ranking has something to cut.
		Limit: s.cfg.PreFilterLimit * 2,
	}
	run := models.NewScreenerRun(criteria)

	candidates, err := s.fundamentals.Screen(ctx, criteria)
	if err != nil {
		run.DurationMs = time.Since(start).Milliseconds()
		run.Error = fmt.Sprintf("universe screen failed: %v", err)
		return run, fmt.Errorf("failed to screen universe: %w", err)
	}

	ranked := RankByValueScore(candidates, s.cfg.PreFilterLimit)
	run.Candidates = ranked
	run.DurationMs = time.Since(start).Milliseconds()

	observability.Info("universe screen completed",
		"fetched", len(candidates),
		"kept", len(ranked),
		"duration_ms", run.DurationMs)

	return run, nil
}

// Tickers returns the ranked candidate tickers from a run, in order.
func Tickers(run *models.ScreenerRun) []string {
	if run == nil {
		return nil
	}
	tickers := make([]string, 0, len(run.Candidates))
	for _, c := range run.Candidates {
		tickers = append(tickers, c.Ticker)
	}
	return tickers
}
