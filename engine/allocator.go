package engine

import (
	"fmt"
	"sort"

	"sentinel/models"
	"sentinel/observability"

	"github.com/shopspring/decimal"
)

// AllocationConfig holds the capital allocation limits. All fields are
// explicit; there are no hidden defaults.
type AllocationConfig struct {
	// MaxSinglePositionPct caps any one position at this fraction of total
	// capital (0-1).
	MaxSinglePositionPct float64

	// MaxSectorPct caps the combined allocation to one sector at this
	// fraction of total capital (0-1).
	MaxSectorPct float64

	// MaxTotalDeploymentPct caps the total deployed capital at this fraction
	// of total capital (0-1).
	MaxTotalDeploymentPct float64

	// MinPositionValue drops allocations too small to be worth a position.
	MinPositionValue decimal.Decimal

	// ConvictionExponent is the convex weighting exponent (default 2.0).
	ConvictionExponent float64
}

// Validate checks the structural validity of the config.
func (c AllocationConfig) Validate() error {
	if c.MaxSinglePositionPct <= 0 || c.MaxSinglePositionPct > 1 {
		return &ConfigError{Field: "MaxSinglePositionPct", Value: c.MaxSinglePositionPct, Reason: "must be in (0, 1]"}
	}
	if c.MaxSectorPct <= 0 || c.MaxSectorPct > 1 {
		return &ConfigError{Field: "MaxSectorPct", Value: c.MaxSectorPct, Reason: "must be in (0, 1]"}
	}
	if c.MaxTotalDeploymentPct <= 0 || c.MaxTotalDeploymentPct > 1 {
		return &ConfigError{Field: "MaxTotalDeploymentPct", Value: c.MaxTotalDeploymentPct, Reason: "must be in (0, 1]"}
	}
	if c.MinPositionValue.IsNegative() {
		return &ConfigError{Field: "MinPositionValue", Value: c.MinPositionValue, Reason: "must not be negative"}
	}
	if c.ConvictionExponent <= 0 {
		return &ConfigError{Field: "ConvictionExponent", Value: c.ConvictionExponent, Reason: "must be positive"}
	}
	return nil
}

// Allocator converts weighted BUY candidates into target dollar allocations.
type Allocator struct {
	cfg AllocationConfig
}

// NewAllocator validates the config and returns an Allocator. Misconfiguration
// fails here, before any cycle runs.
func NewAllocator(cfg AllocationConfig) (*Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Allocator{cfg: cfg}, nil
}

// Config returns the allocator's configuration.
func (a *Allocator) Config() AllocationConfig {
	return a.cfg
}

// Weigh converts a candidate's conviction into its allocation weight using
// the configured exponent. Normalization failures surface to the caller; a
// score outside its declared scale is never silently reweighted.
func (a *Allocator) Weigh(c *models.Candidate) (float64, error) {
	normalized, err := Normalize(c.ConvictionScore, c.ScaleMax)
	if err != nil {
		return 0, err
	}
	return Weight(normalized, a.cfg.ConvictionExponent), nil
}

// weighted pairs a BUY candidate with its conviction weight for allocation.
type weighted struct {
	candidate models.Candidate
	weight    float64
	amount    decimal.Decimal
	capped    bool
}

// Allocate computes target dollar allocations for the BUY candidates.
//
// Degenerate-but-valid inputs (no candidates, all-zero weights, non-positive
// capital) return an empty plan, never an error: a fully deployed portfolio
// with nothing to buy is a normal operating state.
func (a *Allocator) Allocate(candidates []models.Candidate, weights []float64, totalCapital decimal.Decimal) (*models.AllocationPlan, error) {
	if len(candidates) != len(weights) {
		return nil, fmt.Errorf("candidate/weight length mismatch: %d vs %d", len(candidates), len(weights))
	}

	plan := &models.AllocationPlan{TotalCapital: totalCapital}

	if totalCapital.LessThanOrEqual(decimal.Zero) {
		observability.Warn("allocator received non-positive capital, returning empty plan",
			"total_capital", totalCapital.String())
		return plan, nil
	}

	// SELL candidates never consume allocation capital; they are the
	// rebalancer's concern.
	buys := make([]weighted, 0, len(candidates))
	weightSum := 0.0
	for i, c := range candidates {
		if c.Action != models.CandidateActionBuy || weights[i] <= 0 {
			continue
		}
		buys = append(buys, weighted{candidate: c, weight: weights[i]})
		weightSum += weights[i]
	}
	if len(buys) == 0 || weightSum == 0 {
		return plan, nil
	}

	deployable := totalCapital.Mul(decimal.NewFromFloat(a.cfg.MaxTotalDeploymentPct))
	positionCap := totalCapital.Mul(decimal.NewFromFloat(a.cfg.MaxSinglePositionPct))

	a.waterFill(buys, deployable, positionCap)
	a.applySectorCaps(buys, totalCapital)

	// Sort by weight descending before dropping minimums so the plan carries
	// the conviction ranking the rebalancer needs.
	sort.SliceStable(buys, func(i, j int) bool { return buys[i].weight > buys[j].weight })

	for _, b := range buys {
		if b.amount.LessThan(a.cfg.MinPositionValue) {
			continue
		}
		plan.Targets = append(plan.Targets, models.TargetAllocation{
			Ticker:     b.candidate.Ticker,
			Sector:     b.candidate.Sector,
			EntryPrice: b.candidate.EntryPrice,
			Weight:     b.weight,
			Amount:     b.amount,
		})
	}

	return plan, nil
}

// waterFill distributes deployable capital proportionally to weight, capping
// each allocation and redistributing the capped excess among the remaining
// uncapped candidates. Each pass fixes at least one candidate at its cap, so
// the loop terminates in at most len(buys) iterations.
func (a *Allocator) waterFill(buys []weighted, deployable, positionCap decimal.Decimal) {
	for iter := 0; iter <= len(buys); iter++ {
		remaining := deployable
		freeWeight := 0.0
		for i := range buys {
			if buys[i].capped {
				remaining = remaining.Sub(buys[i].amount)
			} else {
				freeWeight += buys[i].weight
			}
		}
		if freeWeight == 0 || remaining.LessThanOrEqual(decimal.Zero) {
			// Nothing left to distribute; zero out any uncapped stragglers.
			for i := range buys {
				if !buys[i].capped {
					buys[i].amount = decimal.Zero
				}
			}
			return
		}

		overflowed := false
		for i := range buys {
			if buys[i].capped {
				continue
			}
			share := decimal.NewFromFloat(buys[i].weight / freeWeight)
			raw := remaining.Mul(share)
			if raw.GreaterThan(positionCap) {
				buys[i].amount = positionCap
				buys[i].capped = true
				overflowed = true
			} else {
				buys[i].amount = raw
			}
		}
		if !overflowed {
			return
		}
	}
}

// applySectorCaps scales down each over-cap sector proportionally. The excess
// is not redistributed to other sectors; undeployed capital is the
// conservative outcome.
func (a *Allocator) applySectorCaps(buys []weighted, totalCapital decimal.Decimal) {
	sectorCap := totalCapital.Mul(decimal.NewFromFloat(a.cfg.MaxSectorPct))

	sectorTotals := make(map[string]decimal.Decimal)
	for i := range buys {
		if buys[i].candidate.Sector == "" {
			continue
		}
		sectorTotals[buys[i].candidate.Sector] = sectorTotals[buys[i].candidate.Sector].Add(buys[i].amount)
	}

	for sector, total := range sectorTotals {
		if total.LessThanOrEqual(sectorCap) {
			continue
		}
		scale := sectorCap.Div(total)
		observability.Warn("sector allocation exceeds cap, scaling down",
			"sector", sector,
			"total", total.String(),
			"cap", sectorCap.String())
		for i := range buys {
			if buys[i].candidate.Sector == sector {
				buys[i].amount = buys[i].amount.Mul(scale)
			}
		}
	}
}
