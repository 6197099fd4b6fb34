package engine

import (
	"sentinel/models"
	"sentinel/observability"

	"github.com/shopspring/decimal"
)

// RebalanceConfig holds the rebalancer's tuning knobs.
type RebalanceConfig struct {
	// Threshold is the minimum relative deviation between an existing
	// position's market value and its target before a top-up or trim order
	// is emitted (e.g. 0.05 for 5%).
	Threshold float64
}

// Validate checks the structural validity of the config.
func (c RebalanceConfig) Validate() error {
	if c.Threshold < 0 || c.Threshold >= 1 {
		return &ConfigError{Field: "Threshold", Value: c.Threshold, Reason: "must be in [0, 1)"}
	}
	return nil
}

// Rebalancer diffs an allocation plan against current holdings and produces
// the order sequence needed to move between them.
type Rebalancer struct {
	cfg RebalanceConfig
}

// NewRebalancer validates the config and returns a Rebalancer.
func NewRebalancer(cfg RebalanceConfig) (*Rebalancer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Rebalancer{cfg: cfg}, nil
}

// ComputeOrders produces the orders that move the portfolio toward the plan.
//
// Every SELL order precedes every BUY order in the returned slice. This is a
// correctness requirement, not a convenience: execution must free cash from
// sells before attempting buys. The cumulative BUY notional never exceeds
// cash plus the estimated sell proceeds; when it would, the lowest-conviction
// buys are shrunk or dropped first.
func (r *Rebalancer) ComputeOrders(plan *models.AllocationPlan, current *models.PortfolioState, sellCandidates []models.Candidate) []models.Order {
	sells, cashFreed := r.sellOrders(current, sellCandidates)

	var buys []models.Order
	for _, target := range plan.Targets {
		pos := current.Position(target.Ticker)
		if pos == nil {
			if order, ok := r.openOrder(target); ok {
				buys = append(buys, order)
			}
			continue
		}
		order, isSell, ok := r.rebalanceOrder(target, pos)
		if !ok {
			continue
		}
		if isSell {
			// Trims free cash too, so they join the SELL block.
			cashFreed = cashFreed.Add(order.NotionalValue)
			sells = append(sells, order)
		} else {
			buys = append(buys, order)
		}
	}

	availableCash := current.Cash.Add(cashFreed)
	buys = r.fitToCash(buys, availableCash)

	return append(sells, buys...)
}

// sellOrders emits a SELL for each sell candidate with an existing position
// and estimates the cash those sells will free. The estimate uses the current
// market price; the actual fill price belongs to the execution layer.
func (r *Rebalancer) sellOrders(current *models.PortfolioState, sellCandidates []models.Candidate) ([]models.Order, decimal.Decimal) {
	var sells []models.Order
	cashFreed := decimal.Zero

	for _, c := range sellCandidates {
		if c.Action != models.CandidateActionSell {
			continue
		}
		pos := current.Position(c.Ticker)
		if pos == nil || pos.Quantity.LessThanOrEqual(decimal.Zero) {
			observability.Warn("sell candidate has no position, skipping",
				"ticker", c.Ticker)
			continue
		}

		quantity := pos.Quantity
		if c.SellQuantity.GreaterThan(decimal.Zero) && c.SellQuantity.LessThan(pos.Quantity) {
			quantity = c.SellQuantity
		}

		price := pos.CurrentPrice
		if price.IsZero() {
			price = pos.AvgEntryPrice
		}

		order := models.NewOrder(c.Ticker, models.OrderActionSell, quantity, price)
		order.Sector = pos.Sector
		sells = append(sells, *order)
		cashFreed = cashFreed.Add(order.NotionalValue)
	}

	return sells, cashFreed
}

// openOrder builds a BUY for a ticker with no existing position. Quantity is
// floored to whole shares; rounding down rather than up keeps the position
// cap intact against float error.
func (r *Rebalancer) openOrder(target models.TargetAllocation) (models.Order, bool) {
	if target.EntryPrice.LessThanOrEqual(decimal.Zero) {
		observability.Warn("allocation target has no entry price, skipping",
			"ticker", target.Ticker)
		return models.Order{}, false
	}
	quantity := target.Amount.Div(target.EntryPrice).Floor()
	if quantity.LessThanOrEqual(decimal.Zero) {
		return models.Order{}, false
	}
	order := models.NewOrder(target.Ticker, models.OrderActionBuy, quantity, target.EntryPrice)
	order.Sector = target.Sector
	order.Conviction = target.Weight
	return *order, true
}

// rebalanceOrder builds a top-up BUY or trim SELL when an existing position
// deviates from its target by more than the threshold.
func (r *Rebalancer) rebalanceOrder(target models.TargetAllocation, pos *models.Position) (order models.Order, isSell, ok bool) {
	if target.Amount.LessThanOrEqual(decimal.Zero) {
		return models.Order{}, false, false
	}

	delta := target.Amount.Sub(pos.MarketValue)
	deviation := delta.Abs().Div(target.Amount)
	if deviation.LessThanOrEqual(decimal.NewFromFloat(r.cfg.Threshold)) {
		return models.Order{}, false, false
	}

	price := pos.CurrentPrice
	if price.IsZero() {
		price = target.EntryPrice
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return models.Order{}, false, false
	}

	quantity := delta.Abs().Div(price).Floor()
	if quantity.LessThanOrEqual(decimal.Zero) {
		return models.Order{}, false, false
	}

	action := models.OrderActionBuy
	if delta.IsNegative() {
		action = models.OrderActionSell
		if quantity.GreaterThan(pos.Quantity) {
			quantity = pos.Quantity
		}
	}

	o := models.NewOrder(target.Ticker, action, quantity, price)
	o.Sector = target.Sector
	o.Conviction = target.Weight
	return *o, action == models.OrderActionSell, true
}

// fitToCash guarantees the cumulative BUY notional fits the cash that will
// plausibly be available after sells. Buys arrive ordered by descending
// conviction, so shrinking starts from the back of the slice.
func (r *Rebalancer) fitToCash(buys []models.Order, availableCash decimal.Decimal) []models.Order {
	total := decimal.Zero
	for _, b := range buys {
		total = total.Add(b.NotionalValue)
	}

	for i := len(buys) - 1; i >= 0 && total.GreaterThan(availableCash); i-- {
		excess := total.Sub(availableCash)
		price := buys[i].NotionalValue.Div(buys[i].Quantity)
		affordable := buys[i].NotionalValue.Sub(excess)
		newQuantity := decimal.Zero
		if affordable.GreaterThan(decimal.Zero) {
			newQuantity = affordable.Div(price).Floor()
		}

		total = total.Sub(buys[i].NotionalValue)
		if newQuantity.LessThanOrEqual(decimal.Zero) {
			observability.Warn("dropping buy order to fit available cash",
				"ticker", buys[i].Ticker,
				"notional", buys[i].NotionalValue.String())
			buys = append(buys[:i], buys[i+1:]...)
			continue
		}

		buys[i].Quantity = newQuantity
		buys[i].NotionalValue = newQuantity.Mul(price)
		total = total.Add(buys[i].NotionalValue)
		observability.Warn("shrinking buy order to fit available cash",
			"ticker", buys[i].Ticker,
			"quantity", newQuantity.String())
	}

	return buys
}
