package engine

import (
	"fmt"
	"strings"
	"time"

	"sentinel/models"

	"github.com/shopspring/decimal"
)

// Constraint rule names as they appear in violation reports.
const (
	RulePositionSize   = "position_size"
	RuleSectorExposure = "sector_concentration"
	RuleMinPosition    = "min_position_value"
	RuleRestrictedTick = "restricted_ticker"
	RuleDuplicateOrder = "duplicate_order"
)

// DefaultCooldownWindow is the default duplicate-order suppression window.
const DefaultCooldownWindow = 5 * time.Minute

// ConstraintConfig holds the constraint limits and per-rule toggles.
type ConstraintConfig struct {
	MaxSinglePositionPct float64
	MaxSectorPct         float64
	MinPositionValue     decimal.Decimal
	RestrictedTickers    []string
	CooldownWindow       time.Duration

	CheckPositionSize bool
	CheckSectorCap    bool
	CheckMinPosition  bool
	CheckRestricted   bool
	CheckDuplicates   bool
}

// Validate checks the structural validity of the config.
func (c ConstraintConfig) Validate() error {
	if c.MaxSinglePositionPct <= 0 || c.MaxSinglePositionPct > 1 {
		return &ConfigError{Field: "MaxSinglePositionPct", Value: c.MaxSinglePositionPct, Reason: "must be in (0, 1]"}
	}
	if c.MaxSectorPct <= 0 || c.MaxSectorPct > 1 {
		return &ConfigError{Field: "MaxSectorPct", Value: c.MaxSectorPct, Reason: "must be in (0, 1]"}
	}
	if c.MinPositionValue.IsNegative() {
		return &ConfigError{Field: "MinPositionValue", Value: c.MinPositionValue, Reason: "must not be negative"}
	}
	if c.CooldownWindow < 0 {
		return &ConfigError{Field: "CooldownWindow", Value: c.CooldownWindow, Reason: "must not be negative"}
	}
	return nil
}

// RecentOrder is a previously validated order, supplied by the caller for
// duplicate detection. The validator holds no state of its own; passing the
// recent-order set explicitly keeps it safe to share across accounts.
type RecentOrder struct {
	Ticker      string
	Action      models.OrderAction
	Quantity    decimal.Decimal
	ValidatedAt time.Time
}

// Validator applies the constraint rules to proposed orders.
type Validator struct {
	cfg        ConstraintConfig
	restricted map[string]bool
}

// NewValidator validates the config and returns a Validator.
func NewValidator(cfg ConstraintConfig) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.CooldownWindow == 0 {
		cfg.CooldownWindow = DefaultCooldownWindow
	}
	restricted := make(map[string]bool, len(cfg.RestrictedTickers))
	for _, t := range cfg.RestrictedTickers {
		restricted[strings.ToUpper(strings.TrimSpace(t))] = true
	}
	return &Validator{cfg: cfg, restricted: restricted}, nil
}

// Validate runs every enabled rule against the order and returns the complete
// violation set. All rules run even after the first failure so the reviewer
// sees every broken constraint in one report.
func (v *Validator) Validate(order *models.Order, current *models.PortfolioState, recent []RecentOrder, now time.Time) *models.ValidationResult {
	var violations []models.Violation

	if v.cfg.CheckPositionSize {
		if viol := v.checkPositionSize(order, current); viol != nil {
			violations = append(violations, *viol)
		}
	}
	if v.cfg.CheckSectorCap {
		if viol := v.checkSectorExposure(order, current); viol != nil {
			violations = append(violations, *viol)
		}
	}
	if v.cfg.CheckMinPosition {
		if viol := v.checkMinPosition(order); viol != nil {
			violations = append(violations, *viol)
		}
	}
	if v.cfg.CheckRestricted {
		if viol := v.checkRestricted(order); viol != nil {
			violations = append(violations, *viol)
		}
	}
	if v.cfg.CheckDuplicates {
		if viol := v.checkDuplicate(order, recent, now); viol != nil {
			violations = append(violations, *viol)
		}
	}

	result := &models.ValidationResult{
		Status:     models.ValidationStatusPass,
		Violations: violations,
		CheckedAt:  now,
	}
	if len(violations) > 0 {
		result.Status = models.ValidationStatusFail
	}
	return result
}

// checkPositionSize verifies the resulting position value stays under the
// per-position cap. Sells reduce exposure and always pass.
func (v *Validator) checkPositionSize(order *models.Order, current *models.PortfolioState) *models.Violation {
	if !order.IsBuy() || current.TotalPortfolioValue.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	resulting := order.NotionalValue
	if pos := current.Position(order.Ticker); pos != nil {
		resulting = resulting.Add(pos.MarketValue)
	}

	actual, _ := resulting.Div(current.TotalPortfolioValue).Float64()
	if actual <= v.cfg.MaxSinglePositionPct {
		return nil
	}
	return &models.Violation{
		RuleName: RulePositionSize,
		Limit:    v.cfg.MaxSinglePositionPct,
		Actual:   actual,
		Message: fmt.Sprintf("position in %s would be %.1f%% of portfolio, limit is %.1f%%",
			order.Ticker, actual*100, v.cfg.MaxSinglePositionPct*100),
	}
}

// checkSectorExposure verifies the resulting sector exposure stays under the
// sector cap. Orders without sector data are not checked.
func (v *Validator) checkSectorExposure(order *models.Order, current *models.PortfolioState) *models.Violation {
	if !order.IsBuy() || order.Sector == "" || current.TotalPortfolioValue.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	exposure := order.NotionalValue
	for _, pos := range current.Positions {
		if pos.Sector == order.Sector || pos.Ticker == order.Ticker {
			exposure = exposure.Add(pos.MarketValue)
		}
	}

	actual, _ := exposure.Div(current.TotalPortfolioValue).Float64()
	if actual <= v.cfg.MaxSectorPct {
		return nil
	}
	return &models.Violation{
		RuleName: RuleSectorExposure,
		Limit:    v.cfg.MaxSectorPct,
		Actual:   actual,
		Message: fmt.Sprintf("%s exposure would be %.1f%% of portfolio, limit is %.1f%%",
			order.Sector, actual*100, v.cfg.MaxSectorPct*100),
	}
}

// checkMinPosition rejects dust-sized buys. Sells are exempt so small
// positions can always be closed or trimmed.
func (v *Validator) checkMinPosition(order *models.Order) *models.Violation {
	if !order.IsBuy() {
		return nil
	}
	if order.NotionalValue.GreaterThanOrEqual(v.cfg.MinPositionValue) {
		return nil
	}
	limit, _ := v.cfg.MinPositionValue.Float64()
	actual, _ := order.NotionalValue.Float64()
	return &models.Violation{
		RuleName: RuleMinPosition,
		Limit:    limit,
		Actual:   actual,
		Message: fmt.Sprintf("order notional $%s is below the $%s minimum position value",
			order.NotionalValue.StringFixed(2), v.cfg.MinPositionValue.StringFixed(2)),
	}
}

func (v *Validator) checkRestricted(order *models.Order) *models.Violation {
	if !v.restricted[strings.ToUpper(order.Ticker)] {
		return nil
	}
	return &models.Violation{
		RuleName: RuleRestrictedTick,
		Message:  fmt.Sprintf("%s is on the restricted ticker list", order.Ticker),
	}
}

// checkDuplicate rejects an identical (ticker, action, quantity) order
// validated within the cooldown window.
func (v *Validator) checkDuplicate(order *models.Order, recent []RecentOrder, now time.Time) *models.Violation {
	for _, r := range recent {
		if r.Ticker != order.Ticker || r.Action != order.Action || !r.Quantity.Equal(order.Quantity) {
			continue
		}
		elapsed := now.Sub(r.ValidatedAt)
		if elapsed < 0 || elapsed >= v.cfg.CooldownWindow {
			continue
		}
		return &models.Violation{
			RuleName: RuleDuplicateOrder,
			Limit:    v.cfg.CooldownWindow.Seconds(),
			Actual:   elapsed.Seconds(),
			Message: fmt.Sprintf("identical %s order for %s was validated %s ago, cooldown is %s",
				order.Action, order.Ticker, elapsed.Round(time.Second), v.cfg.CooldownWindow),
		}
	}
	return nil
}
