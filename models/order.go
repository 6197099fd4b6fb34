package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the rebalancer's output: a proposed trade awaiting validation,
// human approval, and submission to the brokerage.
type Order struct {
	ID            uuid.UUID         `json:"id"`
	Ticker        string            `json:"ticker"`
	Action        OrderAction       `json:"action"`
	Quantity      decimal.Decimal   `json:"quantity"`
	NotionalValue decimal.Decimal   `json:"notional_value"`
	OrderType     OrderType         `json:"order_type"`
	LimitPrice    decimal.Decimal   `json:"limit_price,omitempty"`
	Sector        string            `json:"sector,omitempty"`
	Conviction    float64           `json:"conviction"` // normalized weight, for ranking
	Status        OrderStatus       `json:"status"`
	Validation    *ValidationResult `json:"validation,omitempty"`
	BrokerOrderID string            `json:"broker_order_id,omitempty"`
	CycleID       uuid.UUID         `json:"cycle_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	SubmittedAt   *time.Time        `json:"submitted_at,omitempty"`
}

type OrderAction string

const (
	OrderActionBuy  OrderAction = "buy"
	OrderActionSell OrderAction = "sell"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

type OrderStatus string

const (
	OrderStatusProposed  OrderStatus = "proposed"
	OrderStatusValidated OrderStatus = "validated"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func NewOrder(ticker string, action OrderAction, quantity, price decimal.Decimal) *Order {
	return &Order{
		ID:            uuid.New(),
		Ticker:        ticker,
		Action:        action,
		Quantity:      quantity,
		NotionalValue: quantity.Mul(price),
		OrderType:     OrderTypeMarket,
		Status:        OrderStatusProposed,
		CreatedAt:     time.Now(),
	}
}

// IsBuy reports whether the order adds exposure.
func (o *Order) IsBuy() bool {
	return o.Action == OrderActionBuy
}

// ApplyValidation attaches a validation result and advances the lifecycle to
// VALIDATED or REJECTED.
func (o *Order) ApplyValidation(result *ValidationResult) {
	o.Validation = result
	if result.Status == ValidationStatusPass {
		o.Status = OrderStatusValidated
	} else {
		o.Status = OrderStatusRejected
	}
}

// Approve marks a validated order as accepted for submission.
func (o *Order) Approve() {
	o.Status = OrderStatusAccepted
}

// Reject marks the order as rejected by the human reviewer.
func (o *Order) Reject() {
	o.Status = OrderStatusRejected
}

// MarkSubmitted records the broker order ID after submission.
func (o *Order) MarkSubmitted(brokerOrderID string) {
	now := time.Now()
	o.BrokerOrderID = brokerOrderID
	o.SubmittedAt = &now
	o.Status = OrderStatusSubmitted
}

// ValidationStatus is the outcome of a constraint validation pass.
type ValidationStatus string

const (
	ValidationStatusPass ValidationStatus = "pass"
	ValidationStatusFail ValidationStatus = "fail"
)

// Violation describes a single constraint rule the order breaks.
type Violation struct {
	RuleName string  `json:"rule_name"`
	Limit    float64 `json:"limit"`
	Actual   float64 `json:"actual"`
	Message  string  `json:"message"`
}

// ValidationResult carries every violated rule so a reviewer sees the full
// picture in one report, not just the first failure.
type ValidationResult struct {
	Status     ValidationStatus `json:"status"`
	Violations []Violation      `json:"violations,omitempty"`
	CheckedAt  time.Time        `json:"checked_at"`
}

// Passed reports whether the order cleared every enabled constraint.
func (r *ValidationResult) Passed() bool {
	return r.Status == ValidationStatusPass
}
