package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"sentinel/models"
	"sentinel/observability"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateOrder records a proposed order and its validation result.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "orders")

	validationJSON, err := marshalValidation(order.Validation)
	if err != nil {
		metrics.RecordDBError("insert", "orders")
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO orders (id, cycle_id, ticker, action, quantity, notional_value,
			order_type, limit_price, sector, conviction, status, validation,
			broker_order_id, submitted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, order.ID, order.CycleID, order.Ticker, order.Action, order.Quantity, order.NotionalValue,
		order.OrderType, order.LimitPrice, order.Sector, order.Conviction, order.Status, validationJSON,
		order.BrokerOrderID, order.SubmittedAt, order.CreatedAt)

	if err != nil {
		metrics.RecordDBError("insert", "orders")
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// GetOrder returns a single order by ID, or nil when not found.
func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, `
		SELECT id, cycle_id, ticker, action, quantity, notional_value,
			   order_type, limit_price, sector, conviction, status, validation,
			   broker_order_id, submitted_at, created_at
		FROM orders WHERE id = $1
	`, id)

	order, err := scanOrder(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return order, nil
}

// GetOrders returns orders filtered by status, newest first. An empty status
// returns orders in any state.
func (r *Repository) GetOrders(ctx context.Context, status models.OrderStatus, limit int) ([]models.Order, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "orders")

	if limit <= 0 {
		limit = 50
	}

	var rows pgx.Rows
	var err error

	if status == "" {
		rows, err = r.db.Query(ctx, `
			SELECT id, cycle_id, ticker, action, quantity, notional_value,
				   order_type, limit_price, sector, conviction, status, validation,
				   broker_order_id, submitted_at, created_at
			FROM orders
			ORDER BY created_at DESC
			LIMIT $1
		`, limit)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT id, cycle_id, ticker, action, quantity, notional_value,
				   order_type, limit_price, sector, conviction, status, validation,
				   broker_order_id, submitted_at, created_at
			FROM orders
			WHERE status = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, status, limit)
	}

	if err != nil {
		metrics.RecordDBError("select", "orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			metrics.RecordDBError("select", "orders")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	return orders, nil
}

// GetPendingOrders returns validated orders awaiting human review.
func (r *Repository) GetPendingOrders(ctx context.Context) ([]models.Order, error) {
	return r.GetOrders(ctx, models.OrderStatusValidated, 100)
}

// GetOrdersByCycle returns every order proposed in a cycle.
func (r *Repository) GetOrdersByCycle(ctx context.Context, cycleID uuid.UUID) ([]models.Order, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, cycle_id, ticker, action, quantity, notional_value,
			   order_type, limit_price, sector, conviction, status, validation,
			   broker_order_id, submitted_at, created_at
		FROM orders
		WHERE cycle_id = $1
		ORDER BY created_at ASC
	`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	return orders, nil
}

// UpdateOrderStatus advances an order's lifecycle state.
func (r *Repository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("update", "orders")

	_, err := r.db.Exec(ctx, `
		UPDATE orders SET status = $2 WHERE id = $1
	`, id, status)

	if err != nil {
		metrics.RecordDBError("update", "orders")
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return nil
}

// MarkOrderSubmitted records the broker order ID and submission time.
func (r *Repository) MarkOrderSubmitted(ctx context.Context, order *models.Order) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("update", "orders")

	_, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $2, broker_order_id = $3, submitted_at = $4
		WHERE id = $1
	`, order.ID, order.Status, order.BrokerOrderID, order.SubmittedAt)

	if err != nil {
		metrics.RecordDBError("update", "orders")
		return fmt.Errorf("failed to mark order submitted: %w", err)
	}

	return nil
}

func marshalValidation(v *models.ValidationResult) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validation result: %w", err)
	}
	return data, nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var order models.Order
	var validationJSON []byte

	err := row.Scan(&order.ID, &order.CycleID, &order.Ticker, &order.Action,
		&order.Quantity, &order.NotionalValue, &order.OrderType, &order.LimitPrice,
		&order.Sector, &order.Conviction, &order.Status, &validationJSON,
		&order.BrokerOrderID, &order.SubmittedAt, &order.CreatedAt)
	if err != nil {
		return nil, err
	}

	if len(validationJSON) > 0 {
		var result models.ValidationResult
		if err := json.Unmarshal(validationJSON, &result); err == nil {
			order.Validation = &result
		}
	}

	return &order, nil
}
