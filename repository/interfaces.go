package repository

import (
	"context"

	"sentinel/models"

	"github.com/google/uuid"
)

// RepositoryInterface defines all audit-log operations.
type RepositoryInterface interface {
	// Health and lifecycle
	Close()
	Health(ctx context.Context) error

	// Trading cycles
	CreateTradingCycle(ctx context.Context, cycle *models.TradingCycle) error
	UpdateTradingCycle(ctx context.Context, cycle *models.TradingCycle) error
	GetTradingCycle(ctx context.Context, id uuid.UUID) (*models.TradingCycle, error)
	GetRecentCycles(ctx context.Context, limit int) ([]models.TradingCycle, error)

	// Candidates
	CreateCandidate(ctx context.Context, cycleID uuid.UUID, c *models.Candidate) error
	GetCandidatesByCycle(ctx context.Context, cycleID uuid.UUID) ([]models.Candidate, error)

	// Orders
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrders(ctx context.Context, status models.OrderStatus, limit int) ([]models.Order, error)
	GetPendingOrders(ctx context.Context) ([]models.Order, error)
	GetOrdersByCycle(ctx context.Context, cycleID uuid.UUID) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error
	MarkOrderSubmitted(ctx context.Context, order *models.Order) error
}

// Compile-time interface verification
var _ RepositoryInterface = (*Repository)(nil)
