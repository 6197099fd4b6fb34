package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"sentinel/config"
	"sentinel/engine"
	"sentinel/models"
	"sentinel/observability"
	"sentinel/repository"
	"sentinel/screener"
	"sentinel/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepositoryInterface re-exports the audit-log repository contract.
type RepositoryInterface = repository.RepositoryInterface

// Desk scores a single ticker into a trade candidate. A (nil, nil) return
// means the signal was too weak to act on.
type Desk interface {
	Score(ctx context.Context, ticker string) (*models.Candidate, error)
}

// Screener produces the pre-filtered ticker universe for a cycle.
type Screener interface {
	Screen(ctx context.Context) (*models.ScreenerRun, error)
}

// SectorSource resolves the sector for a held ticker. The brokerage reports
// positions without sector data, and the sector-concentration check is blind
// to existing exposure unless someone fills it in.
type SectorSource interface {
	GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error)
}

// CycleResult is the outcome of one trading cycle, returned to the caller
// while the audit rows land in the database.
type CycleResult struct {
	Cycle      *models.TradingCycle `json:"cycle"`
	Candidates []models.Candidate   `json:"candidates"`
	Orders     []models.Order       `json:"orders"`
}

// CycleDetail is a persisted cycle reassembled from its audit rows.
type CycleDetail struct {
	Cycle      *models.TradingCycle `json:"cycle"`
	Candidates []models.Candidate   `json:"candidates"`
	Orders     []models.Order       `json:"orders"`
}

// App wires the screener, research desk, sizing engine, brokerage, and audit
// repository into the cycle pipeline. The in-memory order book is the source
// of truth for the approval workflow; the repository is a write-mostly audit
// log and the process degrades gracefully without it.
type App struct {
	cfg          *config.Config
	repo         RepositoryInterface
	desk         Desk
	screener     Screener
	brokerage    services.BrokerageService
	fundamentals SectorSource

	allocator  *engine.Allocator
	rebalancer *engine.Rebalancer
	validator  *engine.Validator

	// cycleSlot serializes RunCycle: one cycle at a time, concurrent
	// requests are rejected rather than queued.
	cycleSlot chan struct{}

	// analysisSem bounds concurrent on-demand ticker analyses.
	analysisSem chan struct{}

	mu      sync.Mutex
	orders  map[uuid.UUID]*models.Order
	recent  []engine.RecentOrder
	sectors map[string]string
}

// New validates the engine configuration and assembles the application.
// Any dependency may be nil; the corresponding operations degrade with
// explicit errors instead of panics.
func New(cfg *config.Config, repo RepositoryInterface, desk Desk, scr Screener, brokerage services.BrokerageService, fundamentals SectorSource) (*App, error) {
	allocator, err := engine.NewAllocator(engine.AllocationConfig{
		MaxSinglePositionPct:  cfg.Allocation.MaxSinglePositionPct,
		MaxSectorPct:          cfg.Allocation.MaxSectorPct,
		MaxTotalDeploymentPct: cfg.Allocation.MaxTotalDeploymentPct,
		MinPositionValue:      decimal.NewFromFloat(cfg.Allocation.MinPositionValue),
		ConvictionExponent:    cfg.Allocation.ConvictionExponent,
	})
	if err != nil {
		return nil, fmt.Errorf("allocator config: %w", err)
	}

	rebalancer, err := engine.NewRebalancer(engine.RebalanceConfig{
		Threshold: cfg.Rebalance.Threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("rebalancer config: %w", err)
	}

	validator, err := engine.NewValidator(engine.ConstraintConfig{
		MaxSinglePositionPct: cfg.Constraint.MaxSinglePositionPct,
		MaxSectorPct:         cfg.Constraint.MaxSectorPct,
		MinPositionValue:     decimal.NewFromFloat(cfg.Constraint.MinPositionValue),
		RestrictedTickers:    cfg.Constraint.RestrictedTickers,
		CooldownWindow:       time.Duration(cfg.Constraint.CooldownSeconds) * time.Second,
		CheckPositionSize:    cfg.Constraint.CheckPositionSize,
		CheckSectorCap:       cfg.Constraint.CheckSectorCap,
		CheckMinPosition:     cfg.Constraint.CheckMinPosition,
		CheckRestricted:      cfg.Constraint.CheckRestricted,
		CheckDuplicates:      cfg.Constraint.CheckDuplicates,
	})
	if err != nil {
		return nil, fmt.Errorf("validator config: %w", err)
	}

	concurrency := cfg.Agent.ConcurrencyLimit
	if concurrency <= 0 {
		concurrency = 1
	}

	return &App{
		cfg:          cfg,
		repo:         repo,
		desk:         desk,
		screener:     scr,
		brokerage:    brokerage,
		fundamentals: fundamentals,
		allocator:    allocator,
		rebalancer:   rebalancer,
		validator:    validator,
		cycleSlot:    make(chan struct{}, 1),
		analysisSem:  make(chan struct{}, concurrency),
		orders:       make(map[uuid.UUID]*models.Order),
		sectors:      make(map[string]string),
	}, nil
}

// Repo returns the audit repository, which may be nil.
func (a *App) Repo() RepositoryInterface {
	return a.repo
}

// Brokerage returns the brokerage service, which may be nil.
func (a *App) Brokerage() services.BrokerageService {
	return a.brokerage
}

// Screener returns the universe screener, which may be nil.
func (a *App) Screener() Screener {
	return a.screener
}

// AnalysisSemCapacity returns the on-demand analysis concurrency limit.
func (a *App) AnalysisSemCapacity() int {
	return cap(a.analysisSem)
}

// Shutdown releases held resources.
func (a *App) Shutdown(ctx context.Context) {
	observability.Info("application shutting down")
	if a.repo != nil {
		a.repo.Close()
	}
}

// RunCycle executes one full screen, score, allocate, rebalance, and
// validate pass. The resulting orders wait in the validated state for human
// approval; nothing is submitted to the brokerage here.
func (a *App) RunCycle(ctx context.Context) (*CycleResult, error) {
	select {
	case a.cycleSlot <- struct{}{}:
	default:
		return nil, fmt.Errorf("a trading cycle is already running")
	}
	defer func() { <-a.cycleSlot }()

	if a.screener == nil {
		return nil, fmt.Errorf("screener not configured")
	}
	if a.desk == nil {
		return nil, fmt.Errorf("research desk not configured")
	}
	if a.brokerage == nil {
		return nil, fmt.Errorf("brokerage not configured")
	}

	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()

	cycle := models.NewTradingCycle()
	a.audit("create cycle", func() error {
		return a.repo.CreateTradingCycle(ctx, cycle)
	})
	log := observability.ForCycle(cycle.ID.String())
	log.Info("trading cycle started")

	result, err := a.runCycle(ctx, cycle)
	if err != nil {
		cycle.Fail(err)
		a.audit("fail cycle", func() error {
			return a.repo.UpdateTradingCycle(ctx, cycle)
		})
		timer.ObserveCycle("failed", cycle.CandidateCount)
		log.Error("trading cycle failed", "error", err)
		return nil, err
	}

	timer.ObserveCycle("completed", cycle.CandidateCount)
	log.Info("trading cycle completed",
		"candidates", cycle.CandidateCount,
		"orders", cycle.OrderCount,
		"rejected", cycle.RejectedCount,
		"total_allocated", cycle.TotalAllocated,
		"duration_ms", cycle.DurationMs)
	return result, nil
}

func (a *App) runCycle(ctx context.Context, cycle *models.TradingCycle) (*CycleResult, error) {
	run, err := a.screener.Screen(ctx)
	if err != nil {
		return nil, fmt.Errorf("screener failed: %w", err)
	}
	tickers := screener.Tickers(run)
	if len(tickers) == 0 {
		observability.Warn("screener returned no tickers", "cycle_id", cycle.ID)
	}

	candidates := a.scoreTickers(ctx, tickers)

	state, err := a.brokerage.GetPortfolioState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch portfolio state: %w", err)
	}

	a.enrichPositionSectors(ctx, state, candidates)

	weights := a.weigh(candidates)

	plan, err := a.allocator.Allocate(candidates, weights, state.TotalPortfolioValue)
	if err != nil {
		return nil, fmt.Errorf("allocation failed: %w", err)
	}

	orders := a.rebalancer.ComputeOrders(plan, state, candidates)

	validated, rejected := a.validateOrders(ctx, cycle.ID, orders, state)

	for i := range candidates {
		c := candidates[i]
		a.audit("create candidate", func() error {
			return a.repo.CreateCandidate(ctx, cycle.ID, &c)
		})
	}

	totalAllocated := plan.TotalAllocated()
	observability.GetMetrics().RecordCapitalAllocated(totalAllocated.InexactFloat64())

	cycle.Complete(len(candidates), validated, rejected, totalAllocated.StringFixed(2))
	a.audit("complete cycle", func() error {
		return a.repo.UpdateTradingCycle(ctx, cycle)
	})

	return &CycleResult{
		Cycle:      cycle,
		Candidates: candidates,
		Orders:     orders,
	}, nil
}

// scoreTickers runs the desk over the universe with bounded concurrency.
// Individual scoring failures are logged and skipped; one bad ticker never
// sinks the cycle.
func (a *App) scoreTickers(ctx context.Context, tickers []string) []models.Candidate {
	type scored struct {
		index     int
		candidate *models.Candidate
	}

	results := make(chan scored, len(tickers))
	var wg sync.WaitGroup

	for i, ticker := range tickers {
		wg.Add(1)
		go func(index int, ticker string) {
			defer wg.Done()

			a.analysisSem <- struct{}{}
			defer func() { <-a.analysisSem }()

			candidate, err := a.desk.Score(ctx, ticker)
			if err != nil {
				observability.Warn("desk failed to score ticker",
					"ticker", ticker, "error", err)
				return
			}
			if candidate == nil {
				return
			}
			results <- scored{index: index, candidate: candidate}
		}(i, ticker)
	}

	wg.Wait()
	close(results)

	collected := make([]scored, 0, len(tickers))
	for s := range results {
		collected = append(collected, s)
	}
	// Preserve screener rank order regardless of goroutine completion order.
	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	candidates := make([]models.Candidate, 0, len(collected))
	for _, s := range collected {
		candidates = append(candidates, *s.candidate)
	}
	return candidates
}

// weigh converts each candidate's conviction into an allocation weight.
// Candidates that fail normalization get zero weight and are effectively
// dropped by the allocator.
func (a *App) weigh(candidates []models.Candidate) []float64 {
	weights := make([]float64, len(candidates))
	for i := range candidates {
		w, err := a.allocator.Weigh(&candidates[i])
		if err != nil {
			observability.Warn("candidate conviction failed normalization",
				"ticker", candidates[i].Ticker, "error", err)
			observability.GetMetrics().RecordCandidateError("invalid_conviction")
			continue
		}
		weights[i] = w
	}
	return weights
}

// enrichPositionSectors fills in sector data for held positions before
// validation. Sectors come from this cycle's candidates first, then the
// fundamentals provider, and resolutions are cached across cycles so a
// long-held position costs one lookup, not one per cycle.
func (a *App) enrichPositionSectors(ctx context.Context, state *models.PortfolioState, candidates []models.Candidate) {
	a.mu.Lock()
	for _, c := range candidates {
		if c.Sector != "" {
			a.sectors[c.Ticker] = c.Sector
		}
	}
	a.mu.Unlock()

	for ticker, pos := range state.Positions {
		if pos.Sector != "" {
			continue
		}

		a.mu.Lock()
		sector, cached := a.sectors[ticker]
		a.mu.Unlock()

		if !cached && a.fundamentals != nil {
			f, err := a.fundamentals.GetFundamentals(ctx, ticker)
			if err != nil {
				observability.Warn("failed to resolve sector for held position",
					"ticker", ticker, "error", err)
				continue
			}
			sector = f.Sector
			a.mu.Lock()
			a.sectors[ticker] = sector
			a.mu.Unlock()
		}

		if sector != "" {
			pos.Sector = sector
			state.Positions[ticker] = pos
		}
	}
}

// validateOrders runs every proposed order through the constraint validator,
// persists the outcome, and stages passing orders for human review. Returns
// the validated and rejected counts.
func (a *App) validateOrders(ctx context.Context, cycleID uuid.UUID, orders []models.Order, state *models.PortfolioState) (validated, rejected int) {
	metrics := observability.GetMetrics()
	now := time.Now()

	a.mu.Lock()
	a.pruneRecentLocked(now)
	recent := make([]engine.RecentOrder, len(a.recent))
	copy(recent, a.recent)
	a.mu.Unlock()

	for i := range orders {
		order := &orders[i]
		order.CycleID = cycleID

		result := a.validator.Validate(order, state, recent, now)
		order.ApplyValidation(result)

		notional := order.NotionalValue.InexactFloat64()
		metrics.RecordOrder(string(order.Action), string(order.Status), notional)
		for _, v := range result.Violations {
			metrics.RecordViolation(v.RuleName)
		}

		if result.Passed() {
			validated++
			recent = append(recent, engine.RecentOrder{
				Ticker:      order.Ticker,
				Action:      order.Action,
				Quantity:    order.Quantity,
				ValidatedAt: now,
			})
		} else {
			rejected++
			observability.Warn("order rejected by validation",
				"ticker", order.Ticker,
				"action", order.Action,
				"violations", len(result.Violations))
		}

		a.audit("create order", func() error {
			return a.repo.CreateOrder(ctx, order)
		})
	}

	a.mu.Lock()
	a.recent = recent
	for i := range orders {
		o := orders[i]
		a.orders[o.ID] = &o
	}
	a.mu.Unlock()

	return validated, rejected
}

func (a *App) pruneRecentLocked(now time.Time) {
	window := time.Duration(a.cfg.Constraint.CooldownSeconds) * time.Second
	if window <= 0 {
		window = engine.DefaultCooldownWindow
	}
	kept := a.recent[:0]
	for _, r := range a.recent {
		if now.Sub(r.ValidatedAt) < window {
			kept = append(kept, r)
		}
	}
	a.recent = kept
}

// AnalyzeTicker scores a single ticker on demand, outside any cycle. The
// semaphore rejects excess load instead of queueing it.
func (a *App) AnalyzeTicker(ctx context.Context, ticker string) (*models.Candidate, error) {
	if a.desk == nil {
		return nil, fmt.Errorf("research desk not configured")
	}

	select {
	case a.analysisSem <- struct{}{}:
		defer func() { <-a.analysisSem }()
	default:
		return nil, fmt.Errorf("analysis queue full, try again later")
	}

	return a.desk.Score(ctx, ticker)
}

// GetPortfolio returns the live account snapshot from the brokerage.
func (a *App) GetPortfolio(ctx context.Context) (*models.PortfolioState, error) {
	if a.brokerage == nil {
		return nil, fmt.Errorf("brokerage not configured")
	}
	return a.brokerage.GetPortfolioState(ctx)
}

// PendingOrders returns validated orders awaiting human review.
func (a *App) PendingOrders(ctx context.Context) ([]models.Order, error) {
	if a.repo != nil {
		orders, err := a.repo.GetPendingOrders(ctx)
		if err == nil {
			return orders, nil
		}
		if !errors.Is(err, repository.ErrNoDatabase) {
			return nil, err
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	var pending []models.Order
	for _, o := range a.orders {
		if o.Status == models.OrderStatusValidated {
			pending = append(pending, *o)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending, nil
}

// ApproveOrder marks a validated order as accepted for submission.
func (a *App) ApproveOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := a.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusValidated {
		return nil, fmt.Errorf("order %s is %s, only validated orders can be approved", order.ID, order.Status)
	}

	order.Approve()
	a.storeOrder(order)
	a.audit("approve order", func() error {
		return a.repo.UpdateOrderStatus(ctx, order.ID, order.Status)
	})
	observability.GetMetrics().RecordOrder(string(order.Action), string(order.Status), order.NotionalValue.InexactFloat64())
	observability.Info("order approved", "order_id", order.ID, "ticker", order.Ticker)
	return order, nil
}

// RejectOrder marks an order as rejected by the human reviewer.
func (a *App) RejectOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := a.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusValidated && order.Status != models.OrderStatusAccepted {
		return nil, fmt.Errorf("order %s is %s and cannot be rejected", order.ID, order.Status)
	}

	order.Reject()
	a.storeOrder(order)
	a.audit("reject order", func() error {
		return a.repo.UpdateOrderStatus(ctx, order.ID, order.Status)
	})
	observability.GetMetrics().RecordOrder(string(order.Action), string(order.Status), order.NotionalValue.InexactFloat64())
	observability.Info("order rejected", "order_id", order.ID, "ticker", order.Ticker)
	return order, nil
}

// SubmitApprovedOrders sends every accepted order to the brokerage, sells
// before buys. A failed sell aborts the buys: the cash it was meant to free
// will not be there.
func (a *App) SubmitApprovedOrders(ctx context.Context) ([]models.Order, error) {
	if a.brokerage == nil {
		return nil, fmt.Errorf("brokerage not configured")
	}

	a.mu.Lock()
	var accepted []*models.Order
	for _, o := range a.orders {
		if o.Status == models.OrderStatusAccepted {
			accepted = append(accepted, o)
		}
	}
	a.mu.Unlock()

	sort.SliceStable(accepted, func(i, j int) bool {
		if accepted[i].IsBuy() != accepted[j].IsBuy() {
			return !accepted[i].IsBuy()
		}
		return accepted[i].Conviction > accepted[j].Conviction
	})

	metrics := observability.GetMetrics()
	var submitted []models.Order
	buyFailures := 0

	for _, order := range accepted {
		brokerOrderID, err := a.brokerage.SubmitOrder(ctx, order)
		if err != nil {
			metrics.RecordOrder(string(order.Action), "submit_failed", order.NotionalValue.InexactFloat64())
			observability.Error("order submission failed",
				"order_id", order.ID, "ticker", order.Ticker, "error", err)
			if !order.IsBuy() {
				return submitted, fmt.Errorf("sell submission failed for %s, buys not attempted: %w", order.Ticker, err)
			}
			buyFailures++
			continue
		}

		order.MarkSubmitted(brokerOrderID)
		a.storeOrder(order)
		a.audit("submit order", func() error {
			return a.repo.MarkOrderSubmitted(ctx, order)
		})
		metrics.RecordOrder(string(order.Action), string(order.Status), order.NotionalValue.InexactFloat64())
		observability.Info("order submitted",
			"order_id", order.ID,
			"ticker", order.Ticker,
			"action", order.Action,
			"broker_order_id", brokerOrderID)
		submitted = append(submitted, *order)
	}

	if buyFailures > 0 {
		return submitted, fmt.Errorf("failed to submit %d of %d orders", buyFailures, len(accepted))
	}
	return submitted, nil
}

// GetRecentCycles returns cycle history from the audit log.
func (a *App) GetRecentCycles(ctx context.Context, limit int) ([]models.TradingCycle, error) {
	if a.repo == nil {
		return nil, repository.ErrNoDatabase
	}
	return a.repo.GetRecentCycles(ctx, limit)
}

// GetCycleDetail reassembles a persisted cycle with its candidates and
// orders. Returns nil when the cycle does not exist.
func (a *App) GetCycleDetail(ctx context.Context, id string) (*CycleDetail, error) {
	if a.repo == nil {
		return nil, repository.ErrNoDatabase
	}

	cycleID, err := ParseUUID(id)
	if err != nil {
		return nil, err
	}

	cycle, err := a.repo.GetTradingCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, nil
	}

	candidates, err := a.repo.GetCandidatesByCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	orders, err := a.repo.GetOrdersByCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	return &CycleDetail{Cycle: cycle, Candidates: candidates, Orders: orders}, nil
}

// findOrder looks up an order in the in-memory book first, then the audit
// log. Repository hits are copied into the book so later transitions see a
// consistent object.
func (a *App) findOrder(ctx context.Context, id string) (*models.Order, error) {
	orderID, err := ParseUUID(id)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	order, ok := a.orders[orderID]
	a.mu.Unlock()
	if ok {
		return order, nil
	}

	if a.repo != nil {
		stored, err := a.repo.GetOrder(ctx, orderID)
		if err != nil && !errors.Is(err, repository.ErrNoDatabase) {
			return nil, err
		}
		if stored != nil {
			a.storeOrder(stored)
			return stored, nil
		}
	}

	return nil, fmt.Errorf("order %s not found", orderID)
}

func (a *App) storeOrder(order *models.Order) {
	a.mu.Lock()
	a.orders[order.ID] = order
	a.mu.Unlock()
}

// audit runs a repository write and downgrades failures to warnings. The
// audit log never blocks the trading pipeline.
func (a *App) audit(op string, fn func() error) {
	if a.repo == nil {
		return
	}
	if err := fn(); err != nil && !errors.Is(err, repository.ErrNoDatabase) {
		observability.Warn("audit write failed", "op", op, "error", err)
	}
}

// ParseUUID parses a string ID into a UUID.
func ParseUUID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid ID %q: %w", id, err)
	}
	return parsed, nil
}
