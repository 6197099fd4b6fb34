package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sentinel/config"
	"sentinel/models"
	"sentinel/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type mockDesk struct {
	scores map[string]*models.Candidate
	errs   map[string]error
}

func (m *mockDesk) Score(ctx context.Context, ticker string) (*models.Candidate, error) {
	if err, ok := m.errs[ticker]; ok {
		return nil, err
	}
	return m.scores[ticker], nil
}

type mockScreener struct {
	run *models.ScreenerRun
	err error
}

func (m *mockScreener) Screen(ctx context.Context) (*models.ScreenerRun, error) {
	return m.run, m.err
}

type mockBrokerage struct {
	state     *models.PortfolioState
	stateErr  error
	submitErr map[string]error
	submitted []string
}

func (m *mockBrokerage) GetPortfolioState(ctx context.Context) (*models.PortfolioState, error) {
	return m.state, m.stateErr
}

func (m *mockBrokerage) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	return nil, errors.New("not implemented")
}

func (m *mockBrokerage) GetLatestTrade(ctx context.Context, ticker string) (*models.Quote, error) {
	return nil, errors.New("not implemented")
}

func (m *mockBrokerage) GetDailyBars(ctx context.Context, ticker string, days int) ([]models.Bar, error) {
	return nil, errors.New("not implemented")
}

func (m *mockBrokerage) SubmitOrder(ctx context.Context, order *models.Order) (string, error) {
	if err, ok := m.submitErr[order.Ticker]; ok {
		return "", err
	}
	m.submitted = append(m.submitted, order.Ticker)
	return "broker-" + order.Ticker, nil
}

type mockSectorSource struct {
	sectors map[string]string
	calls   int
}

func (m *mockSectorSource) GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	m.calls++
	sector, ok := m.sectors[ticker]
	if !ok {
		return nil, errors.New("unknown ticker")
	}
	return &models.Fundamentals{Ticker: ticker, Sector: sector}, nil
}

// mockRepository records audit writes so tests can verify persistence
// happened without a live database.
type mockRepository struct {
	cyclesCreated     int
	cyclesUpdated     int
	candidatesCreated int
	ordersCreated     int
	statusUpdates     int
	submittedMarks    int
}

func (m *mockRepository) Close()                           {}
func (m *mockRepository) Health(ctx context.Context) error { return nil }

func (m *mockRepository) CreateTradingCycle(ctx context.Context, cycle *models.TradingCycle) error {
	m.cyclesCreated++
	return nil
}

func (m *mockRepository) UpdateTradingCycle(ctx context.Context, cycle *models.TradingCycle) error {
	m.cyclesUpdated++
	return nil
}

func (m *mockRepository) GetTradingCycle(ctx context.Context, id uuid.UUID) (*models.TradingCycle, error) {
	return nil, nil
}

func (m *mockRepository) GetRecentCycles(ctx context.Context, limit int) ([]models.TradingCycle, error) {
	return nil, nil
}

func (m *mockRepository) CreateCandidate(ctx context.Context, cycleID uuid.UUID, c *models.Candidate) error {
	m.candidatesCreated++
	return nil
}

func (m *mockRepository) GetCandidatesByCycle(ctx context.Context, cycleID uuid.UUID) ([]models.Candidate, error) {
	return nil, nil
}

func (m *mockRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	m.ordersCreated++
	return nil
}

func (m *mockRepository) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, nil
}

func (m *mockRepository) GetOrders(ctx context.Context, status models.OrderStatus, limit int) ([]models.Order, error) {
	return nil, nil
}

func (m *mockRepository) GetPendingOrders(ctx context.Context) ([]models.Order, error) {
	return nil, repository.ErrNoDatabase
}

func (m *mockRepository) GetOrdersByCycle(ctx context.Context, cycleID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (m *mockRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	m.statusUpdates++
	return nil
}

func (m *mockRepository) MarkOrderSubmitted(ctx context.Context, order *models.Order) error {
	m.submittedMarks++
	return nil
}

var _ RepositoryInterface = (*mockRepository)(nil)

func buyCandidate(ticker string, conviction float64, entry, stop int64) *models.Candidate {
	c := models.NewCandidate(ticker, models.CandidateActionBuy, conviction, 100)
	c.EntryPrice = decimal.NewFromInt(entry)
	c.StopLossPrice = decimal.NewFromInt(stop)
	c.Sector = "Technology"
	return c
}

func screenerRun(tickers ...string) *models.ScreenerRun {
	run := models.NewScreenerRun(models.ScreenerCriteria{})
	for _, t := range tickers {
		run.Candidates = append(run.Candidates, models.ScreenerCandidate{Ticker: t})
	}
	return run
}

func portfolioState(cash int64, positions ...models.Position) *models.PortfolioState {
	return models.NewPortfolioState(decimal.NewFromInt(cash), decimal.NewFromInt(cash), positions)
}

func newTestApp(t *testing.T, repo RepositoryInterface, desk Desk, scr Screener, brokerage *mockBrokerage) *App {
	t.Helper()
	a, err := New(config.NewTestConfig(), repo, desk, scr, brokerage, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

func TestNew_ConcurrencyLimit(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.Agent.ConcurrencyLimit = 5

	a, err := New(cfg, nil, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if a.AnalysisSemCapacity() != 5 {
		t.Errorf("concurrency limit = %d, want 5", a.AnalysisSemCapacity())
	}
}

func TestNew_InvalidEngineConfig(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.Allocation.MaxSinglePositionPct = 0

	if _, err := New(cfg, nil, nil, nil, nil, nil); err == nil {
		t.Error("expected error for zero position cap")
	}
}

func TestRunCycle_FullPipeline(t *testing.T) {
	desk := &mockDesk{scores: map[string]*models.Candidate{
		"AAPL": buyCandidate("AAPL", 80, 100, 95),
		// MSFT scores below the action threshold: desk returns nothing.
	}}
	brokerage := &mockBrokerage{state: portfolioState(100_000)}
	repo := &mockRepository{}
	a := newTestApp(t, repo, desk, &mockScreener{run: screenerRun("AAPL", "MSFT")}, brokerage)

	result, err := a.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if len(result.Candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(result.Candidates))
	}
	if len(result.Orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(result.Orders))
	}

	order := result.Orders[0]
	if order.Ticker != "AAPL" || !order.IsBuy() {
		t.Errorf("order = %s %s, want AAPL buy", order.Ticker, order.Action)
	}
	// 90% deployable capital, position capped at 20% of 100k, $100 entry.
	if !order.Quantity.Equal(decimal.NewFromInt(200)) {
		t.Errorf("quantity = %s, want 200", order.Quantity)
	}
	if order.Status != models.OrderStatusValidated {
		t.Errorf("status = %s, want validated", order.Status)
	}
	if order.CycleID != result.Cycle.ID {
		t.Error("order should carry the cycle ID")
	}

	if result.Cycle.Status != models.TradingCycleStatusCompleted {
		t.Errorf("cycle status = %s, want completed", result.Cycle.Status)
	}
	if result.Cycle.OrderCount != 1 || result.Cycle.RejectedCount != 0 {
		t.Errorf("cycle counts = %d/%d, want 1/0",
			result.Cycle.OrderCount, result.Cycle.RejectedCount)
	}

	if repo.cyclesCreated != 1 || repo.cyclesUpdated != 1 {
		t.Errorf("cycle audit writes = %d/%d, want 1/1", repo.cyclesCreated, repo.cyclesUpdated)
	}
	if repo.candidatesCreated != 1 || repo.ordersCreated != 1 {
		t.Errorf("candidate/order audit writes = %d/%d, want 1/1",
			repo.candidatesCreated, repo.ordersCreated)
	}

	pending, err := a.PendingOrders(context.Background())
	if err != nil {
		t.Fatalf("PendingOrders failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != order.ID {
		t.Errorf("pending orders = %v, want the validated order", pending)
	}
}

func TestRunCycle_SellsPrecedeBuys(t *testing.T) {
	sell := models.NewCandidate("OLD", models.CandidateActionSell, 60, 100)
	desk := &mockDesk{scores: map[string]*models.Candidate{
		"OLD": sell,
		"NEW": buyCandidate("NEW", 80, 50, 45),
	}}
	brokerage := &mockBrokerage{state: portfolioState(10_000, models.Position{
		Ticker:       "OLD",
		Quantity:     decimal.NewFromInt(100),
		CurrentPrice: decimal.NewFromInt(50),
		MarketValue:  decimal.NewFromInt(5000),
		Sector:       "Energy",
	})}
	a := newTestApp(t, nil, desk, &mockScreener{run: screenerRun("OLD", "NEW")}, brokerage)

	result, err := a.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(result.Orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(result.Orders))
	}
	if result.Orders[0].Action != models.OrderActionSell {
		t.Errorf("first order = %s, sells must precede buys", result.Orders[0].Action)
	}
	if result.Orders[1].Action != models.OrderActionBuy {
		t.Errorf("second order = %s, want buy", result.Orders[1].Action)
	}
}

func TestRunCycle_RestrictedTickerRejected(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.Constraint.RestrictedTickers = []string{"AAPL"}

	desk := &mockDesk{scores: map[string]*models.Candidate{
		"AAPL": buyCandidate("AAPL", 80, 100, 95),
	}}
	brokerage := &mockBrokerage{state: portfolioState(100_000)}
	a, err := New(cfg, nil, desk, &mockScreener{run: screenerRun("AAPL")}, brokerage, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := a.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(result.Orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(result.Orders))
	}
	if result.Orders[0].Status != models.OrderStatusRejected {
		t.Errorf("status = %s, want rejected", result.Orders[0].Status)
	}
	if result.Cycle.RejectedCount != 1 || result.Cycle.OrderCount != 0 {
		t.Errorf("cycle counts = %d validated / %d rejected, want 0/1",
			result.Cycle.OrderCount, result.Cycle.RejectedCount)
	}

	pending, err := a.PendingOrders(context.Background())
	if err != nil {
		t.Fatalf("PendingOrders failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("rejected order must not appear in pending list, got %d", len(pending))
	}
}

func TestRunCycle_DeskErrorSkipsTicker(t *testing.T) {
	desk := &mockDesk{
		scores: map[string]*models.Candidate{"GOOD": buyCandidate("GOOD", 70, 10, 9)},
		errs:   map[string]error{"BAD": errors.New("all agents failed")},
	}
	brokerage := &mockBrokerage{state: portfolioState(100_000)}
	a := newTestApp(t, nil, desk, &mockScreener{run: screenerRun("BAD", "GOOD")}, brokerage)

	result, err := a.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(result.Candidates) != 1 || result.Candidates[0].Ticker != "GOOD" {
		t.Errorf("candidates = %v, want only GOOD", result.Candidates)
	}
}

func TestRunCycle_Failures(t *testing.T) {
	desk := &mockDesk{}
	scr := &mockScreener{run: screenerRun("AAPL")}
	brokerage := &mockBrokerage{state: portfolioState(1000)}

	tests := []struct {
		name    string
		mutate  func(a *App)
		wantErr string
	}{
		{
			name:    "screener not configured",
			mutate:  func(a *App) { a.screener = nil },
			wantErr: "screener not configured",
		},
		{
			name:    "desk not configured",
			mutate:  func(a *App) { a.desk = nil },
			wantErr: "research desk not configured",
		},
		{
			name:    "brokerage not configured",
			mutate:  func(a *App) { a.brokerage = nil },
			wantErr: "brokerage not configured",
		},
		{
			name: "screener error",
			mutate: func(a *App) {
				a.screener = &mockScreener{err: errors.New("provider down")}
			},
			wantErr: "screener failed",
		},
		{
			name: "portfolio fetch error",
			mutate: func(a *App) {
				a.brokerage = &mockBrokerage{stateErr: errors.New("alpaca timeout")}
			},
			wantErr: "failed to fetch portfolio state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(t, nil, desk, scr, brokerage)
			tt.mutate(a)

			_, err := a.RunCycle(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("RunCycle error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestRunCycle_SingleFlight(t *testing.T) {
	brokerage := &mockBrokerage{state: portfolioState(1000)}
	a := newTestApp(t, nil, &mockDesk{}, &mockScreener{run: screenerRun()}, brokerage)

	a.cycleSlot <- struct{}{}
	defer func() { <-a.cycleSlot }()

	_, err := a.RunCycle(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Errorf("RunCycle error = %v, want already running", err)
	}
}

func TestApproveRejectSubmitFlow(t *testing.T) {
	desk := &mockDesk{scores: map[string]*models.Candidate{
		"AAPL": buyCandidate("AAPL", 80, 100, 95),
	}}
	brokerage := &mockBrokerage{state: portfolioState(100_000)}
	repo := &mockRepository{}
	a := newTestApp(t, repo, desk, &mockScreener{run: screenerRun("AAPL")}, brokerage)

	ctx := context.Background()
	result, err := a.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	orderID := result.Orders[0].ID.String()

	approved, err := a.ApproveOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("ApproveOrder failed: %v", err)
	}
	if approved.Status != models.OrderStatusAccepted {
		t.Errorf("status = %s, want accepted", approved.Status)
	}

	// A second approval must fail: the order already left the validated state.
	if _, err := a.ApproveOrder(ctx, orderID); err == nil {
		t.Error("expected error approving an already accepted order")
	}

	submitted, err := a.SubmitApprovedOrders(ctx)
	if err != nil {
		t.Fatalf("SubmitApprovedOrders failed: %v", err)
	}
	if len(submitted) != 1 {
		t.Fatalf("got %d submitted orders, want 1", len(submitted))
	}
	if submitted[0].Status != models.OrderStatusSubmitted {
		t.Errorf("status = %s, want submitted", submitted[0].Status)
	}
	if submitted[0].BrokerOrderID != "broker-AAPL" {
		t.Errorf("broker order id = %q, want broker-AAPL", submitted[0].BrokerOrderID)
	}
	if repo.submittedMarks != 1 {
		t.Errorf("submitted audit writes = %d, want 1", repo.submittedMarks)
	}

	// Nothing left to submit.
	again, err := a.SubmitApprovedOrders(ctx)
	if err != nil {
		t.Fatalf("second SubmitApprovedOrders failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected no orders on second submit, got %d", len(again))
	}
}

func TestRejectOrder(t *testing.T) {
	brokerage := &mockBrokerage{state: portfolioState(1000)}
	a := newTestApp(t, nil, &mockDesk{}, &mockScreener{run: screenerRun()}, brokerage)

	order := models.NewOrder("AAPL", models.OrderActionBuy, decimal.NewFromInt(10), decimal.NewFromInt(100))
	order.Status = models.OrderStatusValidated
	a.storeOrder(order)

	rejected, err := a.RejectOrder(context.Background(), order.ID.String())
	if err != nil {
		t.Fatalf("RejectOrder failed: %v", err)
	}
	if rejected.Status != models.OrderStatusRejected {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}

	if _, err := a.RejectOrder(context.Background(), order.ID.String()); err == nil {
		t.Error("expected error rejecting an already rejected order")
	}
}

func TestOrderActions_InvalidID(t *testing.T) {
	brokerage := &mockBrokerage{state: portfolioState(1000)}
	a := newTestApp(t, nil, &mockDesk{}, &mockScreener{run: screenerRun()}, brokerage)
	ctx := context.Background()

	if _, err := a.ApproveOrder(ctx, "not-a-uuid"); err == nil {
		t.Error("expected error for malformed ID")
	}
	if _, err := a.ApproveOrder(ctx, uuid.New().String()); err == nil ||
		!strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestSubmitApprovedOrders_SellFailureAbortsBuys(t *testing.T) {
	brokerage := &mockBrokerage{
		state:     portfolioState(1000),
		submitErr: map[string]error{"OLD": errors.New("market closed")},
	}
	a := newTestApp(t, nil, &mockDesk{}, &mockScreener{run: screenerRun()}, brokerage)

	sell := models.NewOrder("OLD", models.OrderActionSell, decimal.NewFromInt(5), decimal.NewFromInt(50))
	sell.Status = models.OrderStatusAccepted
	buy := models.NewOrder("NEW", models.OrderActionBuy, decimal.NewFromInt(10), decimal.NewFromInt(20))
	buy.Status = models.OrderStatusAccepted
	a.storeOrder(sell)
	a.storeOrder(buy)

	submitted, err := a.SubmitApprovedOrders(context.Background())
	if err == nil || !strings.Contains(err.Error(), "buys not attempted") {
		t.Fatalf("error = %v, want sell failure aborting buys", err)
	}
	if len(submitted) != 0 {
		t.Errorf("got %d submitted orders, want 0", len(submitted))
	}
	if buy.Status != models.OrderStatusAccepted {
		t.Errorf("buy status = %s, should remain accepted", buy.Status)
	}
	for _, ticker := range brokerage.submitted {
		if ticker == "NEW" {
			t.Error("buy must not reach the brokerage after a failed sell")
		}
	}
}

func TestAnalyzeTicker(t *testing.T) {
	candidate := buyCandidate("AAPL", 70, 100, 95)
	desk := &mockDesk{scores: map[string]*models.Candidate{"AAPL": candidate}}
	brokerage := &mockBrokerage{state: portfolioState(1000)}
	a := newTestApp(t, nil, desk, &mockScreener{run: screenerRun()}, brokerage)

	got, err := a.AnalyzeTicker(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("AnalyzeTicker failed: %v", err)
	}
	if got.Ticker != "AAPL" {
		t.Errorf("ticker = %s, want AAPL", got.Ticker)
	}
}

func TestAnalyzeTicker_QueueFull(t *testing.T) {
	brokerage := &mockBrokerage{state: portfolioState(1000)}
	a := newTestApp(t, nil, &mockDesk{}, &mockScreener{run: screenerRun()}, brokerage)

	for i := 0; i < a.AnalysisSemCapacity(); i++ {
		a.analysisSem <- struct{}{}
	}
	defer func() {
		for i := 0; i < a.AnalysisSemCapacity(); i++ {
			<-a.analysisSem
		}
	}()

	_, err := a.AnalyzeTicker(context.Background(), "AAPL")
	if err == nil || !strings.Contains(err.Error(), "analysis queue full") {
		t.Errorf("error = %v, want queue full", err)
	}
}

func TestGetRecentCycles_NilRepo(t *testing.T) {
	brokerage := &mockBrokerage{state: portfolioState(1000)}
	a := newTestApp(t, nil, &mockDesk{}, &mockScreener{run: screenerRun()}, brokerage)

	_, err := a.GetRecentCycles(context.Background(), 10)
	if !errors.Is(err, repository.ErrNoDatabase) {
		t.Errorf("error = %v, want ErrNoDatabase", err)
	}
}

func TestGetPortfolio_NilBrokerage(t *testing.T) {
	a, err := New(config.NewTestConfig(), nil, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := a.GetPortfolio(context.Background()); err == nil {
		t.Error("expected error without brokerage")
	}
}

func TestDuplicateOrderSuppressedAcrossCycles(t *testing.T) {
	desk := &mockDesk{scores: map[string]*models.Candidate{
		"AAPL": buyCandidate("AAPL", 80, 100, 95),
	}}
	brokerage := &mockBrokerage{state: portfolioState(100_000)}
	a := newTestApp(t, nil, desk, &mockScreener{run: screenerRun("AAPL")}, brokerage)

	ctx := context.Background()
	first, err := a.RunCycle(ctx)
	if err != nil {
		t.Fatalf("first RunCycle failed: %v", err)
	}
	if first.Orders[0].Status != models.OrderStatusValidated {
		t.Fatalf("first order status = %s, want validated", first.Orders[0].Status)
	}

	// Same universe, same portfolio, immediate re-run: the identical order
	// lands inside the cooldown window and must be rejected.
	second, err := a.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second RunCycle failed: %v", err)
	}
	if len(second.Orders) != 1 {
		t.Fatalf("got %d orders in second cycle, want 1", len(second.Orders))
	}
	if second.Orders[0].Status != models.OrderStatusRejected {
		t.Errorf("duplicate order status = %s, want rejected", second.Orders[0].Status)
	}
	found := false
	for _, v := range second.Orders[0].Validation.Violations {
		if v.RuleName == "duplicate_order" {
			found = true
		}
	}
	if !found {
		t.Error("expected a duplicate_order violation")
	}
}

func TestRunCycle_HeldPositionsCountTowardSectorCap(t *testing.T) {
	// The brokerage reports holdings without sector data. CHIP is $20k of
	// Technology exposure; the desk proposes another $20k Technology buy.
	// With a 30% sector cap on a $100k portfolio the buy must be rejected,
	// which only happens if CHIP's sector gets resolved before validation.
	desk := &mockDesk{scores: map[string]*models.Candidate{
		"NEW": buyCandidate("NEW", 80, 100, 95),
	}}
	brokerage := &mockBrokerage{state: portfolioState(80_000, models.Position{
		Ticker:       "CHIP",
		Quantity:     decimal.NewFromInt(100),
		CurrentPrice: decimal.NewFromInt(200),
		MarketValue:  decimal.NewFromInt(20_000),
	})}
	sectors := &mockSectorSource{sectors: map[string]string{"CHIP": "Technology"}}

	a, err := New(config.NewTestConfig(), nil, desk, &mockScreener{run: screenerRun("NEW")}, brokerage, sectors)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := a.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(result.Orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(result.Orders))
	}
	if result.Orders[0].Status != models.OrderStatusRejected {
		t.Fatalf("order status = %s, want rejected", result.Orders[0].Status)
	}
	found := false
	for _, v := range result.Orders[0].Validation.Violations {
		if v.RuleName == "sector_concentration" {
			found = true
		}
	}
	if !found {
		t.Error("expected a sector_concentration violation from existing holdings")
	}
	if sectors.calls != 1 {
		t.Errorf("fundamentals lookups = %d, want 1", sectors.calls)
	}

	// A second cycle reuses the cached sector instead of a fresh lookup.
	if _, err := a.RunCycle(context.Background()); err != nil {
		t.Fatalf("second RunCycle failed: %v", err)
	}
	if sectors.calls != 1 {
		t.Errorf("fundamentals lookups after second cycle = %d, want 1", sectors.calls)
	}
}

func TestParseUUID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "550e8400-e29b-41d4-a716-446655440000", false},
		{"malformed", "invalid-uuid", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUUID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseUUID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestShutdown(t *testing.T) {
	t.Run("without repository", func(t *testing.T) {
		a, err := New(config.NewTestConfig(), nil, nil, nil, nil, nil)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		a.Shutdown(context.Background()) // must not panic
	})

	t.Run("with repository", func(t *testing.T) {
		repo := &mockRepository{}
		a, err := New(config.NewTestConfig(), repo, nil, nil, nil, nil)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		a.Shutdown(context.Background())
	})
}
