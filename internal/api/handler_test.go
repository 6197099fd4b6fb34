package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sentinel/config"
	"sentinel/internal/app"
	"sentinel/models"
	"sentinel/services"

	"github.com/shopspring/decimal"
)

type stubDesk struct {
	candidate *models.Candidate
	err       error
}

func (s *stubDesk) Score(ctx context.Context, ticker string) (*models.Candidate, error) {
	return s.candidate, s.err
}

type stubScreener struct {
	run *models.ScreenerRun
	err error
}

func (s *stubScreener) Screen(ctx context.Context) (*models.ScreenerRun, error) {
	return s.run, s.err
}

type stubBrokerage struct {
	state *models.PortfolioState
	err   error
}

func (s *stubBrokerage) GetPortfolioState(ctx context.Context) (*models.PortfolioState, error) {
	return s.state, s.err
}

func (s *stubBrokerage) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBrokerage) GetLatestTrade(ctx context.Context, ticker string) (*models.Quote, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBrokerage) GetDailyBars(ctx context.Context, ticker string, days int) ([]models.Bar, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBrokerage) SubmitOrder(ctx context.Context, order *models.Order) (string, error) {
	return "broker-" + order.Ticker, nil
}

var _ services.BrokerageService = (*stubBrokerage)(nil)

// testConfig returns a test configuration
func testConfig() *config.Config {
	return config.NewTestConfig()
}

// emptyApp creates an App with no wired dependencies
func emptyApp(t *testing.T) *app.App {
	t.Helper()
	a, err := app.New(testConfig(), nil, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return a
}

// tradingApp creates an App whose pipeline produces one validated AAPL buy
func tradingApp(t *testing.T) *app.App {
	t.Helper()

	candidate := models.NewCandidate("AAPL", models.CandidateActionBuy, 80, 100)
	candidate.EntryPrice = decimal.NewFromInt(100)
	candidate.StopLossPrice = decimal.NewFromInt(95)
	candidate.Sector = "Technology"

	run := models.NewScreenerRun(models.ScreenerCriteria{})
	run.Candidates = []models.ScreenerCandidate{{Ticker: "AAPL"}}

	state := models.NewPortfolioState(
		decimal.NewFromInt(100_000), decimal.NewFromInt(100_000), nil)

	a, err := app.New(testConfig(), nil,
		&stubDesk{candidate: candidate},
		&stubScreener{run: run},
		&stubBrokerage{state: state}, nil)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return a
}

// testRouter creates a Chi router with test config for testing
func testRouter(application *app.App) http.Handler {
	cfg := testConfig()
	handler := NewHandler(application, cfg)
	return NewRouter(handler, cfg)
}

func doRequest(t *testing.T, router http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_Health(t *testing.T) {
	router := testRouter(emptyApp(t))

	for _, path := range []string{"/health", "/api/health"} {
		w := doRequest(t, router, http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, w.Code)
		}

		var body map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON from %s: %v", path, err)
		}
		svcs := body["services"].(map[string]interface{})
		if svcs["database"] != "not_configured" {
			t.Errorf("database status = %v, want not_configured", svcs["database"])
		}
	}
}

func TestHandler_RunCycle(t *testing.T) {
	router := testRouter(tradingApp(t))

	w := doRequest(t, router, http.MethodPost, "/api/cycles/run", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var result app.CycleResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(result.Orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(result.Orders))
	}
	if result.Orders[0].Status != models.OrderStatusValidated {
		t.Errorf("order status = %s, want validated", result.Orders[0].Status)
	}
	if result.Cycle.Status != models.TradingCycleStatusCompleted {
		t.Errorf("cycle status = %s, want completed", result.Cycle.Status)
	}
}

func TestHandler_RunCycle_ScreenerFailure(t *testing.T) {
	a, err := app.New(testConfig(), nil,
		&stubDesk{},
		&stubScreener{err: errors.New("provider down")},
		&stubBrokerage{}, nil)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	router := testRouter(a)

	w := doRequest(t, router, http.MethodPost, "/api/cycles/run", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "screener failed") {
		t.Errorf("body = %s, want screener failure message", w.Body.String())
	}
}

func TestHandler_ListCycles_NoDatabase(t *testing.T) {
	router := testRouter(emptyApp(t))

	w := doRequest(t, router, http.MethodGet, "/api/cycles/", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestHandler_GetCycle_NoDatabase(t *testing.T) {
	router := testRouter(emptyApp(t))

	w := doRequest(t, router, http.MethodGet, "/api/cycles/550e8400-e29b-41d4-a716-446655440000", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestHandler_PendingOrders_Empty(t *testing.T) {
	router := testRouter(emptyApp(t))

	w := doRequest(t, router, http.MethodGet, "/api/orders/pending", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["count"].(float64) != 0 {
		t.Errorf("count = %v, want 0", body["count"])
	}
}

func TestHandler_OrderApprovalFlow(t *testing.T) {
	a := tradingApp(t)
	router := testRouter(a)

	result, err := a.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	orderID := result.Orders[0].ID.String()

	w := doRequest(t, router, http.MethodPost, "/api/orders/"+orderID+"/approve", "")
	if w.Code != http.StatusOK {
		t.Fatalf("approve status = %d, body = %s", w.Code, w.Body.String())
	}
	var approved models.Order
	if err := json.Unmarshal(w.Body.Bytes(), &approved); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if approved.Status != models.OrderStatusAccepted {
		t.Errorf("status = %s, want accepted", approved.Status)
	}

	w = doRequest(t, router, http.MethodPost, "/api/orders/submit", "")
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body = %s", w.Code, w.Body.String())
	}
	var submitBody struct {
		Submitted []models.Order `json:"submitted"`
		Count     int            `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &submitBody); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if submitBody.Count != 1 || submitBody.Submitted[0].BrokerOrderID != "broker-AAPL" {
		t.Errorf("submit result = %+v, want one broker-AAPL order", submitBody)
	}
}

func TestHandler_RejectOrder(t *testing.T) {
	a := tradingApp(t)
	router := testRouter(a)

	result, err := a.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	orderID := result.Orders[0].ID.String()

	w := doRequest(t, router, http.MethodPost, "/api/orders/"+orderID+"/reject", "")
	if w.Code != http.StatusOK {
		t.Fatalf("reject status = %d, body = %s", w.Code, w.Body.String())
	}
	var rejected models.Order
	if err := json.Unmarshal(w.Body.Bytes(), &rejected); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rejected.Status != models.OrderStatusRejected {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}
}

func TestHandler_OrderErrors(t *testing.T) {
	router := testRouter(emptyApp(t))

	tests := []struct {
		name string
		path string
		want int
	}{
		{"malformed ID", "/api/orders/not-a-uuid/approve", http.StatusBadRequest},
		{"unknown ID", "/api/orders/550e8400-e29b-41d4-a716-446655440000/approve", http.StatusNotFound},
		{"reject malformed ID", "/api/orders/not-a-uuid/reject", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodPost, tt.path, "")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHandler_AnalyzeTicker(t *testing.T) {
	t.Run("valid ticker", func(t *testing.T) {
		candidate := models.NewCandidate("AAPL", models.CandidateActionBuy, 70, 100)
		candidate.EntryPrice = decimal.NewFromInt(100)
		candidate.StopLossPrice = decimal.NewFromInt(95)

		a, err := app.New(testConfig(), nil, &stubDesk{candidate: candidate}, nil, nil, nil)
		if err != nil {
			t.Fatalf("failed to create app: %v", err)
		}
		router := testRouter(a)

		w := doRequest(t, router, http.MethodPost, "/api/analyze", `{"ticker":"aapl"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		var got models.Candidate
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Ticker != "AAPL" {
			t.Errorf("ticker = %s, want AAPL", got.Ticker)
		}
	})

	t.Run("weak signal returns no candidate", func(t *testing.T) {
		a, err := app.New(testConfig(), nil, &stubDesk{}, nil, nil, nil)
		if err != nil {
			t.Fatalf("failed to create app: %v", err)
		}
		router := testRouter(a)

		w := doRequest(t, router, http.MethodPost, "/api/analyze", `{"ticker":"MSFT"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "no actionable signal") {
			t.Errorf("body = %s, want no actionable signal", w.Body.String())
		}
	})

	t.Run("invalid tickers", func(t *testing.T) {
		router := testRouter(emptyApp(t))

		for _, body := range []string{`{}`, `{"ticker":"WAY_TOO_LONG_TICKER"}`, `{"ticker":"BAD TICKER"}`} {
			w := doRequest(t, router, http.MethodPost, "/api/analyze", body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("body %s: status = %d, want 400", body, w.Code)
			}
		}
	})
}

func TestHandler_Portfolio(t *testing.T) {
	t.Run("no brokerage", func(t *testing.T) {
		router := testRouter(emptyApp(t))
		w := doRequest(t, router, http.MethodGet, "/api/portfolio", "")
		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
	})

	t.Run("with brokerage", func(t *testing.T) {
		state := models.NewPortfolioState(
			decimal.NewFromInt(5000), decimal.NewFromInt(5000), []models.Position{{
				Ticker:      "AAPL",
				Quantity:    decimal.NewFromInt(10),
				MarketValue: decimal.NewFromInt(1500),
			}})
		a, err := app.New(testConfig(), nil, nil, nil, &stubBrokerage{state: state}, nil)
		if err != nil {
			t.Fatalf("failed to create app: %v", err)
		}
		router := testRouter(a)

		w := doRequest(t, router, http.MethodGet, "/api/portfolio", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		var got models.PortfolioState
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if !got.TotalPortfolioValue.Equal(decimal.NewFromInt(6500)) {
			t.Errorf("total value = %s, want 6500", got.TotalPortfolioValue)
		}
	})
}

func TestHandler_Metrics(t *testing.T) {
	router := testRouter(emptyApp(t))

	w := doRequest(t, router, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestValidateTicker(t *testing.T) {
	h := NewHandler(nil, testConfig())

	tests := []struct {
		ticker  string
		wantErr bool
	}{
		{"AAPL", false},
		{"BRK.B", false},
		{"BF-B", false},
		{"", true},
		{"TOOLONGTICKER", true},
		{"lower", true},
		{"SPACE X", true},
	}

	for _, tt := range tests {
		err := h.ValidateTicker(tt.ticker)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateTicker(%q) error = %v, wantErr %v", tt.ticker, err, tt.wantErr)
		}
	}
}

func TestParseLimitParam(t *testing.T) {
	h := NewHandler(nil, testConfig())

	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"?limit=5", 5},
		{"?limit=0", 20},
		{"?limit=abc", 20},
		{"?limit=-3", 20},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/cycles/"+tt.query, nil)
		if got := h.ParseLimitParam(req, 20); got != tt.want {
			t.Errorf("ParseLimitParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
