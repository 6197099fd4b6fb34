package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"sentinel/config"
	"sentinel/internal/app"
	"sentinel/repository"
	"sentinel/services"

	"github.com/go-chi/chi/v5"
)

// Handler handles HTTP API requests
type Handler struct {
	app *app.App
	cfg *config.Config
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg}
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"services": map[string]string{
			"database": "unknown",
		},
	}

	if h.app.Repo() != nil {
		if err := h.app.Repo().Health(r.Context()); err == nil {
			status["services"].(map[string]string)["database"] = "connected"
		} else if errors.Is(err, repository.ErrNoDatabase) {
			status["services"].(map[string]string)["database"] = "not_configured"
		} else {
			status["services"].(map[string]string)["database"] = "disconnected"
			status["status"] = "degraded"
		}
	} else {
		status["services"].(map[string]string)["database"] = "not_configured"
	}

	cbStatus := services.GetGlobalRegistry().Status()
	status["circuit_breakers"] = cbStatus
	for _, cb := range cbStatus {
		if cb.State == "open" {
			status["status"] = "degraded"
			break
		}
	}

	h.jsonResponse(w, status)
}

// HandleRunCycle executes one full trading cycle and returns the proposed
// orders awaiting approval.
func (h *Handler) HandleRunCycle(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.RunCycle(r.Context())
	if err != nil {
		if strings.Contains(err.Error(), "already running") {
			h.jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, result)
}

// HandleListCycles returns recent trading cycles from the audit log
func (h *Handler) HandleListCycles(w http.ResponseWriter, r *http.Request) {
	limit := h.ParseLimitParam(r, 20)

	cycles, err := h.app.GetRecentCycles(r.Context(), limit)
	if err != nil {
		if errors.Is(err, repository.ErrNoDatabase) {
			h.jsonError(w, "cycle history requires a database", http.StatusServiceUnavailable)
			return
		}
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"cycles": cycles,
		"count":  len(cycles),
	})
}

// HandleGetCycle returns one persisted cycle with its candidates and orders
func (h *Handler) HandleGetCycle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.jsonError(w, "Missing cycle ID", http.StatusBadRequest)
		return
	}

	detail, err := h.app.GetCycleDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNoDatabase) {
			h.jsonError(w, "cycle history requires a database", http.StatusServiceUnavailable)
			return
		}
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if detail == nil {
		h.jsonError(w, "Cycle not found", http.StatusNotFound)
		return
	}

	h.jsonResponse(w, detail)
}

// HandleGetPendingOrders returns validated orders awaiting human review
func (h *Handler) HandleGetPendingOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.app.PendingOrders(r.Context())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	})
}

// HandleApproveOrder approves a validated order for submission
func (h *Handler) HandleApproveOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.jsonError(w, "Missing order ID", http.StatusBadRequest)
		return
	}

	order, err := h.app.ApproveOrder(r.Context(), id)
	if err != nil {
		h.jsonError(w, err.Error(), orderErrorStatus(err))
		return
	}

	h.jsonResponse(w, order)
}

// HandleRejectOrder rejects a pending order
func (h *Handler) HandleRejectOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.jsonError(w, "Missing order ID", http.StatusBadRequest)
		return
	}

	order, err := h.app.RejectOrder(r.Context(), id)
	if err != nil {
		h.jsonError(w, err.Error(), orderErrorStatus(err))
		return
	}

	h.jsonResponse(w, order)
}

// HandleSubmitOrders sends every approved order to the brokerage
func (h *Handler) HandleSubmitOrders(w http.ResponseWriter, r *http.Request) {
	submitted, err := h.app.SubmitApprovedOrders(r.Context())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"submitted": submitted,
		"count":     len(submitted),
	})
}

// HandleGetPortfolio returns the live account snapshot
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	state, err := h.app.GetPortfolio(r.Context())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, state)
}

// HandleAnalyzeTicker scores a single ticker on demand
func (h *Handler) HandleAnalyzeTicker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker string `json:"ticker"`
	}

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		_ = json.NewDecoder(r.Body).Decode(&req)
	} else {
		_ = r.ParseForm()
		req.Ticker = r.FormValue("ticker")
	}

	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if err := h.ValidateTicker(req.Ticker); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	candidate, err := h.app.AnalyzeTicker(r.Context(), req.Ticker)
	if err != nil {
		if strings.Contains(err.Error(), "queue full") {
			h.jsonError(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if candidate == nil {
		h.jsonResponse(w, map[string]interface{}{
			"ticker":    req.Ticker,
			"candidate": nil,
			"message":   "no actionable signal",
		})
		return
	}

	h.jsonResponse(w, candidate)
}

// Helper functions

// orderErrorStatus maps order workflow errors onto HTTP status codes.
func orderErrorStatus(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "invalid ID"):
		return http.StatusBadRequest
	case strings.Contains(msg, "not found"):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ValidateTicker validates a stock ticker symbol
func (h *Handler) ValidateTicker(ticker string) error {
	if ticker == "" {
		return fmt.Errorf("ticker is required")
	}

	if len(ticker) > 10 {
		return fmt.Errorf("ticker too long (max 10 characters)")
	}

	matched, _ := regexp.MatchString("^[A-Z0-9.-]+$", ticker)
	if !matched {
		return fmt.Errorf("invalid ticker format (alphanumeric, dots, and dashes only)")
	}

	return nil
}

// ParseLimitParam parses the limit query parameter
func (h *Handler) ParseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
