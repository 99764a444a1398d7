package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/markethub/geocurrency/internal/models"
	"github.com/markethub/geocurrency/internal/service"
)

// CurrencyHandler handles HTTP requests for the currency engine
// This is the handler layer - it deals with HTTP concerns only:
// query parsing, status codes and JSON shaping. Business logic lives in
// the service layer
type CurrencyHandler struct {
	service *service.CurrencyService
}

// NewCurrencyHandler creates a new currency handler
func NewCurrencyHandler(service *service.CurrencyService) *CurrencyHandler {
	return &CurrencyHandler{service: service}
}

// Resolve handles GET /v1/currency?lat=<lat>&lon=<lon>
// Both coordinates are optional; when present they seed the resolution
// with the client's own fix instead of the positioning gateway
//
// The engine degrades internally, so this endpoint cannot 5xx from
// provider outages - at worst the response carries the anchor market
// with a diagnostic error string
func (h *CurrencyHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	lat, err := parseOptionalFloat(r.URL.Query().Get("lat"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid 'lat' query parameter")
		return
	}
	lon, err := parseOptionalFloat(r.URL.Query().Get("lon"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid 'lon' query parameter")
		return
	}

	state, err := h.service.Resolve(r.Context(), lat, lon)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, state)
}

// Refresh handles POST /v1/currency/refresh
// Forces a fresh resolution, bypassing the durable location cache read
func (h *CurrencyHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	state := h.service.Refresh(r.Context())
	h.respondJSON(w, http.StatusOK, state)
}

// State handles GET /v1/currency/state
// Returns the current snapshot without triggering a resolution
func (h *CurrencyHandler) State(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.State())
}

// convertResponse is the payload for conversion requests
type convertResponse struct {
	Amount    float64 `json:"amount"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Converted float64 `json:"converted"`
	Formatted string  `json:"formatted"`
}

// Convert handles GET /v1/currency/convert?amount=<n>&from=<code>&to=<code>
func (h *CurrencyHandler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amountStr := q.Get("amount")
	if amountStr == "" {
		h.respondError(w, http.StatusBadRequest, "Missing 'amount' query parameter")
		return
	}
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid 'amount' query parameter")
		return
	}

	from := strings.ToLower(q.Get("from"))
	to := strings.ToLower(q.Get("to"))
	if from == "" || to == "" {
		h.respondError(w, http.StatusBadRequest, "Missing 'from' or 'to' query parameter")
		return
	}

	converted := h.service.Convert(amount, from, to)
	h.respondJSON(w, http.StatusOK, convertResponse{
		Amount:    amount,
		From:      from,
		To:        to,
		Converted: converted,
		Formatted: h.service.Format(converted, to),
	})
}

// formatResponse is the payload for format requests
type formatResponse struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Formatted string  `json:"formatted"`
}

// Format handles GET /v1/currency/format?amount=<n>&currency=<code>
func (h *CurrencyHandler) Format(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid 'amount' query parameter")
		return
	}

	code := strings.ToLower(q.Get("currency"))
	h.respondJSON(w, http.StatusOK, formatResponse{
		Amount:    amount,
		Currency:  code,
		Formatted: h.service.Format(amount, code),
	})
}

// Gateway handles GET /v1/currency/gateway
// The payment-initiation flow reads this to pick a provider
func (h *CurrencyHandler) Gateway(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Gateway())
}

// Earnings handles GET /v1/agreements/summary?user_id=<id>&display=<code>
func (h *CurrencyHandler) Earnings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID := q.Get("user_id")
	if userID == "" {
		h.respondError(w, http.StatusBadRequest, "Missing 'user_id' query parameter")
		return
	}

	summary, err := h.service.Earnings(r.Context(), userID, strings.ToLower(q.Get("display")))
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to build earnings summary")
		return
	}

	h.respondJSON(w, http.StatusOK, summary)
}

// respondJSON writes a JSON response with the given status code
func (h *CurrencyHandler) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondError writes an error response with consistent formatting
func (h *CurrencyHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, models.ErrorResponse{Error: message})
}

// parseOptionalFloat returns nil for an absent parameter
func parseOptionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
