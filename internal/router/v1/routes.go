package v1

import (
	"github.com/go-chi/chi/v5"
	"github.com/markethub/geocurrency/internal/handler"
)

// SetupRoutes configures all v1 API routes
func SetupRoutes(h *handler.CurrencyHandler) chi.Router {
	r := chi.NewRouter()

	// Location and currency resolution
	r.Get("/currency", h.Resolve)
	r.Get("/currency/state", h.State)
	r.Post("/currency/refresh", h.Refresh)

	// Conversion and formatting against the cached rate
	r.Get("/currency/convert", h.Convert)
	r.Get("/currency/format", h.Format)

	// Payment gateway recommendation for the resolved currency
	r.Get("/currency/gateway", h.Gateway)

	// Classified earnings dashboard
	r.Get("/agreements/summary", h.Earnings)

	return r
}
