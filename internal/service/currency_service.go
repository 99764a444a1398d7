package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/markethub/geocurrency/internal/agreements"
	"github.com/markethub/geocurrency/internal/classifier"
	"github.com/markethub/geocurrency/internal/currency"
	"github.com/markethub/geocurrency/internal/logger"
	"github.com/markethub/geocurrency/internal/metrics"
	"github.com/markethub/geocurrency/internal/models"
)

// CurrencyService sits between the HTTP handlers and the engine
//
// Responsibilities:
//   - Validate input (coordinates, user IDs)
//   - Call the currency store, rate provider and agreement store
//   - Run the classifier for dashboard aggregation
//   - NO HTTP concerns (that's the handler layer)
type CurrencyService struct {
	store      *currency.Store
	rates      currency.RateSource
	agreements agreements.Store
	classifier *classifier.Classifier
	validator  *validator.Validate
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

// NewCurrencyService creates the service
// metrics and logger may be nil
func NewCurrencyService(store *currency.Store, rates currency.RateSource, agreementStore agreements.Store,
	cls *classifier.Classifier, m *metrics.Metrics, log *logger.Logger) *CurrencyService {
	if log == nil {
		log = logger.NewDefault()
	}
	return &CurrencyService{
		store:      store,
		rates:      rates,
		agreements: agreementStore,
		classifier: cls,
		validator:  validator.New(),
		metrics:    m,
		logger:     log.WithComponent("CurrencyService"),
	}
}

// Resolve runs a resolution, optionally seeded with client coordinates
// It cannot fail from engine degradation; only invalid coordinates error
func (s *CurrencyService) Resolve(ctx context.Context, lat, lon *float64) (models.CurrencyState, error) {
	if lat != nil || lon != nil {
		if lat == nil || lon == nil {
			return models.CurrencyState{}, fmt.Errorf("latitude and longitude must be supplied together")
		}
		if err := s.validator.Var(*lat, "latitude"); err != nil {
			return models.CurrencyState{}, fmt.Errorf("invalid latitude")
		}
		if err := s.validator.Var(*lon, "longitude"); err != nil {
			return models.CurrencyState{}, fmt.Errorf("invalid longitude")
		}
		return s.store.InitializeAt(ctx, *lat, *lon), nil
	}
	return s.store.Initialize(ctx), nil
}

// Refresh forces a fresh resolution, bypassing the durable location cache
func (s *CurrencyService) Refresh(ctx context.Context) models.CurrencyState {
	return s.store.Refresh(ctx)
}

// State returns the current snapshot without triggering a resolution
func (s *CurrencyService) State() models.CurrencyState {
	return s.store.State()
}

// Convert translates an amount using the cached rate - no network call
func (s *CurrencyService) Convert(amount float64, from, to string) float64 {
	return s.store.Convert(amount, from, to)
}

// Format renders an amount with symbol and locale grouping
func (s *CurrencyService) Format(amount float64, code string) string {
	return s.store.Format(amount, code)
}

// GatewayRecommendation tells the payment-initiation flow which provider
// to invoke for the resolved currency
type GatewayRecommendation struct {
	CurrencyCode string `json:"currencyCode"`
	Gateway      string `json:"gateway"`
}

// Gateway recommends a payment gateway for the currently resolved currency
func (s *CurrencyService) Gateway() GatewayRecommendation {
	state := s.store.State()
	return GatewayRecommendation{
		CurrencyCode: state.CurrencyCode,
		Gateway:      s.store.RecommendGateway(state.CurrencyCode),
	}
}

// EarningsSummary aggregates a user's historical agreements by classified
// currency and converts the grand total into a display currency
//
// Conversions use current rates because historical records carry no rate
// from transaction time; Approximate is always true and callers must
// surface the total as an estimate
type EarningsSummary struct {
	UserID      string             `json:"userId"`
	Currency    string             `json:"currency"`
	Total       float64            `json:"total"`
	Count       int                `json:"count"`
	ByCurrency  map[string]float64 `json:"byCurrency"`
	Approximate bool               `json:"approximate"`
}

// Earnings builds the dashboard summary for one user
// displayCurrency is optional; empty means the currently resolved currency
func (s *CurrencyService) Earnings(ctx context.Context, userID, displayCurrency string) (*EarningsSummary, error) {
	if err := s.validator.Var(userID, "required"); err != nil {
		return nil, fmt.Errorf("user id is required")
	}

	records, err := s.agreements.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Agreement store error")
		return nil, fmt.Errorf("failed to load agreements: %w", err)
	}

	state := s.store.State()
	if displayCurrency != "" && displayCurrency != state.CurrencyCode {
		// Build a display-currency view over the same engine: rate
		// acquisition still degrades to the fallback table, never fails
		display := models.CurrencyState{
			CurrencyCode: displayCurrency,
			ExchangeRate: s.rates.GetRate(ctx, displayCurrency),
		}
		state = display
	}

	summary := &EarningsSummary{
		UserID:      userID,
		Currency:    state.CurrencyCode,
		Count:       len(records),
		ByCurrency:  make(map[string]float64),
		Approximate: true,
	}

	for _, rec := range records {
		display := s.classifier.ForDisplay(rec, state)
		summary.Total += display.Amount
		summary.ByCurrency[display.Classified] += s.classifier.Amount(rec)

		if s.metrics != nil {
			s.metrics.ClassificationsTotal.WithLabelValues(display.Rule).Inc()
		}
	}

	s.logger.Debug().
		Str("user_id", userID).
		Int("count", summary.Count).
		Str("currency", summary.Currency).
		Msg("Earnings summary built")

	return summary, nil
}
