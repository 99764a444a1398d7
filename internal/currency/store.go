package currency

import (
	"context"
	"math"
	"sync"

	"github.com/markethub/geocurrency/internal/geo"
	"github.com/markethub/geocurrency/internal/location"
	"github.com/markethub/geocurrency/internal/logger"
	"github.com/markethub/geocurrency/internal/models"
	"golang.org/x/sync/singleflight"
)

// Resolver is the location side of the store's dependencies
// Satisfied by location.FallbackChain; mocked in tests
type Resolver interface {
	Resolve(ctx context.Context, opts location.ResolveOptions) models.LocationRecord
}

// RateSource is the exchange-rate side of the store's dependencies
// Satisfied by rates.Provider; mocked in tests
type RateSource interface {
	GetRate(ctx context.Context, target string) float64
}

// Store combines location resolution and rate acquisition into one
// published CurrencyState snapshot
//
// Both dependencies degrade internally instead of failing, so nothing
// here can fail either: callers always get a fully-formed state. The
// Error field only ever carries diagnostics
//
// Store is an explicitly constructed, injectable instance - there is no
// package-level state, so tests substitute fake chains, rate sources and
// clocks freely
type Store struct {
	chain Resolver
	rates RateSource
	base  string

	mu    sync.RWMutex
	state models.CurrencyState

	// group coalesces concurrent resolutions: a second caller arriving
	// while one is pending awaits the same in-flight result instead of
	// triggering a redundant network round-trip
	group singleflight.Group

	logger *logger.Logger
}

// NewStore creates a currency store
// The zero state advertises the base currency with rate 1 and Loading
// true until the first resolution publishes
func NewStore(chain Resolver, rates RateSource, base string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewDefault()
	}
	base = location.Normalize(base)
	return &Store{
		chain: chain,
		rates: rates,
		base:  base,
		state: models.CurrencyState{
			CurrencyCode: base,
			Symbol:       location.SymbolFor(base),
			ExchangeRate: 1,
			Loading:      true,
		},
		logger: log.WithComponent("CurrencyStore"),
	}
}

// Initialize resolves location and rate, then publishes a new state
func (s *Store) Initialize(ctx context.Context) models.CurrencyState {
	return s.resolve(ctx, location.ResolveOptions{})
}

// Refresh forces a new resolution, bypassing the durable location cache
// read. A successful live resolution is still written back, rotating the
// cache's TTL window
func (s *Store) Refresh(ctx context.Context) models.CurrencyState {
	return s.resolve(ctx, location.ResolveOptions{BypassCache: true})
}

// InitializeAt resolves using client-supplied coordinates instead of the
// configured position provider
func (s *Store) InitializeAt(ctx context.Context, lat, lon float64) models.CurrencyState {
	return s.resolve(ctx, location.ResolveOptions{Position: geo.NewStaticProvider(lat, lon)})
}

// resolve runs the full sequence under single-flight and publishes the
// result atomically. Consumers never observe a half-updated state
func (s *Store) resolve(ctx context.Context, opts location.ResolveOptions) models.CurrencyState {
	v, _, shared := s.group.Do("resolve", func() (interface{}, error) {
		record := s.chain.Resolve(ctx, opts)
		rate := s.rates.GetRate(ctx, record.CurrencyCode)

		state := models.CurrencyState{
			CurrencyCode: record.CurrencyCode,
			Symbol:       record.CurrencySymbol,
			Location:     &record,
			ExchangeRate: rate,
			Loading:      false,
		}
		if record.DetectionMethod == models.DetectionFallback {
			state.Error = "live location resolution unavailable, using anchor market"
		}

		s.publish(state)
		return state, nil
	})

	state := v.(models.CurrencyState)
	if shared {
		s.logger.Debug().Msg("Resolution coalesced with in-flight request")
	}
	return state
}

// publish replaces the snapshot wholesale
func (s *Store) publish(state models.CurrencyState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// State returns a copy of the current snapshot
func (s *Store) State() models.CurrencyState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Convert translates an amount between the base currency and the
// currently resolved currency using the published rate - no network call
//
// Zero, NaN and infinite inputs yield 0. Converting between two
// identical currencies is the identity. Pairs outside base<->current are
// passed through unchanged, matching the single-rate contract
func (s *Store) Convert(amount float64, from, to string) float64 {
	if amount == 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}

	from = location.Normalize(from)
	to = location.Normalize(to)
	if from == to {
		return amount
	}

	state := s.State()
	rate := state.ExchangeRate
	if rate <= 0 {
		rate = 1
	}

	switch {
	case from == s.base && to == state.CurrencyCode:
		return amount * rate
	case from == state.CurrencyCode && to == s.base:
		return amount / rate
	default:
		return amount
	}
}

// Format renders an amount with the currency's symbol and
// locale-appropriate grouping and decimal rules
func (s *Store) Format(amount float64, code string) string {
	return Format(amount, code)
}

// RecommendGateway maps the resolved currency onto a payment gateway:
// the local market gateway for non-base currencies, the international
// gateway for the base currency. The gateway integrations themselves
// live elsewhere
func (s *Store) RecommendGateway(code string) string {
	if location.Normalize(code) == s.base {
		return "stripe"
	}
	return "paystack"
}
