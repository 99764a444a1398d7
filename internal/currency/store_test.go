package currency

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/markethub/geocurrency/internal/location"
	"github.com/markethub/geocurrency/internal/models"
)

// mockResolver is a Resolver double with call counting and an optional
// delay to exercise coalescing
type mockResolver struct {
	record models.LocationRecord
	delay  time.Duration
	calls  int32
}

func (m *mockResolver) Resolve(ctx context.Context, opts location.ResolveOptions) models.LocationRecord {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.record
}

// mockRateSource returns a fixed rate per currency
type mockRateSource struct {
	rates map[string]float64
	calls int32
}

func (m *mockRateSource) GetRate(ctx context.Context, target string) float64 {
	atomic.AddInt32(&m.calls, 1)
	if rate, ok := m.rates[target]; ok {
		return rate
	}
	return 1
}

func nigeriaRecord() models.LocationRecord {
	return models.LocationRecord{
		Country:         "Nigeria",
		CountryCode:     "ng",
		City:            "Lagos",
		CurrencyCode:    "ngn",
		CurrencySymbol:  "₦",
		Flag:            "🇳🇬",
		DetectionMethod: models.DetectionGeolocation,
		ResolvedAt:      time.Now(),
	}
}

// TestStore_InitialState tests the pre-resolution snapshot
func TestStore_InitialState(t *testing.T) {
	store := NewStore(&mockResolver{}, &mockRateSource{}, "usd", nil)

	state := store.State()
	if !state.Loading {
		t.Error("expected Loading true before first resolution")
	}
	if state.CurrencyCode != "usd" {
		t.Errorf("expected base currency 'usd', got %q", state.CurrencyCode)
	}
	if state.ExchangeRate != 1 {
		t.Errorf("expected rate 1, got %v", state.ExchangeRate)
	}
	if state.Location != nil {
		t.Error("expected no location before resolution")
	}
}

// TestStore_Initialize tests the full publish path
func TestStore_Initialize(t *testing.T) {
	resolver := &mockResolver{record: nigeriaRecord()}
	rates := &mockRateSource{rates: map[string]float64{"ngn": 1600}}
	store := NewStore(resolver, rates, "usd", nil)

	state := store.Initialize(context.Background())

	if state.Loading {
		t.Error("expected Loading false after resolution")
	}
	if state.CurrencyCode != "ngn" {
		t.Errorf("expected 'ngn', got %q", state.CurrencyCode)
	}
	if state.Symbol != "₦" {
		t.Errorf("expected '₦', got %q", state.Symbol)
	}
	if state.ExchangeRate != 1600 {
		t.Errorf("expected rate 1600, got %v", state.ExchangeRate)
	}
	if state.Location == nil || state.Location.City != "Lagos" {
		t.Error("expected the location record on the state")
	}
	if state.Error != "" {
		t.Errorf("expected no diagnostic on a live resolution, got %q", state.Error)
	}

	// The published snapshot matches the returned one
	if got := store.State(); got.CurrencyCode != "ngn" || got.ExchangeRate != 1600 {
		t.Errorf("published state diverges: %+v", got)
	}
}

// TestStore_FallbackCarriesDiagnostic tests that an anchor resolution is
// still a fully usable state with an advisory Error
func TestStore_FallbackCarriesDiagnostic(t *testing.T) {
	record := nigeriaRecord()
	record.DetectionMethod = models.DetectionFallback
	resolver := &mockResolver{record: record}
	store := NewStore(resolver, &mockRateSource{rates: map[string]float64{"ngn": 1600}}, "usd", nil)

	state := store.Initialize(context.Background())

	if state.Error == "" {
		t.Error("expected a diagnostic on fallback resolution")
	}
	if state.Loading {
		t.Error("fallback state must not be stuck loading")
	}
	if state.CurrencyCode != "ngn" || state.ExchangeRate != 1600 {
		t.Errorf("fallback state must still be fully formed: %+v", state)
	}
}

// TestStore_ConcurrentInitialize tests that simultaneous callers share
// one resolution
func TestStore_ConcurrentInitialize(t *testing.T) {
	resolver := &mockResolver{record: nigeriaRecord(), delay: 50 * time.Millisecond}
	store := NewStore(resolver, &mockRateSource{rates: map[string]float64{"ngn": 1600}}, "usd", nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state := store.Initialize(context.Background())
			if state.CurrencyCode != "ngn" {
				t.Errorf("expected 'ngn', got %q", state.CurrencyCode)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&resolver.calls); n != 1 {
		t.Errorf("expected one shared resolution, got %d", n)
	}
}

// TestStore_Convert tests bidirectional conversion against the
// published rate
func TestStore_Convert(t *testing.T) {
	resolver := &mockResolver{record: nigeriaRecord()}
	store := NewStore(resolver, &mockRateSource{rates: map[string]float64{"ngn": 1600}}, "usd", nil)
	store.Initialize(context.Background())

	tests := []struct {
		name     string
		amount   float64
		from, to string
		expected float64
	}{
		{"base to current", 10, "usd", "ngn", 16000},
		{"current to base", 16000, "ngn", "usd", 10},
		{"identity", 42, "ngn", "ngn", 42},
		{"zero", 0, "usd", "ngn", 0},
		{"unrelated pair passes through", 42, "gbp", "eur", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := store.Convert(tt.amount, tt.from, tt.to)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Convert(%v, %s, %s) = %v, expected %v", tt.amount, tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

// TestStore_ConvertRoundTrip tests that converting out and back is the
// identity within floating point tolerance
func TestStore_ConvertRoundTrip(t *testing.T) {
	resolver := &mockResolver{record: nigeriaRecord()}
	store := NewStore(resolver, &mockRateSource{rates: map[string]float64{"ngn": 1579.37}}, "usd", nil)
	store.Initialize(context.Background())

	amount := 123.45
	back := store.Convert(store.Convert(amount, "usd", "ngn"), "ngn", "usd")
	if math.Abs(back-amount) > 1e-9 {
		t.Errorf("round trip drifted: %v -> %v", amount, back)
	}
}

// TestStore_ConvertInvalidInputs tests NaN and infinity handling
func TestStore_ConvertInvalidInputs(t *testing.T) {
	store := NewStore(&mockResolver{record: nigeriaRecord()},
		&mockRateSource{rates: map[string]float64{"ngn": 1600}}, "usd", nil)
	store.Initialize(context.Background())

	if got := store.Convert(math.NaN(), "usd", "ngn"); got != 0 {
		t.Errorf("expected 0 for NaN, got %v", got)
	}
	if got := store.Convert(math.Inf(1), "usd", "ngn"); got != 0 {
		t.Errorf("expected 0 for +Inf, got %v", got)
	}
	if got := store.Convert(math.Inf(-1), "ngn", "usd"); got != 0 {
		t.Errorf("expected 0 for -Inf, got %v", got)
	}
}

// TestStore_RecommendGateway tests the currency to gateway mapping
func TestStore_RecommendGateway(t *testing.T) {
	store := NewStore(&mockResolver{}, &mockRateSource{}, "usd", nil)

	if g := store.RecommendGateway("ngn"); g != "paystack" {
		t.Errorf("expected 'paystack' for local currency, got %q", g)
	}
	if g := store.RecommendGateway("usd"); g != "stripe" {
		t.Errorf("expected 'stripe' for base currency, got %q", g)
	}
	if g := store.RecommendGateway("USD"); g != "stripe" {
		t.Errorf("expected 'stripe' for uppercase base, got %q", g)
	}
}
