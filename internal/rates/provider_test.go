package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func serviceFor(name, url string, parse func([]byte, string, string) (float64, error)) QuoteService {
	return QuoteService{
		Name:  name,
		URL:   func(base string) string { return url },
		Parse: parse,
	}
}

// TestGetRate_BaseFastPath tests that the base currency never touches
// the network
func TestGetRate_BaseFastPath(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"rates":{"USD":1}}`))
	}))
	defer server.Close()

	p := NewProviderWithServices("usd", 10*time.Minute, time.Second,
		[]QuoteService{serviceFor("svc", server.URL, ParseRatesObject)}, nil, nil)

	if rate := p.GetRate(context.Background(), "usd"); rate != 1 {
		t.Errorf("expected 1 for base currency, got %v", rate)
	}
	if rate := p.GetRate(context.Background(), "USD"); rate != 1 {
		t.Errorf("expected 1 for uppercase base, got %v", rate)
	}
	if rate := p.GetRate(context.Background(), ""); rate != 1 {
		t.Errorf("expected 1 for empty target, got %v", rate)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("expected no network calls, got %d", calls)
	}
}

// TestGetRate_CachesWithinTTL tests that a second call inside the TTL
// is served from memory
func TestGetRate_CachesWithinTTL(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"rates":{"NGN":1600.5}}`))
	}))
	defer server.Close()

	p := NewProviderWithServices("usd", 10*time.Minute, time.Second,
		[]QuoteService{serviceFor("svc", server.URL, ParseRatesObject)}, nil, nil)

	if rate := p.GetRate(context.Background(), "ngn"); rate != 1600.5 {
		t.Fatalf("expected 1600.5, got %v", rate)
	}
	if rate := p.GetRate(context.Background(), "ngn"); rate != 1600.5 {
		t.Fatalf("expected cached 1600.5, got %v", rate)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected one fetch, got %d", calls)
	}
}

// TestGetRate_TTLExpiryRefetches tests staleness via an injected clock
func TestGetRate_TTLExpiryRefetches(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"rates":{"GBP":0.8}}`))
	}))
	defer server.Close()

	p := NewProviderWithServices("usd", 10*time.Minute, time.Second,
		[]QuoteService{serviceFor("svc", server.URL, ParseRatesObject)}, nil, nil)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return current }

	p.GetRate(context.Background(), "gbp")

	// Inside the window: cached
	current = current.Add(10*time.Minute - time.Second)
	p.GetRate(context.Background(), "gbp")
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected one fetch inside the TTL, got %d", calls)
	}

	// At the boundary the entry is stale
	current = current.Add(time.Second)
	p.GetRate(context.Background(), "gbp")
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected refetch after TTL, got %d fetches", calls)
	}
}

// TestGetRate_OrderedFallthrough tests that a broken first service is
// skipped and the second one answers
func TestGetRate_OrderedFallthrough(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"success","rates":{"NGN":1580}}`))
	}))
	defer healthy.Close()

	p := NewProviderWithServices("usd", 10*time.Minute, time.Second, []QuoteService{
		serviceFor("broken", broken.URL, ParseRatesObject),
		serviceFor("healthy", healthy.URL, ParseOpenERAPI),
	}, nil, nil)

	if rate := p.GetRate(context.Background(), "ngn"); rate != 1580 {
		t.Errorf("expected 1580 from the second service, got %v", rate)
	}
}

// TestGetRate_NonPositiveRejected tests that a zero or negative rate is
// treated as a service failure
func TestGetRate_NonPositiveRejected(t *testing.T) {
	zero := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates":{"NGN":0}}`))
	}))
	defer zero.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates":{"NGN":1600}}`))
	}))
	defer healthy.Close()

	p := NewProviderWithServices("usd", 10*time.Minute, time.Second, []QuoteService{
		serviceFor("zero", zero.URL, ParseRatesObject),
		serviceFor("healthy", healthy.URL, ParseRatesObject),
	}, nil, nil)

	if rate := p.GetRate(context.Background(), "ngn"); rate != 1600 {
		t.Errorf("expected 1600, got %v", rate)
	}
}

// TestGetRate_FallbackNotCached tests that the static table answer does
// not stick: once a service recovers, the live rate wins
func TestGetRate_FallbackNotCached(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"rates":{"NGN":1555}}`))
	}))
	defer server.Close()

	p := NewProviderWithServices("usd", 10*time.Minute, time.Second,
		[]QuoteService{serviceFor("svc", server.URL, ParseRatesObject)}, nil, nil)

	if rate := p.GetRate(context.Background(), "ngn"); rate != 1600 {
		t.Fatalf("expected static fallback 1600 during outage, got %v", rate)
	}

	healthy.Store(true)
	if rate := p.GetRate(context.Background(), "ngn"); rate != 1555 {
		t.Errorf("expected live 1555 after recovery, got %v", rate)
	}
}

// TestGetRate_SingleFlight tests that concurrent callers for one
// currency share a single fetch
func TestGetRate_SingleFlight(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte(`{"rates":{"NGN":1600}}`))
	}))
	defer server.Close()

	p := NewProviderWithServices("usd", 10*time.Minute, time.Second,
		[]QuoteService{serviceFor("svc", server.URL, ParseRatesObject)}, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rate := p.GetRate(context.Background(), "ngn"); rate != 1600 {
				t.Errorf("expected 1600, got %v", rate)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected one shared fetch, got %d", n)
	}
}

// TestFallbackRate tests the static table
func TestFallbackRate(t *testing.T) {
	if rate := FallbackRate("ngn"); rate != 1600 {
		t.Errorf("expected 1600, got %v", rate)
	}
	if rate := FallbackRate("xyz"); rate != 1 {
		t.Errorf("expected 1 for unknown currency, got %v", rate)
	}
}

// TestParsers tests the three provider response schemas
func TestParsers(t *testing.T) {
	tests := []struct {
		name     string
		parse    func([]byte, string, string) (float64, error)
		body     string
		expected float64
		wantErr  bool
	}{
		{
			name:     "rates object",
			parse:    ParseRatesObject,
			body:     `{"rates":{"NGN":1600.5,"GBP":0.79}}`,
			expected: 1600.5,
		},
		{
			name:    "rates object missing target",
			parse:   ParseRatesObject,
			body:    `{"rates":{"GBP":0.79}}`,
			wantErr: true,
		},
		{
			name:     "open-er-api success",
			parse:    ParseOpenERAPI,
			body:     `{"result":"success","rates":{"NGN":1590}}`,
			expected: 1590,
		},
		{
			name:    "open-er-api error marker",
			parse:   ParseOpenERAPI,
			body:    `{"result":"error","rates":{"NGN":1590}}`,
			wantErr: true,
		},
		{
			name:     "currency-api nested",
			parse:    ParseCurrencyAPI,
			body:     `{"date":"2025-06-01","usd":{"ngn":1602.3}}`,
			expected: 1602.3,
		},
		{
			name:    "currency-api missing base block",
			parse:   ParseCurrencyAPI,
			body:    `{"eur":{"ngn":1700}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := tt.parse([]byte(tt.body), "usd", "ngn")
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rate != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, rate)
			}
		})
	}
}
