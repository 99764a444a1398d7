package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/markethub/geocurrency/internal/logger"
	"github.com/markethub/geocurrency/internal/metrics"
	"github.com/markethub/geocurrency/internal/models"
	"golang.org/x/sync/singleflight"
)

// ErrRateUnavailable means every quote service was exhausted
// It never escapes GetRate - the static fallback table absorbs it
var ErrRateUnavailable = errors.New("no exchange rate provider available")

// fallbackRates is the static last-resort table, keyed by currency code
// Values are deliberately conservative snapshots; unrecognized currencies
// default to 1
var fallbackRates = map[string]float64{
	"ngn": 1600,
	"gbp": 0.79,
	"eur": 0.92,
	"cad": 1.36,
	"ghs": 15.5,
	"kes": 129,
	"zar": 18.2,
	"inr": 83.5,
	"aud": 1.52,
}

// QuoteService is one external rate endpoint with its schema-specific
// parser. Each service publishes the rate under a different key path;
// the parser isolates that so the fallback loop treats them uniformly
type QuoteService struct {
	Name  string
	URL   func(base string) string
	Parse func(body []byte, base, target string) (float64, error)
}

// Provider fetches base->target exchange rates with an in-memory TTL
// cache and ordered service fallback. GetRate never fails: when every
// service is down it answers from the static table
type Provider struct {
	base     string
	ttl      time.Duration
	timeout  time.Duration
	services []QuoteService
	client   *http.Client

	mu    sync.RWMutex
	cache map[string]models.ExchangeRateEntry

	group singleflight.Group
	now   func() time.Time

	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewProvider creates a rate provider over the default service list
// baseURLs optionally replaces the default endpoints positionally
func NewProvider(base string, ttl, timeout time.Duration, baseURLs []string,
	m *metrics.Metrics, log *logger.Logger) *Provider {
	if log == nil {
		log = logger.NewDefault()
	}
	services := defaultServices()
	for i, u := range baseURLs {
		if i >= len(services) || u == "" {
			break
		}
		services[i] = rebaseService(services[i], u)
	}
	return &Provider{
		base:     strings.ToLower(base),
		ttl:      ttl,
		timeout:  timeout,
		services: services,
		client:   &http.Client{Timeout: timeout},
		cache:    make(map[string]models.ExchangeRateEntry),
		now:      time.Now,
		logger:   log.WithComponent("RateProvider"),
		metrics:  m,
	}
}

// NewProviderWithServices creates a provider over an explicit service
// list. Used by tests to control ordering and failure modes
func NewProviderWithServices(base string, ttl, timeout time.Duration, services []QuoteService,
	m *metrics.Metrics, log *logger.Logger) *Provider {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Provider{
		base:     strings.ToLower(base),
		ttl:      ttl,
		timeout:  timeout,
		services: services,
		client:   &http.Client{Timeout: timeout},
		cache:    make(map[string]models.ExchangeRateEntry),
		now:      time.Now,
		logger:   log.WithComponent("RateProvider"),
		metrics:  m,
	}
}

// GetRate returns the base->target rate. Order: fast-path for the base
// currency itself, fresh cache entry, ordered live services, static table.
// Concurrent callers for the same currency share one in-flight fetch
func (p *Provider) GetRate(ctx context.Context, target string) float64 {
	target = strings.ToLower(strings.TrimSpace(target))

	// Requesting the base against itself never touches the network
	if target == p.base || target == "" {
		return 1
	}

	if rate, ok := p.cached(target); ok {
		p.countCache("hit")
		return rate
	}
	p.countCache("miss")

	// Single-flight per currency: a second caller arriving while a fetch
	// is pending awaits the same result instead of issuing its own
	v, _, _ := p.group.Do("rate:"+target, func() (interface{}, error) {
		// The winner of the race may have populated the cache already
		if rate, ok := p.cached(target); ok {
			return rate, nil
		}

		rate, err := p.fetch(ctx, target)
		if err != nil {
			// Fallback values are not cached, so the next call retries
			// the live services
			if p.metrics != nil {
				p.metrics.RateFallbacks.Inc()
			}
			p.logger.Warn().
				Str("currency", target).
				Err(err).
				Msg("All rate services failed, using static fallback")
			return FallbackRate(target), nil
		}

		p.store(target, rate)
		return rate, nil
	})

	return v.(float64)
}

// cached returns a rate whose entry is still within the TTL
// Stale entries are ignored, not evicted - the next successful fetch
// overwrites them
func (p *Provider) cached(target string) (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.cache[target]
	if !ok {
		return 0, false
	}
	if p.now().Sub(entry.FetchedAt) >= p.ttl {
		return 0, false
	}
	return entry.Rate, true
}

// store records a freshly fetched rate
func (p *Provider) store(target string, rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cache[target] = models.ExchangeRateEntry{
		Base:      p.base,
		Target:    target,
		Rate:      rate,
		FetchedAt: p.now(),
	}
}

// fetch walks the service list in order; first strictly-positive
// parseable rate wins. No retries within a service
func (p *Provider) fetch(ctx context.Context, target string) (float64, error) {
	for _, svc := range p.services {
		rate, err := p.attempt(ctx, svc, target)
		if err != nil {
			p.countFetch(svc.Name, "failure")
			p.logger.Debug().
				Str("service", svc.Name).
				Str("currency", target).
				Err(err).
				Msg("Rate service failed, advancing")
			continue
		}
		p.countFetch(svc.Name, "success")
		p.logger.Info().
			Str("service", svc.Name).
			Str("currency", target).
			Float64("rate", rate).
			Msg("Exchange rate fetched")
		return rate, nil
	}
	return 0, ErrRateUnavailable
}

// attempt performs a single bounded request against one service
func (p *Provider) attempt(ctx context.Context, svc QuoteService, target string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.URL(p.base), nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}

	rate, err := svc.Parse(body, p.base, target)
	if err != nil {
		return 0, err
	}
	if rate <= 0 {
		return 0, fmt.Errorf("non-positive rate %v from %s", rate, svc.Name)
	}
	return rate, nil
}

func (p *Provider) countFetch(service, outcome string) {
	if p.metrics != nil {
		p.metrics.RateFetchesTotal.WithLabelValues(service, outcome).Inc()
	}
}

func (p *Provider) countCache(result string) {
	if p.metrics != nil {
		p.metrics.CacheResults.WithLabelValues("rates", result).Inc()
	}
}

// FallbackRate reads the static fallback table, defaulting to 1 for
// unrecognized currencies. Exported for the classifier, which needs a
// deterministic rate without doing I/O
func FallbackRate(target string) float64 {
	if rate, ok := fallbackRates[target]; ok {
		return rate
	}
	return 1
}

// rebaseService swaps the host portion of a service's URL builder
func rebaseService(svc QuoteService, base string) QuoteService {
	svc.URL = func(string) string { return base }
	return svc
}

// defaultServices returns the production quote service list in priority order
func defaultServices() []QuoteService {
	return []QuoteService{
		{
			Name: "exchangerate-api",
			URL: func(base string) string {
				return "https://api.exchangerate-api.com/v4/latest/" + strings.ToUpper(base)
			},
			Parse: ParseRatesObject,
		},
		{
			Name: "open-er-api",
			URL: func(base string) string {
				return "https://open.er-api.com/v6/latest/" + strings.ToUpper(base)
			},
			Parse: ParseOpenERAPI,
		},
		{
			Name: "currency-api",
			URL: func(base string) string {
				return "https://cdn.jsdelivr.net/npm/@fawazahmed0/currency-api@latest/v1/currencies/" +
					strings.ToLower(base) + ".json"
			},
			Parse: ParseCurrencyAPI,
		},
	}
}

// ParseRatesObject handles the {"rates":{"NGN":1600.5}} shape with
// uppercase currency keys
func ParseRatesObject(body []byte, base, target string) (float64, error) {
	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("rates object: %w", err)
	}

	rate, ok := payload.Rates[strings.ToUpper(target)]
	if !ok {
		return 0, fmt.Errorf("rates object: no rate for %s", target)
	}
	return rate, nil
}

// ParseOpenERAPI handles the open.er-api.com shape, which adds a result
// marker next to the rates map
func ParseOpenERAPI(body []byte, base, target string) (float64, error) {
	var payload struct {
		Result string             `json:"result"`
		Rates  map[string]float64 `json:"rates"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("open-er-api: %w", err)
	}
	if payload.Result != "success" {
		return 0, fmt.Errorf("open-er-api: result %q", payload.Result)
	}

	rate, ok := payload.Rates[strings.ToUpper(target)]
	if !ok {
		return 0, fmt.Errorf("open-er-api: no rate for %s", target)
	}
	return rate, nil
}

// ParseCurrencyAPI handles the {"usd":{"ngn":1600}} shape with the base
// currency as the top-level key and lowercase targets underneath
func ParseCurrencyAPI(body []byte, base, target string) (float64, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("currency-api: %w", err)
	}

	nested, ok := payload[strings.ToLower(base)]
	if !ok {
		return 0, fmt.Errorf("currency-api: no %s block", base)
	}

	var targets map[string]float64
	if err := json.Unmarshal(nested, &targets); err != nil {
		return 0, fmt.Errorf("currency-api: %w", err)
	}

	rate, ok := targets[strings.ToLower(target)]
	if !ok {
		return 0, fmt.Errorf("currency-api: no rate for %s", target)
	}
	return rate, nil
}
