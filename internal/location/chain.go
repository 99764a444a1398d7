package location

import (
	"context"
	"time"

	"github.com/markethub/geocurrency/internal/geo"
	"github.com/markethub/geocurrency/internal/logger"
	"github.com/markethub/geocurrency/internal/metrics"
	"github.com/markethub/geocurrency/internal/models"
)

// ResolveOptions controls a single resolution attempt
type ResolveOptions struct {
	// BypassCache skips the durable cache read (a refresh). Successful
	// live resolutions are still written back, rotating the TTL window
	BypassCache bool

	// Position overrides the configured position provider for this call,
	// e.g. when the client sent its own coordinates with the request
	Position geo.PositionProvider
}

// FallbackChain resolves the visitor's location, degrading through
// fallbacks in strict order: durable cache, live positioning plus reverse
// geocoding, then the static anchor market. It never fails
//
// Caching policy: only live resolutions are persisted. The anchor
// fallback is deliberately never written to the cache, so a wrong guess
// cannot poison the session - the next call retries live resolution
type FallbackChain struct {
	cache    Cache
	position geo.PositionProvider
	geocoder geo.Geocoder

	anchorCountry string
	cacheTTL      time.Duration
	now           func() time.Time

	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewFallbackChain wires a chain from its dependencies
//
// Parameters:
//   - cache: durable location cache (Redis or memory)
//   - position: default position provider
//   - geocoder: reverse geocoder
//   - anchorCountry: ISO-2 code of the anchor market
//   - cacheTTL: how long successful resolutions stay cached
func NewFallbackChain(cache Cache, position geo.PositionProvider, geocoder geo.Geocoder,
	anchorCountry string, cacheTTL time.Duration, m *metrics.Metrics, log *logger.Logger) *FallbackChain {
	if log == nil {
		log = logger.NewDefault()
	}
	return &FallbackChain{
		cache:         cache,
		position:      position,
		geocoder:      geocoder,
		anchorCountry: anchorCountry,
		cacheTTL:      cacheTTL,
		now:           time.Now,
		logger:        log.WithComponent("FallbackChain"),
		metrics:       m,
	}
}

// Resolve runs the fallback chain and always returns a usable record
// Steps execute strictly in order and no step is retried within one call
func (f *FallbackChain) Resolve(ctx context.Context, opts ResolveOptions) models.LocationRecord {
	// Step 1: durable cache (skipped on refresh)
	if !opts.BypassCache {
		if record, ok := f.fromCache(ctx); ok {
			return record
		}
	}

	// Step 2: live resolution
	if record, ok := f.live(ctx, opts); ok {
		return record
	}

	// Step 3: static anchor fallback, never persisted
	f.countResolution(string(models.DetectionFallback))
	f.logger.Warn().
		Str("anchor", f.anchorCountry).
		Msg("Live resolution failed, using anchor market")
	return AnchorRecord(f.anchorCountry, f.now())
}

// fromCache returns a non-expired cached record if one exists
func (f *FallbackChain) fromCache(ctx context.Context) (models.LocationRecord, bool) {
	entry, err := f.cache.Get(ctx)
	if err != nil {
		// A broken cache degrades to a miss, never to a failure
		f.logger.Warn().Err(err).Msg("Location cache read failed")
		f.countCache("error")
		return models.LocationRecord{}, false
	}
	if entry == nil {
		f.countCache("miss")
		return models.LocationRecord{}, false
	}

	f.countCache("hit")
	f.countResolution(string(models.DetectionCache))
	f.logger.Debug().
		Str("country_code", entry.Record.CountryCode).
		Time("expires_at", entry.ExpiresAt).
		Msg("Location served from durable cache")
	return entry.Record, true
}

// live attempts positioning followed by reverse geocoding
func (f *FallbackChain) live(ctx context.Context, opts ResolveOptions) (models.LocationRecord, bool) {
	provider := f.position
	if opts.Position != nil {
		provider = opts.Position
	}

	coords, err := provider.Current(ctx)
	if err != nil {
		f.logger.Info().Err(err).Msg("Positioning failed")
		return models.LocationRecord{}, false
	}

	place, err := f.geocoder.Reverse(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		f.logger.Info().Err(err).Msg("Reverse geocoding failed")
		return models.LocationRecord{}, false
	}

	info := CurrencyFor(place.CountryCode)
	lat, lon := coords.Latitude, coords.Longitude
	record := models.LocationRecord{
		Country:         place.CountryName,
		CountryCode:     place.CountryCode,
		City:            place.City,
		CurrencyCode:    info.Code,
		CurrencySymbol:  info.Symbol,
		Flag:            info.Flag,
		DetectionMethod: models.DetectionGeolocation,
		Latitude:        &lat,
		Longitude:       &lon,
		ResolvedAt:      f.now(),
	}

	if err := f.cache.Put(ctx, record, f.cacheTTL); err != nil {
		// Cache write failures cost a future lookup, not this one
		f.logger.Warn().Err(err).Msg("Failed to persist resolved location")
	}

	f.countResolution(string(models.DetectionGeolocation))
	f.logger.Info().
		Str("country", record.Country).
		Str("currency", record.CurrencyCode).
		Msg("Location resolved live")
	return record, true
}

func (f *FallbackChain) countResolution(method string) {
	if f.metrics != nil {
		f.metrics.ResolutionsTotal.WithLabelValues(method).Inc()
	}
}

func (f *FallbackChain) countCache(result string) {
	if f.metrics != nil {
		f.metrics.CacheResults.WithLabelValues("location", result).Inc()
	}
}
