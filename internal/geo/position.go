package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/markethub/geocurrency/internal/logger"
	"github.com/markethub/geocurrency/internal/metrics"
)

// Positioning failures are classified into exactly four kinds and
// propagated - never silently defaulted. The fallback chain decides
// what to do with them.
var (
	ErrPermissionDenied    = errors.New("position permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("position request timed out")
	ErrUnsupported         = errors.New("positioning not supported")
)

// Coordinates is a latitude/longitude pair in decimal degrees
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinates are inside the WGS84 ranges
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// PositionProvider obtains the visitor's current coordinates
// Implementations make a single attempt - retries are the caller's call
type PositionProvider interface {
	// Current returns a fresh fix or one of the classified position errors
	Current(ctx context.Context) (Coordinates, error)
}

// GatewayProvider queries a positioning gateway over HTTP
// This is the server-side stand-in for the device positioning capability:
// one-shot request, high accuracy, no cached fix accepted, hard timeout
type GatewayProvider struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewGatewayProvider creates a positioning provider against the given gateway URL
// An empty URL yields a provider that always reports ErrUnsupported
func NewGatewayProvider(url string, timeout time.Duration, m *metrics.Metrics, log *logger.Logger) *GatewayProvider {
	if log == nil {
		log = logger.NewDefault()
	}
	return &GatewayProvider{
		url:     url,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  log.WithComponent("GatewayProvider"),
		metrics: m,
	}
}

// Current makes a single positioning attempt bounded by the configured timeout
func (p *GatewayProvider) Current(ctx context.Context) (Coordinates, error) {
	if p.url == "" {
		p.countError("unsupported")
		return Coordinates{}, ErrUnsupported
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// cached=false forces a fresh fix, mirroring the no-cached-position
	// requirement of the positioning contract
	url := p.url + "?accuracy=high&cached=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		p.countError("unavailable")
		return Coordinates{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			p.countError("timeout")
			return Coordinates{}, ErrTimeout
		}
		p.countError("unavailable")
		return Coordinates{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		p.countError("permission_denied")
		return Coordinates{}, ErrPermissionDenied
	case resp.StatusCode == http.StatusNotImplemented:
		p.countError("unsupported")
		return Coordinates{}, ErrUnsupported
	case resp.StatusCode != http.StatusOK:
		p.countError("unavailable")
		return Coordinates{}, fmt.Errorf("%w: gateway status %d", ErrPositionUnavailable, resp.StatusCode)
	}

	var coords Coordinates
	if err := json.NewDecoder(resp.Body).Decode(&coords); err != nil {
		p.countError("unavailable")
		return Coordinates{}, fmt.Errorf("%w: decode: %v", ErrPositionUnavailable, err)
	}

	if !coords.Valid() {
		p.countError("unavailable")
		return Coordinates{}, fmt.Errorf("%w: coordinates out of range", ErrPositionUnavailable)
	}

	p.logger.Debug().
		Float64("lat", coords.Latitude).
		Float64("lon", coords.Longitude).
		Msg("Position fix obtained")

	return coords, nil
}

func (p *GatewayProvider) countError(kind string) {
	if p.metrics != nil {
		p.metrics.PositionErrors.WithLabelValues(kind).Inc()
	}
}

// StaticProvider wraps coordinates supplied by the client with its request
// (the browser already holds the device fix and sends it along)
type StaticProvider struct {
	coords Coordinates
}

// NewStaticProvider creates a provider that always returns the given coordinates
func NewStaticProvider(lat, lon float64) *StaticProvider {
	return &StaticProvider{coords: Coordinates{Latitude: lat, Longitude: lon}}
}

// Current returns the wrapped coordinates, or ErrPositionUnavailable if
// they are outside the valid ranges
func (p *StaticProvider) Current(ctx context.Context) (Coordinates, error) {
	if !p.coords.Valid() {
		return Coordinates{}, fmt.Errorf("%w: coordinates out of range", ErrPositionUnavailable)
	}
	return p.coords, nil
}
