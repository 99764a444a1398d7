package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/markethub/geocurrency/internal/logger"
	"github.com/markethub/geocurrency/internal/metrics"
)

// ErrGeocodeUnavailable means every geocoding candidate was exhausted
var ErrGeocodeUnavailable = errors.New("reverse geocoding unavailable")

// Place is the normalized output of a reverse-geocode, regardless of
// which provider produced it
type Place struct {
	CountryCode string // ISO-2, lowercase
	CountryName string
	City        string
}

// Geocoder converts coordinates to a normalized place record
type Geocoder interface {
	// Reverse returns a Place with non-empty CountryCode and CountryName,
	// or ErrGeocodeUnavailable - never a half-populated record
	Reverse(ctx context.Context, lat, lon float64) (Place, error)
}

// Candidate is one external reverse-geocoding endpoint together with its
// schema-specific parser. Each provider returns a different JSON shape;
// isolating the parser per candidate lets the fallback loop treat them
// uniformly
type Candidate struct {
	Name  string
	URL   func(lat, lon float64) string
	Parse func(body []byte) (Place, error)
}

// MultiGeocoder tries an ordered list of candidates, first success wins
// No retries within a candidate - first failure advances to the next
type MultiGeocoder struct {
	candidates []Candidate
	timeout    time.Duration
	client     *http.Client
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// NewMultiGeocoder creates a geocoder over the default provider list
//
// baseURLs optionally replaces the default endpoints positionally; this is
// how tests and operators point individual candidates at stubs without
// touching the parser wiring
func NewMultiGeocoder(timeout time.Duration, baseURLs []string, m *metrics.Metrics, log *logger.Logger) *MultiGeocoder {
	if log == nil {
		log = logger.NewDefault()
	}
	candidates := defaultCandidates()
	for i, u := range baseURLs {
		if i >= len(candidates) || u == "" {
			break
		}
		candidates[i] = rebase(candidates[i], u)
	}
	return &MultiGeocoder{
		candidates: candidates,
		timeout:    timeout,
		client:     &http.Client{Timeout: timeout},
		logger:     log.WithComponent("MultiGeocoder"),
		metrics:    m,
	}
}

// NewMultiGeocoderWithCandidates creates a geocoder over an explicit
// candidate list. Used by tests to control ordering and failure modes
func NewMultiGeocoderWithCandidates(timeout time.Duration, candidates []Candidate, m *metrics.Metrics, log *logger.Logger) *MultiGeocoder {
	if log == nil {
		log = logger.NewDefault()
	}
	return &MultiGeocoder{
		candidates: candidates,
		timeout:    timeout,
		client:     &http.Client{Timeout: timeout},
		logger:     log.WithComponent("MultiGeocoder"),
		metrics:    m,
	}
}

// Reverse walks the candidate list in order and returns the first
// successful extraction
func (g *MultiGeocoder) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	for _, c := range g.candidates {
		place, err := g.attempt(ctx, c, lat, lon)
		if err != nil {
			g.count(c.Name, "failure")
			g.logger.Debug().
				Str("provider", c.Name).
				Err(err).
				Msg("Geocoding candidate failed, advancing")
			continue
		}
		g.count(c.Name, "success")
		g.logger.Info().
			Str("provider", c.Name).
			Str("country_code", place.CountryCode).
			Str("city", place.City).
			Msg("Reverse geocode resolved")
		return place, nil
	}
	return Place{}, ErrGeocodeUnavailable
}

// attempt performs a single bounded request against one candidate
func (g *MultiGeocoder) attempt(ctx context.Context, c Candidate, lat, lon float64) (Place, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(lat, lon), nil)
	if err != nil {
		return Place{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Place{}, fmt.Errorf("read body: %w", err)
	}

	place, err := c.Parse(body)
	if err != nil {
		return Place{}, err
	}

	// A provider answering with only one of the two required fields is
	// treated the same as a failed provider
	if place.CountryCode == "" || place.CountryName == "" {
		return Place{}, fmt.Errorf("empty extraction from %s", c.Name)
	}

	place.CountryCode = strings.ToLower(place.CountryCode)
	return place, nil
}

func (g *MultiGeocoder) count(provider, outcome string) {
	if g.metrics != nil {
		g.metrics.GeocodeAttempts.WithLabelValues(provider, outcome).Inc()
	}
}

// rebase swaps the host portion of a candidate's URL builder
func rebase(c Candidate, base string) Candidate {
	original := c.URL
	c.URL = func(lat, lon float64) string {
		full := original(lat, lon)
		idx := strings.Index(full, "?")
		if idx < 0 {
			return base
		}
		return strings.TrimRight(base, "/") + full[idx:]
	}
	return c
}

// defaultCandidates returns the production provider list in priority order
func defaultCandidates() []Candidate {
	return []Candidate{
		{
			Name: "bigdatacloud",
			URL: func(lat, lon float64) string {
				return fmt.Sprintf(
					"https://api.bigdatacloud.net/data/reverse-geocode-client?latitude=%f&longitude=%f&localityLanguage=en",
					lat, lon)
			},
			Parse: ParseBigDataCloud,
		},
		{
			Name: "nominatim",
			URL: func(lat, lon float64) string {
				return fmt.Sprintf(
					"https://nominatim.openstreetmap.org/reverse?lat=%f&lon=%f&format=json",
					lat, lon)
			},
			Parse: ParseNominatim,
		},
		{
			Name: "maps-co",
			URL: func(lat, lon float64) string {
				return fmt.Sprintf(
					"https://geocode.maps.co/reverse?lat=%f&lon=%f",
					lat, lon)
			},
			Parse: ParseNominatim, // same OSM address shape, different host
		},
	}
}

// ParseBigDataCloud extracts a Place from the BigDataCloud response shape:
// top-level countryCode/countryName with city or locality
func ParseBigDataCloud(body []byte) (Place, error) {
	var payload struct {
		CountryCode string `json:"countryCode"`
		CountryName string `json:"countryName"`
		City        string `json:"city"`
		Locality    string `json:"locality"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Place{}, fmt.Errorf("bigdatacloud: %w", err)
	}

	city := payload.City
	if city == "" {
		city = payload.Locality
	}

	return Place{
		CountryCode: payload.CountryCode,
		CountryName: payload.CountryName,
		City:        city,
	}, nil
}

// ParseNominatim extracts a Place from the OSM/Nominatim response shape:
// nested address object with country_code/country and city/town/village
func ParseNominatim(body []byte) (Place, error) {
	var payload struct {
		Address struct {
			CountryCode string `json:"country_code"`
			Country     string `json:"country"`
			City        string `json:"city"`
			Town        string `json:"town"`
			Village     string `json:"village"`
		} `json:"address"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Place{}, fmt.Errorf("nominatim: %w", err)
	}

	city := payload.Address.City
	if city == "" {
		city = payload.Address.Town
	}
	if city == "" {
		city = payload.Address.Village
	}

	return Place{
		CountryCode: payload.Address.CountryCode,
		CountryName: payload.Address.Country,
		City:        city,
	}, nil
}
