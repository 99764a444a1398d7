package models

import "time"

// DetectionMethod records how a visitor's location was resolved
type DetectionMethod string

const (
	// DetectionGeolocation means a live position fix was reverse-geocoded
	DetectionGeolocation DetectionMethod = "geolocation"
	// DetectionCache means the record came from the durable location cache
	DetectionCache DetectionMethod = "cache"
	// DetectionFallback means every live signal failed and the anchor market was assumed
	DetectionFallback DetectionMethod = "fallback"
)

// LocationRecord is the normalized result of a location resolution
// It is immutable once constructed - a refresh replaces it wholesale,
// nothing ever mutates an existing record in place
type LocationRecord struct {
	Country         string          `json:"country"`         // Country name (e.g. "Nigeria")
	CountryCode     string          `json:"countryCode"`     // ISO-2 code, lowercase (e.g. "ng")
	City            string          `json:"city"`            // City name, may be empty
	CurrencyCode    string          `json:"currencyCode"`    // Always one of the supported set
	CurrencySymbol  string          `json:"currencySymbol"`  // Display symbol (e.g. "₦")
	Flag            string          `json:"flag"`            // Flag glyph (e.g. "🇳🇬")
	DetectionMethod DetectionMethod `json:"detectionMethod"` // How this record was obtained
	Latitude        *float64        `json:"latitude,omitempty"`
	Longitude       *float64        `json:"longitude,omitempty"`
	ResolvedAt      time.Time       `json:"resolvedAt"`
}

// CachedLocationEntry is the durable-cache envelope around a LocationRecord
// An entry whose ExpiresAt is in the past must be treated as absent
type CachedLocationEntry struct {
	Record    LocationRecord `json:"record"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// Expired reports whether the entry is past its TTL at the given instant
func (e *CachedLocationEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// ExchangeRateEntry is one cached base->target quote
// Entries older than the TTL are ignored on read, not evicted eagerly
type ExchangeRateEntry struct {
	Base      string    `json:"base"`   // The base currency ("usd")
	Target    string    `json:"target"` // Target currency code
	Rate      float64   `json:"rate"`   // Strictly positive
	FetchedAt time.Time `json:"fetchedAt"`
}

// CurrencyState is the currency store's public snapshot
// Consumers receive copies and never observe partial updates: Loading stays
// true until both location and rate have resolved, then the whole snapshot
// is replaced in one publish
type CurrencyState struct {
	CurrencyCode string          `json:"currencyCode"`
	Symbol       string          `json:"symbol"`
	Location     *LocationRecord `json:"location"`
	ExchangeRate float64         `json:"exchangeRate"`
	Loading      bool            `json:"loading"`
	Error        string          `json:"error,omitempty"` // Diagnostic only, never blocks usage
}

// MonetaryRecord is a historical agreement/payment record
// It is owned by the marketplace backend, not this engine; the classifier
// reads these and never mutates them
type MonetaryRecord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Currency     string    `json:"currency,omitempty"` // Optional, often missing on legacy rows
	Gateway      string    `json:"gateway,omitempty"`  // Payment gateway that processed it
	TotalAmount  float64   `json:"totalAmount"`
	NativeAmount *float64  `json:"nativeAmount,omitempty"`
	ExchangeRate *float64  `json:"exchangeRate,omitempty"`
	Status       string    `json:"status,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error string `json:"error"` // Error message
}
