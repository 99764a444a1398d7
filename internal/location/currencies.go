package location

import (
	"strings"
	"time"

	"github.com/markethub/geocurrency/internal/models"
)

// DefaultCurrency is the base currency and the normalization target for
// anything outside the supported set
const DefaultCurrency = "usd"

// CurrencyInfo is the static currency mapping for one country
type CurrencyInfo struct {
	Code   string
	Symbol string
	Flag   string
}

// countryCurrencies maps ISO-2 country codes to the platform's currency
// table. Countries outside this table resolve to the default currency
var countryCurrencies = map[string]CurrencyInfo{
	"ng": {Code: "ngn", Symbol: "₦", Flag: "🇳🇬"},
	"us": {Code: "usd", Symbol: "$", Flag: "🇺🇸"},
	"gb": {Code: "gbp", Symbol: "£", Flag: "🇬🇧"},
	"ca": {Code: "cad", Symbol: "C$", Flag: "🇨🇦"},
	"gh": {Code: "ghs", Symbol: "GH₵", Flag: "🇬🇭"},
	"ke": {Code: "kes", Symbol: "KSh", Flag: "🇰🇪"},
	"za": {Code: "zar", Symbol: "R", Flag: "🇿🇦"},
	"in": {Code: "inr", Symbol: "₹", Flag: "🇮🇳"},
	"au": {Code: "aud", Symbol: "A$", Flag: "🇦🇺"},

	// Eurozone markets the platform ships to
	"de": {Code: "eur", Symbol: "€", Flag: "🇩🇪"},
	"fr": {Code: "eur", Symbol: "€", Flag: "🇫🇷"},
	"es": {Code: "eur", Symbol: "€", Flag: "🇪🇸"},
	"it": {Code: "eur", Symbol: "€", Flag: "🇮🇹"},
	"ie": {Code: "eur", Symbol: "€", Flag: "🇮🇪"},
	"nl": {Code: "eur", Symbol: "€", Flag: "🇳🇱"},
	"pt": {Code: "eur", Symbol: "€", Flag: "🇵🇹"},
	"at": {Code: "eur", Symbol: "€", Flag: "🇦🇹"},
	"be": {Code: "eur", Symbol: "€", Flag: "🇧🇪"},
	"fi": {Code: "eur", Symbol: "€", Flag: "🇫🇮"},
}

// supportedCurrencies is the fixed set of currency codes the engine knows
var supportedCurrencies = map[string]string{
	"usd": "$",
	"ngn": "₦",
	"gbp": "£",
	"eur": "€",
	"cad": "C$",
	"ghs": "GH₵",
	"kes": "KSh",
	"zar": "R",
	"inr": "₹",
	"aud": "A$",
}

// CurrencyFor returns the currency mapping for an ISO-2 country code
// Falls back to the default currency for unknown countries, so the
// returned info is always usable
func CurrencyFor(countryCode string) CurrencyInfo {
	if info, ok := countryCurrencies[strings.ToLower(countryCode)]; ok {
		return info
	}
	return CurrencyInfo{Code: DefaultCurrency, Symbol: "$", Flag: "🏳️"}
}

// Supported reports whether a currency code is in the fixed supported set
func Supported(code string) bool {
	_, ok := supportedCurrencies[strings.ToLower(code)]
	return ok
}

// Normalize maps any input to a supported lowercase currency code,
// defaulting unknowns to the base currency
func Normalize(code string) string {
	lower := strings.ToLower(strings.TrimSpace(code))
	if _, ok := supportedCurrencies[lower]; ok {
		return lower
	}
	return DefaultCurrency
}

// SymbolFor returns the display symbol for a supported currency code
func SymbolFor(code string) string {
	if sym, ok := supportedCurrencies[strings.ToLower(code)]; ok {
		return sym
	}
	return "$"
}

// AnchorRecord builds the hard-coded fallback record for the platform's
// anchor market. It is never persisted to the durable cache, so the next
// resolution retries live detection instead of sticking with a guess
func AnchorRecord(countryCode string, now time.Time) models.LocationRecord {
	code := strings.ToLower(countryCode)
	info := CurrencyFor(code)

	name := "Nigeria"
	if code != "ng" {
		// The anchor market is configurable but the platform only ever
		// anchors to a country present in the currency table
		name = strings.ToUpper(code)
	}

	return models.LocationRecord{
		Country:         name,
		CountryCode:     code,
		CurrencyCode:    info.Code,
		CurrencySymbol:  info.Symbol,
		Flag:            info.Flag,
		DetectionMethod: models.DetectionFallback,
		ResolvedAt:      now,
	}
}
