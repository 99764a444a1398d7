// Package classifier infers which currency a historical agreement record
// was denominated in. Legacy records were written before currency tagging
// existed, so the classification is heuristic: ordered rules over partial
// metadata, first match wins.
package classifier

import (
	"strings"

	"github.com/markethub/geocurrency/internal/location"
	"github.com/markethub/geocurrency/internal/models"
	"github.com/markethub/geocurrency/internal/rates"
)

// localGateways identifies payment gateways known to operate exclusively
// in one non-base currency. Settling through one of these pins the
// record's currency regardless of what else the row says
var localGateways = map[string]string{
	"paystack":    "ngn",
	"flutterwave": "ngn",
}

// magnitudeThreshold is the heuristic cutoff above which a native amount
// is implausible for a base-currency transaction - an order of magnitude
// over typical base-currency order sizes on the platform
const magnitudeThreshold = 10000

// Classifier is a pure function object: no I/O, no hidden state,
// deterministic for identical input
type Classifier struct {
	base  string // the base currency ("usd")
	local string // the anchor market's local currency ("ngn")
}

// New creates a classifier for the given base and local currencies
func New(base, local string) *Classifier {
	return &Classifier{
		base:  location.Normalize(base),
		local: location.Normalize(local),
	}
}

// Classify returns the inferred currency code for a record
func (c *Classifier) Classify(rec models.MonetaryRecord) string {
	code, _ := c.ClassifyWithRule(rec)
	return code
}

// ClassifyWithRule returns the inferred currency together with the name
// of the rule that fired, for observability
//
// Precedence, first match wins:
//  1. explicit recognized non-base currency on the record
//  2. exclusively-local gateway
//  3. native amount recorded without conversion (differs from total,
//     exchange rate exactly 1)
//  4. native amount implausibly large for the base currency
//  5. explicit currency if present, else the base currency
func (c *Classifier) ClassifyWithRule(rec models.MonetaryRecord) (string, string) {
	explicit := strings.ToLower(strings.TrimSpace(rec.Currency))

	// Rule 1: an unambiguous non-base tag wins outright
	if explicit != "" && location.Supported(explicit) && explicit != c.base {
		return explicit, "explicit"
	}

	// Rule 2: gateway operating in exactly one local currency
	if code, ok := localGateways[strings.ToLower(rec.Gateway)]; ok {
		return code, "gateway"
	}

	// Rule 3: a native amount that differs from the total while the
	// recorded exchange rate is 1 means the native figure was written in
	// local currency without conversion
	if rec.NativeAmount != nil && *rec.NativeAmount != rec.TotalAmount &&
		rec.ExchangeRate != nil && *rec.ExchangeRate == 1 {
		return c.local, "native_unconverted"
	}

	// Rule 4: magnitude implausible for the base currency
	if rec.NativeAmount != nil && *rec.NativeAmount > magnitudeThreshold {
		return c.local, "magnitude"
	}

	// Rule 5: whatever the record says, else the base
	if explicit != "" && location.Supported(explicit) {
		return explicit, "explicit_base"
	}
	return c.base, "default"
}

// Amount returns the record's amount in its classified currency: the
// native figure when the record classified away from the base and one
// was recorded, the total otherwise
func (c *Classifier) Amount(rec models.MonetaryRecord) float64 {
	if c.Classify(rec) != c.base && rec.NativeAmount != nil {
		return *rec.NativeAmount
	}
	return rec.TotalAmount
}

// DisplayAmount is a record's value converted into the viewer's display
// currency. Historical records do not retain the rate at transaction
// time, so Approximate is always true: the conversion uses current
// rates and the static fallback table, and callers must present it as
// an estimate, not a ledger value
type DisplayAmount struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Classified  string  `json:"classifiedCurrency"`
	Rule        string  `json:"rule"`
	Approximate bool    `json:"approximate"`
}

// ForDisplay classifies a record and converts its amount into the
// display currency of the given state
func (c *Classifier) ForDisplay(rec models.MonetaryRecord, state models.CurrencyState) DisplayAmount {
	code, rule := c.ClassifyWithRule(rec)
	amount := c.Amount(rec)
	display := location.Normalize(state.CurrencyCode)

	converted := amount
	switch {
	case code == display:
		// already denominated in the display currency
	case code == c.base:
		converted = amount * state.ExchangeRate
	case display == c.base:
		converted = amount / rates.FallbackRate(code)
	default:
		// classified -> base via the static table, then base -> display
		// with the current rate
		converted = amount / rates.FallbackRate(code) * state.ExchangeRate
	}

	return DisplayAmount{
		Amount:      converted,
		Currency:    display,
		Classified:  code,
		Rule:        rule,
		Approximate: true,
	}
}
