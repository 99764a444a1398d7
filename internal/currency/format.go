package currency

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/markethub/geocurrency/internal/location"
)

// locales maps supported currencies to a representative locale, which
// drives grouping separators and decimal marks
var locales = map[string]language.Tag{
	"usd": language.MustParse("en-US"),
	"ngn": language.MustParse("en-NG"),
	"gbp": language.MustParse("en-GB"),
	"eur": language.MustParse("de-DE"),
	"cad": language.MustParse("en-CA"),
	"ghs": language.MustParse("en-GH"),
	"kes": language.MustParse("en-KE"),
	"zar": language.MustParse("en-ZA"),
	"inr": language.MustParse("en-IN"),
	"aud": language.MustParse("en-AU"),
}

// Format renders an amount with the currency's symbol and the grouping
// and decimal rules of its locale, e.g. 1234567.5 ngn -> "₦1,234,567.50"
func Format(amount float64, code string) string {
	code = location.Normalize(code)

	tag, ok := locales[code]
	if !ok {
		tag = language.English
	}

	p := message.NewPrinter(tag)
	formatted := p.Sprint(number.Decimal(amount,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))

	return location.SymbolFor(code) + formatted
}
