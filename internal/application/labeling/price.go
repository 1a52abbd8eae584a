package labeling

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PriceFormatter renders prices the way they read on a shelf in the
// configured locale, e.g. "4,95 €" for Spanish euros
type PriceFormatter struct {
	printer *message.Printer
	symbol  string
	scale   int
	verb    string
}

// NewPriceFormatter builds a formatter for an ISO 4217 currency code and a
// BCP 47 language tag. Empty values mean EUR and Spanish.
func NewPriceFormatter(currencyCode, lang string) (*PriceFormatter, error) {
	if currencyCode == "" {
		currencyCode = "EUR"
	}
	if lang == "" {
		lang = "es"
	}

	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("invalid currency %q: %w", currencyCode, err)
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("invalid language %q: %w", lang, err)
	}

	printer := message.NewPrinter(tag)
	scale, _ := currency.Standard.Rounding(unit)
	return &PriceFormatter{
		printer: printer,
		symbol:  strings.TrimSpace(printer.Sprint(currency.NarrowSymbol(unit))),
		scale:   scale,
		verb:    fmt.Sprintf("%%.%df", scale),
	}, nil
}

// Format renders amount rounded to the currency's standard precision
func (f *PriceFormatter) Format(amount decimal.Decimal) string {
	value, _ := amount.Round(int32(f.scale)).Float64()
	return f.printer.Sprintf(f.verb, value) + " " + f.symbol
}
