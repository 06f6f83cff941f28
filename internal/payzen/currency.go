package payzen

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 currency accepted by the platform.
type Currency struct {
	Alpha3   string
	Numeric  int
	Exponent int32
}

var currencies = []Currency{
	{"AUD", 36, 2},
	{"KHR", 116, 0},
	{"CAD", 124, 2},
	{"CNY", 156, 1},
	{"CZK", 203, 2},
	{"DKK", 208, 2},
	{"HKD", 344, 2},
	{"HUF", 348, 2},
	{"INR", 356, 2},
	{"IDR", 360, 2},
	{"JPY", 392, 0},
	{"KRW", 410, 0},
	{"KWD", 414, 3},
	{"MYR", 458, 2},
	{"MXN", 484, 2},
	{"MAD", 504, 2},
	{"NZD", 554, 2},
	{"NOK", 578, 2},
	{"PHP", 608, 2},
	{"RUB", 643, 2},
	{"SGD", 702, 2},
	{"ZAR", 710, 2},
	{"SEK", 752, 2},
	{"CHF", 756, 2},
	{"THB", 764, 2},
	{"TND", 788, 3},
	{"GBP", 826, 2},
	{"USD", 840, 2},
	{"TWD", 901, 2},
	{"TRY", 949, 2},
	{"EUR", 978, 2},
	{"PLN", 985, 2},
	{"BRL", 986, 2},
}

var (
	byAlpha   = map[string]Currency{}
	byNumeric = map[int]Currency{}
)

func init() {
	for _, c := range currencies {
		byAlpha[c.Alpha3] = c
		byNumeric[c.Numeric] = c
	}
}

// CurrencyByAlpha looks up a currency by its 3-letter code.
func CurrencyByAlpha(code string) (Currency, bool) {
	c, ok := byAlpha[code]
	return c, ok
}

// CurrencyByNumeric looks up a currency by its ISO numeric code.
func CurrencyByNumeric(num int) (Currency, bool) {
	c, ok := byNumeric[num]
	return c, ok
}

// LookupCurrency returns the currency for code or ErrUnsupportedCurrency.
// Callers treat the error as a configuration error.
func LookupCurrency(code string) (Currency, error) {
	c, ok := CurrencyByAlpha(code)
	if !ok {
		return Currency{}, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
	return c, nil
}

// Currencies returns a copy of the supported table.
func Currencies() []Currency {
	out := make([]Currency, len(currencies))
	copy(out, currencies)
	return out
}

// ToMinorUnits scales amount by 10^Exponent, truncating toward zero.
func (c Currency) ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(c.Exponent).Truncate(0).IntPart()
}

// ToDecimal converts an integer minor-unit amount back to a decimal.
func (c Currency) ToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -c.Exponent)
}

// NumericCode is the zero padded 3-digit code sent on the wire.
func (c Currency) NumericCode() string {
	return fmt.Sprintf("%03d", c.Numeric)
}
