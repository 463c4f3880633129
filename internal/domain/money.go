package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Stripe amounts are integers in the currency's smallest unit. These
// currencies have no minor unit, so the amount is already in major units.
var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {},
	"krw": {}, "mga": {}, "pyg": {}, "rwf": {}, "ugx": {}, "vnd": {},
	"vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

func IsZeroDecimalCurrency(currency string) bool {
	_, ok := zeroDecimalCurrencies[strings.ToLower(currency)]
	return ok
}

// MajorUnits converts a Stripe minor-unit amount into the currency's major unit.
func MajorUnits(amount int64, currency string) decimal.Decimal {
	if IsZeroDecimalCurrency(currency) {
		return decimal.NewFromInt(amount)
	}
	return decimal.New(amount, -2)
}

// FormatAmount renders amount with the currency's fixed number of decimals,
// e.g. 2900 usd -> "29.00", 500 jpy -> "500".
func FormatAmount(amount int64, currency string) string {
	if IsZeroDecimalCurrency(currency) {
		return MajorUnits(amount, currency).StringFixed(0)
	}
	return MajorUnits(amount, currency).StringFixed(2)
}
