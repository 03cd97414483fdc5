package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice extracts a decimal amount from a free-form currency string
// ("₦1,000.50" -> 1000.50). Every character that is not a digit or decimal
// point is stripped; an empty or unparseable remainder contributes zero.
func ParsePrice(raw string) decimal.Decimal {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// MinorUnits converts a major-unit amount to integer minor units for the
// gateway (amount * 100, rounded half away from zero).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Format renders an amount with the currency symbol and two decimal places,
// matching how order totals are displayed and persisted.
func Format(symbol string, amount decimal.Decimal) string {
	return symbol + amount.StringFixed(2)
}
