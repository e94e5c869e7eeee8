package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// FormatMinor renders a minor-unit price (cents) as a decimal string.
func FormatMinor(value int64) string {
	negative := value < 0
	if negative {
		value = -value
	}
	formatted := fmt.Sprintf("%d.%02d", value/100, value%100)
	if negative {
		return "-" + formatted
	}
	return formatted
}

// MinorToDecimal converts a minor-unit price into the decimal amount the
// payment gateway expects.
func MinorToDecimal(value int64) decimal.Decimal {
	return decimal.NewFromInt(value).Div(decimal.NewFromInt(100))
}

// ParseMinor parses a decimal price string into minor units, rejecting more
// than two fractional digits.
func ParseMinor(input string) (int64, error) {
	parsed, err := decimal.NewFromString(input)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if parsed.Exponent() < -2 {
		return 0, ErrInvalidAmount
	}
	return parsed.Mul(decimal.NewFromInt(100)).IntPart(), nil
}
