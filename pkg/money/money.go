package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

const Currency = "usd"

// MaxAmount is the largest single charge the provider accepts, in cents.
const MaxAmount int64 = 99_999_999

var ErrAmountTooLarge = errors.New("Order amount exceeds the maximum allowed")

var (
	hundred   = decimal.NewFromInt(100)
	maxAmount = decimal.NewFromInt(MaxAmount)
)

// ToMinorUnits converts a major-unit price to cents, rounding half away
// from zero. The result is only meaningful for prices within MaxAmount;
// use LineTotal for anything that is charged.
func ToMinorUnits(price decimal.Decimal) int64 {
	return MinorUnits(price).IntPart()
}

// MinorUnits is price*100 rounded to whole cents, kept in decimal.
func MinorUnits(price decimal.Decimal) decimal.Decimal {
	return price.Mul(hundred).Round(0)
}

func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// LineTotal is round(price*100) * quantity. The product is formed in
// decimal and only narrowed to int64 once it is known to fit MaxAmount.
func LineTotal(price decimal.Decimal, quantity int64) (int64, error) {
	return Narrow(MinorUnits(price).Mul(decimal.NewFromInt(quantity)))
}

// Narrow converts a cent amount to int64, rejecting anything above
// MaxAmount.
func Narrow(cents decimal.Decimal) (int64, error) {
	if cents.GreaterThan(maxAmount) {
		return 0, ErrAmountTooLarge
	}
	return cents.IntPart(), nil
}
