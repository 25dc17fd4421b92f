package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Converter turns a requested PKR amount into coins using a fixed linear
// rate. The rate is parsed once at startup; conversion itself is pure and
// deterministic.
type Converter struct {
	rate decimal.Decimal
}

// NewConverter parses rate (e.g. "1", "0.5"). The rate must be a positive
// decimal.
func NewConverter(rate string) (*Converter, error) {
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid coin rate %q: %v", ErrValidation, rate, err)
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: coin rate must be positive, got %s", ErrValidation, d)
	}
	return &Converter{rate: d}, nil
}

// AmountToCoins converts a non-negative PKR amount to coins, truncating any
// fractional coin.
func (c *Converter) AmountToCoins(amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: amount must be non-negative, got %d", ErrValidation, amount)
	}
	return decimal.NewFromInt(amount).Mul(c.rate).IntPart(), nil
}
