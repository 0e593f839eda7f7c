package ledger

import (
	"github.com/shopspring/decimal"
)

// Decimals is the fixed-point precision of the settlement currency. All
// ledger state is kept in int64 micro-units so splits stay exact; decimals
// only appear at the API boundary.
const Decimals = 6

var microFactor = decimal.New(1, Decimals)

// ParseAmount converts a human amount string ("55.50") into micro-units.
// Amounts must be positive and carry at most six decimal places.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, validationErrorf("invalid amount %q", s)
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return 0, validationErrorf("amount must be greater than 0")
	}
	micro := d.Mul(microFactor)
	if !micro.IsInteger() {
		return 0, validationErrorf("amount %q has more than %d decimal places", s, Decimals)
	}
	if !micro.BigInt().IsInt64() {
		return 0, validationErrorf("amount %q is out of range", s)
	}
	return micro.IntPart(), nil
}

// FormatAmount renders micro-units back into a human amount string.
func FormatAmount(v int64) string {
	return decimal.New(v, -Decimals).String()
}
