package accounting

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundUp returns the spare change between amount and the next whole currency unit.
// The sign of amount is ignored (debits arrive negative). The amount is first rounded
// to the currency's minor-unit precision, so 4.37 at precision 2 yields 0.63 and 5.00
// yields zero.
func RoundUp(amount decimal.Decimal, precision int) (decimal.Decimal, error) {
	if precision < 0 {
		return decimal.Zero, fmt.Errorf("currency precision must be non-negative, got %d", precision)
	}
	abs := amount.Abs().Round(int32(precision))
	return abs.Ceil().Sub(abs), nil
}

// SumAmounts adds a list of decimals.
func SumAmounts(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
