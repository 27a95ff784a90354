package sizing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNonPositivePrice flags a degenerate offer whose price cannot be used as
// a divisor. Such offers are skipped upstream, never submitted.
var ErrNonPositivePrice = errors.New("match price must be positive")

// ComputeOrderAmount converts the counterparty's fiat transaction limits into
// asset-quantity bounds, clamps the offer's available surplus into them, and
// converts the clamped quantity back to fiat. The result never asks for less
// than the counterparty minimum, more than its maximum, or more than it has
// actually listed.
func ComputeOrderAmount(
	matchPrice decimal.Decimal,
	minLimit decimal.Decimal,
	maxLimit decimal.Decimal,
	surplusAmount decimal.Decimal,
) (decimal.Decimal, error) {

	if matchPrice.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrNonPositivePrice
	}

	minQty := minLimit.Div(matchPrice)
	maxQty := maxLimit.Div(matchPrice)

	qty := decimal.Max(minQty, decimal.Min(maxQty, surplusAmount))

	return qty.Mul(matchPrice), nil
}
