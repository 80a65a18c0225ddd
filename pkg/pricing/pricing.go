// Package pricing converts token quantities into amounts due, both for
// display and for on-chain settlement.
package pricing

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// UnitPriceWei is the price of a single token in wei (0.0001 ETH).
const UnitPriceWei = 100000000000000

// DisplayDecimals is the number of fractional digits shown for amounts due.
const DisplayDecimals = 4

// unitPrice is UnitPriceWei expressed in ETH (0.0001).
var unitPrice = decimal.New(1, -4)

// DisplayPrice computes the display amount due for a quantity entered as
// free text. The result is quantity * 0.0001 ETH rounded half-up to four
// decimal places. Empty, non-numeric, or non-positive input yields zero so
// callers can show a cleared amount without special-casing bad input.
func DisplayPrice(quantity string) decimal.Decimal {
	q, err := decimal.NewFromString(quantity)
	if err != nil {
		return decimal.Zero
	}
	if q.Sign() <= 0 {
		return decimal.Zero
	}
	return q.Mul(unitPrice).Round(DisplayDecimals)
}

// OnChainAmount computes the exact wei amount to attach to a purchase of
// the given quantity. Arithmetic is integer-exact; no floating point is
// involved, so the settled amount never drifts from the advertised price.
func OnChainAmount(quantity uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(quantity), big.NewInt(UnitPriceWei))
}
