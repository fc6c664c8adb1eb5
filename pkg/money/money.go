// Package money holds the integer minor-unit arithmetic used for sales.
// Amounts are always int64 minor units of their currency.
package money

// BasisPointsDenominator is 100% expressed in basis points.
const BasisPointsDenominator = 10000

// PlatformFee returns amount × rateBps / 10000 rounded half up to the nearest
// minor unit. Negative inputs are treated as zero.
func PlatformFee(amount, rateBps int64) int64 {
	if amount <= 0 || rateBps <= 0 {
		return 0
	}
	return (amount*rateBps + BasisPointsDenominator/2) / BasisPointsDenominator
}

// Sum adds minor-unit amounts.
func Sum(amounts ...int64) int64 {
	var total int64
	for _, a := range amounts {
		total += a
	}
	return total
}
