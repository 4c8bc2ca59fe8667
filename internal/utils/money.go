package utils

import (
	"fmt"
	"math"
)

// FormatMoney keeps consistent decimal formatting for currency fields.
func FormatMoney(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// RoundMoney rounds a fractional cent amount half away from zero.
func RoundMoney(x float64) int64 {
	return int64(math.Round(x))
}

// ComputePayout splits an agreed price into the traveler payout and the
// platform fee. payout = price * (1 - feeRate), rounded to the cent; the fee is
// the remainder so the two always sum to the price.
func ComputePayout(price int64, feeRate float64) (payout, fee int64) {
	payout = RoundMoney(float64(price) * (1 - feeRate))
	return payout, price - payout
}
