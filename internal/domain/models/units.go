package models

import "math"

// Grams is a weight. Capacity arithmetic is done in whole grams so the ledger
// never accumulates floating point drift.
type Grams int64

// Cents is an amount of money in minor currency units.
type Cents int64

// GramsFromKg converts a kilogram amount (as received from clients) to grams.
func GramsFromKg(kg float64) Grams {
	return Grams(math.Round(kg * 1000))
}

// Kg returns the weight in kilograms.
func (g Grams) Kg() float64 {
	return float64(g) / 1000
}

// CentsFromAmount converts a decimal currency amount to cents.
func CentsFromAmount(amount float64) Cents {
	return Cents(math.Round(amount * 100))
}

// Amount returns the decimal currency amount.
func (c Cents) Amount() float64 {
	return float64(c) / 100
}
