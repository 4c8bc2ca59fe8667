package utils

// SuggestedPrice returns pricePerKg * weight for a weight in grams, rounded to
// the cent. It is only a default shown to the parties; the agreed price is
// negotiated elsewhere and passed in verbatim.
func SuggestedPrice(pricePerKgCents, grams int64) int64 {
	if pricePerKgCents <= 0 || grams <= 0 {
		return 0
	}
	return RoundMoney(float64(pricePerKgCents) * float64(grams) / 1000)
}
