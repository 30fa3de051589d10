package market

import "math"

// Rounding precision for converted values: price-like fields keep 8
// decimals, cap and volume keep 2.
const (
	pricePrecision  = 8
	volumePrecision = 2
)

// convertEntries derives secondary-currency values from entries
// denominated in the primary currency by dividing through the rate.
// Conversion is one-directional; applying it twice does not round-trip.
// Nil fields stay nil. The input slice is not mutated.
func convertEntries(entries []Entry, rate float64) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.CurrentPrice = roundTo(e.CurrentPrice/rate, pricePrecision)
		e.High24h = scalePtr(e.High24h, rate, pricePrecision)
		e.Low24h = scalePtr(e.Low24h, rate, pricePrecision)
		e.PriceChange24h = scalePtr(e.PriceChange24h, rate, pricePrecision)
		e.MarketCap = scalePtr(e.MarketCap, rate, volumePrecision)
		e.TotalVolume = scalePtr(e.TotalVolume, rate, volumePrecision)
		// Percentage change is currency-independent; rank and identity
		// fields carry over untouched.
		out[i] = e
	}
	return out
}

// convertPoints rescales a price series into the secondary currency.
func convertPoints(points []PricePoint, rate float64) []PricePoint {
	out := make([]PricePoint, len(points))
	for i, p := range points {
		p.Price = roundTo(p.Price/rate, pricePrecision)
		out[i] = p
	}
	return out
}

func scalePtr(v *float64, rate float64, places int) *float64 {
	if v == nil {
		return nil
	}
	r := roundTo(*v/rate, places)
	return &r
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
