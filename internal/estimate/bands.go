package estimate

// PriceBands is the fixed ordered set of prices a taxi fare can take, in
// CFA. Every price surfaced by the engine belongs to this set.
var PriceBands = []float64{
	100, 150, 200, 250, 300, 350, 400, 450, 500,
	600, 700, 800, 900, 1000, 1200, 1500, 1700, 2000,
}

// SnapToBand rounds a raw price to the nearest band by absolute difference.
// Ties resolve toward the lower band, so the operation is idempotent.
func SnapToBand(raw float64) float64 {
	best := PriceBands[0]
	bestDiff := abs(raw - best)
	for _, band := range PriceBands[1:] {
		diff := abs(raw - band)
		if diff < bestDiff {
			best = band
			bestDiff = diff
		}
	}
	return best
}

// IsBand reports whether a price is one of the recognised bands.
func IsBand(price float64) bool {
	for _, band := range PriceBands {
		if price == band {
			return true
		}
	}
	return false
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
