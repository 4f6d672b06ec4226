package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// HFC returns the high-frequency content of a magnitude frame: the
// bin-weighted energy of the upper half, normalized by frame width.
// Pick attacks raise it well before the body of the note settles.
func HFC(frame []float64) float64 {
	n := len(frame)
	if n < 2 {
		return 0
	}

	sum := 0.0
	for i := n / 2; i < n; i++ {
		sum += frame[i] * frame[i] * float64(i) / float64(n)
	}
	return math.Sqrt(sum / float64(n/2))
}

// BandEnergy sums squared magnitudes between two bins inclusive.
// Bin indices are clamped to the frame.
func BandEnergy(frame []float64, lo, hi int) float64 {
	if lo < 0 {
		lo = 0
	}
	if hi >= len(frame) {
		hi = len(frame) - 1
	}

	if lo > hi {
		return 0
	}
	band := frame[lo : hi+1]
	return floats.Dot(band, band)
}
