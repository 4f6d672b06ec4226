// Package interpolation provides sub-sample and sub-bin peak refinement.
package interpolation

import (
	"math"
)

// Linear performs linear interpolation between two values.
// frac is the fractional position between y0 and y1 (0.0 to 1.0).
func Linear(y0, y1, frac float64) float64 {
	return y0 + (y1-y0)*frac
}

// Parabolic fits a parabola through three equally spaced points and returns
// the offset of its vertex from the middle point, in [-0.5, 0.5] for a true
// extremum. Flat or degenerate triples return 0.
func Parabolic(y0, y1, y2 float64) float64 {
	denom := y0 - 2*y1 + y2
	if math.Abs(denom) < 1e-12 {
		return 0
	}

	offset := 0.5 * (y0 - y2) / denom
	if offset > 1 || offset < -1 {
		return 0
	}
	return offset
}

// ParabolicPeak refines index i of ys. It returns the interpolated position
// and the value at the vertex. Indices at either boundary are returned as is.
func ParabolicPeak(ys []float64, i int) (x, y float64) {
	if i <= 0 || i >= len(ys)-1 {
		if i >= 0 && i < len(ys) {
			return float64(i), ys[i]
		}
		return float64(i), 0
	}

	y0, y1, y2 := ys[i-1], ys[i], ys[i+1]
	offset := Parabolic(y0, y1, y2)
	return float64(i) + offset, y1 - 0.25*(y0-y2)*offset
}
