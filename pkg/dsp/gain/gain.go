// Package gain converts between linear amplitude and decibels.
package gain

import "math"

// MinDB stands in for minus infinity: silence and the floor of every
// conversion.
const MinDB = -200.0

// LinearToDb returns 20·log10(linear), or MinDB when linear is not
// positive.
func LinearToDb(linear float64) float64 {
	if linear <= 0 {
		return MinDB
	}
	return max(20*math.Log10(linear), MinDB)
}

// DbToLinear is the inverse of LinearToDb. MinDB and below map to 0.
func DbToLinear(db float64) float64 {
	if db <= MinDB {
		return 0
	}
	return math.Pow(10, db/20)
}
