// Package pitch estimates the fundamental frequency of a plucked string.
//
// Two interchangeable estimators are provided: YIN, a time-domain
// cumulative-mean-normalized difference method, and HPS, a harmonic product
// spectrum over a windowed FFT. Both satisfy Estimator and can be wrapped by
// the Stabilizer and ZCRValidator decorators.
//
// Every estimator returns NoPitch rather than a guess when the window is too
// quiet or too short, or when no candidate clears its threshold.
package pitch

import (
	"fmt"
)

// Estimate is a single pitch reading
type Estimate struct {
	FrequencyHz float64
	Confidence  float64 // 0..1
}

// NoPitch is the sentinel returned when no pitch is available
var NoPitch = Estimate{FrequencyHz: -1, Confidence: 0}

// Valid reports whether the estimate carries a usable frequency
func (e Estimate) Valid() bool {
	return e.FrequencyHz > 0 && e.Confidence > 0
}

// String formats the estimate for logs
func (e Estimate) String() string {
	if !e.Valid() {
		return "no pitch"
	}
	return fmt.Sprintf("%.1f Hz (%.2f)", e.FrequencyHz, e.Confidence)
}

// Estimator turns a window of samples into a pitch estimate
type Estimator interface {
	Estimate(window []float32) Estimate
}

// EstimatorFunc adapts a function to the Estimator interface
type EstimatorFunc func(window []float32) Estimate

// Estimate calls f(window)
func (f EstimatorFunc) Estimate(window []float32) Estimate {
	return f(window)
}

// Range is a plausible instrument frequency range, inclusive
type Range struct {
	MinHz float64
	MaxHz float64
}

// Contains reports whether f lies inside the range
func (r Range) Contains(f float64) bool {
	return f >= r.MinHz && f <= r.MaxHz
}

// Validate checks the range ordering
func (r Range) Validate() error {
	if r.MinHz <= 0 || r.MaxHz <= r.MinHz {
		return fmt.Errorf("pitch: invalid range [%g, %g] Hz", r.MinHz, r.MaxHz)
	}
	return nil
}
