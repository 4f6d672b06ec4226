// Package envelope provides block level measurement and the fast/slow
// envelope tracker used for onset detection.
package envelope

import (
	"math"
)

// DetectorMode defines how a block's energy is measured
type DetectorMode int

const (
	// ModePeak detects the peak level
	ModePeak DetectorMode = iota
	// ModeRMS detects the RMS (Root Mean Square) level
	ModeRMS
)

// String returns the mode name used in configuration files.
func (m DetectorMode) String() string {
	switch m {
	case ModePeak:
		return "peak"
	case ModeRMS:
		return "rms"
	default:
		return "unknown"
	}
}

// ParseMode converts a configuration string to a DetectorMode.
func ParseMode(s string) (DetectorMode, bool) {
	switch s {
	case "peak":
		return ModePeak, true
	case "rms", "":
		return ModeRMS, true
	}
	return ModeRMS, false
}

// Levels holds both energy readings of one block.
type Levels struct {
	RMS  float64
	Peak float64
}

// Of returns the reading selected by mode.
func (l Levels) Of(mode DetectorMode) float64 {
	if mode == ModePeak {
		return l.Peak
	}
	return l.RMS
}

// Measure computes RMS and peak of a block in a single pass - no allocations
func Measure(block []float32) Levels {
	if len(block) == 0 {
		return Levels{}
	}

	var sumSquares, peak float64
	for _, s := range block {
		v := float64(s)
		sumSquares += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}

	return Levels{
		RMS:  math.Sqrt(sumSquares / float64(len(block))),
		Peak: peak,
	}
}

// RMS returns the root mean square of the last n samples of a window.
func RMS(window []float32, n int) float64 {
	if n <= 0 || len(window) == 0 {
		return 0
	}
	if n > len(window) {
		n = len(window)
	}
	return Measure(window[len(window)-n:]).RMS
}
