// Package dsp provides digital signal processing utilities and algorithms.
package dsp

import (
	"math"
	"time"
)

// Common audio constants used throughout the DSP packages and the trigger core.
const (
	// Common sample rates
	SampleRate44k1 = 44100.0
	SampleRate48k  = 48000.0
	SampleRate96k  = 96000.0

	// Block sizes
	MinBlockSize     = 128
	DefaultBlockSize = 256
	MaxBlockSize     = 2048

	// Pitch window sizes (independent of the block size)
	MinPitchWindow     = 256
	DefaultPitchWindow = 2048
	MaxPitchWindow     = 8192

	// Spectral frame
	DefaultFFTSize      = 256
	DefaultSpectrumBins = DefaultFFTSize / 2

	// Level floors (linear, normalized full scale)
	NoiseFloor     = 0.0002 // Envelope freezes below this
	SilenceFloor   = 0.001  // Minimum RMS treated as playing
	ClipThreshold  = 0.98   // Peak considered clipped
	ClipRMSLevel   = 0.7    // RMS considered clipped
	MinGainReduced = 0.05   // Lowest emergency gain allowed

	// Plausible instrument range
	MinInstrumentHz = 40.0
	MaxInstrumentHz = 1000.0

	// Mains hum rejection band (50/60 Hz harmonics)
	HumMinHz = 56.0
	HumMaxHz = 64.0

	// Small values for comparisons
	Epsilon      = 1e-6
	SmallFloat32 = 1e-30
)

// Timing defaults for the trigger pipeline.
const (
	DefaultOnsetGap     = 80 * time.Millisecond
	DefaultRetrigger    = 80 * time.Millisecond
	DefaultLockDuration = 150 * time.Millisecond
	DefaultPitchSettle  = 50 * time.Millisecond
	DefaultGuardHold    = 600 * time.Millisecond
)

// BlockDuration returns the wall-clock length of a block of n samples.
func BlockDuration(n int, sampleRate float64) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(math.Round(float64(n) / sampleRate * float64(time.Second)))
}

// SamplesToDuration converts an absolute sample count into elapsed time.
func SamplesToDuration(samples int64, sampleRate float64) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(math.Round(float64(samples) / sampleRate * float64(time.Second)))
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
