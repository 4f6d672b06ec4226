package trigger

import (
	"fmt"
	"math"

	"github.com/grumpedal/grum/pkg/dsp/analysis"
)

// FallbackConfig classifies an unpitched attack by where its spectral
// energy sits. Band edges are in Hz; each band runs up to the next edge.
type FallbackConfig struct {
	Enabled bool

	LowHz  float64
	MidHz  float64
	HighHz float64
	TopHz  float64

	KickDominance  float64 // Low must exceed mid and high by this factor
	SnareDominance float64 // Mid must exceed high by this factor
	MinEnergy      float64 // Total band energy below this is ignored
}

// DefaultFallbackConfig splits 150-3600 Hz into three bands. Disabled.
func DefaultFallbackConfig() FallbackConfig {
	return FallbackConfig{
		LowHz:          150,
		MidHz:          600,
		HighHz:         1500,
		TopHz:          3600,
		KickDominance:  1.5,
		SnareDominance: 1.2,
		MinEnergy:      0.01,
	}
}

// Validate reports the first out-of-range parameter.
func (c FallbackConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.LowHz <= 0 || c.MidHz <= c.LowHz || c.HighHz <= c.MidHz || c.TopHz <= c.HighHz {
		return fmt.Errorf("fallback: band edges must increase")
	}
	if c.KickDominance < 1 || c.SnareDominance < 1 {
		return fmt.Errorf("fallback: dominance factors must be at least 1")
	}
	if c.MinEnergy < 0 {
		return fmt.Errorf("fallback: negative min energy %g", c.MinEnergy)
	}
	return nil
}

// Classify picks kick, snare or hi-hat from a magnitude frame whose bins
// are binHz apart.
func (c FallbackConfig) Classify(frame []float64, binHz float64) (Voice, bool) {
	if len(frame) == 0 || binHz <= 0 {
		return NoVoice, false
	}

	edge := func(hz float64) int { return int(math.Ceil(hz / binHz)) }
	lo, mid, high, top := edge(c.LowHz), edge(c.MidHz), edge(c.HighHz), edge(c.TopHz)

	low := analysis.BandEnergy(frame, lo, mid-1)
	midE := analysis.BandEnergy(frame, mid, high-1)
	highE := analysis.BandEnergy(frame, high, top-1)

	if low+midE+highE <= c.MinEnergy {
		return NoVoice, false
	}

	switch {
	case low > c.KickDominance*midE && low > c.KickDominance*highE:
		return Kick, true
	case midE > c.SnareDominance*highE:
		return Snare, true
	default:
		return HiHat, true
	}
}
