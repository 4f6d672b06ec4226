package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// FluxConfig holds the adaptive threshold parameters of a FluxEstimator.
type FluxConfig struct {
	K             float64 // Standard deviations above the baseline
	Alpha         float64 // Baseline EMA coefficient
	VarDecay      float64 // Variance proxy decay per frame
	AbsoluteFloor float64 // Minimum flux that can ever count as an onset
}

// DefaultFluxConfig returns the threshold used for pick attacks
func DefaultFluxConfig() FluxConfig {
	return FluxConfig{
		K:             3.0,
		Alpha:         0.1,
		VarDecay:      0.9,
		AbsoluteFloor: 0.0005,
	}
}

// Validate reports the first out-of-range parameter.
func (c FluxConfig) Validate() error {
	if c.K < 0 {
		return fmt.Errorf("flux: K %g must not be negative", c.K)
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		return fmt.Errorf("flux: alpha %g outside (0,1]", c.Alpha)
	}
	if c.VarDecay < 0 || c.VarDecay >= 1 {
		return fmt.Errorf("flux: variance decay %g outside [0,1)", c.VarDecay)
	}
	if c.AbsoluteFloor < 0 {
		return fmt.Errorf("flux: absolute floor %g must not be negative", c.AbsoluteFloor)
	}
	return nil
}

// FluxReading is the result of one spectral frame.
// Valid is false while the estimator is still priming; Onset is then false.
type FluxReading struct {
	Flux      float64
	Threshold float64
	Onset     bool
	Valid     bool
}

// FluxEstimator measures frame-to-frame positive spectral change and flags
// frames whose flux stands out from its own recent history.
type FluxEstimator struct {
	config FluxConfig

	prev   []float64
	diff   []float64
	frames int

	ema      float64
	variance float64
	last     FluxReading
}

// NewFluxEstimator creates an estimator. Buffers are sized on the first frame.
func NewFluxEstimator(config FluxConfig) *FluxEstimator {
	return &FluxEstimator{config: config}
}

// Process consumes one magnitude frame. The previous frame is overwritten in
// place; frames of a different width restart the estimator.
func (fe *FluxEstimator) Process(frame []float64) FluxReading {
	if len(frame) == 0 {
		return FluxReading{}
	}

	if len(fe.prev) != len(frame) {
		fe.prev = make([]float64, len(frame))
		fe.diff = make([]float64, len(frame))
		fe.frames = 0
	}

	if fe.frames == 0 {
		copy(fe.prev, frame)
		fe.frames++
		fe.last = FluxReading{}
		return fe.last
	}

	floats.SubTo(fe.diff, frame, fe.prev)
	for i, d := range fe.diff {
		if d < 0 {
			fe.diff[i] = 0
		}
	}
	flux := floats.Sum(fe.diff) / float64(len(fe.diff))
	copy(fe.prev, frame)

	if fe.frames == 1 {
		fe.ema = flux
		fe.variance = 0
		fe.frames++
		fe.last = FluxReading{Flux: flux}
		return fe.last
	}

	threshold := math.Max(fe.ema+fe.config.K*math.Sqrt(fe.variance), fe.config.AbsoluteFloor)
	reading := FluxReading{
		Flux:      flux,
		Threshold: threshold,
		Onset:     flux > threshold,
		Valid:     true,
	}

	d := flux - fe.ema
	fe.ema += fe.config.Alpha * d
	fe.variance = fe.config.VarDecay*fe.variance + (1-fe.config.VarDecay)*d*d
	fe.frames++

	fe.last = reading
	return reading
}

// Last returns the most recent reading
func (fe *FluxEstimator) Last() FluxReading {
	return fe.last
}

// Baseline returns the flux EMA and the variance proxy
func (fe *FluxEstimator) Baseline() (ema, variance float64) {
	return fe.ema, fe.variance
}

// Reset forgets the previous frame and the baseline
func (fe *FluxEstimator) Reset() {
	fe.frames = 0
	fe.ema = 0
	fe.variance = 0
	fe.last = FluxReading{}
}
