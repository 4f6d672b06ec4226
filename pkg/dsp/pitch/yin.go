package pitch

import (
	"fmt"
	"math"

	"github.com/grumpedal/grum/pkg/dsp"
	"github.com/grumpedal/grum/pkg/dsp/envelope"
	"github.com/grumpedal/grum/pkg/dsp/interpolation"
)

// YINConfig holds the YIN parameters
type YINConfig struct {
	Threshold float64 // Absolute threshold on the normalized difference
	Range     Range   // Plausible instrument range
	MinRMS    float64 // Quieter windows return NoPitch
}

// DefaultYINConfig returns parameters for six-string guitar and bass
func DefaultYINConfig() YINConfig {
	return YINConfig{
		Threshold: 0.15,
		Range:     Range{MinHz: dsp.MinInstrumentHz, MaxHz: dsp.MaxInstrumentHz},
		MinRMS:    dsp.SilenceFloor,
	}
}

// Validate reports the first out-of-range parameter
func (c YINConfig) Validate() error {
	if c.Threshold <= 0 || c.Threshold >= 1 {
		return fmt.Errorf("yin: threshold %g outside (0,1)", c.Threshold)
	}
	if c.MinRMS < 0 {
		return fmt.Errorf("yin: negative min RMS %g", c.MinRMS)
	}
	return c.Range.Validate()
}

// YIN estimates pitch from the cumulative-mean-normalized difference function.
// Buffers grow to the largest window seen and are then reused.
type YIN struct {
	config     YINConfig
	sampleRate float64

	diff []float64
}

// NewYIN creates a YIN estimator sized for windows up to maxWindow samples
func NewYIN(sampleRate float64, maxWindow int, config YINConfig) *YIN {
	return &YIN{
		config:     config,
		sampleRate: sampleRate,
		diff:       make([]float64, maxWindow/2+1),
	}
}

// lags returns the inclusive lag search range for a window of n samples
func (y *YIN) lags(n int) (minLag, maxLag int) {
	minLag = int(y.sampleRate / y.config.Range.MaxHz)
	if minLag < 2 {
		minLag = 2
	}
	maxLag = int(math.Ceil(y.sampleRate/y.config.Range.MinHz)) + 1
	if maxLag > n/2 {
		maxLag = n / 2
	}
	return minLag, maxLag
}

// Estimate returns the pitch of window, or NoPitch
func (y *YIN) Estimate(window []float32) Estimate {
	minLag, maxLag := y.lags(len(window))
	if maxLag < minLag+2 {
		return NoPitch
	}
	if envelope.Measure(window).RMS < y.config.MinRMS {
		return NoPitch
	}

	if cap(y.diff) < maxLag+1 {
		y.diff = make([]float64, maxLag+1)
	}
	d := y.diff[:maxLag+1]

	// Difference function over a fixed integration length
	w := len(window) - maxLag
	d[0] = 0
	for tau := 1; tau <= maxLag; tau++ {
		sum := 0.0
		for i := 0; i < w; i++ {
			delta := float64(window[i]) - float64(window[i+tau])
			sum += delta * delta
		}
		d[tau] = sum
	}

	// Cumulative mean normalization, in place
	d[0] = 1
	running := 0.0
	for tau := 1; tau <= maxLag; tau++ {
		running += d[tau]
		if running < dsp.Epsilon*dsp.Epsilon {
			d[tau] = 1
			continue
		}
		d[tau] *= float64(tau) / running
	}

	// Absolute threshold, then walk down to the local minimum
	tau := -1
	for i := minLag; i < maxLag; i++ {
		if d[i] < y.config.Threshold {
			for i+1 <= maxLag && d[i+1] < d[i] {
				i++
			}
			tau = i
			break
		}
	}
	if tau < 0 || tau >= maxLag {
		return NoPitch
	}

	period := float64(tau) + interpolation.Parabolic(d[tau-1], d[tau], d[tau+1])
	if period <= 0 {
		return NoPitch
	}

	freq := y.sampleRate / period
	if !y.config.Range.Contains(freq) {
		return NoPitch
	}

	return Estimate{
		FrequencyHz: freq,
		Confidence:  dsp.Clamp(1-d[tau], 0, 1),
	}
}
