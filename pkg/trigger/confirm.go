package trigger

import (
	"fmt"

	"github.com/grumpedal/grum/pkg/dsp/analysis"
)

// Confirmer is a secondary onset check AND-ed with the envelope condition.
// A confirmer without data for the current cycle must return true.
type Confirmer interface {
	Confirm(c Candidate) bool
}

// Observer is implemented by confirmers that keep history. Observe is
// called on every non-silent cycle after the onset decision.
type Observer interface {
	Observe(r *Reading)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(c Candidate) bool

// Confirm calls f(c).
func (f ConfirmerFunc) Confirm(c Candidate) bool {
	return f(c)
}

// FluxGate requires a spectral flux onset in the same cycle. It passes
// while no decided flux reading is available.
type FluxGate struct{}

// Confirm implements Confirmer.
func (FluxGate) Confirm(c Candidate) bool {
	r := c.Reading
	if r == nil || !r.HasFlux || !r.Flux.Valid {
		return true
	}
	return r.Flux.Onset
}

// HFCConfig parameterizes the high-frequency-content confirmer.
type HFCConfig struct {
	Enabled bool
	MinHFC  float64 // HFC above this always confirms
	Ratio   float64 // HFC above Ratio times its running average confirms
	Alpha   float64 // Running average coefficient
}

// DefaultHFCConfig returns the thresholds of the pick-attack detector.
func DefaultHFCConfig() HFCConfig {
	return HFCConfig{
		MinHFC: 0.01,
		Ratio:  0.8,
		Alpha:  0.1,
	}
}

// Validate reports the first out-of-range parameter.
func (c HFCConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MinHFC < 0 || c.Ratio < 0 {
		return fmt.Errorf("hfc: thresholds must not be negative")
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		return fmt.Errorf("hfc: alpha %g outside (0,1]", c.Alpha)
	}
	return nil
}

// HFCGate confirms onsets whose spectrum carries a burst of high frequency
// energy, as a pick or slap attack does.
type HFCGate struct {
	config HFCConfig
	avg    float64
}

// NewHFCGate creates a gate with an empty running average.
func NewHFCGate(config HFCConfig) *HFCGate {
	return &HFCGate{config: config}
}

// Confirm implements Confirmer.
func (g *HFCGate) Confirm(c Candidate) bool {
	r := c.Reading
	if r == nil || r.Spectrum == nil {
		return true
	}
	hfc := analysis.HFC(r.Spectrum)
	return hfc > g.config.MinHFC || hfc/(g.avg+0.001) > g.config.Ratio
}

// Observe implements Observer.
func (g *HFCGate) Observe(r *Reading) {
	if r.Spectrum == nil {
		return
	}
	g.avg += g.config.Alpha * (analysis.HFC(r.Spectrum) - g.avg)
}

// Average returns the running HFC average.
func (g *HFCGate) Average() float64 {
	return g.avg
}

// Reset clears the running average.
func (g *HFCGate) Reset() {
	g.avg = 0
}
