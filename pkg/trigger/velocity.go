package trigger

import (
	"fmt"
	"math"

	"github.com/grumpedal/grum/pkg/dsp"
)

// VelocityConfig weights and scales the attack-strength signals.
type VelocityConfig struct {
	RatioWeight float64
	FluxWeight  float64
	LevelWeight float64

	RatioScale float64 // Applied to ratio - 1
	FluxScale  float64
	LevelScale float64

	ReferenceHz     float64 // Pitch at which level compensation is 1
	MinCompensation float64
	MaxCompensation float64

	Floor float64 // Weakest audible velocity
}

// DefaultVelocityConfig blends ratio, flux and level 0.5/0.2/0.3 with a
// 0.15 floor.
func DefaultVelocityConfig() VelocityConfig {
	return VelocityConfig{
		RatioWeight:     0.5,
		FluxWeight:      0.2,
		LevelWeight:     0.3,
		RatioScale:      0.1,
		FluxScale:       50,
		LevelScale:      2,
		ReferenceHz:     100,
		MinCompensation: 0.5,
		MaxCompensation: 2,
		Floor:           0.15,
	}
}

// Validate reports the first out-of-range parameter.
func (c VelocityConfig) Validate() error {
	if c.RatioWeight < 0 || c.FluxWeight < 0 || c.LevelWeight < 0 {
		return fmt.Errorf("velocity: weights must not be negative")
	}
	if c.RatioWeight+c.FluxWeight+c.LevelWeight <= 0 {
		return fmt.Errorf("velocity: all weights are zero")
	}
	if c.RatioScale < 0 || c.FluxScale < 0 || c.LevelScale < 0 {
		return fmt.Errorf("velocity: scales must not be negative")
	}
	if c.ReferenceHz <= 0 {
		return fmt.Errorf("velocity: reference frequency %g must be positive", c.ReferenceHz)
	}
	if c.MinCompensation <= 0 || c.MaxCompensation < c.MinCompensation {
		return fmt.Errorf("velocity: compensation range [%g, %g] invalid", c.MinCompensation, c.MaxCompensation)
	}
	if c.Floor < 0 || c.Floor >= 1 {
		return fmt.Errorf("velocity: floor %g outside [0, 1)", c.Floor)
	}
	return nil
}

// VelocitySignals are the attack measurements available for one trigger.
// Zero Level and HasFlux false exclude the corresponding term.
type VelocitySignals struct {
	Ratio       float64
	Flux        float64
	HasFlux     bool
	Level       float64
	FrequencyHz float64 // -1 when unknown; disables compensation
}

// Compensation returns the level multiplier sqrt(ReferenceHz/f), clamped
// to the configured range. Unknown frequencies get 1.
func (c VelocityConfig) Compensation(f float64) float64 {
	if f <= 0 || math.IsNaN(f) {
		return 1
	}
	return dsp.Clamp(math.Sqrt(c.ReferenceHz/f), c.MinCompensation, c.MaxCompensation)
}

// Estimate blends the available signals and maps the result into
// [Floor, 1].
func (c VelocityConfig) Estimate(s VelocitySignals) float64 {
	var sum, weights float64

	if c.RatioWeight > 0 && s.Ratio > 0 {
		sum += c.RatioWeight * unit((s.Ratio-1)*c.RatioScale)
		weights += c.RatioWeight
	}
	if c.FluxWeight > 0 && s.HasFlux {
		sum += c.FluxWeight * unit(s.Flux*c.FluxScale)
		weights += c.FluxWeight
	}
	if c.LevelWeight > 0 && s.Level > 0 {
		sum += c.LevelWeight * unit(s.Level*c.Compensation(s.FrequencyHz)*c.LevelScale)
		weights += c.LevelWeight
	}

	v := 0.0
	if weights > 0 {
		v = sum / weights
	}
	return c.Floor + (1-c.Floor)*unit(v)
}

func unit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return dsp.Clamp(v, 0, 1)
}
