package envelope

import (
	"fmt"
	"math"
)

// TrackerConfig holds the smoothing coefficients of a Tracker.
type TrackerConfig struct {
	FastAlpha  float64 // Fast EMA coefficient (0.3-0.4)
	SlowAlpha  float64 // Slow EMA coefficient (~0.02)
	NoiseFloor float64 // Readings below this freeze both levels
	Epsilon    float64 // Slow level below this makes the ratio 0
}

// DefaultTrackerConfig returns the coefficients tuned for guitar plucks
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		FastAlpha:  0.35,
		SlowAlpha:  0.02,
		NoiseFloor: 0.0002,
		Epsilon:    1e-6,
	}
}

// Validate reports the first out-of-range coefficient.
func (c TrackerConfig) Validate() error {
	if c.FastAlpha <= 0 || c.FastAlpha > 1 {
		return fmt.Errorf("envelope: fast alpha %g outside (0,1]", c.FastAlpha)
	}
	if c.SlowAlpha <= 0 || c.SlowAlpha > 1 {
		return fmt.Errorf("envelope: slow alpha %g outside (0,1]", c.SlowAlpha)
	}
	if c.SlowAlpha >= c.FastAlpha {
		return fmt.Errorf("envelope: slow alpha %g must be below fast alpha %g", c.SlowAlpha, c.FastAlpha)
	}
	if c.NoiseFloor < 0 || c.Epsilon <= 0 {
		return fmt.Errorf("envelope: noise floor and epsilon must be positive")
	}
	return nil
}

// Tracker maintains fast and slow exponential moving averages of the
// per-block energy. The ratio fast/slow is scale invariant, so the onset
// thresholds work across input gain settings.
type Tracker struct {
	config TrackerConfig

	fast float64
	slow float64
}

// NewTracker creates a tracker with both levels at zero
func NewTracker(config TrackerConfig) *Tracker {
	return &Tracker{config: config}
}

// Update folds one block reading into both averages and returns the new ratio.
// Readings below the noise floor leave both levels untouched.
func (t *Tracker) Update(p float64) float64 {
	if p < t.config.NoiseFloor || math.IsNaN(p) {
		return t.Ratio()
	}

	t.fast = (1-t.config.FastAlpha)*t.fast + t.config.FastAlpha*p
	t.slow = (1-t.config.SlowAlpha)*t.slow + t.config.SlowAlpha*p

	return t.Ratio()
}

// Ratio returns fast/slow, or 0 while the slow level is below epsilon
func (t *Tracker) Ratio() float64 {
	if t.slow < t.config.Epsilon {
		return 0
	}
	return t.fast / t.slow
}

// Delta returns fast - slow
func (t *Tracker) Delta() float64 {
	return t.fast - t.slow
}

// Fast returns the fast level
func (t *Tracker) Fast() float64 {
	return t.fast
}

// Slow returns the slow level
func (t *Tracker) Slow() float64 {
	return t.slow
}

// Reset returns both levels to zero. Only called at startup.
func (t *Tracker) Reset() {
	t.fast = 0
	t.slow = 0
}
