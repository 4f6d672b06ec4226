package pitch

import (
	"fmt"
	"math"
)

// StabilizerConfig holds the multi-frame agreement rule
type StabilizerConfig struct {
	Frames    int     // History length
	MinValid  int     // Valid readings required in the history
	Tolerance float64 // Maximum relative deviation from the mean
}

// DefaultStabilizerConfig requires 2 of the last 3 frames within 10%
func DefaultStabilizerConfig() StabilizerConfig {
	return StabilizerConfig{
		Frames:    3,
		MinValid:  2,
		Tolerance: 0.1,
	}
}

// Validate reports the first inconsistent parameter
func (c StabilizerConfig) Validate() error {
	if c.Frames < 1 || c.MinValid < 1 || c.MinValid > c.Frames {
		return fmt.Errorf("stabilizer: need 1 <= min valid (%d) <= frames (%d)", c.MinValid, c.Frames)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("stabilizer: tolerance %g must be positive", c.Tolerance)
	}
	return nil
}

// Stabilizer wraps an Estimator and only reports a pitch when recent frames
// agree. The reported frequency and confidence are the means of the valid
// frames in the history.
type Stabilizer struct {
	inner  Estimator
	config StabilizerConfig

	history []Estimate
	index   int
}

// NewStabilizer creates a stabilizer around inner
func NewStabilizer(inner Estimator, config StabilizerConfig) *Stabilizer {
	s := &Stabilizer{
		inner:   inner,
		config:  config,
		history: make([]Estimate, config.Frames),
	}
	s.Reset()
	return s
}

// Estimate runs the inner estimator and returns the stabilized reading
func (s *Stabilizer) Estimate(window []float32) Estimate {
	s.history[s.index] = s.inner.Estimate(window)
	s.index = (s.index + 1) % len(s.history)
	return s.Current()
}

// Current returns the stabilized reading of the present history
func (s *Stabilizer) Current() Estimate {
	valid := 0
	sumFreq, sumConf := 0.0, 0.0
	for _, e := range s.history {
		if e.Valid() {
			valid++
			sumFreq += e.FrequencyHz
			sumConf += e.Confidence
		}
	}
	if valid < s.config.MinValid {
		return NoPitch
	}

	mean := sumFreq / float64(valid)
	for _, e := range s.history {
		if e.Valid() && math.Abs(e.FrequencyHz-mean)/mean > s.config.Tolerance {
			return NoPitch
		}
	}

	return Estimate{FrequencyHz: mean, Confidence: sumConf / float64(valid)}
}

// Reset clears the history
func (s *Stabilizer) Reset() {
	for i := range s.history {
		s.history[i] = NoPitch
	}
	s.index = 0
}
