package pitch

import (
	"fmt"
)

// Algorithm names accepted by Config
const (
	AlgorithmYIN = "yin"
	AlgorithmHPS = "hps"
)

// Config selects and parameterizes the estimator chain
type Config struct {
	Algorithm    string
	YIN          YINConfig
	HPS          HPSConfig
	Stabilize    bool
	Stabilizer   StabilizerConfig
	ZCRTolerance float64 // 0 disables zero-crossing validation
}

// DefaultConfig returns plain YIN with no decorators
func DefaultConfig() Config {
	return Config{
		Algorithm:  AlgorithmYIN,
		YIN:        DefaultYINConfig(),
		HPS:        DefaultHPSConfig(),
		Stabilizer: DefaultStabilizerConfig(),
	}
}

// Validate checks the selected algorithm and enabled decorators
func (c Config) Validate() error {
	switch c.Algorithm {
	case AlgorithmYIN:
		if err := c.YIN.Validate(); err != nil {
			return err
		}
	case AlgorithmHPS:
		if err := c.HPS.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("pitch: unknown algorithm %q", c.Algorithm)
	}

	if c.Stabilize {
		if err := c.Stabilizer.Validate(); err != nil {
			return err
		}
	}
	if c.ZCRTolerance < 0 {
		return fmt.Errorf("pitch: negative zcr tolerance %g", c.ZCRTolerance)
	}
	return nil
}

// Range returns the instrument range of the selected algorithm
func (c Config) Range() Range {
	if c.Algorithm == AlgorithmHPS {
		return c.HPS.Range
	}
	return c.YIN.Range
}

// New builds the estimator chain: base algorithm, then zero-crossing
// validation, then multi-frame stabilization.
func New(sampleRate float64, windowLen int, config Config) (Estimator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var est Estimator
	switch config.Algorithm {
	case AlgorithmHPS:
		est = NewHPS(sampleRate, config.HPS)
	default:
		est = NewYIN(sampleRate, windowLen, config.YIN)
	}

	if config.ZCRTolerance > 0 {
		est = NewZCRValidator(est, sampleRate, config.ZCRTolerance)
	}
	if config.Stabilize {
		est = NewStabilizer(est, config.Stabilizer)
	}
	return est, nil
}
