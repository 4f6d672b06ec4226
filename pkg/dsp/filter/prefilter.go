package filter

import (
	"fmt"
)

// PrefilterConfig describes the conditioning chain for raw instrument input.
// A zero frequency disables that stage.
type PrefilterConfig struct {
	HighpassHz float64
	HighpassQ  float64
	NotchHz    float64
	NotchQ     float64
}

// DefaultPrefilterConfig removes rumble below 30 Hz and 60 Hz mains
func DefaultPrefilterConfig() PrefilterConfig {
	return PrefilterConfig{
		HighpassHz: 30,
		HighpassQ:  0.5,
		NotchHz:    60,
		NotchQ:     10,
	}
}

// Validate checks the stages against the sample rate.
func (c PrefilterConfig) Validate(sampleRate float64) error {
	nyquist := sampleRate / 2
	if c.HighpassHz < 0 || c.HighpassHz >= nyquist {
		return fmt.Errorf("prefilter: highpass %g Hz outside [0, %g)", c.HighpassHz, nyquist)
	}
	if c.NotchHz < 0 || c.NotchHz >= nyquist {
		return fmt.Errorf("prefilter: notch %g Hz outside [0, %g)", c.NotchHz, nyquist)
	}
	if (c.HighpassHz > 0 && c.HighpassQ <= 0) || (c.NotchHz > 0 && c.NotchQ <= 0) {
		return fmt.Errorf("prefilter: Q must be positive")
	}
	return nil
}

// Prefilter chains a highpass and a notch
type Prefilter struct {
	stages []*Biquad
}

// NewPrefilter builds the enabled stages of config
func NewPrefilter(sampleRate float64, config PrefilterConfig) *Prefilter {
	p := &Prefilter{}

	if config.HighpassHz > 0 {
		hp := NewBiquad()
		hp.SetHighpass(sampleRate, config.HighpassHz, config.HighpassQ)
		p.stages = append(p.stages, hp)
	}
	if config.NotchHz > 0 {
		notch := NewBiquad()
		notch.SetNotch(sampleRate, config.NotchHz, config.NotchQ)
		p.stages = append(p.stages, notch)
	}

	return p
}

// Process filters a block in place
func (p *Prefilter) Process(block []float32) {
	for _, stage := range p.stages {
		stage.Process(block)
	}
}

// Stages returns the number of active stages
func (p *Prefilter) Stages() int {
	return len(p.stages)
}

// Reset clears all filter state
func (p *Prefilter) Reset() {
	for _, stage := range p.stages {
		stage.Reset()
	}
}
