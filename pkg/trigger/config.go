// Package trigger turns a mono guitar signal into drum hits. A Frontend
// measures each block, a Detector decides onsets and maps their pitch to a
// voice, and an Engine ties both to the output collaborators.
package trigger

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"time"

	"github.com/grumpedal/grum/pkg/dsp"
	"github.com/grumpedal/grum/pkg/dsp/analysis"
	"github.com/grumpedal/grum/pkg/dsp/dynamics"
	"github.com/grumpedal/grum/pkg/dsp/envelope"
	"github.com/grumpedal/grum/pkg/dsp/filter"
	"github.com/grumpedal/grum/pkg/dsp/pitch"
)

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("trigger: invalid config")

// SpectrumConfig sets up the magnitude frames used by the flux gate, the
// HFC gate and the energy fallback.
type SpectrumConfig struct {
	FFTSize int
	Bins    int // Low bins kept per frame
	Window  analysis.WindowFunc
}

// FluxOptions enables the spectral flux confirmation.
type FluxOptions struct {
	Enabled bool
	analysis.FluxConfig
}

// PrefilterOptions enables input conditioning for raw, unfiltered input.
type PrefilterOptions struct {
	Enabled bool
	filter.PrefilterConfig
}

// Config aggregates the configuration of every stage.
type Config struct {
	SampleRate  float64
	BlockSize   int
	PitchWindow int
	Mode        envelope.DetectorMode

	Envelope  envelope.TrackerConfig
	Onset     OnsetConfig
	Spectrum  SpectrumConfig
	Flux      FluxOptions
	HFC       HFCConfig
	Pitch     pitch.Config
	Detector  DetectorConfig
	Mapper    MapperConfig
	Velocity  VelocityConfig
	Fallback  FallbackConfig
	Guard     dynamics.GuardConfig
	Prefilter PrefilterOptions
}

// DefaultConfig returns the energy-ratio and YIN pipeline at 44.1kHz with
// 256-sample blocks and a 2048-sample pitch window.
func DefaultConfig() Config {
	return Config{
		SampleRate:  dsp.SampleRate44k1,
		BlockSize:   dsp.DefaultBlockSize,
		PitchWindow: dsp.DefaultPitchWindow,
		Mode:        envelope.ModeRMS,
		Envelope:    envelope.DefaultTrackerConfig(),
		Onset:       DefaultOnsetConfig(),
		Spectrum: SpectrumConfig{
			FFTSize: dsp.DefaultFFTSize,
			Bins:    dsp.DefaultSpectrumBins,
			Window:  analysis.HannWindow,
		},
		Flux:     FluxOptions{FluxConfig: analysis.DefaultFluxConfig()},
		HFC:      DefaultHFCConfig(),
		Pitch:    pitch.DefaultConfig(),
		Detector: DefaultDetectorConfig(),
		Mapper:   DefaultMapperConfig(),
		Velocity: DefaultVelocityConfig(),
		Fallback: DefaultFallbackConfig(),
		Guard:    dynamics.DefaultGuardConfig(),
		Prefilter: PrefilterOptions{
			PrefilterConfig: filter.DefaultPrefilterConfig(),
		},
	}
}

// NeedsSpectrum reports whether any stage consumes magnitude frames.
func (c Config) NeedsSpectrum() bool {
	return c.Flux.Enabled || c.HFC.Enabled || c.Fallback.Enabled
}

// Validate checks every stage. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate %g must be positive", c.SampleRate)
	}
	if c.BlockSize < 1 || c.BlockSize > dsp.MaxBlockSize {
		return fmt.Errorf("block size %d outside [1, %d]", c.BlockSize, dsp.MaxBlockSize)
	}
	if c.PitchWindow < dsp.MinPitchWindow || c.PitchWindow > dsp.MaxPitchWindow {
		return fmt.Errorf("pitch window %d outside [%d, %d]", c.PitchWindow, dsp.MinPitchWindow, dsp.MaxPitchWindow)
	}
	if c.Mode != envelope.ModeRMS && c.Mode != envelope.ModePeak {
		return fmt.Errorf("unknown detector mode %d", c.Mode)
	}

	checks := []func() error{
		c.Envelope.Validate,
		c.Onset.Validate,
		c.HFC.Validate,
		c.Pitch.Validate,
		c.Detector.Validate,
		c.Mapper.Validate,
		c.Velocity.Validate,
		c.Fallback.Validate,
		c.Guard.Validate,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}

	if c.Detector.PitchSettle > c.Onset.MinGap {
		return fmt.Errorf("pitch settle %v exceeds the onset gap %v", c.Detector.PitchSettle, c.Onset.MinGap)
	}
	// The onset block already contributes to the first window after it.
	if wait := c.freshPitchWait(); wait > c.Detector.PitchSettle {
		return fmt.Errorf("pitch window %d needs %v after an onset, longer than the pitch settle %v",
			c.PitchWindow, wait, c.Detector.PitchSettle)
	}

	if c.NeedsSpectrum() {
		if c.Spectrum.FFTSize < 16 || bits.OnesCount(uint(c.Spectrum.FFTSize)) != 1 {
			return fmt.Errorf("spectrum fft size %d must be a power of two >= 16", c.Spectrum.FFTSize)
		}
		if c.Spectrum.Bins < 2 || c.Spectrum.Bins > c.Spectrum.FFTSize/2+1 {
			return fmt.Errorf("spectrum bins %d outside [2, %d]", c.Spectrum.Bins, c.Spectrum.FFTSize/2+1)
		}
	}
	if c.Flux.Enabled {
		if err := c.Flux.FluxConfig.Validate(); err != nil {
			return err
		}
	}
	if c.Prefilter.Enabled {
		if err := c.Prefilter.PrefilterConfig.Validate(c.SampleRate); err != nil {
			return err
		}
	}
	return nil
}

// freshPitchWait is the stream time between an onset and the first pitch
// window that counts as fresh for it.
func (c Config) freshPitchWait() time.Duration {
	samples := c.Detector.PitchFreshness*float64(c.PitchWindow) - float64(c.BlockSize)
	if samples <= 0 {
		return 0
	}
	return dsp.SamplesToDuration(int64(math.Ceil(samples)), c.SampleRate)
}
