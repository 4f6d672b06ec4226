package trigger

import (
	"errors"
	"testing"
	"time"

	"github.com/grumpedal/grum/pkg/dsp/pitch"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Default", func(c *Config) {}, false},
		{"AllStagesEnabled", func(c *Config) {
			c.Flux.Enabled = true
			c.HFC.Enabled = true
			c.Fallback.Enabled = true
			c.Prefilter.Enabled = true
			c.Pitch.Stabilize = true
		}, false},
		{"HPS", func(c *Config) { c.Pitch.Algorithm = pitch.AlgorithmHPS }, false},
		{"ZeroSampleRate", func(c *Config) { c.SampleRate = 0 }, true},
		{"ZeroBlock", func(c *Config) { c.BlockSize = 0 }, true},
		{"HugeBlock", func(c *Config) { c.BlockSize = 4096 }, true},
		{"TinyPitchWindow", func(c *Config) { c.PitchWindow = 128 }, true},
		{"HugePitchWindow", func(c *Config) { c.PitchWindow = 16384 }, true},
		{"BadMode", func(c *Config) { c.Mode = 7 }, true},
		{"BadEnvelope", func(c *Config) { c.Envelope.SlowAlpha = 0.5 }, true},
		{"BadOnset", func(c *Config) { c.Onset.MinGap = 0 }, true},
		{"BadPitch", func(c *Config) { c.Pitch.Algorithm = "autocorr" }, true},
		{"BadMapper", func(c *Config) { c.Mapper.Bands = nil }, true},
		{"BadGuard", func(c *Config) { c.Guard.ArmBlocks = 0 }, true},
		{"SettleBeyondGap", func(c *Config) { c.Detector.PitchSettle = 100 * time.Millisecond }, true},
		{"WindowOutlastsSettle", func(c *Config) { c.PitchWindow = 4096 }, true},
		{"WindowHalfFresh", func(c *Config) {
			c.PitchWindow = 4096
			c.Detector.PitchFreshness = 0.5
		}, false},
		{"WindowWithLongerSettle", func(c *Config) {
			c.PitchWindow = 4096
			c.Detector.PitchSettle = 90 * time.Millisecond
			c.Onset.MinGap = 120 * time.Millisecond
		}, false},
		{"ShortSettleWithoutFreshness", func(c *Config) {
			c.Detector.PitchSettle = 0
			c.Detector.PitchFreshness = 0
		}, false},
		{"FFTNotPowerOfTwo", func(c *Config) {
			c.Flux.Enabled = true
			c.Spectrum.FFTSize = 300
		}, true},
		{"FFTIgnoredWhenUnused", func(c *Config) { c.Spectrum.FFTSize = 300 }, false},
		{"TooManyBins", func(c *Config) {
			c.HFC.Enabled = true
			c.Spectrum.Bins = 200
		}, true},
		{"BadFlux", func(c *Config) {
			c.Flux.Enabled = true
			c.Flux.Alpha = 0
		}, true},
		{"BadPrefilter", func(c *Config) {
			c.Prefilter.Enabled = true
			c.Prefilter.HighpassHz = c.SampleRate
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfigNeedsSpectrum(t *testing.T) {
	c := DefaultConfig()
	if c.NeedsSpectrum() {
		t.Error("Default pipeline should not need a spectrum")
	}
	c.Fallback.Enabled = true
	if !c.NeedsSpectrum() {
		t.Error("Fallback needs a spectrum")
	}
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	c := DefaultConfig()
	c.BlockSize = 0
	if _, err := NewEngine(c, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewEngine error = %v, want ErrInvalidConfig", err)
	}
}
