package trigger

import (
	"time"

	"github.com/grumpedal/grum/pkg/debug"
	"github.com/grumpedal/grum/pkg/dsp"
	"github.com/grumpedal/grum/pkg/dsp/analysis"
	"github.com/grumpedal/grum/pkg/dsp/buffer"
	"github.com/grumpedal/grum/pkg/dsp/envelope"
	"github.com/grumpedal/grum/pkg/dsp/filter"
	"github.com/grumpedal/grum/pkg/dsp/pitch"
)

// Clock supplies the stream time of the block being processed. The default
// clock counts samples.
type Clock interface {
	Now() time.Duration
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Duration

// Now calls f.
func (f ClockFunc) Now() time.Duration {
	return f()
}

// Frontend measures each audio block and produces the detector Reading:
// levels, a pitch estimate over a sliding window, and optional spectral
// frames with their flux.
type Frontend struct {
	sampleRate   float64
	mode         envelope.DetectorMode
	silenceFloor float64

	prefilter *filter.Prefilter
	window    *buffer.Window
	windowBuf []float32
	span      time.Duration
	estimator pitch.Estimator

	spectrum *analysis.SpectrumAnalyzer
	flux     *analysis.FluxEstimator
	binHz    float64

	scratch   []float32
	samples   int64
	nonFinite uint64
	clock     Clock
}

// NewFrontend creates a frontend. A nil estimator selects the estimator
// chain described by config.Pitch.
func NewFrontend(config Config, est pitch.Estimator) (*Frontend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if est == nil {
		var err error
		est, err = pitch.New(config.SampleRate, config.PitchWindow, config.Pitch)
		if err != nil {
			return nil, err
		}
	}

	f := &Frontend{
		sampleRate:   config.SampleRate,
		mode:         config.Mode,
		silenceFloor: config.Onset.SilenceFloor,
		window:       buffer.NewWindow(config.PitchWindow),
		windowBuf:    make([]float32, config.PitchWindow),
		span:         dsp.SamplesToDuration(int64(config.PitchWindow), config.SampleRate),
		estimator:    est,
		scratch:      make([]float32, config.BlockSize),
	}

	if config.Prefilter.Enabled {
		f.prefilter = filter.NewPrefilter(config.SampleRate, config.Prefilter.PrefilterConfig)
	}

	if config.NeedsSpectrum() {
		sc := config.Spectrum
		f.spectrum = analysis.NewSpectrumAnalyzer(sc.FFTSize, config.SampleRate, sc.Window)
		f.spectrum.SetHopSize(min(config.BlockSize, sc.FFTSize))
		f.spectrum.SetBins(sc.Bins)
		f.binHz = f.spectrum.BinHz()
		if config.Flux.Enabled {
			f.flux = analysis.NewFluxEstimator(config.Flux.FluxConfig)
		}
	}
	return f, nil
}

// SetClock replaces the sample clock. Pass nil to restore it.
func (f *Frontend) SetClock(c Clock) {
	f.clock = c
}

// Process measures one block. The block itself is never modified.
func (f *Frontend) Process(block []float32) Reading {
	now := dsp.SamplesToDuration(f.samples, f.sampleRate)
	if f.clock != nil {
		now = f.clock.Now()
	}

	if cap(f.scratch) < len(block) {
		f.scratch = make([]float32, len(block))
	}
	in := f.scratch[:len(block)]
	copy(in, block)
	f.nonFinite += uint64(debug.Sanitize(in))
	if f.prefilter != nil {
		f.prefilter.Process(in)
	}

	levels := envelope.Measure(in)
	r := Reading{
		Now:    now,
		Level:  levels.Of(f.mode),
		Levels: levels,
		BinHz:  f.binHz,
	}

	f.window.Write(in)
	f.samples += int64(len(in))

	if f.window.Full() && levels.RMS >= f.silenceFloor {
		f.windowBuf = f.window.Latest(f.windowBuf)
		r.Pitch = f.estimator.Estimate(f.windowBuf)
		r.HasPitch = true
		r.PitchSpan = f.span
		r.PitchFrom = now + dsp.SamplesToDuration(int64(len(in)), f.sampleRate) - f.span
		if f.clock == nil {
			r.PitchFrom = dsp.SamplesToDuration(f.samples-int64(f.window.Len()), f.sampleRate)
		}
	}

	if f.spectrum != nil && f.spectrum.Process(in) {
		r.Spectrum = f.spectrum.Frame()
		if f.flux != nil {
			r.Flux = f.flux.Process(r.Spectrum)
			r.HasFlux = true
		}
	}
	return r
}

// NonFinite returns how many NaN or infinite input samples were replaced.
func (f *Frontend) NonFinite() uint64 {
	return f.nonFinite
}

// Elapsed returns the stream time covered by the processed samples.
func (f *Frontend) Elapsed() time.Duration {
	return dsp.SamplesToDuration(f.samples, f.sampleRate)
}

// Reset clears all history and restarts the sample clock.
func (f *Frontend) Reset() {
	f.window.Reset()
	f.samples = 0
	f.nonFinite = 0
	if f.prefilter != nil {
		f.prefilter.Reset()
	}
	if f.spectrum != nil {
		f.spectrum.Reset()
	}
	if f.flux != nil {
		f.flux.Reset()
	}
	if r, ok := f.estimator.(interface{ Reset() }); ok {
		r.Reset()
	}
}
