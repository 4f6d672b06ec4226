package trigger

import (
	"fmt"
	"time"

	"github.com/grumpedal/grum/pkg/dsp"
	"github.com/grumpedal/grum/pkg/dsp/envelope"
)

// Sensitivity limits for SetSensitivity, as a ratio delta.
const (
	MinRatioDelta = 0.05
	MaxRatioDelta = 2.0
)

// OnsetConfig holds the primary onset condition.
type OnsetConfig struct {
	RatioDelta   float64       // fast/slow must exceed 1 + RatioDelta
	MinDelta     float64       // fast - slow must exceed this
	MinGap       time.Duration // Minimum time between accepted onsets
	RisingEdge   float64       // Level must exceed the prior fast level by this factor, 0 disables
	SilenceFloor float64       // Blocks with RMS below this are skipped
}

// DefaultOnsetConfig returns thresholds tuned for a picked guitar.
func DefaultOnsetConfig() OnsetConfig {
	return OnsetConfig{
		RatioDelta:   0.5,
		MinDelta:     0.002,
		MinGap:       dsp.DefaultOnsetGap,
		RisingEdge:   1.2,
		SilenceFloor: dsp.SilenceFloor,
	}
}

// Validate reports the first out-of-range parameter.
func (c OnsetConfig) Validate() error {
	if c.RatioDelta < MinRatioDelta || c.RatioDelta > MaxRatioDelta {
		return fmt.Errorf("onset: ratio delta %g outside [%g, %g]", c.RatioDelta, MinRatioDelta, MaxRatioDelta)
	}
	if c.MinDelta < 0 {
		return fmt.Errorf("onset: negative min delta %g", c.MinDelta)
	}
	if c.MinGap <= 0 {
		return fmt.Errorf("onset: min gap %v must be positive", c.MinGap)
	}
	if c.RisingEdge != 0 && c.RisingEdge < 1 {
		return fmt.Errorf("onset: rising edge %g must be 0 or at least 1", c.RisingEdge)
	}
	if c.SilenceFloor < 0 {
		return fmt.Errorf("onset: negative silence floor %g", c.SilenceFloor)
	}
	return nil
}

// Candidate describes a cycle that met the primary onset condition.
// Confirmers see it before the onset is accepted.
type Candidate struct {
	At      time.Duration
	Level   float64
	Ratio   float64
	Delta   float64
	Reading *Reading
}

// OnsetDetector turns the envelope ratio into debounced onset events.
type OnsetDetector struct {
	config     OnsetConfig
	tracker    *envelope.Tracker
	confirmers []Confirmer

	lastOnset time.Duration
	hasOnset  bool
}

// NewOnsetDetector creates a detector around its own envelope tracker.
func NewOnsetDetector(config OnsetConfig, tracker envelope.TrackerConfig) *OnsetDetector {
	return &OnsetDetector{
		config:  config,
		tracker: envelope.NewTracker(tracker),
	}
}

// AddConfirmer appends a confirmation stage. All stages must agree.
func (o *OnsetDetector) AddConfirmer(c Confirmer) {
	o.confirmers = append(o.confirmers, c)
}

// SetSensitivity updates the ratio threshold, clamped to the allowed range.
func (o *OnsetDetector) SetSensitivity(ratioDelta float64) {
	o.config.RatioDelta = dsp.Clamp(ratioDelta, MinRatioDelta, MaxRatioDelta)
}

// Sensitivity returns the current ratio delta.
func (o *OnsetDetector) Sensitivity() float64 {
	return o.config.RatioDelta
}

// Silent reports whether the reading is below the silence floor.
func (o *OnsetDetector) Silent(r *Reading) bool {
	return r.Levels.RMS < o.config.SilenceFloor
}

// Process updates the envelope and decides whether this cycle is an onset.
// Silent cycles leave the envelope untouched.
func (o *OnsetDetector) Process(r *Reading) (Candidate, bool) {
	if o.Silent(r) {
		return Candidate{}, false
	}

	prevFast := o.tracker.Fast()
	ratio := o.tracker.Update(r.Level)

	c := Candidate{
		At:      r.Now,
		Level:   r.Level,
		Ratio:   ratio,
		Delta:   o.tracker.Delta(),
		Reading: r,
	}

	accepted := o.primary(c, prevFast) && o.confirm(c)
	o.observe(r)
	if !accepted {
		return c, false
	}

	o.lastOnset = r.Now
	o.hasOnset = true
	return c, true
}

func (o *OnsetDetector) primary(c Candidate, prevFast float64) bool {
	if c.Ratio <= 1+o.config.RatioDelta || c.Delta <= o.config.MinDelta {
		return false
	}
	if o.hasOnset && c.At-o.lastOnset <= o.config.MinGap {
		return false
	}
	if o.config.RisingEdge > 0 && c.Level <= prevFast*o.config.RisingEdge {
		return false
	}
	return true
}

func (o *OnsetDetector) confirm(c Candidate) bool {
	for _, cf := range o.confirmers {
		if !cf.Confirm(c) {
			return false
		}
	}
	return true
}

func (o *OnsetDetector) observe(r *Reading) {
	for _, cf := range o.confirmers {
		if ob, ok := cf.(Observer); ok {
			ob.Observe(r)
		}
	}
}

// LastOnset returns the time of the last accepted onset.
func (o *OnsetDetector) LastOnset() (time.Duration, bool) {
	return o.lastOnset, o.hasOnset
}

// Tracker exposes the envelope for diagnostics.
func (o *OnsetDetector) Tracker() *envelope.Tracker {
	return o.tracker
}

// Reset forgets the envelope and the last onset.
func (o *OnsetDetector) Reset() {
	o.tracker.Reset()
	o.lastOnset = 0
	o.hasOnset = false
	for _, cf := range o.confirmers {
		if rs, ok := cf.(interface{ Reset() }); ok {
			rs.Reset()
		}
	}
}
