package trigger

import (
	"fmt"
	"time"

	"github.com/grumpedal/grum/pkg/dsp"
	"github.com/grumpedal/grum/pkg/dsp/analysis"
	"github.com/grumpedal/grum/pkg/dsp/envelope"
	"github.com/grumpedal/grum/pkg/dsp/pitch"
)

// Reading is the per-cycle input of the detector. Pitch, flux and spectrum
// are optional and may be missing on any cycle.
type Reading struct {
	Now    time.Duration // Stream time of the first sample of the block
	Level  float64       // Block energy in the configured detector mode
	Levels envelope.Levels

	Pitch     pitch.Estimate
	HasPitch  bool
	PitchFrom time.Duration // Stream time of the first sample of the pitch window
	PitchSpan time.Duration // Length of the pitch window

	Flux    analysis.FluxReading
	HasFlux bool

	Spectrum []float64 // Magnitude frame, nil when none was produced this cycle
	BinHz    float64
}

// DropReason explains why a cycle produced no trigger.
type DropReason int

const (
	DropNone DropReason = iota
	DropSilence
	DropPending
	DropNoPitch
	DropLowConfidence
	DropOutOfRange
	DropHum
	DropDeadZone
	DropRetrigger

	numDropReasons
)

var dropNames = [numDropReasons]string{
	"none", "silence", "pending", "no-pitch", "low-confidence",
	"out-of-range", "hum", "dead-zone", "retrigger",
}

// String returns the reason name.
func (d DropReason) String() string {
	if d < 0 || d >= numDropReasons {
		return "unknown"
	}
	return dropNames[d]
}

// Trigger is one accepted drum hit.
type Trigger struct {
	Voice       Voice
	Velocity    float64 // [velocity floor, 1]
	Level       float64 // Velocity scaled by the voice base gain
	FrequencyHz float64 // -1 for energy fallback hits
	OnsetAt     time.Duration
	At          time.Duration
	Locked      bool // Voice came from the continuity lock
	Fallback    bool // Voice came from the energy distribution
}

// Result is the outcome of one cycle.
type Result struct {
	At      time.Duration
	Onset   bool // An onset was accepted this cycle
	Fired   bool
	Trigger Trigger
	Drop    DropReason
	Ratio   float64
}

// DetectorConfig controls how an accepted onset is turned into a trigger.
type DetectorConfig struct {
	PitchSettle     time.Duration // How long an onset may wait for a pitch
	PitchFreshness  float64       // Fraction of the pitch window that must follow the onset
	ConfidenceFloor float64
	HumBands        []pitch.Range
}

// DefaultDetectorConfig waits up to 50ms for a pitch measured entirely
// after the attack.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		PitchSettle:     dsp.DefaultPitchSettle,
		PitchFreshness:  1.0,
		ConfidenceFloor: 0.6,
		HumBands:        DefaultHumBands(),
	}
}

// Validate reports the first out-of-range parameter.
func (c DetectorConfig) Validate() error {
	if c.PitchSettle < 0 {
		return fmt.Errorf("detector: negative pitch settle %v", c.PitchSettle)
	}
	if c.PitchFreshness < 0 || c.PitchFreshness > 1 {
		return fmt.Errorf("detector: pitch freshness %g outside [0, 1]", c.PitchFreshness)
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		return fmt.Errorf("detector: confidence floor %g outside [0, 1]", c.ConfidenceFloor)
	}
	for i, h := range c.HumBands {
		if err := h.Validate(); err != nil {
			return fmt.Errorf("detector: hum band %d: %w", i, err)
		}
	}
	return nil
}

type pendingOnset struct {
	active    bool
	candidate Candidate
	flux      float64
	hasFlux   bool
	reason    DropReason
	spectrum  []float64
	binHz     float64
	hasFrame  bool
}

// Detector is the per-channel trigger state machine. It owns the envelope,
// the onset timestamp, the voice lock, the retrigger table and the pending
// onset. Not safe for concurrent use.
type Detector struct {
	config   DetectorConfig
	rng      pitch.Range
	onset    *OnsetDetector
	mapper   *Mapper
	velocity VelocityConfig
	fallback FallbackConfig

	pending pendingOnset
}

// NewDetector builds a detector from a validated configuration. The flux
// and HFC gates are installed when enabled.
func NewDetector(config Config) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{
		config:   config.Detector,
		rng:      config.Pitch.Range(),
		onset:    NewOnsetDetector(config.Onset, config.Envelope),
		mapper:   NewMapper(config.Mapper),
		velocity: config.Velocity,
		fallback: config.Fallback,
	}
	if config.Flux.Enabled {
		d.onset.AddConfirmer(FluxGate{})
	}
	if config.HFC.Enabled {
		d.onset.AddConfirmer(NewHFCGate(config.HFC))
	}
	return d, nil
}

// AddConfirmer appends a custom onset confirmation stage.
func (d *Detector) AddConfirmer(c Confirmer) {
	d.onset.AddConfirmer(c)
}

// Onset exposes the onset stage.
func (d *Detector) Onset() *OnsetDetector {
	return d.onset
}

// Mapper exposes the voice mapper.
func (d *Detector) Mapper() *Mapper {
	return d.mapper
}

// Pending reports whether an onset is waiting for its pitch.
func (d *Detector) Pending() bool {
	return d.pending.active
}

// Process runs one cycle: onset detection, then resolution of the newest
// onset against the pitch reading.
func (d *Detector) Process(r *Reading) Result {
	res := Result{At: r.Now}

	silent := d.onset.Silent(r)
	if c, ok := d.onset.Process(r); ok {
		d.begin(c)
		res.Onset = true
	}
	res.Ratio = d.onset.Tracker().Ratio()

	if !d.pending.active {
		if silent {
			res.Drop = DropSilence
		}
		return res
	}

	if r.Spectrum != nil && d.fallback.Enabled {
		d.pending.spectrum = append(d.pending.spectrum[:0], r.Spectrum...)
		d.pending.binHz = r.BinHz
		d.pending.hasFrame = true
	}

	if d.fresh(r) {
		reason, final := d.resolve(r, &res)
		if final {
			d.pending.active = false
			res.Drop = reason
			return res
		}
		d.pending.reason = reason
	}

	if r.Now-d.pending.candidate.At >= d.config.PitchSettle {
		d.expire(r, &res)
		return res
	}

	res.Drop = DropPending
	return res
}

func (d *Detector) begin(c Candidate) {
	d.pending.active = true
	d.pending.candidate = c
	d.pending.candidate.Reading = nil
	d.pending.reason = DropNoPitch
	d.pending.hasFrame = false
	d.pending.flux, d.pending.hasFlux = 0, false
	if c.Reading != nil && c.Reading.HasFlux {
		d.pending.flux = c.Reading.Flux.Flux
		d.pending.hasFlux = true
	}
}

// fresh reports whether the reading carries a pitch measured on a window
// that starts late enough after the pending onset.
func (d *Detector) fresh(r *Reading) bool {
	if !r.HasPitch {
		return false
	}
	lead := time.Duration((1 - d.config.PitchFreshness) * float64(r.PitchSpan))
	return r.PitchFrom+lead >= d.pending.candidate.At
}

// resolve checks a fresh pitch. final is false when a later pitch may
// still succeed.
func (d *Detector) resolve(r *Reading, res *Result) (reason DropReason, final bool) {
	p := r.Pitch
	if !p.Valid() {
		return DropNoPitch, false
	}
	if p.Confidence < d.config.ConfidenceFloor {
		return DropLowConfidence, false
	}
	for _, h := range d.config.HumBands {
		if h.Contains(p.FrequencyHz) {
			return DropHum, true
		}
	}
	if !d.rng.Contains(p.FrequencyHz) {
		return DropOutOfRange, true
	}

	voice, locked, ok := d.mapper.Resolve(p.FrequencyHz, r.Now)
	if !ok {
		return DropDeadZone, true
	}
	if !d.mapper.CanFire(voice, r.Now) {
		return DropRetrigger, true
	}

	d.fire(voice, p.FrequencyHz, locked, false, r.Now, res)
	return DropNone, true
}

// expire ends a pending onset whose settle window ran out.
func (d *Detector) expire(r *Reading, res *Result) {
	d.pending.active = false
	res.Drop = d.pending.reason

	noPitch := d.pending.reason == DropNoPitch || d.pending.reason == DropLowConfidence
	if !d.fallback.Enabled || !noPitch || !d.pending.hasFrame {
		return
	}

	voice, ok := d.fallback.Classify(d.pending.spectrum, d.pending.binHz)
	if !ok {
		return
	}
	lockedVoice, locked := d.mapper.Locked(r.Now)
	if locked {
		voice = lockedVoice
	}
	if !d.mapper.CanFire(voice, r.Now) {
		res.Drop = DropRetrigger
		return
	}
	d.fire(voice, -1, locked, true, r.Now, res)
}

func (d *Detector) fire(v Voice, freq float64, locked, fallback bool, now time.Duration, res *Result) {
	c := d.pending.candidate
	vel := d.velocity.Estimate(VelocitySignals{
		Ratio:       c.Ratio,
		Flux:        d.pending.flux,
		HasFlux:     d.pending.hasFlux,
		Level:       c.Level,
		FrequencyHz: freq,
	})

	d.mapper.Fire(v, now)
	d.pending.active = false

	res.Fired = true
	res.Drop = DropNone
	res.Trigger = Trigger{
		Voice:       v,
		Velocity:    vel,
		Level:       vel * d.mapper.Params(v).BaseGain,
		FrequencyHz: freq,
		OnsetAt:     c.At,
		At:          now,
		Locked:      locked,
		Fallback:    fallback,
	}
}

// SetSensitivity changes the onset ratio threshold at runtime.
func (d *Detector) SetSensitivity(ratioDelta float64) {
	d.onset.SetSensitivity(ratioDelta)
}

// Reset returns the detector to its startup state.
func (d *Detector) Reset() {
	d.onset.Reset()
	d.mapper.Reset()
	d.pending = pendingOnset{spectrum: d.pending.spectrum[:0]}
}
