package trigger

import (
	"fmt"
	"time"

	"github.com/grumpedal/grum/pkg/debug"
	"github.com/grumpedal/grum/pkg/dsp/dynamics"
	"github.com/grumpedal/grum/pkg/dsp/gain"
	"github.com/grumpedal/grum/pkg/dsp/pitch"
)

// Stats counts what the engine has done since construction or Reset.
type Stats struct {
	Blocks     uint64
	Onsets     uint64
	Triggers   uint64
	PerVoice   [NumVoices]uint64
	Drops      [numDropReasons]uint64
	SinkErrors uint64
	GainErrors uint64
	GuardArms  uint64
	Overruns   uint64
	NonFinite  uint64
}

// Dropped returns how many cycles ended with reason d.
func (s Stats) Dropped(d DropReason) uint64 {
	if d < 0 || d >= numDropReasons {
		return 0
	}
	return s.Drops[d]
}

// Engine runs the complete per-block pipeline: Frontend, Detector and
// Sink, with the clip guard driving the GainControl on the same levels.
// Process must be called from a single goroutine.
type Engine struct {
	config   Config
	frontend *Frontend
	detector *Detector
	guard    *dynamics.Guard

	sink     Sink
	gain     GainControl
	logger   *debug.Logger
	profiler *debug.BlockProfiler

	stats Stats
}

// NewEngine builds the pipeline. sink may be nil when only the results of
// Process are wanted.
func NewEngine(config Config, sink Sink) (*Engine, error) {
	return NewEngineWithEstimator(config, sink, nil)
}

// NewEngineWithEstimator builds the pipeline around a custom pitch
// estimator. A nil estimator selects the configured chain.
func NewEngineWithEstimator(config Config, sink Sink, est pitch.Estimator) (*Engine, error) {
	frontend, err := NewFrontend(config, est)
	if err != nil {
		return nil, err
	}
	detector, err := NewDetector(config)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:   config,
		frontend: frontend,
		detector: detector,
		guard:    dynamics.NewGuard(config.Guard),
		sink:     sink,
		logger:   debug.Default(),
		profiler: debug.NewBlockProfiler(config.SampleRate, config.BlockSize),
	}, nil
}

// SetLogger replaces the default logger.
func (e *Engine) SetLogger(l *debug.Logger) {
	if l == nil {
		l = debug.Discard()
	}
	e.logger = l
}

// SetGainControl installs the collaborator driven by the clip guard.
func (e *Engine) SetGainControl(g GainControl) {
	e.gain = g
}

// SetClock replaces the sample clock of the frontend.
func (e *Engine) SetClock(c Clock) {
	e.frontend.SetClock(c)
}

// AddConfirmer appends a custom onset confirmation stage.
func (e *Engine) AddConfirmer(c Confirmer) {
	e.detector.AddConfirmer(c)
}

// SetSensitivity changes the onset ratio threshold.
func (e *Engine) SetSensitivity(ratioDelta float64) {
	e.detector.SetSensitivity(ratioDelta)
	e.logger.Info("sensitivity set to %.2f", e.detector.Onset().Sensitivity())
}

// SetUserGain sets the output gain restored when the guard disarms. It is
// applied immediately unless the guard is active.
func (e *Engine) SetUserGain(gain float64) error {
	if gain < 0 {
		return fmt.Errorf("trigger: negative user gain %g", gain)
	}
	e.guard.SetUserGain(gain)
	if e.guard.Active() || e.gain == nil {
		return nil
	}
	return e.gain.SetOutputGain(e.guard.UserGain())
}

// Process runs one block through the pipeline and returns the cycle result.
func (e *Engine) Process(block []float32) Result {
	start := time.Now()

	reading := e.frontend.Process(block)
	res := e.detector.Process(&reading)
	e.record(res)

	if res.Fired {
		e.emit(res.Trigger)
	} else if res.Drop > DropPending {
		e.logger.Debug("onset dropped at %v: %s", res.At, res.Drop)
	}

	e.runGuard(&reading)
	e.stats.NonFinite = e.frontend.NonFinite()

	if elapsed := time.Since(start); e.profiler.RecordBlock(elapsed) {
		e.stats.Overruns++
		e.logger.Warn("block at %v took %v, budget %v", res.At, elapsed, e.profiler.Budget())
	}
	return res
}

func (e *Engine) record(res Result) {
	e.stats.Blocks++
	if res.Onset {
		e.stats.Onsets++
	}
	if res.Fired {
		e.stats.Triggers++
		e.stats.PerVoice[res.Trigger.Voice]++
	}
	e.stats.Drops[res.Drop]++
}

func (e *Engine) emit(t Trigger) {
	e.logger.Debug("%s fired at %v: %.1f Hz vel %.2f level %.2f locked=%t fallback=%t",
		t.Voice, t.At, t.FrequencyHz, t.Velocity, t.Level, t.Locked, t.Fallback)
	if e.sink == nil {
		return
	}
	if err := e.sink.FireVoice(t.Voice, t.Velocity, t.FrequencyHz); err != nil {
		e.stats.SinkErrors++
		e.logger.Warn("sink rejected %s: %v", t.Voice, err)
	}
}

func (e *Engine) runGuard(r *Reading) {
	switch e.guard.Process(r.Levels, r.Now) {
	case dynamics.TransitionArmed:
		e.stats.GuardArms++
		e.logger.Warn("clipping at %v, output reduced to %.1f dB", r.Now, gain.LinearToDb(e.guard.OutputGain()))
		e.setGain(e.guard.OutputGain())
	case dynamics.TransitionDisarmed:
		e.logger.Info("clipping cleared at %v, output restored to %.2f", r.Now, e.guard.OutputGain())
		e.setGain(e.guard.OutputGain())
	}
}

func (e *Engine) setGain(g float64) {
	if e.gain == nil {
		return
	}
	if err := e.gain.SetOutputGain(g); err != nil {
		e.stats.GainErrors++
		e.logger.Warn("gain control rejected %.2f: %v", g, err)
	}
}

// Stats returns the counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Profiler returns the block timing profiler.
func (e *Engine) Profiler() *debug.BlockProfiler {
	return e.profiler
}

// Guard exposes the clip guard state.
func (e *Engine) Guard() *dynamics.Guard {
	return e.guard
}

// Detector exposes the trigger state machine.
func (e *Engine) Detector() *Detector {
	return e.detector
}

// Elapsed returns the stream time of the next block on the sample clock.
func (e *Engine) Elapsed() time.Duration {
	return e.frontend.Elapsed()
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.config
}

// Reset returns every stage to its startup state and clears the counters.
func (e *Engine) Reset() {
	e.frontend.Reset()
	e.detector.Reset()
	e.guard.Reset()
	e.profiler.Reset()
	e.stats = Stats{}
}
