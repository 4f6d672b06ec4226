package trigger

import (
	"errors"
	"strings"
	"sync"

	"github.com/grumpedal/grum/pkg/debug"
)

// Sink receives accepted triggers, typically a sample player or a MIDI
// port.
type Sink interface {
	FireVoice(voice Voice, velocity, frequencyHz float64) error
}

// GainControl sets the output level of the drum mix.
type GainControl interface {
	SetOutputGain(gain float64) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(voice Voice, velocity, frequencyHz float64) error

// FireVoice calls f.
func (f SinkFunc) FireVoice(voice Voice, velocity, frequencyHz float64) error {
	return f(voice, velocity, frequencyHz)
}

// LogSink prints every hit, one line each.
type LogSink struct {
	logger *debug.Logger
}

// NewLogSink creates a sink writing at Info level.
func NewLogSink(logger *debug.Logger) *LogSink {
	if logger == nil {
		logger = debug.Default()
	}
	return &LogSink{logger: logger}
}

// FireVoice implements Sink.
func (s *LogSink) FireVoice(voice Voice, velocity, frequencyHz float64) error {
	name := strings.ToUpper(voice.String())
	if frequencyHz > 0 {
		s.logger.Info("%s! %.1f Hz, Vel: %.2f", name, frequencyHz, velocity)
	} else {
		s.logger.Info("%s! (energy), Vel: %.2f", name, velocity)
	}
	return nil
}

// Hit is one call recorded by a Recorder.
type Hit struct {
	Voice       Voice
	Velocity    float64
	FrequencyHz float64
}

// Recorder collects hits and gain changes in memory.
type Recorder struct {
	mu    sync.Mutex
	hits  []Hit
	gains []float64
}

// FireVoice implements Sink.
func (r *Recorder) FireVoice(voice Voice, velocity, frequencyHz float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits = append(r.hits, Hit{Voice: voice, Velocity: velocity, FrequencyHz: frequencyHz})
	return nil
}

// SetOutputGain implements GainControl.
func (r *Recorder) SetOutputGain(gain float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gains = append(r.gains, gain)
	return nil
}

// Hits returns a copy of the recorded hits.
func (r *Recorder) Hits() []Hit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Hit(nil), r.hits...)
}

// Gains returns a copy of the recorded gain changes.
func (r *Recorder) Gains() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.gains...)
}

// Counts returns the number of hits per voice.
func (r *Recorder) Counts() [NumVoices]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var counts [NumVoices]int
	for _, h := range r.hits {
		if h.Voice.Valid() {
			counts[h.Voice]++
		}
	}
	return counts
}

// Reset discards everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits = r.hits[:0]
	r.gains = r.gains[:0]
}

// MultiSink fans a trigger out to several sinks. Every sink is called; the
// errors are joined.
type MultiSink []Sink

// FireVoice implements Sink.
func (m MultiSink) FireVoice(voice Voice, velocity, frequencyHz float64) error {
	var errs []error
	for _, s := range m {
		if err := s.FireVoice(voice, velocity, frequencyHz); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
