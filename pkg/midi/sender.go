package midi

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/grumpedal/grum/pkg/debug"
	"github.com/grumpedal/grum/pkg/trigger"
)

var (
	// ErrPortNotFound is returned by Open when no output port matches.
	ErrPortNotFound = errors.New("midi: output port not found")
	// ErrTimeout is returned when the driver does not answer a port scan.
	ErrTimeout = errors.New("midi: driver did not respond")
)

// ControllerVolume is the channel volume controller driven by the clip
// guard.
const ControllerVolume = 7

// Stats counts the messages a Sender produced.
type Stats struct {
	NoteOns  int
	NoteOffs int
	Controls int
	Errors   int
}

// Sender turns triggers into note messages on one channel. It implements
// trigger.Sink and trigger.GainControl.
//
// With a note length of zero the release follows the note at once. With
// a positive length releases are queued against the stream time passed to
// Advance, so offline runs produce the same messages as live ones.
type Sender struct {
	mu sync.Mutex

	send    func(gomidi.Message) error
	out     drivers.Out
	kit     Kit
	channel uint8
	gains   [trigger.NumVoices]float64

	noteLength time.Duration
	now        time.Duration
	offs       *offQueue

	logger *debug.Logger
	stats  Stats
}

// NewSender creates a sender writing through send.
func NewSender(send func(gomidi.Message) error, kit Kit, channel uint8) (*Sender, error) {
	if send == nil {
		return nil, fmt.Errorf("midi: nil send function")
	}
	if channel > 15 {
		return nil, fmt.Errorf("midi: channel %d outside [0, 15]", channel)
	}
	s := &Sender{
		send:    send,
		kit:     kit,
		channel: channel,
		offs:    newOffQueue(),
		logger:  debug.Discard(),
	}
	for v := range s.gains {
		s.gains[v] = 1
	}
	return s, nil
}

// Open connects to the first output port whose name contains port, or to
// the first port at all when port is empty. A driver must be registered by
// the program, e.g. by importing rtmididrv.
func Open(port string, kit Kit, channel uint8) (*Sender, error) {
	out, err := findOutPort(port)
	if err != nil {
		return nil, err
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("midi: open %q: %w", out.String(), err)
	}
	s, err := NewSender(send, kit, channel)
	if err != nil {
		out.Close()
		return nil, err
	}
	s.out = out
	return s, nil
}

func findOutPort(port string) (drivers.Out, error) {
	if port == "" {
		out, err := gomidi.OutPort(0)
		if err != nil {
			return nil, fmt.Errorf("%w: no output ports", ErrPortNotFound)
		}
		return out, nil
	}
	out, err := gomidi.FindOutPort(port)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrPortNotFound, port)
	}
	return out, nil
}

// Ports lists the output port names. Some drivers hang while enumerating,
// so the scan gives up after timeout.
func Ports(timeout time.Duration) ([]string, error) {
	ch := make(chan []string, 1)
	go func() {
		var names []string
		for _, p := range gomidi.GetOutPorts() {
			names = append(names, p.String())
		}
		ch <- names
	}()

	select {
	case names := <-ch:
		return names, nil
	case <-time.After(timeout):
		return nil, ErrTimeout
	}
}

// SetLogger sets the logger for send failures and, at Debug level, every
// note.
func (s *Sender) SetLogger(logger *debug.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if logger == nil {
		logger = debug.Discard()
	}
	s.logger = logger
}

// SetNoteLength sets the delay between a note and its release.
func (s *Sender) SetNoteLength(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noteLength = max(d, 0)
}

// SetVoiceGain scales the note velocity of one voice, usually by its base
// gain from the voice table.
func (s *Sender) SetVoiceGain(voice trigger.Voice, gain float64) error {
	if !voice.Valid() {
		return fmt.Errorf("midi: no voice %d", voice)
	}
	if !(gain >= 0 && gain <= 1) {
		return fmt.Errorf("midi: %s gain %g outside [0, 1]", voice, gain)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gains[voice] = gain
	return nil
}

// Port returns the name of the connected port, empty for a sender built
// with NewSender.
func (s *Sender) Port() string {
	if s.out == nil {
		return ""
	}
	return s.out.String()
}

// Stats returns the message counters.
func (s *Sender) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Pending returns the number of queued releases.
func (s *Sender) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offs.size()
}

// Velocity converts a trigger velocity in [0, 1] to a note velocity in
// [1, 127]. Zero would read as a release.
func Velocity(v float64) uint8 {
	if math.IsNaN(v) {
		return 1
	}
	return uint8(max(1, min(127, math.Round(v*127))))
}

// FireVoice implements trigger.Sink.
func (s *Sender) FireVoice(voice trigger.Voice, velocity, frequencyHz float64) error {
	note, ok := s.kit.Note(voice)
	if !ok {
		return fmt.Errorf("midi: no note for voice %d", voice)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	vel := Velocity(velocity * s.gains[voice])

	if s.offs.remove(note) {
		// Release the ringing note so the new hit is heard.
		if err := s.write(gomidi.NoteOff(s.channel, note)); err != nil {
			return err
		}
		s.stats.NoteOffs++
	}

	if err := s.write(gomidi.NoteOn(s.channel, note, vel)); err != nil {
		return err
	}
	s.stats.NoteOns++
	s.logger.Debug("%s note %d (%s) vel %d, played %s", voice, note, NoteName(note), vel, PitchName(frequencyHz))

	if s.noteLength == 0 {
		if err := s.write(gomidi.NoteOff(s.channel, note)); err != nil {
			return err
		}
		s.stats.NoteOffs++
		return nil
	}
	s.offs.add(s.now+s.noteLength, note)
	return nil
}

// SetOutputGain implements trigger.GainControl with the channel volume
// controller.
func (s *Sender) SetOutputGain(gain float64) error {
	value := uint8(max(0, min(127, math.Round(gain*127))))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(gomidi.ControlChange(s.channel, ControllerVolume, value)); err != nil {
		return err
	}
	s.stats.Controls++
	return nil
}

// Advance moves the stream clock to now and sends the releases that are
// due.
func (s *Sender) Advance(now time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now > s.now {
		s.now = now
	}
	return s.release(s.offs.popDue(s.now))
}

// Close sends every queued release and closes the port, if any.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.release(s.offs.drain())
	if s.out != nil {
		err = errors.Join(err, s.out.Close())
		s.out = nil
	}
	return err
}

func (s *Sender) release(offs []noteOff) error {
	var errs []error
	for _, o := range offs {
		if err := s.write(gomidi.NoteOff(s.channel, o.note)); err != nil {
			errs = append(errs, err)
			continue
		}
		s.stats.NoteOffs++
	}
	return errors.Join(errs...)
}

func (s *Sender) write(msg gomidi.Message) error {
	if err := s.send(msg); err != nil {
		s.stats.Errors++
		s.logger.Warn("send %s: %v", msg, err)
		return fmt.Errorf("midi: send: %w", err)
	}
	return nil
}
