package trigger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/grumpedal/grum/pkg/dsp/pitch"
)

// Voice identifies one drum sound of the kit.
type Voice int

const (
	Kick Voice = iota
	Snare
	HiHat
	Ride
	Crash

	// NumVoices is the size of the kit
	NumVoices
)

// NoVoice marks the absence of a voice, e.g. no active lock.
const NoVoice Voice = -1

// ErrUnknownVoice is returned when a voice name cannot be parsed.
var ErrUnknownVoice = errors.New("trigger: unknown voice")

var voiceNames = [NumVoices]string{"kick", "snare", "hihat", "ride", "crash"}

// String returns the lower case voice name used in configuration files.
func (v Voice) String() string {
	if !v.Valid() {
		return "none"
	}
	return voiceNames[v]
}

// Valid reports whether v is one of the kit voices.
func (v Voice) Valid() bool {
	return v >= 0 && v < NumVoices
}

// ParseVoice converts a voice name. "hat" is accepted for the hi-hat.
func ParseVoice(s string) (Voice, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "hat" {
		return HiHat, nil
	}
	for i, n := range voiceNames {
		if n == name {
			return Voice(i), nil
		}
	}
	return NoVoice, fmt.Errorf("%w: %q", ErrUnknownVoice, s)
}

// VoiceParams are the per-voice playback properties.
type VoiceParams struct {
	Retrigger time.Duration // Minimum time between two fires of this voice
	BaseGain  float64       // Playback gain at full velocity
}

// DefaultVoiceParams returns per-voice retrigger intervals and gains.
// Hats may repeat faster than the onset gap; cymbals ring and need longer.
func DefaultVoiceParams() [NumVoices]VoiceParams {
	return [NumVoices]VoiceParams{
		Kick:  {Retrigger: 100 * time.Millisecond, BaseGain: 0.7},
		Snare: {Retrigger: 80 * time.Millisecond, BaseGain: 0.7},
		HiHat: {Retrigger: 40 * time.Millisecond, BaseGain: 0.5},
		Ride:  {Retrigger: 120 * time.Millisecond, BaseGain: 0.5},
		Crash: {Retrigger: 200 * time.Millisecond, BaseGain: 0.6},
	}
}

// Band maps a frequency range to a voice.
type Band struct {
	MinHz float64
	MaxHz float64
	Voice Voice
}

// Matches reports whether f lies inside the band widened by hysteresis h.
func (b Band) Matches(f, h float64) bool {
	return f >= b.MinHz*(1-h) && f <= b.MaxHz*(1+h)
}

// Preset names accepted by BandsPreset
const (
	PresetOpenString = "open-string"
	PresetOctave     = "octave"
)

// OpenStringBands brackets the six open strings of a guitar in standard
// tuning. Strings between the brackets fall in dead zones.
func OpenStringBands() []Band {
	return []Band{
		{MinHz: 75, MaxHz: 92, Voice: Kick},   // E2 82.4
		{MinHz: 100, MaxHz: 123, Voice: Snare}, // A2 110.0
		{MinHz: 134, MaxHz: 164, Voice: HiHat}, // D3 146.8
		{MinHz: 179, MaxHz: 219, Voice: HiHat}, // G3 196.0
		{MinHz: 226, MaxHz: 276, Voice: Ride},  // B3 246.9
		{MinHz: 301, MaxHz: 368, Voice: Crash}, // E4 329.6
	}
}

// OctaveBands splits the instrument range into contiguous bands.
func OctaveBands() []Band {
	return []Band{
		{MinHz: 60, MaxHz: 110, Voice: Kick},
		{MinHz: 110, MaxHz: 165, Voice: Snare},
		{MinHz: 165, MaxHz: 260, Voice: HiHat},
		{MinHz: 260, MaxHz: 400, Voice: Ride},
		{MinHz: 400, MaxHz: 1000, Voice: Crash},
	}
}

// BandsPreset returns a band table by name. The empty name selects the
// open-string table.
func BandsPreset(name string) ([]Band, error) {
	switch name {
	case PresetOpenString, "":
		return OpenStringBands(), nil
	case PresetOctave:
		return OctaveBands(), nil
	}
	return nil, fmt.Errorf("trigger: unknown band preset %q", name)
}

// ValidateBands checks that every band is well formed and that the primary
// ranges are ordered and disjoint.
func ValidateBands(bands []Band) error {
	if len(bands) == 0 {
		return fmt.Errorf("trigger: empty band table")
	}
	for i, b := range bands {
		if !b.Voice.Valid() {
			return fmt.Errorf("trigger: band %d has invalid voice %d", i, b.Voice)
		}
		if b.MinHz <= 0 || b.MaxHz <= b.MinHz {
			return fmt.Errorf("trigger: band %d range [%g, %g] is empty", i, b.MinHz, b.MaxHz)
		}
		if i > 0 && b.MinHz < bands[i-1].MaxHz {
			return fmt.Errorf("trigger: band %d overlaps band %d", i, i-1)
		}
	}
	return nil
}

// DefaultHumBands rejects pitches around the 60 Hz mains fundamental.
func DefaultHumBands() []pitch.Range {
	return []pitch.Range{{MinHz: 56, MaxHz: 64}}
}
