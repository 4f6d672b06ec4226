package trigger

import (
	"fmt"
	"time"

	"github.com/grumpedal/grum/pkg/dsp"
)

// MapperConfig holds the band table and the timing of lock and retrigger.
type MapperConfig struct {
	Bands        []Band
	Hysteresis   float64       // Fractional band widening (0.05 = 5%)
	LockDuration time.Duration // String continuity window after a fire
	Voices       [NumVoices]VoiceParams
}

// DefaultMapperConfig uses the open-string table with 5% hysteresis and a
// 150ms lock.
func DefaultMapperConfig() MapperConfig {
	return MapperConfig{
		Bands:        OpenStringBands(),
		Hysteresis:   0.05,
		LockDuration: dsp.DefaultLockDuration,
		Voices:       DefaultVoiceParams(),
	}
}

// Validate reports the first inconsistent parameter.
func (c MapperConfig) Validate() error {
	if err := ValidateBands(c.Bands); err != nil {
		return err
	}
	if c.Hysteresis < 0 || c.Hysteresis >= 0.5 {
		return fmt.Errorf("mapper: hysteresis %g outside [0, 0.5)", c.Hysteresis)
	}
	if c.LockDuration < 0 {
		return fmt.Errorf("mapper: negative lock duration %v", c.LockDuration)
	}
	for v, p := range c.Voices {
		if p.Retrigger < 0 {
			return fmt.Errorf("mapper: negative retrigger for %s", Voice(v))
		}
		if p.BaseGain < 0 || p.BaseGain > 1 {
			return fmt.Errorf("mapper: base gain %g for %s outside [0, 1]", p.BaseGain, Voice(v))
		}
	}
	return nil
}

// Mapper resolves a frequency to a voice and owns the voice lock and the
// per-voice retrigger table.
type Mapper struct {
	config MapperConfig

	lockVoice  Voice
	lockExpiry time.Duration

	lastFire [NumVoices]time.Duration
	fired    [NumVoices]bool
}

// NewMapper creates a mapper with no lock and an empty retrigger table.
func NewMapper(config MapperConfig) *Mapper {
	return &Mapper{
		config:    config,
		lockVoice: NoVoice,
	}
}

// Lookup scans the band table; the first band containing f wins.
func (m *Mapper) Lookup(f float64) (Voice, bool) {
	for _, b := range m.config.Bands {
		if b.Matches(f, m.config.Hysteresis) {
			return b.Voice, true
		}
	}
	return NoVoice, false
}

// Locked returns the locked voice while the lock is active.
func (m *Mapper) Locked(now time.Duration) (Voice, bool) {
	if m.lockVoice != NoVoice && now < m.lockExpiry {
		return m.lockVoice, true
	}
	return NoVoice, false
}

// Resolve returns the locked voice during the lock window, otherwise the
// band voice for f. ok is false in a dead zone.
func (m *Mapper) Resolve(f float64, now time.Duration) (v Voice, locked, ok bool) {
	if v, ok := m.Locked(now); ok {
		return v, true, true
	}
	v, ok = m.Lookup(f)
	return v, false, ok
}

// CanFire reports whether v is outside its retrigger interval.
func (m *Mapper) CanFire(v Voice, now time.Duration) bool {
	if !v.Valid() {
		return false
	}
	if !m.fired[v] {
		return true
	}
	return now-m.lastFire[v] > m.config.Voices[v].Retrigger
}

// Fire records an accepted trigger and sets or refreshes the lock.
func (m *Mapper) Fire(v Voice, now time.Duration) {
	m.lastFire[v] = now
	m.fired[v] = true
	m.lockVoice = v
	m.lockExpiry = now + m.config.LockDuration
}

// LastFire returns the time v last fired.
func (m *Mapper) LastFire(v Voice) (time.Duration, bool) {
	if !v.Valid() {
		return 0, false
	}
	return m.lastFire[v], m.fired[v]
}

// Params returns the playback properties of v.
func (m *Mapper) Params(v Voice) VoiceParams {
	if !v.Valid() {
		return VoiceParams{}
	}
	return m.config.Voices[v]
}

// Reset clears the lock and the retrigger table.
func (m *Mapper) Reset() {
	m.lockVoice = NoVoice
	m.lockExpiry = 0
	m.lastFire = [NumVoices]time.Duration{}
	m.fired = [NumVoices]bool{}
}
