// Package dynamics provides level protection for the trigger output stage.
package dynamics

import (
	"fmt"
	"time"

	"github.com/grumpedal/grum/pkg/dsp"
	"github.com/grumpedal/grum/pkg/dsp/envelope"
	"github.com/grumpedal/grum/pkg/dsp/gain"
)

// GuardConfig holds the clip detection and hysteresis parameters
type GuardConfig struct {
	ClipPeak      float64       // Peak level counted as clipping
	ClipRMS       float64       // RMS level counted as clipping
	ArmBlocks     int           // Counter value that enters emergency
	MaxCount      int           // Counter ceiling
	Hold          time.Duration // Minimum time spent in emergency
	ReducedGainDB float64       // Output gain while in emergency
}

// DefaultGuardConfig arms after 4 clipping blocks and holds for 600ms at -12 dB
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		ClipPeak:      dsp.ClipThreshold,
		ClipRMS:       dsp.ClipRMSLevel,
		ArmBlocks:     4,
		MaxCount:      8,
		Hold:          dsp.DefaultGuardHold,
		ReducedGainDB: -12,
	}
}

// Validate reports the first inconsistent parameter.
func (c GuardConfig) Validate() error {
	if c.ClipPeak <= 0 || c.ClipRMS <= 0 {
		return fmt.Errorf("guard: clip levels must be positive")
	}
	if c.ArmBlocks < 1 {
		return fmt.Errorf("guard: arm blocks %d must be at least 1", c.ArmBlocks)
	}
	if c.MaxCount < c.ArmBlocks {
		return fmt.Errorf("guard: max count %d below arm blocks %d", c.MaxCount, c.ArmBlocks)
	}
	if c.Hold < 0 {
		return fmt.Errorf("guard: negative hold %v", c.Hold)
	}
	if c.ReducedGainDB > 0 {
		return fmt.Errorf("guard: reduced gain %g dB must not boost", c.ReducedGainDB)
	}
	return nil
}

// ReducedGain returns the linear emergency gain, never below dsp.MinGainReduced
func (c GuardConfig) ReducedGain() float64 {
	return dsp.Clamp(gain.DbToLinear(c.ReducedGainDB), dsp.MinGainReduced, 1.0)
}

// Transition reports a state change of the guard during one block
type Transition int

const (
	// TransitionNone means the state did not change
	TransitionNone Transition = iota
	// TransitionArmed means the guard entered emergency
	TransitionArmed
	// TransitionDisarmed means the guard returned to normal
	TransitionDisarmed
)

// String returns the transition name
func (t Transition) String() string {
	switch t {
	case TransitionArmed:
		return "armed"
	case TransitionDisarmed:
		return "disarmed"
	default:
		return "none"
	}
}

// Guard is a clip detector with hysteresis. Clipping blocks charge a leaky
// counter; reaching ArmBlocks enters emergency and drops the output gain.
// Emergency ends once the counter has drained to zero and Hold has elapsed.
type Guard struct {
	config GuardConfig

	counter     int
	active      bool
	activatedAt time.Duration
	userGain    float64
}

// NewGuard creates a guard in the normal state with unity user gain
func NewGuard(config GuardConfig) *Guard {
	return &Guard{
		config:   config,
		userGain: 1.0,
	}
}

// SetUserGain sets the gain restored when emergency ends
func (g *Guard) SetUserGain(gain float64) {
	g.userGain = dsp.Clamp(gain, 0, 1)
}

// UserGain returns the gain used outside emergency
func (g *Guard) UserGain() float64 {
	return g.userGain
}

// Process folds one block's levels into the counter and reports any transition
func (g *Guard) Process(levels envelope.Levels, now time.Duration) Transition {
	if levels.Peak > g.config.ClipPeak || levels.RMS > g.config.ClipRMS {
		if g.counter < g.config.MaxCount {
			g.counter++
		}
	} else if g.counter > 0 {
		g.counter--
	}

	if !g.active {
		if g.counter >= g.config.ArmBlocks {
			g.active = true
			g.activatedAt = now
			return TransitionArmed
		}
		return TransitionNone
	}

	if g.counter == 0 && now-g.activatedAt >= g.config.Hold {
		g.active = false
		return TransitionDisarmed
	}
	return TransitionNone
}

// Active reports whether the guard is in emergency
func (g *Guard) Active() bool {
	return g.active
}

// Count returns the leaky counter value
func (g *Guard) Count() int {
	return g.counter
}

// ActivatedAt returns the time emergency was last entered
func (g *Guard) ActivatedAt() time.Duration {
	return g.activatedAt
}

// OutputGain returns the gain the output stage should currently apply
func (g *Guard) OutputGain() float64 {
	if g.active {
		return g.config.ReducedGain()
	}
	return g.userGain
}

// Reset returns the guard to normal without touching the user gain
func (g *Guard) Reset() {
	g.counter = 0
	g.active = false
	g.activatedAt = 0
}
