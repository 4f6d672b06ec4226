// Package midi sends drum triggers to a MIDI output port.
package midi

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/grumpedal/grum/pkg/trigger"
)

// ErrUnknownKit is returned by KitByName.
var ErrUnknownKit = errors.New("midi: unknown kit")

// Kit maps each voice to the note that plays it.
type Kit struct {
	Name  string
	Notes [trigger.NumVoices]uint8
}

// Note returns the note for v, false for an invalid voice.
func (k Kit) Note(v trigger.Voice) (uint8, bool) {
	if !v.Valid() {
		return 0, false
	}
	return k.Notes[v], true
}

// GMKit is the General MIDI percussion map.
var GMKit = Kit{
	Name: "gm",
	Notes: [trigger.NumVoices]uint8{
		trigger.Kick:  36, // Bass Drum 1
		trigger.Snare: 38, // Acoustic Snare
		trigger.HiHat: 42, // Closed Hi-Hat
		trigger.Ride:  51, // Ride Cymbal 1
		trigger.Crash: 49, // Crash Cymbal 1
	},
}

// RD8Kit follows the Behringer RD-8 note map, which puts the snare on 40.
var RD8Kit = Kit{
	Name: "rd8",
	Notes: [trigger.NumVoices]uint8{
		trigger.Kick:  36,
		trigger.Snare: 40,
		trigger.HiHat: 42,
		trigger.Ride:  51,
		trigger.Crash: 49,
	},
}

// TR8SKit follows the Roland TR-8S note map.
var TR8SKit = Kit{
	Name: "tr8s",
	Notes: [trigger.NumVoices]uint8{
		trigger.Kick:  36,
		trigger.Snare: 38,
		trigger.HiHat: 42,
		trigger.Ride:  51,
		trigger.Crash: 49,
	},
}

// ER1Kit follows the Korg ER-1. The second audio input plays the ride.
var ER1Kit = Kit{
	Name: "er1",
	Notes: [trigger.NumVoices]uint8{
		trigger.Kick:  36,
		trigger.Snare: 38,
		trigger.HiHat: 42,
		trigger.Ride:  45,
		trigger.Crash: 49,
	},
}

var kits = map[string]Kit{
	GMKit.Name:   GMKit,
	RD8Kit.Name:  RD8Kit,
	TR8SKit.Name: TR8SKit,
	ER1Kit.Name:  ER1Kit,
}

// KitByName looks a kit up, ignoring case. The empty name selects GMKit.
func KitByName(name string) (Kit, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return GMKit, nil
	}
	if k, ok := kits[name]; ok {
		return k, nil
	}
	return Kit{}, fmt.Errorf("%w %q (have %s)", ErrUnknownKit, name, strings.Join(KitNames(), ", "))
}

// KitNames lists the built-in kits in sorted order.
func KitNames() []string {
	names := make([]string, 0, len(kits))
	for n := range kits {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
