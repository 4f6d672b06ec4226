// Package config loads the pedal configuration: defaults first, then an
// optional JSON file, then GRUM_* environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/grumpedal/grum/pkg/debug"
	"github.com/grumpedal/grum/pkg/trigger"
)

// ErrInvalid wraps every error caused by bad configuration values, as
// opposed to I/O failures.
var ErrInvalid = errors.New("config: invalid")

// MIDI channel 10 in 1-based numbering, the General MIDI drum channel.
const DefaultMIDIChannel = 9

// MIDIConfig selects the output port and drum kit.
type MIDIConfig struct {
	Port       string
	Channel    uint8 // 0-based
	Kit        string
	NoteLength time.Duration // Delay between NoteOn and NoteOff, 0 sends both at once
}

// Config is the complete runtime configuration.
type Config struct {
	Trigger  trigger.Config
	LogLevel debug.LogLevel
	MIDI     MIDIConfig
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Trigger:  trigger.DefaultConfig(),
		LogLevel: debug.LogLevelInfo,
		MIDI: MIDIConfig{
			Channel: DefaultMIDIChannel,
			Kit:     "gm",
		},
	}
}

// Validate checks the trigger pipeline and the MIDI settings.
func (c Config) Validate() error {
	if err := c.Trigger.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.MIDI.Channel > 15 {
		return fmt.Errorf("%w: midi channel %d outside [0, 15]", ErrInvalid, c.MIDI.Channel)
	}
	if c.MIDI.NoteLength < 0 {
		return fmt.Errorf("%w: negative note length %v", ErrInvalid, c.MIDI.NoteLength)
	}
	return nil
}

// Load builds the configuration from the defaults, the file at path (if
// path is not empty) and the environment, and validates the result.
func Load(path string) (Config, error) {
	f := fromConfig(Default())

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := json.Unmarshal(data, &f); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
		}
	}

	applyEnv(&f)

	c, err := f.toConfig()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Parse decodes a JSON document over the defaults without consulting the
// environment.
func Parse(data []byte) (Config, error) {
	f := fromConfig(Default())
	if err := json.Unmarshal(data, &f); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	c, err := f.toConfig()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Marshal encodes c in the file format.
func Marshal(c Config) ([]byte, error) {
	return json.MarshalIndent(fromConfig(c), "", "  ")
}

// Save writes c to path, creating the directory if needed.
func Save(c Config, path string) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
