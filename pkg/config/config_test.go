package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/grumpedal/grum/pkg/debug"
	"github.com/grumpedal/grum/pkg/dsp/envelope"
	"github.com/grumpedal/grum/pkg/dsp/pitch"
	"github.com/grumpedal/grum/pkg/trigger"
)

var envVars = []string{
	EnvLogLevel, EnvSampleRate, EnvBlockSize, EnvPitchWindow, EnvAlgorithm,
	EnvSensitivity, EnvBands, EnvLockMs, EnvPrefilter, EnvMIDIPort,
	EnvMIDIChannel, EnvKit,
}

// clearEnv blanks every GRUM_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grum.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	def := trigger.DefaultConfig()
	if cfg.Trigger.BlockSize != def.BlockSize || cfg.Trigger.SampleRate != def.SampleRate {
		t.Errorf("Block %d at %g Hz, want defaults", cfg.Trigger.BlockSize, cfg.Trigger.SampleRate)
	}
	if cfg.Trigger.Onset != def.Onset {
		t.Errorf("Onset = %+v, want %+v", cfg.Trigger.Onset, def.Onset)
	}
	if !slices.Equal(cfg.Trigger.Mapper.Bands, trigger.OpenStringBands()) {
		t.Errorf("Bands = %v, want the open-string preset", cfg.Trigger.Mapper.Bands)
	}
	if cfg.Trigger.Mapper.Voices != def.Mapper.Voices {
		t.Errorf("Voices = %+v, want defaults", cfg.Trigger.Mapper.Voices)
	}
	if !slices.Equal(cfg.Trigger.Detector.HumBands, def.Detector.HumBands) {
		t.Errorf("Hum bands = %v", cfg.Trigger.Detector.HumBands)
	}
	if cfg.Trigger.Guard != def.Guard {
		t.Errorf("Guard = %+v, want %+v", cfg.Trigger.Guard, def.Guard)
	}
	if cfg.LogLevel != debug.LogLevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
	if cfg.MIDI.Channel != 9 || cfg.MIDI.Kit != "gm" {
		t.Errorf("MIDI = %+v, want channel 9 and the gm kit", cfg.MIDI)
	}
}

func TestLoadPartialFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `{
		"block_size": 128,
		"log_level": "debug",
		"mode": "peak",
		"onset": {"min_gap_ms": 100},
		"pitch": {"algorithm": "hps", "stabilize": true},
		"mapping": {
			"bands_preset": "octave",
			"lock_ms": 50,
			"voices": {"hihat": {"gain": 0.4}}
		},
		"guard": {"hold_ms": 250.5},
		"midi": {"port": "IAC Bus 1", "channel": 3, "note_ms": 15}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tc := cfg.Trigger

	if tc.BlockSize != 128 || tc.Mode != envelope.ModePeak {
		t.Errorf("Block %d mode %v", tc.BlockSize, tc.Mode)
	}
	if tc.Onset.MinGap != 100*time.Millisecond {
		t.Errorf("MinGap = %v, want 100ms", tc.Onset.MinGap)
	}
	if tc.Onset.RatioDelta != 0.5 {
		t.Errorf("RatioDelta = %g, want the default kept", tc.Onset.RatioDelta)
	}
	if tc.Pitch.Algorithm != pitch.AlgorithmHPS || !tc.Pitch.Stabilize {
		t.Errorf("Pitch = %+v", tc.Pitch)
	}
	if !slices.Equal(tc.Mapper.Bands, trigger.OctaveBands()) {
		t.Errorf("Bands = %v, want the octave preset", tc.Mapper.Bands)
	}
	if tc.Mapper.LockDuration != 50*time.Millisecond {
		t.Errorf("LockDuration = %v", tc.Mapper.LockDuration)
	}
	hat := tc.Mapper.Voices[trigger.HiHat]
	if hat.BaseGain != 0.4 || hat.Retrigger != 40*time.Millisecond {
		t.Errorf("Hi-hat = %+v, want gain 0.4 with the default 40ms retrigger", hat)
	}
	if tc.Guard.Hold != 250*time.Millisecond+500*time.Microsecond {
		t.Errorf("Hold = %v, want 250.5ms", tc.Guard.Hold)
	}
	if cfg.LogLevel != debug.LogLevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.MIDI.Port != "IAC Bus 1" || cfg.MIDI.Channel != 3 || cfg.MIDI.NoteLength != 15*time.Millisecond {
		t.Errorf("MIDI = %+v", cfg.MIDI)
	}
}

func TestLoadExplicitBands(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `{
		"mapping": {
			"bands": [
				{"min_hz": 80, "max_hz": 120, "voice": "kick"},
				{"min_hz": 150, "max_hz": 300, "voice": "hat"}
			]
		},
		"detector": {"hum_bands": []}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []trigger.Band{
		{MinHz: 80, MaxHz: 120, Voice: trigger.Kick},
		{MinHz: 150, MaxHz: 300, Voice: trigger.HiHat},
	}
	if !slices.Equal(cfg.Trigger.Mapper.Bands, want) {
		t.Errorf("Bands = %v, want %v", cfg.Trigger.Mapper.Bands, want)
	}
	if len(cfg.Trigger.Detector.HumBands) != 0 {
		t.Errorf("Hum bands = %v, want none", cfg.Trigger.Detector.HumBands)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Syntax", `{"block_size": }`},
		{"WrongType", `{"block_size": "big"}`},
		{"UnknownVoice", `{"mapping": {"bands": [{"min_hz": 80, "max_hz": 120, "voice": "cowbell"}]}}`},
		{"UnknownPreset", `{"mapping": {"bands_preset": "baritone"}}`},
		{"OverlappingBands", `{"mapping": {"bands": [{"min_hz": 80, "max_hz": 130, "voice": "kick"}, {"min_hz": 120, "max_hz": 200, "voice": "snare"}]}}`},
		{"UnknownMode", `{"mode": "loudness"}`},
		{"UnknownLogLevel", `{"log_level": "chatty"}`},
		{"ZeroBlock", `{"block_size": 0}`},
		{"SettleBeyondGap", `{"detector": {"pitch_settle_ms": 120}}`},
		{"WindowOutlastsSettle", `{"pitch_window": 4096}`},
		{"MIDIChannel", `{"midi": {"channel": 16}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeFile(t, tt.content))
			if err == nil {
				t.Fatal("Load succeeded")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Error %v does not wrap ErrInvalid", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Error %v, want not-exist", err)
	}
	if errors.Is(err, ErrInvalid) {
		t.Error("I/O failure reported as invalid configuration")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvBlockSize, "512")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvBands, "octave")
	t.Setenv(EnvSensitivity, "0.8")
	t.Setenv(EnvLockMs, "75")
	t.Setenv(EnvPrefilter, "true")
	t.Setenv(EnvMIDIPort, "Drums")
	t.Setenv(EnvKit, "rd8")
	t.Setenv(EnvSampleRate, "fast") // unparsable, ignored
	t.Setenv(EnvMIDIChannel, "99")  // out of range, ignored

	path := writeFile(t, `{
		"block_size": 128,
		"mapping": {"bands": [{"min_hz": 80, "max_hz": 120, "voice": "kick"}]},
		"midi": {"channel": 2}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tc := cfg.Trigger

	if tc.BlockSize != 512 {
		t.Errorf("BlockSize = %d, want the environment's 512", tc.BlockSize)
	}
	if cfg.LogLevel != debug.LogLevelWarn {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if !slices.Equal(tc.Mapper.Bands, trigger.OctaveBands()) {
		t.Errorf("Bands = %v, want the environment preset over the file table", tc.Mapper.Bands)
	}
	if tc.Onset.RatioDelta != 0.8 || tc.Mapper.LockDuration != 75*time.Millisecond {
		t.Errorf("RatioDelta %g lock %v", tc.Onset.RatioDelta, tc.Mapper.LockDuration)
	}
	if !tc.Prefilter.Enabled {
		t.Error("Prefilter not enabled")
	}
	if tc.SampleRate != 44100 {
		t.Errorf("SampleRate = %g, want the default", tc.SampleRate)
	}
	if cfg.MIDI.Port != "Drums" || cfg.MIDI.Kit != "rd8" || cfg.MIDI.Channel != 2 {
		t.Errorf("MIDI = %+v", cfg.MIDI)
	}
}

func TestSaveThenLoad(t *testing.T) {
	clearEnv(t)

	cfg := Default()
	cfg.LogLevel = debug.LogLevelError
	cfg.Trigger.BlockSize = 64
	cfg.Trigger.Flux.Enabled = true
	cfg.Trigger.Fallback.Enabled = true
	cfg.Trigger.Mapper.Bands = []trigger.Band{
		{MinHz: 70, MaxHz: 100, Voice: trigger.Kick},
		{MinHz: 100, MaxHz: 400, Voice: trigger.Ride},
	}
	cfg.Trigger.Mapper.Voices[trigger.Crash].Retrigger = 250 * time.Millisecond
	cfg.MIDI.NoteLength = 20 * time.Millisecond

	path := filepath.Join(t.TempDir(), "nested", "grum.json")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LogLevel != cfg.LogLevel || got.Trigger.BlockSize != 64 {
		t.Errorf("LogLevel %v block %d", got.LogLevel, got.Trigger.BlockSize)
	}
	if !got.Trigger.Flux.Enabled || !got.Trigger.Fallback.Enabled {
		t.Error("Enabled stages lost")
	}
	if !slices.Equal(got.Trigger.Mapper.Bands, cfg.Trigger.Mapper.Bands) {
		t.Errorf("Bands = %v, want %v", got.Trigger.Mapper.Bands, cfg.Trigger.Mapper.Bands)
	}
	if got.Trigger.Mapper.Voices != cfg.Trigger.Mapper.Voices {
		t.Errorf("Voices = %+v", got.Trigger.Mapper.Voices)
	}
	if got.MIDI != cfg.MIDI {
		t.Errorf("MIDI = %+v, want %+v", got.MIDI, cfg.MIDI)
	}
}

func TestMarshalWritesPresetName(t *testing.T) {
	data, err := Marshal(Default())
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !slices.Equal(cfg.Trigger.Mapper.Bands, trigger.OpenStringBands()) {
		t.Errorf("Bands = %v", cfg.Trigger.Mapper.Bands)
	}
	if !strings.Contains(string(data), `"bands_preset": "open-string"`) {
		t.Errorf("Default table not written as a preset:\n%s", data)
	}
}

func TestParseRejectsWithZeroConfig(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"Syntax", `{"block_size": }`},
		{"UnknownVoice", `{"mapping": {"bands": [{"min_hz": 80, "max_hz": 120, "voice": "cowbell"}]}}`},
		{"WindowOutlastsSettle", `{"pitch_window": 4096}`},
		{"MIDIChannel", `{"midi": {"channel": 16}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.doc))
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Parse error = %v, want ErrInvalid", err)
			}
			if cfg.Trigger.BlockSize != 0 || cfg.Trigger.Mapper.Bands != nil || cfg.MIDI != (MIDIConfig{}) {
				t.Errorf("Invalid document returned a populated config: %+v", cfg.MIDI)
			}
		})
	}
}
