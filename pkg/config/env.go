package config

import (
	"os"
	"strconv"
)

// Environment variables read by Load. Unset, unparsable or out of range
// values keep the file or default value.
const (
	EnvLogLevel    = "GRUM_LOG_LEVEL"
	EnvSampleRate  = "GRUM_SAMPLE_RATE"
	EnvBlockSize   = "GRUM_BLOCK_SIZE"
	EnvPitchWindow = "GRUM_PITCH_WINDOW"
	EnvAlgorithm   = "GRUM_PITCH_ALGORITHM"
	EnvSensitivity = "GRUM_SENSITIVITY"
	EnvBands       = "GRUM_BANDS"
	EnvLockMs      = "GRUM_LOCK_MS"
	EnvPrefilter   = "GRUM_PREFILTER"
	EnvMIDIPort    = "GRUM_MIDI_PORT"
	EnvMIDIChannel = "GRUM_MIDI_CHANNEL"
	EnvKit         = "GRUM_KIT"
)

func applyEnv(f *fileConfig) {
	f.LogLevel = envStr(EnvLogLevel, f.LogLevel)
	f.SampleRate = envFloat(EnvSampleRate, f.SampleRate)
	f.BlockSize = envInt(EnvBlockSize, f.BlockSize)
	f.PitchWindow = envInt(EnvPitchWindow, f.PitchWindow)
	f.Pitch.Algorithm = envStr(EnvAlgorithm, f.Pitch.Algorithm)
	f.Onset.RatioDelta = envFloat(EnvSensitivity, f.Onset.RatioDelta)
	f.Mapping.LockMs = millis(envFloat(EnvLockMs, float64(f.Mapping.LockMs)))
	f.Prefilter.Enabled = envBool(EnvPrefilter, f.Prefilter.Enabled)
	f.MIDI.Port = envStr(EnvMIDIPort, f.MIDI.Port)
	if ch := envInt(EnvMIDIChannel, -1); ch >= 0 && ch <= 15 {
		f.MIDI.Channel = uint8(ch)
	}
	f.MIDI.Kit = envStr(EnvKit, f.MIDI.Kit)

	if preset := os.Getenv(EnvBands); preset != "" {
		f.Mapping.BandsPreset = preset
		f.Mapping.Bands = nil
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
