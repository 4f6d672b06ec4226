package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/grumpedal/grum/pkg/debug"
	"github.com/grumpedal/grum/pkg/dsp/envelope"
	"github.com/grumpedal/grum/pkg/dsp/pitch"
	"github.com/grumpedal/grum/pkg/trigger"
)

// millis is a duration stored as milliseconds in the file.
type millis float64

func toMillis(d time.Duration) millis {
	return millis(float64(d) / float64(time.Millisecond))
}

func (m millis) duration() time.Duration {
	return time.Duration(float64(m) * float64(time.Millisecond))
}

type fileConfig struct {
	SampleRate  float64 `json:"sample_rate"`
	BlockSize   int     `json:"block_size"`
	PitchWindow int     `json:"pitch_window"`
	Mode        string  `json:"mode"`
	LogLevel    string  `json:"log_level"`

	Envelope  envelopeFile  `json:"envelope"`
	Onset     onsetFile     `json:"onset"`
	Pitch     pitchFile     `json:"pitch"`
	Detector  detectorFile  `json:"detector"`
	Mapping   mappingFile   `json:"mapping"`
	Velocity  velocityFile  `json:"velocity"`
	Spectrum  spectrumFile  `json:"spectrum"`
	Flux      fluxFile      `json:"flux"`
	HFC       hfcFile       `json:"hfc"`
	Fallback  fallbackFile  `json:"fallback"`
	Guard     guardFile     `json:"guard"`
	Prefilter prefilterFile `json:"prefilter"`
	MIDI      midiFile      `json:"midi"`
}

type envelopeFile struct {
	FastAlpha float64 `json:"fast_alpha"`
	SlowAlpha float64 `json:"slow_alpha"`
}

type onsetFile struct {
	RatioDelta   float64 `json:"ratio_delta"`
	MinDelta     float64 `json:"min_delta"`
	MinGapMs     millis  `json:"min_gap_ms"`
	RisingEdge   float64 `json:"rising_edge"`
	SilenceFloor float64 `json:"silence_floor"`
}

type pitchFile struct {
	Algorithm    string  `json:"algorithm"`
	MinHz        float64 `json:"min_hz"`
	MaxHz        float64 `json:"max_hz"`
	YINThreshold float64 `json:"yin_threshold"`
	HPSFFTSize   int     `json:"hps_fft_size"`
	Stabilize    bool    `json:"stabilize"`
	ZCRTolerance float64 `json:"zcr_tolerance"`
}

type rangeFile struct {
	MinHz float64 `json:"min_hz"`
	MaxHz float64 `json:"max_hz"`
}

type detectorFile struct {
	PitchSettleMs   millis      `json:"pitch_settle_ms"`
	PitchFreshness  float64     `json:"pitch_freshness"`
	ConfidenceFloor float64     `json:"confidence_floor"`
	HumBands        []rangeFile `json:"hum_bands"`
}

type bandFile struct {
	MinHz float64 `json:"min_hz"`
	MaxHz float64 `json:"max_hz"`
	Voice string  `json:"voice"`
}

type voiceFile struct {
	RetriggerMs millis  `json:"retrigger_ms"`
	Gain        float64 `json:"gain"`
}

type voicesFile struct {
	Kick  voiceFile `json:"kick"`
	Snare voiceFile `json:"snare"`
	HiHat voiceFile `json:"hihat"`
	Ride  voiceFile `json:"ride"`
	Crash voiceFile `json:"crash"`
}

func (v *voicesFile) slots() [trigger.NumVoices]*voiceFile {
	return [trigger.NumVoices]*voiceFile{&v.Kick, &v.Snare, &v.HiHat, &v.Ride, &v.Crash}
}

type mappingFile struct {
	BandsPreset string     `json:"bands_preset,omitempty"`
	Bands       []bandFile `json:"bands,omitempty"`
	Hysteresis  float64    `json:"hysteresis"`
	LockMs      millis     `json:"lock_ms"`
	Voices      voicesFile `json:"voices"`
}

type velocityFile struct {
	RatioWeight float64 `json:"ratio_weight"`
	FluxWeight  float64 `json:"flux_weight"`
	LevelWeight float64 `json:"level_weight"`
	ReferenceHz float64 `json:"reference_hz"`
	Floor       float64 `json:"floor"`
}

type spectrumFile struct {
	FFTSize int `json:"fft_size"`
	Bins    int `json:"bins"`
}

type fluxFile struct {
	Enabled bool    `json:"enabled"`
	K       float64 `json:"k"`
	Floor   float64 `json:"floor"`
}

type hfcFile struct {
	Enabled bool    `json:"enabled"`
	MinHFC  float64 `json:"min_hfc"`
	Ratio   float64 `json:"ratio"`
}

type fallbackFile struct {
	Enabled bool `json:"enabled"`
}

type guardFile struct {
	ArmBlocks     int     `json:"arm_blocks"`
	HoldMs        millis  `json:"hold_ms"`
	ReducedGainDB float64 `json:"reduced_gain_db"`
}

type prefilterFile struct {
	Enabled    bool    `json:"enabled"`
	HighpassHz float64 `json:"highpass_hz"`
	NotchHz    float64 `json:"notch_hz"`
}

type midiFile struct {
	Port       string `json:"port,omitempty"`
	Channel    uint8  `json:"channel"`
	Kit        string `json:"kit"`
	NoteLength millis `json:"note_ms"`
}

// fromConfig converts c to the file form. A band table equal to a preset
// is written as the preset name.
func fromConfig(c Config) fileConfig {
	t := c.Trigger

	f := fileConfig{
		SampleRate:  t.SampleRate,
		BlockSize:   t.BlockSize,
		PitchWindow: t.PitchWindow,
		Mode:        t.Mode.String(),
		LogLevel:    c.LogLevel.String(),

		Envelope: envelopeFile{
			FastAlpha: t.Envelope.FastAlpha,
			SlowAlpha: t.Envelope.SlowAlpha,
		},
		Onset: onsetFile{
			RatioDelta:   t.Onset.RatioDelta,
			MinDelta:     t.Onset.MinDelta,
			MinGapMs:     toMillis(t.Onset.MinGap),
			RisingEdge:   t.Onset.RisingEdge,
			SilenceFloor: t.Onset.SilenceFloor,
		},
		Pitch: pitchFile{
			Algorithm:    t.Pitch.Algorithm,
			MinHz:        t.Pitch.Range().MinHz,
			MaxHz:        t.Pitch.Range().MaxHz,
			YINThreshold: t.Pitch.YIN.Threshold,
			HPSFFTSize:   t.Pitch.HPS.FFTSize,
			Stabilize:    t.Pitch.Stabilize,
			ZCRTolerance: t.Pitch.ZCRTolerance,
		},
		Detector: detectorFile{
			PitchSettleMs:   toMillis(t.Detector.PitchSettle),
			PitchFreshness:  t.Detector.PitchFreshness,
			ConfidenceFloor: t.Detector.ConfidenceFloor,
		},
		Mapping: mappingFile{
			Hysteresis: t.Mapper.Hysteresis,
			LockMs:     toMillis(t.Mapper.LockDuration),
		},
		Velocity: velocityFile{
			RatioWeight: t.Velocity.RatioWeight,
			FluxWeight:  t.Velocity.FluxWeight,
			LevelWeight: t.Velocity.LevelWeight,
			ReferenceHz: t.Velocity.ReferenceHz,
			Floor:       t.Velocity.Floor,
		},
		Spectrum: spectrumFile{
			FFTSize: t.Spectrum.FFTSize,
			Bins:    t.Spectrum.Bins,
		},
		Flux: fluxFile{
			Enabled: t.Flux.Enabled,
			K:       t.Flux.K,
			Floor:   t.Flux.AbsoluteFloor,
		},
		HFC: hfcFile{
			Enabled: t.HFC.Enabled,
			MinHFC:  t.HFC.MinHFC,
			Ratio:   t.HFC.Ratio,
		},
		Fallback: fallbackFile{Enabled: t.Fallback.Enabled},
		Guard: guardFile{
			ArmBlocks:     t.Guard.ArmBlocks,
			HoldMs:        toMillis(t.Guard.Hold),
			ReducedGainDB: t.Guard.ReducedGainDB,
		},
		Prefilter: prefilterFile{
			Enabled:    t.Prefilter.Enabled,
			HighpassHz: t.Prefilter.HighpassHz,
			NotchHz:    t.Prefilter.NotchHz,
		},
		MIDI: midiFile{
			Port:       c.MIDI.Port,
			Channel:    c.MIDI.Channel,
			Kit:        c.MIDI.Kit,
			NoteLength: toMillis(c.MIDI.NoteLength),
		},
	}

	for _, h := range t.Detector.HumBands {
		f.Detector.HumBands = append(f.Detector.HumBands, rangeFile{MinHz: h.MinHz, MaxHz: h.MaxHz})
	}

	switch {
	case slices.Equal(t.Mapper.Bands, trigger.OpenStringBands()):
		f.Mapping.BandsPreset = trigger.PresetOpenString
	case slices.Equal(t.Mapper.Bands, trigger.OctaveBands()):
		f.Mapping.BandsPreset = trigger.PresetOctave
	default:
		for _, b := range t.Mapper.Bands {
			f.Mapping.Bands = append(f.Mapping.Bands, bandFile{MinHz: b.MinHz, MaxHz: b.MaxHz, Voice: b.Voice.String()})
		}
	}

	slots := f.Mapping.Voices.slots()
	for v, p := range t.Mapper.Voices {
		*slots[v] = voiceFile{RetriggerMs: toMillis(p.Retrigger), Gain: p.BaseGain}
	}
	return f
}

// toConfig converts the file form back, starting from the defaults for
// every parameter the file does not carry.
func (f *fileConfig) toConfig() (Config, error) {
	c := Default()
	t := &c.Trigger

	level, err := debug.ParseLevel(f.LogLevel)
	if err != nil {
		return Config{}, err
	}
	c.LogLevel = level

	mode, ok := envelope.ParseMode(f.Mode)
	if !ok {
		return Config{}, fmt.Errorf("unknown detector mode %q", f.Mode)
	}

	t.SampleRate = f.SampleRate
	t.BlockSize = f.BlockSize
	t.PitchWindow = f.PitchWindow
	t.Mode = mode

	t.Envelope.FastAlpha = f.Envelope.FastAlpha
	t.Envelope.SlowAlpha = f.Envelope.SlowAlpha

	t.Onset.RatioDelta = f.Onset.RatioDelta
	t.Onset.MinDelta = f.Onset.MinDelta
	t.Onset.MinGap = f.Onset.MinGapMs.duration()
	t.Onset.RisingEdge = f.Onset.RisingEdge
	t.Onset.SilenceFloor = f.Onset.SilenceFloor

	rng := pitch.Range{MinHz: f.Pitch.MinHz, MaxHz: f.Pitch.MaxHz}
	t.Pitch.Algorithm = f.Pitch.Algorithm
	t.Pitch.YIN.Range = rng
	t.Pitch.YIN.Threshold = f.Pitch.YINThreshold
	t.Pitch.HPS.Range = rng
	t.Pitch.HPS.FFTSize = f.Pitch.HPSFFTSize
	t.Pitch.Stabilize = f.Pitch.Stabilize
	t.Pitch.ZCRTolerance = f.Pitch.ZCRTolerance

	t.Detector.PitchSettle = f.Detector.PitchSettleMs.duration()
	t.Detector.PitchFreshness = f.Detector.PitchFreshness
	t.Detector.ConfidenceFloor = f.Detector.ConfidenceFloor
	t.Detector.HumBands = nil
	for _, h := range f.Detector.HumBands {
		t.Detector.HumBands = append(t.Detector.HumBands, pitch.Range{MinHz: h.MinHz, MaxHz: h.MaxHz})
	}

	if err := f.Mapping.apply(&t.Mapper); err != nil {
		return Config{}, err
	}

	t.Velocity.RatioWeight = f.Velocity.RatioWeight
	t.Velocity.FluxWeight = f.Velocity.FluxWeight
	t.Velocity.LevelWeight = f.Velocity.LevelWeight
	t.Velocity.ReferenceHz = f.Velocity.ReferenceHz
	t.Velocity.Floor = f.Velocity.Floor

	t.Spectrum.FFTSize = f.Spectrum.FFTSize
	t.Spectrum.Bins = f.Spectrum.Bins
	t.Flux.Enabled = f.Flux.Enabled
	t.Flux.K = f.Flux.K
	t.Flux.AbsoluteFloor = f.Flux.Floor
	t.HFC.Enabled = f.HFC.Enabled
	t.HFC.MinHFC = f.HFC.MinHFC
	t.HFC.Ratio = f.HFC.Ratio
	t.Fallback.Enabled = f.Fallback.Enabled

	t.Guard.ArmBlocks = f.Guard.ArmBlocks
	if t.Guard.MaxCount < t.Guard.ArmBlocks {
		t.Guard.MaxCount = 2 * t.Guard.ArmBlocks
	}
	t.Guard.Hold = f.Guard.HoldMs.duration()
	t.Guard.ReducedGainDB = f.Guard.ReducedGainDB

	t.Prefilter.Enabled = f.Prefilter.Enabled
	t.Prefilter.HighpassHz = f.Prefilter.HighpassHz
	t.Prefilter.NotchHz = f.Prefilter.NotchHz

	c.MIDI = MIDIConfig{
		Port:       f.MIDI.Port,
		Channel:    f.MIDI.Channel,
		Kit:        f.MIDI.Kit,
		NoteLength: f.MIDI.NoteLength.duration(),
	}
	return c, nil
}

// apply sets the band table and the voice table. An explicit band list
// takes precedence over the preset name.
func (m *mappingFile) apply(c *trigger.MapperConfig) error {
	if len(m.Bands) > 0 {
		c.Bands = c.Bands[:0:0]
		for i, b := range m.Bands {
			v, err := trigger.ParseVoice(b.Voice)
			if err != nil {
				return fmt.Errorf("band %d: %w", i, err)
			}
			c.Bands = append(c.Bands, trigger.Band{MinHz: b.MinHz, MaxHz: b.MaxHz, Voice: v})
		}
	} else {
		bands, err := trigger.BandsPreset(m.BandsPreset)
		if err != nil {
			return err
		}
		c.Bands = bands
	}

	c.Hysteresis = m.Hysteresis
	c.LockDuration = m.LockMs.duration()
	for v, slot := range m.Voices.slots() {
		c.Voices[v] = trigger.VoiceParams{
			Retrigger: slot.RetriggerMs.duration(),
			BaseGain:  slot.Gain,
		}
	}
	return nil
}
