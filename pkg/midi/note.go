package midi

import (
	"fmt"
	"math"
)

// TuningA4 is the concert pitch of note 69.
const TuningA4 = 440.0

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteToFrequency returns the equal tempered frequency of note.
func NoteToFrequency(note uint8) float64 {
	return TuningA4 * math.Exp2((float64(note)-69)/12)
}

// FrequencyToNote returns the nearest note to freq, false when freq is not
// positive or lies outside the MIDI range.
func FrequencyToNote(freq float64) (uint8, bool) {
	if !(freq > 0) || math.IsInf(freq, 0) {
		return 0, false
	}
	n := math.Round(69 + 12*math.Log2(freq/TuningA4))
	if n < 0 || n > 127 {
		return 0, false
	}
	return uint8(n), true
}

// NoteName returns the scientific pitch name, with note 60 as C4.
func NoteName(note uint8) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], int(note/12)-1)
}

// PitchName names the note nearest to freq, "-" when there is none.
func PitchName(freq float64) string {
	n, ok := FrequencyToNote(freq)
	if !ok {
		return "-"
	}
	return NoteName(n)
}
