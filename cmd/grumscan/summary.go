package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/grumpedal/grum/pkg/midi"
	"github.com/grumpedal/grum/pkg/trigger"
)

// printSummary writes the per voice hit counts, the drop reasons and the
// guard activity.
func printSummary(w io.Writer, st trigger.Stats, rec *trigger.Recorder) {
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintln(w, "========")
	fmt.Fprintf(w, "  Blocks:    %d\n", st.Blocks)
	fmt.Fprintf(w, "  Onsets:    %d\n", st.Onsets)
	fmt.Fprintf(w, "  Triggers:  %d\n", st.Triggers)

	fmt.Fprintln(w, "\nVoices:")
	for v := trigger.Voice(0); v < trigger.NumVoices; v++ {
		fmt.Fprintf(w, "  %-6s %5d  %s\n", v, st.PerVoice[v], pitchRange(rec.Hits(), v))
	}

	fmt.Fprintln(w, "\nDropped onsets:")
	for d := range st.Drops {
		reason := trigger.DropReason(d)
		if reason <= trigger.DropPending || st.Drops[d] == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-15s %d\n", reason, st.Drops[d])
	}

	if st.GuardArms > 0 || st.NonFinite > 0 || st.SinkErrors > 0 || st.Overruns > 0 {
		fmt.Fprintln(w, "\nIssues:")
		fmt.Fprintf(w, "  Guard arms:       %d\n", st.GuardArms)
		fmt.Fprintf(w, "  Non-finite input: %d\n", st.NonFinite)
		fmt.Fprintf(w, "  Sink errors:      %d\n", st.SinkErrors)
		fmt.Fprintf(w, "  Overruns:         %d\n", st.Overruns)
	}
}

// pitchRange names the lowest and highest played note that fired v.
// Energy fallback hits carry no pitch and are counted apart.
func pitchRange(hits []trigger.Hit, v trigger.Voice) string {
	lo, hi := 0.0, 0.0
	energy := 0
	for _, h := range hits {
		if h.Voice != v {
			continue
		}
		if h.FrequencyHz <= 0 {
			energy++
			continue
		}
		if lo == 0 || h.FrequencyHz < lo {
			lo = h.FrequencyHz
		}
		if h.FrequencyHz > hi {
			hi = h.FrequencyHz
		}
	}

	var parts []string
	switch {
	case lo == 0:
	case midi.PitchName(lo) == midi.PitchName(hi):
		parts = append(parts, midi.PitchName(lo))
	default:
		parts = append(parts, midi.PitchName(lo)+".."+midi.PitchName(hi))
	}
	if energy > 0 {
		parts = append(parts, fmt.Sprintf("%d by energy", energy))
	}
	return strings.Join(parts, ", ")
}
