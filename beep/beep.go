// Package beep plays the short audio cues for session start, session
// end, and errors. Cues are generated sine ticks, played fire-and-forget
// so they never block a state transition.
package beep

import "math"

var disabled bool

// Disable turns all cues off. Used when audio_feedback is false and in
// test mode.
func Disable() { disabled = true }

const (
	sampleRate = 44100

	// Start beep: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End beep: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error beep: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

// tick generates one decaying sine cue as mono 16-bit samples.
func tick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

// doubleTick is two ticks with a silent gap, used for the error cue.
func doubleTick(freq, beepDur, gapDur, volume, decay float64) []int16 {
	one := tick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	out := make([]int16, 0, len(one)*2+len(gap))
	out = append(out, one...)
	out = append(out, gap...)
	out = append(out, one...)
	return out
}

// cues holds the three generated sample sets. Backends pick the cue
// lengths that sound right on their output path.
type cues struct {
	start, end, fail []int16
}

func generateCues(startDur, endDur float64) cues {
	return cues{
		start: tick(startFreq, startDur, startVolume, startDecay),
		end:   tick(endFreq, endDur, endVolume, endDecay),
		fail:  doubleTick(errorFreq, 0.08, 0.05, errorVolume, errorDecay),
	}
}
