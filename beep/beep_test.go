package beep

import (
	"math"
	"testing"
)

func TestTickShape(t *testing.T) {
	samples := tick(startFreq, 0.2, startVolume, startDecay)

	if want := int(sampleRate * 0.2); len(samples) != want {
		t.Fatalf("len = %d, want %d", len(samples), want)
	}

	var peak int16
	for _, s := range samples {
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		t.Fatal("cue is silent")
	}
	if limit := int16(32768 * startVolume); peak > limit {
		t.Errorf("peak %d exceeds volume limit %d", peak, limit)
	}

	// The decay envelope makes the tail quieter than the head.
	head := rmsOf(samples[:len(samples)/4])
	tail := rmsOf(samples[3*len(samples)/4:])
	if tail >= head {
		t.Errorf("tail rms %.4f not below head rms %.4f", tail, head)
	}
}

func TestDoubleTickHasGap(t *testing.T) {
	samples := doubleTick(errorFreq, 0.08, 0.05, errorVolume, errorDecay)

	one := int(sampleRate * 0.08)
	gap := int(sampleRate * 0.05)
	if want := one*2 + gap; len(samples) != want {
		t.Fatalf("len = %d, want %d", len(samples), want)
	}
	for i, s := range samples[one : one+gap] {
		if s != 0 {
			t.Fatalf("gap sample %d = %d, want silence", i, s)
		}
	}
	if rmsOf(samples[one+gap:]) == 0 {
		t.Error("second tick is silent")
	}
}

func TestGenerateCues(t *testing.T) {
	c := generateCues(0.03, 0.05)
	if len(c.start) != int(sampleRate*0.03) {
		t.Errorf("start len = %d", len(c.start))
	}
	if len(c.end) != int(sampleRate*0.05) {
		t.Errorf("end len = %d", len(c.end))
	}
	if len(c.fail) <= len(c.start) {
		t.Error("error cue should be the longest (double tick)")
	}
}

func rmsOf(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}
