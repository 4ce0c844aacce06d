package reverb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_UnknownPresetFallsBackToNone(t *testing.T) {
	e := New(48000, Preset("not-a-real-preset"))
	assert.True(t, e.IsNone())
}

func TestNone_PassesThroughUnmodified(t *testing.T) {
	e := New(48000, None)
	samples := []float64{0.1, -0.2, 0.3}
	original := append([]float64(nil), samples...)
	e.ApplyBatch(samples)
	assert.Equal(t, original, samples)
}

func TestPresets_ProduceFiniteOutput(t *testing.T) {
	for _, p := range []Preset{Underwater, Forest, SpaceStation, SpaceStationSmallRoom, SpaceStationMediumRoom, Chapel} {
		e := New(48000, p)
		samples := make([]float64, 2000)
		samples[0] = 1.0
		e.ApplyBatch(samples)
		for _, v := range samples {
			assert.False(t, math.IsNaN(v), "preset %s produced NaN", p)
			assert.False(t, math.IsInf(v, 0), "preset %s produced Inf", p)
		}
	}
}

func TestPresets_TailEnergyOutlastsDrySignal(t *testing.T) {
	e := New(48000, Chapel)
	samples := make([]float64, 4000)
	samples[0] = 1.0
	e.ApplyBatch(samples)

	var tailEnergy float64
	for _, v := range samples[3000:] {
		tailEnergy += v * v
	}
	assert.Greater(t, tailEnergy, 0.0, "a chapel reverb tail should still carry energy after the impulse")
}
