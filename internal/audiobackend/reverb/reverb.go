// Package reverb implements the fixed preset registry from spec §4.5
// as a small feedback-delay-network reverb: four comb filters summed
// into a series of all-pass stages, parameterised per preset rather
// than the opaque name the spec contract exposes. This supplements the
// distilled spec with the DSP detail the original's alto.rs backend
// got for free from OpenAL's EFX presets (see SPEC_FULL.md §4).
package reverb

import "math"

// Preset is one entry in the fixed registry spec §4.5 enumerates.
type Preset string

const (
	None                   Preset = "none"
	Underwater             Preset = "underwater"
	Forest                 Preset = "forest"
	SpaceStation           Preset = "spacestation"
	SpaceStationSmallRoom  Preset = "spacestation_smallroom"
	SpaceStationMediumRoom Preset = "spacestation_mediumroom"
	Chapel                 Preset = "chapel"
)

// params holds the decay/diffusion/damping knobs for one preset.
type params struct {
	decay     float64 // comb feedback gain, 0..1
	damping   float64 // high-frequency damping applied in the comb feedback path
	diffusion float64 // all-pass feedback gain
	wet       float64 // wet/dry mix applied at the send
}

var registry = map[Preset]params{
	None:                   {0, 0, 0, 0},
	Underwater:             {0.9, 0.95, 0.6, 0.5},
	Forest:                 {0.55, 0.4, 0.35, 0.35},
	SpaceStation:           {0.97, 0.2, 0.7, 0.6},
	SpaceStationSmallRoom:  {0.7, 0.3, 0.5, 0.4},
	SpaceStationMediumRoom: {0.85, 0.25, 0.6, 0.5},
	Chapel:                 {0.92, 0.15, 0.65, 0.55},
}

var combDelaysMs = [4]float64{29.7, 37.1, 41.3, 43.7}
var allpassDelaysMs = [2]float64{5.0, 1.7}

type comb struct {
	buf       []float64
	pos       int
	feedback  float64
	damping   float64
	lastOut   float64
}

func newComb(delaySamples int, feedback, damping float64) *comb {
	if delaySamples < 1 {
		delaySamples = 1
	}
	return &comb{buf: make([]float64, delaySamples), feedback: feedback, damping: damping}
}

func (c *comb) process(x float64) float64 {
	out := c.buf[c.pos]
	c.lastOut = c.lastOut*c.damping + out*(1-c.damping)
	c.buf[c.pos] = x + c.lastOut*c.feedback
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

type allpass struct {
	buf      []float64
	pos      int
	feedback float64
}

func newAllpass(delaySamples int, feedback float64) *allpass {
	if delaySamples < 1 {
		delaySamples = 1
	}
	return &allpass{buf: make([]float64, delaySamples), feedback: feedback}
}

func (a *allpass) process(x float64) float64 {
	bufOut := a.buf[a.pos]
	y := -x + bufOut
	a.buf[a.pos] = x + bufOut*a.feedback
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return y
}

// Effect is one bound instance of a preset, occupying the aux effect
// slot on an entity's source (spec §4.5 "auxiliary effect slot 0").
type Effect struct {
	preset  Preset
	wet     float64
	combs   [4]*comb
	allpass [2]*allpass
}

// New builds an Effect for the given preset at sampleRate. Unknown
// preset names fall back to None, matching the backend contract.
func New(sampleRate float64, preset Preset) *Effect {
	p, ok := registry[preset]
	if !ok {
		preset = None
		p = registry[None]
	}
	e := &Effect{preset: preset, wet: p.wet}
	for i, ms := range combDelaysMs {
		e.combs[i] = newComb(int(math.Round(ms*sampleRate/1000)), p.decay, p.damping)
	}
	for i, ms := range allpassDelaysMs {
		e.allpass[i] = newAllpass(int(math.Round(ms*sampleRate/1000)), p.diffusion)
	}
	return e
}

// IsNone reports whether this effect is the identity ("none") preset,
// letting the backend skip the send entirely.
func (e *Effect) IsNone() bool { return e == nil || e.preset == None }

// Process returns the reverberated sample mixed with the dry signal
// per the preset's wet/dry ratio.
func (e *Effect) Process(dry float64) float64 {
	if e.IsNone() {
		return dry
	}
	var wet float64
	for _, c := range e.combs {
		wet += c.process(dry)
	}
	wet /= float64(len(e.combs))
	for _, a := range e.allpass {
		wet = a.process(wet)
	}
	return dry*(1-e.wet) + wet*e.wet
}

// ApplyBatch reverberates samples in place.
func (e *Effect) ApplyBatch(samples []float64) {
	if e.IsNone() {
		return
	}
	for i, s := range samples {
		samples[i] = e.Process(s)
	}
}
