// Package theme holds the declarative Theme/Sound model (spec §3, §4.1)
// and the parser that turns a posted theme document into typed records
// with defaults applied.
package theme

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sinfonia-audio/sinfonia/internal/errors"
	"github.com/sinfonia-audio/sinfonia/internal/logging"
)

// Range is an inclusive [Min, Max] range a value is drawn from uniformly.
type Range[T float32 | uint32 | uint64] struct {
	Min T `json:"min"`
	Max T `json:"max"`
}

// FloatRange is the (f32, f32) range used for volume/pitch/filters/fade-in.
type FloatRange = Range[float32]

// CountRange is the (u32, u32) range used for repeat/loop counts.
type CountRange = Range[uint32]

// DelayRange is the (u64, u64) millisecond range used for repeat/loop delays.
type DelayRange = Range[uint64]

// Sound is the declarative description of one schedulable audio element.
type Sound struct {
	Name    string
	File    string
	Enabled bool
	Trigger *string // non-nil means playback only starts upon external trigger

	Volume    FloatRange
	Pitch     FloatRange
	Lowpass   FloatRange
	Highpass  FloatRange
	FadeIn    FloatRange
	PitchEnabled    bool
	LowpassEnabled  bool
	HighpassEnabled bool
	FadeInEnabled   bool

	RepeatCount CountRange
	LoopCount   CountRange
	RepeatDelay DelayRange
	LoopDelay   DelayRange
	LoopForever bool

	Reverb string
}

// Theme is an immutable, named collection of sounds loaded as a unit.
type Theme struct {
	Name  string
	Room  string
	Sounds []Sound
}

// ParseError is returned when a theme document fails to parse or
// validate; surfaced synchronously to the caller of LoadTheme.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return e.Message }

// soundDoc mirrors the wire-format Theme JSON contract in spec §6.
// Pointer fields distinguish "absent" from "zero value" so defaults
// from §4.1 can be applied precisely.
type soundDoc struct {
	Name    string  `json:"name"`
	File    string  `json:"file"`
	Enabled *bool   `json:"enabled"`
	Trigger *string `json:"trigger"`

	Volume   *[2]float32 `json:"volume"`
	Pitch    *[2]float32 `json:"pitch"`
	Lowpass  *[2]float32 `json:"lowpass"`
	Highpass *[2]float32 `json:"highpass"`
	FadeIn   *[2]float32 `json:"fade_in"`

	PitchEnabled    *bool `json:"pitch_enabled"`
	LowpassEnabled  *bool `json:"lowpass_enabled"`
	HighpassEnabled *bool `json:"highpass_enabled"`
	FadeInEnabled   *bool `json:"fade_in_enabled"`

	RepeatCount *[2]uint32 `json:"repeat_count"`
	LoopCount   *[2]uint32 `json:"loop_count"`
	RepeatDelay *[2]uint64 `json:"repeat_delay"`
	LoopDelay   *[2]uint64 `json:"loop_delay"`
	LoopForever *bool      `json:"loop_forever"`

	Reverb *string `json:"reverb"`
}

type themeDoc struct {
	Name   string     `json:"name"`
	Room   *string    `json:"room"`
	Sounds []soundDoc `json:"sounds"`
}

// Parse decodes a posted theme document (spec §6 "Theme JSON") into a
// Theme, applying the §4.1 defaults and validating every range
// invariant (a ≤ b). Unknown keys are ignored rather than failing; the
// first one found is logged at info level.
func Parse(raw []byte) (*Theme, error) {
	var doc themeDoc
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid theme document: %v", err)}
	}

	strict := json.NewDecoder(bytes.NewReader(raw))
	strict.DisallowUnknownFields()
	if err := strict.Decode(&themeDoc{}); err != nil {
		logging.ForComponent("theme").Info("ignoring unknown field in theme document", "error", err)
	}

	th := &Theme{Name: doc.Name}
	if doc.Room != nil {
		th.Room = *doc.Room
	}

	seen := make(map[string]struct{}, len(doc.Sounds))
	for _, sd := range doc.Sounds {
		if sd.Name == "" {
			return nil, &ParseError{Message: "sound missing required field 'name'"}
		}
		if _, dup := seen[sd.Name]; dup {
			return nil, &ParseError{Message: fmt.Sprintf("duplicate sound name %q", sd.Name)}
		}
		seen[sd.Name] = struct{}{}

		if sd.Volume == nil {
			return nil, &ParseError{Message: fmt.Sprintf("sound %q missing required field 'volume'", sd.Name)}
		}
		if sd.File == "" {
			return nil, &ParseError{Message: fmt.Sprintf("sound %q missing required field 'file'", sd.Name)}
		}

		s := Sound{
			Name:    sd.Name,
			File:    sd.File,
			Trigger: sd.Trigger,
			Reverb:  "none",
		}
		s.Enabled = boolOr(sd.Enabled, false)
		s.Volume = floatRangeOf(sd.Volume, FloatRange{0, 0})
		s.Pitch = floatRangeOf(sd.Pitch, FloatRange{1, 1})
		s.Lowpass = floatRangeOf(sd.Lowpass, FloatRange{1, 1})
		s.Highpass = floatRangeOf(sd.Highpass, FloatRange{1, 1})
		s.FadeIn = floatRangeOf(sd.FadeIn, FloatRange{0, 0})
		s.PitchEnabled = boolOr(sd.PitchEnabled, false)
		s.LowpassEnabled = boolOr(sd.LowpassEnabled, false)
		s.HighpassEnabled = boolOr(sd.HighpassEnabled, false)
		s.FadeInEnabled = boolOr(sd.FadeInEnabled, false)
		s.RepeatCount = countRangeOf(sd.RepeatCount, CountRange{0, 0})
		s.LoopCount = countRangeOf(sd.LoopCount, CountRange{0, 0})
		s.RepeatDelay = delayRangeOf(sd.RepeatDelay, DelayRange{0, 0})
		s.LoopDelay = delayRangeOf(sd.LoopDelay, DelayRange{0, 0})
		s.LoopForever = boolOr(sd.LoopForever, false)
		if sd.Reverb != nil {
			s.Reverb = *sd.Reverb
		}

		if err := validateRanges(s); err != nil {
			return nil, err
		}

		th.Sounds = append(th.Sounds, s)
	}

	return th, nil
}

func validateRanges(s Sound) error {
	type named struct {
		name     string
		min, max float64
	}
	checks := []named{
		{"volume", float64(s.Volume.Min), float64(s.Volume.Max)},
		{"pitch", float64(s.Pitch.Min), float64(s.Pitch.Max)},
		{"lowpass", float64(s.Lowpass.Min), float64(s.Lowpass.Max)},
		{"highpass", float64(s.Highpass.Min), float64(s.Highpass.Max)},
		{"fade_in", float64(s.FadeIn.Min), float64(s.FadeIn.Max)},
		{"repeat_count", float64(s.RepeatCount.Min), float64(s.RepeatCount.Max)},
		{"loop_count", float64(s.LoopCount.Min), float64(s.LoopCount.Max)},
		{"repeat_delay", float64(s.RepeatDelay.Min), float64(s.RepeatDelay.Max)},
		{"loop_delay", float64(s.LoopDelay.Min), float64(s.LoopDelay.Max)},
	}
	for _, c := range checks {
		if c.min > c.max {
			return &ParseError{Message: fmt.Sprintf("sound %q: range %s inverted (%v > %v)", s.Name, c.name, c.min, c.max)}
		}
	}
	return nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func floatRangeOf(p *[2]float32, def FloatRange) FloatRange {
	if p == nil {
		return def
	}
	return FloatRange{p[0], p[1]}
}

func countRangeOf(p *[2]uint32, def CountRange) CountRange {
	if p == nil {
		return def
	}
	return CountRange{p[0], p[1]}
}

func delayRangeOf(p *[2]uint64, def DelayRange) DelayRange {
	if p == nil {
		return def
	}
	return DelayRange{p[0], p[1]}
}

// AsParseError reports whether err is (or wraps) a theme ParseError.
func AsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	ok := errors.As(err, &pe)
	return pe, ok
}

// Wrap annotates err with the theme-parse error category.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	logging.ForComponent("theme").Warn("theme parse failed", "error", err)
	return errors.New(err).Category(errors.CategoryThemeParse).Build()
}
