// Package engine implements the audio scheduling core: the per-sound
// state machine, the tick-driven Controller, and the Command/Response
// protocol the façade speaks. Grounded throughout on
// original_source/src/audio_engine/engine/{mod,messaging}.rs, the
// state machine and controller this module was distilled from.
package engine

import (
	"log/slog"
	"time"

	"github.com/sinfonia-audio/sinfonia/internal/audiobackend"
	"github.com/sinfonia-audio/sinfonia/internal/logging"
	"github.com/sinfonia-audio/sinfonia/internal/theme"
)

// State is one node of the per-sound lifecycle (spec §4.2).
type State int

const (
	Virgin State = iota
	Preview
	PrepareRun
	WaitingForStart
	WaitingForTrigger
	Starting
	Playing
	Repeat
	Loop
	Finished
	Reset
	Dead
)

func (s State) String() string {
	switch s {
	case Virgin:
		return "Virgin"
	case Preview:
		return "Preview"
	case PrepareRun:
		return "PrepareRun"
	case WaitingForStart:
		return "WaitingForStart"
	case WaitingForTrigger:
		return "WaitingForTrigger"
	case Starting:
		return "Starting"
	case Playing:
		return "Playing"
	case Repeat:
		return "Repeat"
	case Loop:
		return "Loop"
	case Finished:
		return "Finished"
	case Reset:
		return "Reset"
	case Dead:
		return "Dead"
	default:
		return "Unknown"
	}
}

// Params mirrors spec §3's EntityParams: the live scheduling state
// threaded through one entity's run.
type Params struct {
	State     State
	NextPlay  time.Duration
	Repeats   uint32
	Loops     uint32
	FadeIn    float32
	MaxVolume float32
}

// Entity is the runtime counterpart of a theme Sound: sound
// declaration, backend handle, live parameters, and trigger/preview
// flags (spec §3 "AudioEntity").
type Entity struct {
	Sound  theme.Sound
	Handle audiobackend.EntityHandle

	Params      Params
	IsTriggered bool
	IsPreview   bool

	rng Rand
	log *slog.Logger
}

// NewEntity constructs an entity in its initial Virgin state.
func NewEntity(sound theme.Sound, handle audiobackend.EntityHandle, rng Rand) *Entity {
	return &Entity{
		Sound:  sound,
		Handle: handle,
		Params: Params{State: Virgin, Loops: 1},
		rng:    rng,
		log:    logging.ForComponent("entity"),
	}
}

func (e *Entity) switchState(s State) {
	e.log.Debug("sound switching state", "sound", e.Sound.Name, "from", e.Params.State.String(), "to", s.String())
	e.Params.State = s
}

// IsInState reports whether the entity currently occupies s.
func (e *Entity) IsInState(s State) bool { return e.Params.State == s }

// Update advances the entity by one tick. It never returns a fatal
// error: backend failures are logged and swallowed here, matching
// spec §4.2 ("the entity mutates itself and the backend; it never
// reports errors fatally").
func (e *Entity) Update(backend audiobackend.Backend, deltaMS uint64) {
	switch e.Params.State {
	case Virgin:
		e.Params.NextPlay = time.Duration(DrawDelay(e.rng, e.Sound.LoopDelay)) * time.Millisecond
		e.Params.Loops = DrawCount(e.rng, e.Sound.LoopCount)

		if e.Sound.Trigger != nil && !e.IsPreview {
			e.switchState(WaitingForTrigger)
		} else {
			e.switchState(PrepareRun)
		}

	case Preview:
		e.switchState(Reset)

	case Reset:
		e.stop(backend)
		e.switchState(Virgin)

	case WaitingForTrigger:
		if e.IsTriggered {
			e.IsTriggered = false
			e.switchState(WaitingForStart)
		}

	case PrepareRun:
		e.Params.Repeats = DrawCount(e.rng, e.Sound.RepeatCount)
		e.log.Info("prepared run", "sound", e.Sound.Name, "repeats", e.Params.Repeats, "loops", e.Params.Loops)

		if e.IsPreview {
			e.switchState(Starting)
		} else {
			e.switchState(WaitingForStart)
		}

	case WaitingForStart:
		if e.Params.NextPlay > 0 {
			d := time.Duration(deltaMS) * time.Millisecond
			if d >= e.Params.NextPlay {
				e.Params.NextPlay = 0
			} else {
				e.Params.NextPlay -= d
			}
		}
		if e.Params.NextPlay == 0 {
			e.switchState(Starting)
		}

	case Starting:
		e.start(backend)
		e.switchState(Playing)

	case Playing:
		e.runPlaying()

	case Repeat:
		e.runRepeat()

	case Loop:
		e.runLoop(backend)

	case Finished:
		e.log.Info("sound finished", "sound", e.Sound.Name)
		if e.Sound.Trigger != nil {
			e.switchState(Reset)
		} else {
			e.switchState(Dead)
		}

	case Dead:
		// terminal; no-op every tick.
	}
}

func (e *Entity) start(backend audiobackend.Backend) {
	if err := e.Handle.Play(backend); err != nil {
		e.log.Warn("play failed", "sound", e.Sound.Name, "error", err)
	}
	e.Params.MaxVolume = DrawFloat(e.rng, e.Sound.Volume)

	pitch := float32(-1)
	if e.Sound.PitchEnabled {
		pitch = DrawFloat(e.rng, e.Sound.Pitch)
		if err := e.Handle.SetPitch(pitch); err != nil {
			e.log.Warn("set_pitch failed", "sound", e.Sound.Name, "error", err)
		}
	}

	lowpass := float32(-1)
	if e.Sound.LowpassEnabled {
		lowpass = DrawFloat(e.rng, e.Sound.Lowpass)
		if err := e.Handle.SetLowpass(lowpass); err != nil {
			e.log.Warn("set_lowpass failed", "sound", e.Sound.Name, "error", err)
		}
	}

	highpass := float32(-1)
	if e.Sound.HighpassEnabled {
		highpass = DrawFloat(e.rng, e.Sound.Highpass)
		if err := e.Handle.SetHighpass(highpass); err != nil {
			e.log.Warn("set_highpass failed", "sound", e.Sound.Name, "error", err)
		}
	}

	if e.Sound.FadeInEnabled {
		e.Params.FadeIn = DrawFloat(e.rng, e.Sound.FadeIn)
		if err := e.Handle.SetVolume(0); err != nil {
			e.log.Warn("set_volume failed", "sound", e.Sound.Name, "error", err)
		}
	} else {
		e.Params.FadeIn = 0
		if err := e.Handle.SetVolume(e.Params.MaxVolume); err != nil {
			e.log.Warn("set_volume failed", "sound", e.Sound.Name, "error", err)
		}
	}

	if err := e.Handle.SetReverb(audiobackend.ReverbPreset(e.Sound.Reverb)); err != nil {
		e.log.Warn("set_reverb failed", "sound", e.Sound.Name, "error", err)
	}

	e.log.Info("starting sound", "sound", e.Sound.Name, "volume", e.Params.MaxVolume,
		"pitch", pitch, "lowpass", lowpass, "highpass", highpass, "reverb", e.Sound.Reverb, "fade_in", e.Params.FadeIn)
}

// envelope computes the current Playing-state volume, applying the
// fade-in ramp over the entity's position (spec §4.2 "Envelope during
// Playing").
func (e *Entity) envelope() float32 {
	if e.Sound.FadeInEnabled && e.Params.FadeIn > 0 {
		pos := e.Handle.Position()
		if pos < e.Params.FadeIn {
			return (1 - (e.Params.FadeIn-pos)/e.Params.FadeIn) * e.Params.MaxVolume
		}
	}
	return e.Params.MaxVolume
}

func (e *Entity) runPlaying() {
	if err := e.Handle.SetVolume(e.envelope()); err != nil {
		e.log.Warn("set_volume failed", "sound", e.Sound.Name, "error", err)
	}

	if !e.Handle.IsPlaying() {
		if e.Sound.Trigger != nil && e.IsTriggered {
			e.log.Info("sound cancelled", "sound", e.Sound.Name)
			e.IsTriggered = false
			e.switchState(Reset)
		} else {
			e.switchState(Repeat)
		}
	}
}

func (e *Entity) runRepeat() {
	if e.Params.Repeats > 0 {
		e.Params.Repeats--
		e.Params.NextPlay = time.Duration(DrawDelay(e.rng, e.Sound.RepeatDelay)) * time.Millisecond
		e.log.Info("repeats remaining", "sound", e.Sound.Name, "repeats", e.Params.Repeats)
		e.switchState(WaitingForStart)
		return
	}

	if e.IsPreview {
		e.IsPreview = false
		e.switchState(Virgin)
	} else {
		e.switchState(Loop)
	}
}

func (e *Entity) runLoop(backend audiobackend.Backend) {
	e.stop(backend)

	if e.Params.Loops > 0 || e.Sound.LoopForever {
		if !e.Sound.LoopForever {
			e.Params.Loops--
		}
		e.Params.NextPlay = time.Duration(DrawDelay(e.rng, e.Sound.LoopDelay)) * time.Millisecond
		e.switchState(PrepareRun)
	} else {
		e.switchState(Finished)
	}
}

func (e *Entity) stop(backend audiobackend.Backend) {
	if err := e.Handle.Stop(backend); err != nil {
		e.log.Warn("stop failed", "sound", e.Sound.Name, "error", err)
	}
}

// Pause pauses the underlying source without changing state (spec
// §4.2 "Pause semantics" — state is untouched; resuming is a
// subsequent Play on the same bound source).
func (e *Entity) Pause() {
	if err := e.Handle.Pause(); err != nil {
		e.log.Warn("pause failed", "sound", e.Sound.Name, "error", err)
	}
}

// Resume un-pauses by issuing Play again on the still-bound source.
func (e *Entity) Resume(backend audiobackend.Backend) {
	if err := e.Handle.Play(backend); err != nil {
		e.log.Warn("resume failed", "sound", e.Sound.Name, "error", err)
	}
}
