// Package audiobackend defines the uniform contract over a native
// mixer (spec §4.5): file loading, per-entity source lifecycle,
// filters, reverb, and output device enumeration. The Backend and
// EntityHandle split mirrors the teacher/original's Backend vs.
// EntityData split — the pool borrow/return is explicit in the
// interface (Play/Stop take the Backend) so source-ownership
// transitions are visible rather than implicit.
package audiobackend

import "github.com/sinfonia-audio/sinfonia/internal/errors"

// ErrNoSource is returned (and logged, never fatal) when the source
// pool has no free voice to lend an entity (spec §7 "NoSource").
var ErrNoSource = errors.Newf("no free source available in pool").Category(errors.CategoryNoSource).Build()

// ReverbPreset names the fixed registry from spec §4.5. Unknown names
// passed to SetReverb behave as ReverbNone.
type ReverbPreset string

const (
	ReverbNone                    ReverbPreset = "none"
	ReverbUnderwater              ReverbPreset = "underwater"
	ReverbForest                  ReverbPreset = "forest"
	ReverbSpaceStation            ReverbPreset = "spacestation"
	ReverbSpaceStationSmallRoom   ReverbPreset = "spacestation_smallroom"
	ReverbSpaceStationMediumRoom  ReverbPreset = "spacestation_mediumroom"
	ReverbChapel                  ReverbPreset = "chapel"
)

// OutputDevice is one entry in the backend's device list.
type OutputDevice struct {
	ID   int
	Name string
}

// Backend owns the source pool and the output device; it is the
// Controller's only channel to the native mixer.
type Backend interface {
	// LoadFile decodes the sample at path, converts to mono if needed,
	// and returns a handle an entity can bind to a source.
	LoadFile(path string) (EntityHandle, error)

	// MasterVolume sets the backend-wide output gain, used by the
	// Controller's cross-fade ramp (spec §4.3).
	MasterVolume(v float32)

	// OutputDevices lists the devices the backend can render to.
	OutputDevices() []OutputDevice

	// CurrentOutputDevice returns the id of the active device.
	CurrentOutputDevice() int

	// SetOutputDevice switches the active output device. Backends are
	// free to no-op if they do not support hot-switching (spec §9 open
	// question).
	SetOutputDevice(id int) error

	// Close releases the pool and the output device.
	Close() error
}

// EntityHandle is a single sound's binding to the backend: one decoded
// buffer, and — between Play and Stop — one borrowed source slot.
type EntityHandle interface {
	// Play borrows a source from the pool if none is bound yet, binds
	// the buffer if the source is Initial or Stopped, and starts (or
	// resumes) playback. If the pool is exhausted it logs and returns
	// ErrNoSource, leaving the entity to advance via IsPlaying()==false.
	Play(backend Backend) error

	// Pause pauses the underlying source without releasing it.
	Pause() error

	// Stop halts playback, clears filters/aux sends/buffer, resets
	// gain and pitch to 1.0, and releases the source back to the pool.
	Stop(backend Backend) error

	// IsPlaying reports whether the bound source is currently playing.
	IsPlaying() bool

	// Position returns the normalised (0..1) playback position.
	Position() float32

	SetVolume(v float32) error
	SetPitch(p float32) error
	SetLowpass(amount float32) error
	SetHighpass(amount float32) error
	SetReverb(preset ReverbPreset) error
}
