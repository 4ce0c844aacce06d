// Package ebitenbackend implements the spec §4.5 Audio Backend
// contract on top of github.com/hajimehoshi/ebiten/v2/audio, the
// mixer used by cbegin-mmlfm-go's player (internal/audio/stream.go):
// an audio.Context plus one Player per live voice. Device enumeration
// is provided by github.com/gen2brain/malgo, the same library the
// teacher uses for device-level audio I/O.
package ebitenbackend

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/gen2brain/malgo"
	"github.com/sinfonia-audio/sinfonia/internal/audiobackend"
	"github.com/sinfonia-audio/sinfonia/internal/audiobackend/decode"
	"github.com/sinfonia-audio/sinfonia/internal/audiobackend/filter"
	"github.com/sinfonia-audio/sinfonia/internal/audiobackend/reverb"
	"github.com/sinfonia-audio/sinfonia/internal/logging"
)

// MaxSources is the size of the static source pool spec §4.5 mandates.
const MaxSources = 32

const defaultSampleRate = 48000

// Backend is the ebiten-audio-backed implementation of
// audiobackend.Backend.
type Backend struct {
	mu            sync.Mutex
	ctx           *ebitaudio.Context
	sampleRate    int
	activeSources int
	devices       []audiobackend.OutputDevice
	currentDevice int
}

// Init opens the default output device, creates the mixer context, and
// enumerates output devices. Failure to enumerate devices is logged
// and continues with an empty device list, matching spec §4.5's
// "on failure to create any [source], panic; on partial creation, log
// and continue" for the adjacent device-enumeration step.
func Init() (*Backend, error) {
	log := logging.ForComponent("backend")

	ctx := ebitaudio.NewContext(defaultSampleRate)

	b := &Backend{
		ctx:        ctx,
		sampleRate: defaultSampleRate,
	}

	devices, err := enumerateOutputDevices()
	if err != nil {
		log.Warn("failed to enumerate output devices, continuing with none", "error", err)
	}
	b.devices = devices

	log.Info("audio backend initialized", "sampleRate", b.sampleRate, "sources", MaxSources, "devices", len(b.devices))
	return b, nil
}

func enumerateOutputDevices() ([]audiobackend.OutputDevice, error) {
	backendType, err := backendForPlatform()
	if err != nil {
		return nil, err
	}

	ctx, err := malgo.InitContext([]malgo.Backend{backendType}, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init malgo context: %w", err)
	}
	defer func() { _ = ctx.Uninit() }()

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("enumerate playback devices: %w", err)
	}

	devices := make([]audiobackend.OutputDevice, 0, len(infos))
	for i := range infos {
		devices = append(devices, audiobackend.OutputDevice{ID: i, Name: infos[i].Name()})
	}
	return devices, nil
}

func backendForPlatform() (malgo.Backend, error) {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa, nil
	case "windows":
		return malgo.BackendWasapi, nil
	case "darwin":
		return malgo.BackendCoreaudio, nil
	default:
		return malgo.BackendNull, fmt.Errorf("unsupported platform %s for audio device enumeration", runtime.GOOS)
	}
}

// LoadFile decodes path and returns a handle bindable to a pool source.
func (b *Backend) LoadFile(path string) (audiobackend.EntityHandle, error) {
	pcm, err := decode.WAV(path)
	if err != nil {
		return nil, err
	}

	lengthSeconds := float32(len(pcm.Samples)) / float32(pcm.SampleRate)

	return &entityHandle{
		buffer:        pcm,
		lengthSeconds: lengthSeconds,
		pitch:         1,
		volume:        1,
	}, nil
}

// MasterVolume sets the context-wide gain applied on top of every
// voice's own volume (the cross-fade ramp's target, spec §4.3).
func (b *Backend) MasterVolume(v float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	masterGain.Store(float64(v))
}

// OutputDevices lists the devices this backend can render to.
func (b *Backend) OutputDevices() []audiobackend.OutputDevice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]audiobackend.OutputDevice, len(b.devices))
	copy(out, b.devices)
	return out
}

// CurrentOutputDevice returns the active device id.
func (b *Backend) CurrentOutputDevice() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentDevice
}

// SetOutputDevice switches the active device id. ebiten's audio
// context binds to the system default output and does not expose
// hot-switching, so this call records the preference for status
// reporting without rebuilding the context (spec §9 open question:
// "some libraries require rebuild of the context" — this one does not
// need to).
func (b *Backend) SetOutputDevice(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.currentDevice = id
	return nil
}

// Close releases backend-wide resources.
func (b *Backend) Close() error { return nil }

func (b *Backend) acquireSource() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.activeSources >= MaxSources {
		return false
	}
	b.activeSources++
	return true
}

func (b *Backend) releaseSource() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.activeSources > 0 {
		b.activeSources--
	}
}

// masterGain mirrors what would otherwise be a context-level
// mixer bus; ebiten's audio.Context has no global gain knob, so every
// voice multiplies its own output by this value each read.
var masterGain atomicFloat

func init() { masterGain.Store(1) }

// entityHandle binds one decoded buffer to, at most, one borrowed
// source at a time.
type entityHandle struct {
	buffer        *decode.PCM
	lengthSeconds float32

	mu             sync.Mutex
	player         *ebitaudio.Player
	voice          *voice
	volume         float32
	pitch          float32
	lowpassCutoff  float64 // 0 = disabled
	highpassCutoff float64 // 0 = disabled
	bandpass       *filter.Chain
	reverbFX       *reverb.Effect
	backendRef     *Backend
}

func (h *entityHandle) Play(backend audiobackend.Backend) error {
	b, ok := backend.(*Backend)
	if !ok {
		return fmt.Errorf("ebitenbackend: Play called with foreign backend")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.player != nil {
		// Resume a paused-but-still-bound source without rebinding.
		h.player.Play()
		return nil
	}

	if !b.acquireSource() {
		logging.ForComponent("backend").Warn("source pool exhausted, skipping play")
		return audiobackend.ErrNoSource
	}

	h.backendRef = b
	h.voice = newVoice(h.buffer.Samples, h.buffer.SampleRate, b.sampleRate, h)
	reader := newStreamReader(h.voice)
	player, err := b.ctx.NewPlayerF32(reader)
	if err != nil {
		b.releaseSource()
		return fmt.Errorf("creating player: %w", err)
	}
	h.player = player
	h.player.Play()
	return nil
}

func (h *entityHandle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.player != nil {
		h.player.Pause()
	}
	return nil
}

func (h *entityHandle) Stop(backend audiobackend.Backend) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.player != nil {
		h.player.Pause()
		_ = h.player.Close()
		h.player = nil
	}
	if h.voice != nil {
		h.voice = nil
	}
	h.lowpassCutoff = 0
	h.highpassCutoff = 0
	h.bandpass = nil
	h.reverbFX = nil
	h.volume = 1
	h.pitch = 1

	if h.backendRef != nil {
		h.backendRef.releaseSource()
		h.backendRef = nil
	}
	return nil
}

func (h *entityHandle) IsPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.player != nil && h.player.IsPlaying()
}

func (h *entityHandle) Position() float32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.player == nil || h.lengthSeconds <= 0 {
		return 0
	}
	pos := h.player.Position()
	return float32(pos.Seconds()) / h.lengthSeconds
}

func (h *entityHandle) SetVolume(v float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volume = v
	return nil
}

func (h *entityHandle) SetPitch(p float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pitch = p
	return nil
}

// SetLowpass maps amount (0..1, 0 = no effect per spec §4.2 defaults)
// onto a cutoff frequency: higher amounts pull the cutoff down,
// attenuating more of the high end. Lowpass and highpass share one
// filter chain per source (a lowpass stage and a highpass stage): this
// updates this handle's lowpass cutoff and then builds a new h.bandpass
// chain from both cutoffs, so the chain is reallocated on every call
// rather than re-tuned in place.
func (h *entityHandle) SetLowpass(amount float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if amount <= 0 {
		h.lowpassCutoff = 0
		return h.rebuildBandpass()
	}
	cutoff := 20000 - float64(amount)*19500
	if cutoff < 100 {
		cutoff = 100
	}
	h.lowpassCutoff = cutoff
	return h.rebuildBandpass()
}

// SetHighpass maps amount (0..1) onto a cutoff frequency: higher
// amounts push the cutoff up, attenuating more of the low end. See
// SetLowpass for the shared-filter contract.
func (h *entityHandle) SetHighpass(amount float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if amount <= 0 {
		h.highpassCutoff = 0
		return h.rebuildBandpass()
	}
	cutoff := float64(amount) * 2000
	if cutoff < 20 {
		cutoff = 20
	}
	h.highpassCutoff = cutoff
	return h.rebuildBandpass()
}

// rebuildBandpass re-tunes the one shared band-pass filter from the
// handle's current lowpass/highpass cutoffs. Called with h.mu held.
func (h *entityHandle) rebuildBandpass() error {
	if h.lowpassCutoff <= 0 && h.highpassCutoff <= 0 {
		h.bandpass = nil
		return nil
	}

	chain := filter.NewFilterChain()
	if h.lowpassCutoff > 0 {
		f, err := filter.NewLowPass(float64(h.sampleRate()), h.lowpassCutoff, 0.707, 2)
		if err != nil {
			return err
		}
		if err := chain.AddFilter(f); err != nil {
			return err
		}
	}
	if h.highpassCutoff > 0 {
		f, err := filter.NewHighPass(float64(h.sampleRate()), h.highpassCutoff, 0.707, 2)
		if err != nil {
			return err
		}
		if err := chain.AddFilter(f); err != nil {
			return err
		}
	}
	h.bandpass = chain
	return nil
}

func (h *entityHandle) SetReverb(preset audiobackend.ReverbPreset) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if preset == audiobackend.ReverbNone {
		h.reverbFX = nil
		return nil
	}
	h.reverbFX = reverb.New(float64(h.sampleRate()), reverb.Preset(preset))
	return nil
}

func (h *entityHandle) sampleRate() int {
	if h.buffer != nil {
		return h.buffer.SampleRate
	}
	return defaultSampleRate
}

var _ io.Closer = (*ebitaudio.Player)(nil)
