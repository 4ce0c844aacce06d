package engine

import (
	"log/slog"
	"time"

	"github.com/sinfonia-audio/sinfonia/internal/audiobackend"
	"github.com/sinfonia-audio/sinfonia/internal/logging"
	"github.com/sinfonia-audio/sinfonia/internal/soundlib"
	"github.com/sinfonia-audio/sinfonia/internal/theme"
)

// fadeDirection is the Controller's global cross-fade ramp direction
// (spec §4.3 "Cross-fade on theme change").
type fadeDirection int

const (
	fadeOut fadeDirection = iota
	fadeIn
)

const fadeStep = 0.1
const commandPollInterval = 50 * time.Millisecond

// Controller is the single-threaded cooperative scheduler owning all
// entities and one backend (spec §4.3). Grounded on
// original_source/src/audio_engine/engine/mod.rs's AudioController.
type Controller struct {
	backend audiobackend.Backend
	library soundlib.Library

	commands  <-chan Command
	responses chan<- Response

	entities     map[string]*Entity
	pendingNext  map[string]*Entity
	fadeActive   bool
	fadeDir      fadeDirection
	fadeVolume   float32
	masterVolume float32

	playing     bool
	themeLoaded bool
	themeName   *string

	rng Rand
	log *slog.Logger
}

// NewController constructs a Controller around backend and library,
// communicating over the given command/response channels (spec §5:
// "two unidirectional message channels").
func NewController(backend audiobackend.Backend, library soundlib.Library, commands <-chan Command, responses chan<- Response, rng Rand) *Controller {
	return &Controller{
		backend:      backend,
		library:      library,
		commands:     commands,
		responses:    responses,
		entities:     make(map[string]*Entity),
		masterVolume: 1,
		rng:          rng,
		log:          logging.ForComponent("controller"),
	}
}

// Run drives the tick loop until a Quit command is received (spec
// §4.3 "Tick loop"). It blocks the calling goroutine.
func (c *Controller) Run() {
	lastUpdate := time.Now()

	for {
		if c.pollOnce() {
			c.log.Info("controller stopped")
			return
		}

		now := time.Now()
		deltaMS := uint64(now.Sub(lastUpdate).Milliseconds())
		lastUpdate = now

		for _, e := range c.entities {
			if e.IsPreview || (c.playing && e.Sound.Enabled) {
				e.Update(c.backend, deltaMS)
			}
		}

		c.stepFade()
	}
}

// pollOnce waits up to commandPollInterval for a command and
// dispatches at most one. It returns true iff Quit was received.
func (c *Controller) pollOnce() bool {
	select {
	case cmd := <-c.commands:
		if _, ok := cmd.(QuitCommand); ok {
			return true
		}
		c.dispatch(cmd)
		return false
	case <-time.After(commandPollInterval):
		return false
	}
}

func (c *Controller) reply(r Response) {
	c.responses <- r
}

func (c *Controller) dispatch(cmd Command) {
	switch v := cmd.(type) {
	case PlayCommand:
		c.handlePlay()
	case PauseCommand:
		c.handlePause()
	case PreviewSoundCommand:
		c.handlePreviewSound(v.Sound)
	case LoadThemeCommand:
		c.handleLoadTheme(v.Theme)
	case TriggerCommand:
		c.handleTrigger(v.Sound)
	case GetStatusCommand:
		c.handleGetStatus()
	case GetSoundLibraryCommand:
		c.handleGetSoundLibrary()
	case SetVolumeCommand:
		c.handleSetVolume(v.Value)
	case GetDriverListCommand:
		c.handleGetDriverList()
	case GetDriverCommand:
		c.handleGetDriver()
	case SetDriverCommand:
		c.handleSetDriver(v.ID)
	default:
		c.log.Warn("unknown command type received")
		c.reply(ErrorResponse{Message: "unknown command"})
	}
}

func (c *Controller) handlePause() {
	if !c.themeLoaded {
		c.log.Debug("no theme loaded, not pausing")
		c.reply(ErrorResponse{Message: "No theme loaded!"})
		return
	}
	for _, e := range c.entities {
		if e.IsInState(Playing) {
			e.Pause()
		}
	}
	c.playing = false
	c.reply(SuccessResponse{})
	c.log.Info("paused")
}

func (c *Controller) handlePlay() {
	if !c.themeLoaded {
		c.log.Debug("no theme loaded, not playing")
		c.reply(ErrorResponse{Message: "No theme loaded!"})
		return
	}
	for _, e := range c.entities {
		if e.IsInState(Playing) {
			e.Resume(c.backend)
		}
	}
	c.playing = true
	c.reply(SuccessResponse{})
	c.log.Info("playing")
}

func (c *Controller) handlePreviewSound(name string) {
	e, ok := c.entities[name]
	if !ok {
		c.log.Debug("preview requested for unknown sound", "sound", name)
		c.reply(ErrorResponse{Message: "No such sound '" + name + "'"})
		return
	}
	e.IsPreview = true
	e.Params.State = Preview
	c.reply(SuccessResponse{})
	c.log.Info("previewing sound", "sound", name)
}

func (c *Controller) handleLoadTheme(th *theme.Theme) {
	next := make(map[string]*Entity, len(th.Sounds))

	for _, sound := range th.Sounds {
		id, ok := c.library.SampleIDByPath(sound.File)
		if !ok {
			c.reply(ErrorResponse{Message: "sample not found: " + sound.File})
			return
		}
		path, err := c.library.FullPathOfSample(id)
		if err != nil {
			c.reply(ErrorResponse{Message: err.Error()})
			return
		}

		handle, err := c.backend.LoadFile(path)
		if err != nil {
			c.reply(ErrorResponse{Message: "failed to load " + sound.File + ": " + err.Error()})
			return
		}

		next[sound.Name] = NewEntity(sound, handle, c.rng)
	}

	name := th.Name
	c.pendingNext = next
	c.themeName = &name
	c.themeLoaded = true
	c.reply(SuccessResponse{})
	c.log.Info("theme loaded", "theme", th.Name, "sounds", len(th.Sounds))
}

func (c *Controller) handleTrigger(name string) {
	e, ok := c.entities[name]
	if !ok {
		c.log.Warn("trigger for unknown sound", "sound", name)
		c.reply(ErrorResponse{Message: "Unknown sound '" + name + "'"})
		return
	}
	e.IsTriggered = !e.IsTriggered
	c.reply(SuccessResponse{})
}

func (c *Controller) handleGetStatus() {
	var playingNames []string
	nextPlay := make(map[string]uint64)
	var previewing []string

	for name, e := range c.entities {
		if e.IsInState(Playing) {
			playingNames = append(playingNames, name)
		}
		if e.IsInState(WaitingForStart) {
			nextPlay[name] = uint64(e.Params.NextPlay.Seconds())
		}
		if e.IsPreview {
			previewing = append(previewing, name)
		}
	}

	c.reply(StatusResponse{
		Playing:           c.playing,
		ThemeLoaded:       c.themeLoaded,
		ThemeName:         c.themeName,
		SoundsPlaying:     playingNames,
		SoundsPlayingNext: nextPlay,
		Previewing:        previewing,
	})
}

func (c *Controller) handleGetSoundLibrary() {
	samples, err := c.library.Samples()
	if err != nil {
		c.reply(ErrorResponse{Message: err.Error()})
		return
	}
	out := make([]LibrarySample, len(samples))
	for i, s := range samples {
		out[i] = LibrarySample{Path: s.Path, Tags: s.Tags}
	}
	c.reply(SoundLibraryResponse{Samples: out})
}

func (c *Controller) handleSetVolume(v float32) {
	c.masterVolume = v
	c.backend.MasterVolume(v)
	c.reply(SuccessResponse{})
}

func (c *Controller) handleGetDriverList() {
	devices := c.backend.OutputDevices()
	drivers := make(map[int]string, len(devices))
	for _, d := range devices {
		drivers[d.ID] = d.Name
	}
	c.reply(DriverListResponse{Drivers: drivers})
}

func (c *Controller) handleGetDriver() {
	c.reply(DriverResponse{ID: c.backend.CurrentOutputDevice()})
}

func (c *Controller) handleSetDriver(id int) {
	if err := c.backend.SetOutputDevice(id); err != nil {
		c.reply(ErrorResponse{Message: err.Error()})
		return
	}
	c.reply(SuccessResponse{})
}

// stepFade advances the global cross-fade ramp by one tick (spec
// §4.3 "Cross-fade on theme change"). Granularity is intentionally
// coarse: ~10 ticks (≈500ms) in each direction.
func (c *Controller) stepFade() {
	if c.pendingNext == nil && !c.fadeActive {
		return
	}

	if !c.fadeActive {
		c.fadeActive = true
		c.fadeDir = fadeOut
		c.fadeVolume = c.masterVolume
	}

	switch c.fadeDir {
	case fadeOut:
		c.fadeVolume -= fadeStep
		if c.fadeVolume <= 0 {
			c.fadeVolume = 0
			c.fadeDir = fadeIn

			for _, e := range c.entities {
				if err := e.Handle.Stop(c.backend); err != nil {
					c.log.Warn("stop during crossfade failed", "sound", e.Sound.Name, "error", err)
				}
			}
			c.entities = c.pendingNext
			c.pendingNext = nil
		}
	case fadeIn:
		c.fadeVolume += fadeStep
		if c.fadeVolume >= c.masterVolume {
			c.fadeActive = false
		}
	}

	c.backend.MasterVolume(c.fadeVolume)
}
