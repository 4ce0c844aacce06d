package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinfonia-audio/sinfonia/internal/audiobackend"
	"github.com/sinfonia-audio/sinfonia/internal/soundlib"
	"github.com/sinfonia-audio/sinfonia/internal/theme"
)

// controllerBackend is a configurable audiobackend.Backend double:
// LoadFile hands out one fresh fakeHandle per call, and every other
// method just records what it was asked to do.
type controllerBackend struct {
	loaded       []string
	loadErr      error
	devices      []audiobackend.OutputDevice
	currentID    int
	setDeviceErr error
	masterGains  []float32
}

func (b *controllerBackend) LoadFile(path string) (audiobackend.EntityHandle, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	b.loaded = append(b.loaded, path)
	return &fakeHandle{}, nil
}
func (b *controllerBackend) MasterVolume(v float32) { b.masterGains = append(b.masterGains, v) }
func (b *controllerBackend) OutputDevices() []audiobackend.OutputDevice { return b.devices }
func (b *controllerBackend) CurrentOutputDevice() int                  { return b.currentID }
func (b *controllerBackend) SetOutputDevice(id int) error {
	if b.setDeviceErr != nil {
		return b.setDeviceErr
	}
	b.currentID = id
	return nil
}
func (b *controllerBackend) Close() error { return nil }

// fakeLibrary is an in-memory soundlib.Library double.
type fakeLibrary struct {
	byPath  map[string]int64
	byID    map[int64]string
	samples []soundlib.Sample
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{byPath: make(map[string]int64), byID: make(map[int64]string)}
}

func (l *fakeLibrary) add(id int64, path string, tags ...string) {
	l.byPath[path] = id
	l.byID[id] = path
	l.samples = append(l.samples, soundlib.Sample{ID: id, Path: path, Tags: tags})
}

func (l *fakeLibrary) Open() error { return nil }
func (l *fakeLibrary) SampleIDByPath(relPath string) (int64, bool) {
	id, ok := l.byPath[relPath]
	return id, ok
}
func (l *fakeLibrary) FullPathOfSample(id int64) (string, error) {
	p, ok := l.byID[id]
	if !ok {
		return "", assertErr{"sample not found"}
	}
	return "/samples/" + p, nil
}
func (l *fakeLibrary) Samples() ([]soundlib.Sample, error) { return l.samples, nil }
func (l *fakeLibrary) Close() error                        { return nil }

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

func newTestController(backend *controllerBackend, lib *fakeLibrary) (*Controller, chan Command, chan Response) {
	cmds := make(chan Command, 4)
	resps := make(chan Response, 4)
	c := NewController(backend, lib, cmds, resps, NewRand(7, 7))
	return c, cmds, resps
}

func TestController_LoadTheme_MissingSample_ReturnsError(t *testing.T) {
	backend := &controllerBackend{}
	lib := newFakeLibrary()
	c, _, resps := newTestController(backend, lib)

	th := &theme.Theme{Name: "forest", Sounds: []theme.Sound{baseSound("rain")}}
	c.handleLoadTheme(th)

	resp := <-resps
	errResp, ok := resp.(ErrorResponse)
	require.True(t, ok)
	assert.Contains(t, errResp.Message, "rain.wav")
	assert.False(t, c.themeLoaded)
}

func TestController_LoadTheme_Success_QueuesPendingEntitiesAndFade(t *testing.T) {
	backend := &controllerBackend{}
	lib := newFakeLibrary()
	lib.add(1, "rain.wav")
	c, _, resps := newTestController(backend, lib)

	th := &theme.Theme{Name: "forest", Sounds: []theme.Sound{baseSound("rain")}}
	c.handleLoadTheme(th)

	resp := <-resps
	_, ok := resp.(SuccessResponse)
	require.True(t, ok)
	assert.True(t, c.themeLoaded)
	require.NotNil(t, c.themeName)
	assert.Equal(t, "forest", *c.themeName)
	require.Contains(t, c.pendingNext, "rain")
	assert.Equal(t, []string{"/samples/rain.wav"}, backend.loaded)
}

func TestController_StepFade_SwapsEntitiesAfterFadingOut(t *testing.T) {
	backend := &controllerBackend{}
	lib := newFakeLibrary()
	lib.add(1, "rain.wav")
	c, _, resps := newTestController(backend, lib)
	c.masterVolume = 1

	th := &theme.Theme{Name: "forest", Sounds: []theme.Sound{baseSound("rain")}}
	c.handleLoadTheme(th)
	<-resps

	oldEntity := NewEntity(baseSound("old"), &fakeHandle{playing: true}, NewRand(1, 1))
	c.entities = map[string]*Entity{"old": oldEntity}

	for i := 0; i < 20 && c.pendingNext != nil; i++ {
		c.stepFade()
	}

	assert.Nil(t, c.pendingNext)
	assert.Contains(t, c.entities, "rain")
	assert.NotContains(t, c.entities, "old")
}

func TestController_Pause_NoThemeLoaded_Errors(t *testing.T) {
	backend := &controllerBackend{}
	lib := newFakeLibrary()
	c, _, resps := newTestController(backend, lib)

	c.handlePause()
	resp := <-resps
	_, ok := resp.(ErrorResponse)
	assert.True(t, ok)
}

func TestController_Trigger_TogglesIsTriggered(t *testing.T) {
	backend := &controllerBackend{}
	lib := newFakeLibrary()
	c, _, resps := newTestController(backend, lib)

	e := NewEntity(baseSound("bell"), &fakeHandle{}, NewRand(1, 1))
	c.entities["bell"] = e

	c.handleTrigger("bell")
	<-resps
	assert.True(t, e.IsTriggered)

	c.handleTrigger("bell")
	<-resps
	assert.False(t, e.IsTriggered)
}

func TestController_Trigger_UnknownSound_Errors(t *testing.T) {
	backend := &controllerBackend{}
	lib := newFakeLibrary()
	c, _, resps := newTestController(backend, lib)

	c.handleTrigger("ghost")
	resp := <-resps
	errResp, ok := resp.(ErrorResponse)
	require.True(t, ok)
	assert.Contains(t, errResp.Message, "ghost")
}

func TestController_GetStatus_ReflectsEntityStates(t *testing.T) {
	backend := &controllerBackend{}
	lib := newFakeLibrary()
	c, _, resps := newTestController(backend, lib)
	c.playing = true
	c.themeLoaded = true

	playingEntity := NewEntity(baseSound("rain"), &fakeHandle{}, NewRand(1, 1))
	playingEntity.Params.State = Playing
	c.entities["rain"] = playingEntity

	c.handleGetStatus()
	resp := <-resps
	status, ok := resp.(StatusResponse)
	require.True(t, ok)
	assert.True(t, status.Playing)
	assert.True(t, status.ThemeLoaded)
	assert.Contains(t, status.SoundsPlaying, "rain")
}

func TestController_SetVolume_UpdatesMasterAndBackend(t *testing.T) {
	backend := &controllerBackend{}
	lib := newFakeLibrary()
	c, _, resps := newTestController(backend, lib)

	c.handleSetVolume(0.3)
	<-resps
	assert.Equal(t, float32(0.3), c.masterVolume)
	assert.Equal(t, []float32{0.3}, backend.masterGains)
}

func TestController_GetDriverList_ReturnsBackendDevices(t *testing.T) {
	backend := &controllerBackend{devices: []audiobackend.OutputDevice{{ID: 0, Name: "default"}, {ID: 1, Name: "hdmi"}}}
	lib := newFakeLibrary()
	c, _, resps := newTestController(backend, lib)

	c.handleGetDriverList()
	resp := <-resps
	list, ok := resp.(DriverListResponse)
	require.True(t, ok)
	assert.Equal(t, "default", list.Drivers[0])
	assert.Equal(t, "hdmi", list.Drivers[1])
}

func TestController_SetDriver_PropagatesBackendError(t *testing.T) {
	backend := &controllerBackend{setDeviceErr: assertErr{"unsupported device"}}
	lib := newFakeLibrary()
	c, _, resps := newTestController(backend, lib)

	c.handleSetDriver(9)
	resp := <-resps
	errResp, ok := resp.(ErrorResponse)
	require.True(t, ok)
	assert.Equal(t, "unsupported device", errResp.Message)
}

func TestController_PollOnce_QuitStopsLoop(t *testing.T) {
	backend := &controllerBackend{}
	lib := newFakeLibrary()
	c, cmds, _ := newTestController(backend, lib)

	cmds <- QuitCommand{}
	assert.True(t, c.pollOnce())
}
