package engine

import "github.com/sinfonia-audio/sinfonia/internal/theme"

// Command is the closed set of requests the façade can send down the
// command channel (spec §4.4). Each concrete type's name doubles as
// the variant tag; Controller.dispatch type-switches on it.
type Command interface {
	isCommand()
}

// QuitCommand stops the tick loop at the next poll boundary. No
// response is sent.
type QuitCommand struct{}

// PlayCommand resumes playback of the loaded theme.
type PlayCommand struct{}

// PauseCommand pauses every currently playing entity.
type PauseCommand struct{}

// PreviewSoundCommand plays one named sound once, bypassing its
// trigger-wait, regardless of its enabled/trigger state.
type PreviewSoundCommand struct {
	Sound string
}

// LoadThemeCommand requests a cross-faded switch to a new theme.
type LoadThemeCommand struct {
	Theme *theme.Theme
}

// TriggerCommand toggles IsTriggered on the named entity.
type TriggerCommand struct {
	Sound string
}

// GetStatusCommand requests a StatusResponse snapshot.
type GetStatusCommand struct{}

// GetSoundLibraryCommand requests the sample library contents.
type GetSoundLibraryCommand struct{}

// SetVolumeCommand sets the controller's master volume.
type SetVolumeCommand struct {
	Value float32
}

// GetDriverListCommand requests the backend's output device list.
type GetDriverListCommand struct{}

// GetDriverCommand requests the active output device id.
type GetDriverCommand struct{}

// SetDriverCommand switches the active output device.
type SetDriverCommand struct {
	ID int
}

func (QuitCommand) isCommand()            {}
func (PlayCommand) isCommand()             {}
func (PauseCommand) isCommand()            {}
func (PreviewSoundCommand) isCommand()     {}
func (LoadThemeCommand) isCommand()        {}
func (TriggerCommand) isCommand()          {}
func (GetStatusCommand) isCommand()        {}
func (GetSoundLibraryCommand) isCommand()  {}
func (SetVolumeCommand) isCommand()        {}
func (GetDriverListCommand) isCommand()    {}
func (GetDriverCommand) isCommand()        {}
func (SetDriverCommand) isCommand()        {}

// Response is the closed variant set sent back for every Command
// except Quit (spec §4.4: "Success | Error{message} | Status |
// SoundLibrary | DriverList | Driver").
type Response interface {
	isResponse()
}

// SuccessResponse acknowledges a command with no payload.
type SuccessResponse struct{}

// ErrorResponse reports a command failure; message is user-visible
// (spec §7, surfaced by the façade as HTTP 400 {"message": ...}).
type ErrorResponse struct {
	Message string
}

func (e ErrorResponse) Error() string { return e.Message }

// StatusResponse answers GetStatus.
type StatusResponse struct {
	Playing           bool
	ThemeLoaded       bool
	ThemeName         *string
	SoundsPlaying     []string
	SoundsPlayingNext map[string]uint64 // name -> seconds until next play
	Previewing        []string
}

// LibrarySample is one entry in a SoundLibraryResponse.
type LibrarySample struct {
	Path string
	Tags []string
}

// SoundLibraryResponse answers GetSoundLibrary.
type SoundLibraryResponse struct {
	Samples []LibrarySample
}

// DriverListResponse answers GetDriverList: device index -> name.
type DriverListResponse struct {
	Drivers map[int]string
}

// DriverResponse answers GetDriver with the active device id.
type DriverResponse struct {
	ID int
}

func (SuccessResponse) isResponse()      {}
func (ErrorResponse) isResponse()        {}
func (StatusResponse) isResponse()       {}
func (SoundLibraryResponse) isResponse() {}
func (DriverListResponse) isResponse()   {}
func (DriverResponse) isResponse()       {}
