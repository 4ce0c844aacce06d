package facade

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinfonia-audio/sinfonia/internal/engine"
)

// newTestServer wires a Server around channels driven by a handler
// function the test controls directly, standing in for
// engine.Controller without spinning up the real tick loop.
func newTestServer(t *testing.T, token string, handle func(engine.Command) engine.Response) (*Server, func()) {
	t.Helper()
	cmds := make(chan engine.Command)
	resps := make(chan engine.Response)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for cmd := range cmds {
			resps <- handle(cmd)
		}
	}()

	s := NewServer(cmds, resps, token)
	return s, func() { close(cmds); <-done }
}

func doRequest(s *Server, method, path string, body []byte, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestFacade_Pause_Success(t *testing.T) {
	s, stop := newTestServer(t, "", func(cmd engine.Command) engine.Response {
		assert.IsType(t, engine.PauseCommand{}, cmd)
		return engine.SuccessResponse{}
	})
	defer stop()

	rec := doRequest(s, http.MethodPost, "/pause", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFacade_Pause_ErrorMapsTo400(t *testing.T) {
	s, stop := newTestServer(t, "", func(cmd engine.Command) engine.Response {
		return engine.ErrorResponse{Message: "No theme loaded!"}
	})
	defer stop()

	rec := doRequest(s, http.MethodPost, "/pause", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "No theme loaded!", body["message"])
}

func TestFacade_MissingToken_Returns403(t *testing.T) {
	s, stop := newTestServer(t, "secret", func(cmd engine.Command) engine.Response {
		t.Fatal("handler should not be reached without a valid token")
		return nil
	})
	defer stop()

	rec := doRequest(s, http.MethodPost, "/pause", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFacade_WrongToken_Returns403(t *testing.T) {
	s, stop := newTestServer(t, "secret", func(cmd engine.Command) engine.Response {
		t.Fatal("handler should not be reached with a wrong token")
		return nil
	})
	defer stop()

	rec := doRequest(s, http.MethodPost, "/pause", nil, "wrong")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFacade_CorrectToken_Passes(t *testing.T) {
	s, stop := newTestServer(t, "secret", func(cmd engine.Command) engine.Response {
		return engine.SuccessResponse{}
	})
	defer stop()

	rec := doRequest(s, http.MethodPost, "/pause", nil, "secret")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFacade_Preview_ForwardsNameFromBody(t *testing.T) {
	var gotSound string
	s, stop := newTestServer(t, "", func(cmd engine.Command) engine.Response {
		pc, ok := cmd.(engine.PreviewSoundCommand)
		require.True(t, ok)
		gotSound = pc.Sound
		return engine.SuccessResponse{}
	})
	defer stop()

	rec := doRequest(s, http.MethodPost, "/preview", []byte(`{"name":"rain"}`), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rain", gotSound)
}

func TestFacade_Trigger_ForwardsNameFromBody(t *testing.T) {
	var gotSound string
	s, stop := newTestServer(t, "", func(cmd engine.Command) engine.Response {
		tc, ok := cmd.(engine.TriggerCommand)
		require.True(t, ok)
		gotSound = tc.Sound
		return engine.SuccessResponse{}
	})
	defer stop()

	rec := doRequest(s, http.MethodPost, "/trigger", []byte(`{"name":"bell"}`), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bell", gotSound)
}

func TestFacade_LoadTheme_InvalidBody_Returns400(t *testing.T) {
	s, stop := newTestServer(t, "", func(cmd engine.Command) engine.Response {
		t.Fatal("handler should not be reached on a theme parse failure")
		return nil
	})
	defer stop()

	rec := doRequest(s, http.MethodPost, "/theme", []byte(`not json`), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFacade_LoadTheme_ValidBody_ForwardsParsedTheme(t *testing.T) {
	var gotName string
	s, stop := newTestServer(t, "", func(cmd engine.Command) engine.Response {
		lc, ok := cmd.(engine.LoadThemeCommand)
		require.True(t, ok)
		gotName = lc.Theme.Name
		return engine.SuccessResponse{}
	})
	defer stop()

	body := []byte(`{"name":"forest","sounds":[{"name":"rain","file":"rain.wav","volume":[0.5,0.5]}]}`)
	rec := doRequest(s, http.MethodPost, "/theme", body, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "forest", gotName)
}

func TestFacade_Status_ReturnsStatusJSON(t *testing.T) {
	name := "forest"
	s, stop := newTestServer(t, "", func(cmd engine.Command) engine.Response {
		return engine.StatusResponse{Playing: true, ThemeLoaded: true, ThemeName: &name}
	})
	defer stop()

	rec := doRequest(s, http.MethodGet, "/status", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var status engine.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Playing)
	require.NotNil(t, status.ThemeName)
	assert.Equal(t, "forest", *status.ThemeName)
}

func TestFacade_DriverList_ReturnsDriversMap(t *testing.T) {
	s, stop := newTestServer(t, "", func(cmd engine.Command) engine.Response {
		return engine.DriverListResponse{Drivers: map[int]string{0: "default"}}
	})
	defer stop()

	rec := doRequest(s, http.MethodGet, "/driverlist", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Drivers map[string]string `json:"drivers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "default", body.Drivers["0"])
}

func TestFacade_SetVolume_ForwardsValue(t *testing.T) {
	var gotValue float32
	s, stop := newTestServer(t, "", func(cmd engine.Command) engine.Response {
		vc, ok := cmd.(engine.SetVolumeCommand)
		require.True(t, ok)
		gotValue = vc.Value
		return engine.SuccessResponse{}
	})
	defer stop()

	rec := doRequest(s, http.MethodPost, "/volume", []byte(`{"value":0.25}`), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float32(0.25), gotValue)
}

func TestFacade_SetDriver_ForwardsID(t *testing.T) {
	var gotID int
	s, stop := newTestServer(t, "", func(cmd engine.Command) engine.Response {
		sc, ok := cmd.(engine.SetDriverCommand)
		require.True(t, ok)
		gotID = sc.ID
		return engine.SuccessResponse{}
	})
	defer stop()

	rec := doRequest(s, http.MethodPost, "/driver", []byte(`{"id":3}`), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, gotID)
}

func TestFacade_OPTIONS_BypassesAuth(t *testing.T) {
	s, stop := newTestServer(t, "secret", func(cmd engine.Command) engine.Response {
		return engine.SuccessResponse{}
	})
	defer stop()

	rec := doRequest(s, http.MethodOptions, "/pause", nil, "")
	assert.NotEqual(t, http.StatusForbidden, rec.Code)
}
