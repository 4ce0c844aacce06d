// Package facade implements the thin HTTP surface described in spec
// §6: it converts requests into engine.Command values, waits for the
// matching engine.Response, and re-serializes that into JSON. No
// scheduling decision is made in this package. Grounded on the
// teacher's internal/api/v2/control.go (the controlChan send + echo
// route registration idiom), generalized from a one-way string signal
// to a full request/response round-trip.
package facade

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sinfonia-audio/sinfonia/internal/engine"
	"github.com/sinfonia-audio/sinfonia/internal/logging"
	"github.com/sinfonia-audio/sinfonia/internal/theme"
)

// Server owns the echo instance and the single command/response
// round-trip lock spec §5 requires ("the façade takes a process-wide
// lock around the (send command, receive response) pair").
type Server struct {
	echo   *echo.Echo
	logger *slog.Logger

	commands  chan<- engine.Command
	responses <-chan engine.Response

	roundTrip sync.Mutex
	token     string
}

// NewServer wires an echo instance around the given command/response
// channels (the same pair engine.Controller was constructed with) and
// an access token required on every request but OPTIONS (spec §6
// "Auth"). An empty accessToken turns the token check off.
func NewServer(commands chan<- engine.Command, responses <-chan engine.Response, accessToken string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		logger:    logging.ForComponent("facade"),
		commands:  commands,
		responses: responses,
		token:     accessToken,
	}

	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(s.authMiddleware)

	s.registerRoutes()
	return s
}

// authMiddleware enforces the bearer token contract from spec §6:
// OPTIONS bypasses auth; every other request must carry a matching
// `Authorization: Bearer <token>` header. When the server was built
// with an empty token, no request is checked.
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Method == http.MethodOptions {
			return next(c)
		}
		if s.token == "" {
			return next(c)
		}
		header := c.Request().Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) || strings.TrimPrefix(header, prefix) != s.token {
			return c.JSON(http.StatusForbidden, map[string]string{"message": "invalid or missing access token"})
		}
		return next(c)
	}
}

func (s *Server) registerRoutes() {
	s.echo.POST("/pause", s.handlePause)
	s.echo.POST("/play", s.handlePlay)
	s.echo.POST("/preview", s.handlePreview)
	s.echo.POST("/theme", s.handleLoadTheme)
	s.echo.POST("/trigger", s.handleTrigger)
	s.echo.GET("/status", s.handleGetStatus)
	s.echo.GET("/library", s.handleGetLibrary)
	s.echo.POST("/volume", s.handleSetVolume)
	s.echo.GET("/driver", s.handleGetDriver)
	s.echo.GET("/driverlist", s.handleGetDriverList)
	s.echo.POST("/driver", s.handleSetDriver)
	s.echo.GET("/status/stream", s.handleStatusStream)
}

// send performs the locked (send command, receive response) round
// trip spec §5 mandates, so concurrent requests never cross-match
// replies.
func (s *Server) send(cmd engine.Command) engine.Response {
	s.roundTrip.Lock()
	defer s.roundTrip.Unlock()

	s.commands <- cmd
	return <-s.responses
}

// writeResponse maps an engine.Response onto the HTTP contract from
// spec §7: ErrorResponse becomes 400 {"message": ...}; every other
// variant is serialized as-is with 200. An unrecognized response
// variant is a ProtocolError per spec §7 — it indicates a programming
// bug, not a runtime condition, so it panics rather than silently
// succeeding.
func (s *Server) writeResponse(c echo.Context, resp engine.Response) error {
	switch r := resp.(type) {
	case engine.SuccessResponse:
		return c.JSON(http.StatusOK, struct{}{})
	case engine.ErrorResponse:
		return c.JSON(http.StatusBadRequest, map[string]string{"message": r.Message})
	case engine.StatusResponse:
		return c.JSON(http.StatusOK, r)
	case engine.SoundLibraryResponse:
		return c.JSON(http.StatusOK, r)
	case engine.DriverListResponse:
		return c.JSON(http.StatusOK, map[string]map[int]string{"drivers": r.Drivers})
	case engine.DriverResponse:
		return c.JSON(http.StatusOK, map[string]int{"id": r.ID})
	default:
		panic("facade: unrecognized response variant from controller")
	}
}

func (s *Server) handlePause(c echo.Context) error {
	return s.writeResponse(c, s.send(engine.PauseCommand{}))
}

func (s *Server) handlePlay(c echo.Context) error {
	return s.writeResponse(c, s.send(engine.PlayCommand{}))
}

func (s *Server) handlePreview(c echo.Context) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request body"})
	}
	return s.writeResponse(c, s.send(engine.PreviewSoundCommand{Sound: body.Name}))
}

func (s *Server) handleLoadTheme(c echo.Context) error {
	reqID := uuid.NewString()

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		s.logger.Warn("reading theme body failed", "request_id", reqID, "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "failed to read request body"})
	}

	th, err := theme.Parse(raw)
	if err != nil {
		s.logger.Info("theme parse rejected", "request_id", reqID, "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"message": err.Error()})
	}

	return s.writeResponse(c, s.send(engine.LoadThemeCommand{Theme: th}))
}

func (s *Server) handleTrigger(c echo.Context) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request body"})
	}
	return s.writeResponse(c, s.send(engine.TriggerCommand{Sound: body.Name}))
}

func (s *Server) handleGetStatus(c echo.Context) error {
	return s.writeResponse(c, s.send(engine.GetStatusCommand{}))
}

func (s *Server) handleGetLibrary(c echo.Context) error {
	return s.writeResponse(c, s.send(engine.GetSoundLibraryCommand{}))
}

func (s *Server) handleSetVolume(c echo.Context) error {
	var body struct {
		Value float32 `json:"value"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request body"})
	}
	return s.writeResponse(c, s.send(engine.SetVolumeCommand{Value: body.Value}))
}

func (s *Server) handleGetDriver(c echo.Context) error {
	return s.writeResponse(c, s.send(engine.GetDriverCommand{}))
}

func (s *Server) handleGetDriverList(c echo.Context) error {
	return s.writeResponse(c, s.send(engine.GetDriverListCommand{}))
}

func (s *Server) handleSetDriver(c echo.Context) error {
	var body struct {
		ID int `json:"id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request body"})
	}
	return s.writeResponse(c, s.send(engine.SetDriverCommand{ID: body.ID}))
}

// Start blocks serving on addr until the server is shut down.
func (s *Server) Start(addr string) error {
	s.logger.Info("facade listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
