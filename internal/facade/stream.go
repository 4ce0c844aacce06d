package facade

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sinfonia-audio/sinfonia/internal/engine"
)

// statusStreamInterval is how often a connected client receives a
// fresh GetStatus snapshot — a supplemental live view over the
// polling GET /status endpoint (SPEC_FULL.md §3).
const statusStreamInterval = 500 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStatusStream upgrades to a websocket and pushes a JSON
// StatusResponse every statusStreamInterval until the client
// disconnects or the connection errors.
func (s *Server) handleStatusStream(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("status stream upgrade failed", "error", err)
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(statusStreamInterval)
	defer ticker.Stop()

	for range ticker.C {
		resp := s.send(engine.GetStatusCommand{})
		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Debug("status stream client disconnected", "error", err)
			return nil
		}
	}
	return nil
}
