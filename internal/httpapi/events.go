package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	eventBuffer       = 64
	eventKeepAlive    = 15 * time.Second
	eventStreamHeader = "text/event-stream"
)

// handleEvents streams workflow events as server-sent events until the client
// disconnects.
func (s *Server) handleEvents(c echo.Context) error {
	events, unsubscribe := s.deps.Runner.Hub().Subscribe(eventBuffer)
	defer unsubscribe()

	res := c.Response()
	rc := http.NewResponseController(res.Writer)
	// The stream outlives the server write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug().Err(err).Msg("clear event stream write deadline")
	}

	header := res.Header()
	header.Set(echo.HeaderContentType, eventStreamHeader)
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ticker := time.NewTicker(eventKeepAlive)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": keep-alive\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error().Err(err).Msg("encode workflow event")
				continue
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", ev.Type, payload); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
