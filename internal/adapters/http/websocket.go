package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/poonyc/internal/core/usecases"
	"github.com/samirrijal/poonyc/internal/pkg/metrics"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteWait    = 10 * time.Second
	sessionLocal   = "session"
)

// SessionStreamGuard rejects the upgrade unless :id names an open session.
func SessionStreamGuard(deps *Dependencies) fiber.Handler {
	return sessionHandler(deps, func(c *fiber.Ctx, s *usecases.ExploreSession) error {
		c.Locals(sessionLocal, s)
		return c.Next()
	})
}

// SessionStreamHandler pushes the session's view to the client as JSON after
// every change, starting with the current one. The stream ends when the
// client disconnects or the session is closed.
func SessionStreamHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		s, ok := c.Locals(sessionLocal).(*usecases.ExploreSession)
		if !ok {
			return
		}
		logger := slog.Default().With("session_id", s.ID(), "remote", c.RemoteAddr().String())
		logger.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		views, cancel := s.Controller().Subscribe()
		defer cancel()

		// The client sends nothing we act on; reading only detects the close.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()

		for {
			select {
			case view, open := <-views:
				if !open {
					_ = c.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
						time.Now().Add(wsWriteWait))
					logger.Info("ws stream ended", "reason", "session closed")
					return
				}
				_ = c.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := c.WriteJSON(view); err != nil {
					logger.Warn("ws write failed", "error", err)
					return
				}
			case <-ping.C:
				if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			case <-gone:
				logger.Info("ws client disconnected")
				return
			}
		}
	}
}
