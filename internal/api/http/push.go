package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/weatherboard/server/internal/broadcast"
	"github.com/weatherboard/server/internal/observability"
)

// newDataEvent is the zero-payload event pushed after each successful
// refresh. Clients react by re-issuing the /weather query; a viewer
// that connects between refreshes pulls current data itself.
const newDataEvent = "NewDataAvailable"

// RegisterPushChannel wires the viewer websocket endpoint.
func RegisterPushChannel(app *fiber.App, hub *broadcast.Hub, log *zap.Logger) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		id, signals := hub.Subscribe()
		observability.ConnectedViewers.Inc()
		log.Info("viewer connected",
			zap.String("id", id),
			zap.String("remote", conn.RemoteAddr().String()))

		defer func() {
			hub.Unsubscribe(id)
			observability.ConnectedViewers.Dec()
			log.Info("viewer disconnected", zap.String("id", id))
		}()

		// The read pump exists only to notice the peer going away.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, []byte(newDataEvent)); err != nil {
					return
				}
			}
		}
	}))
}
