package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/qtremors/tremors-music/internal/events"
	"github.com/qtremors/tremors-music/internal/logger"
	"github.com/qtremors/tremors-music/internal/scanner"
)

// EventsFeed pushes scan lifecycle events and progress snapshots to
// websocket clients, so UIs do not have to poll the status endpoint.
type EventsFeed struct {
	bus      *events.Bus
	scans    *scanner.Manager
	upgrader websocket.Upgrader
}

// NewEventsFeed creates the events handler group.
func NewEventsFeed(bus *events.Bus, scans *scanner.Manager) *EventsFeed {
	return &EventsFeed{
		bus:   bus,
		scans: scans,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers the event feed routes.
func (h *EventsFeed) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/events/recent", h.recent)
	api.GET("/library/scan/ws", h.progressSocket)
}

func (h *EventsFeed) recent(c *gin.Context) {
	c.JSON(http.StatusOK, h.bus.Recent())
}

type progressMessage struct {
	Kind     string            `json:"kind"`
	Event    *events.Event     `json:"event,omitempty"`
	Progress *scanner.Snapshot `json:"progress,omitempty"`
}

// progressSocket streams bus events as they happen plus a progress
// snapshot once a second while a scan is active.
func (h *EventsFeed) progressSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	subID, eventCh := h.bus.Subscribe()
	defer h.bus.Unsubscribe(subID)

	// Reader goroutine: its only job is to notice the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case event, open := <-eventCh:
			if !open {
				return
			}
			if err := conn.WriteJSON(progressMessage{Kind: "event", Event: &event}); err != nil {
				return
			}
		case <-ticker.C:
			snap := h.scans.Progress()
			if err := conn.WriteJSON(progressMessage{Kind: "progress", Progress: &snap}); err != nil {
				return
			}
		}
	}
}
