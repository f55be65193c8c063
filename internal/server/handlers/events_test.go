package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qtremors/tremors-music/internal/config"
	"github.com/qtremors/tremors-music/internal/events"
	"github.com/qtremors/tremors-music/internal/scanner"
)

func newEventsRouter(t *testing.T) (*gin.Engine, *events.Bus) {
	t.Helper()
	db := newTestDB(t)
	bus := events.NewBus()
	scans := scanner.NewManager(db, bus, config.Default().Scanner)

	r := gin.New()
	api := r.Group("/api")
	NewEventsFeed(bus, scans).RegisterRoutes(api)
	return r, bus
}

func TestRecentEvents(t *testing.T) {
	r, bus := newEventsRouter(t)

	w := doRequest(t, r, http.MethodGet, "/api/events/recent", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recent []events.Event
	decodeJSON(t, w, &recent)
	assert.Empty(t, recent)

	bus.Publish(events.NewSystemEvent(events.EventScanStarted, "Scan started", ""))

	w = doRequest(t, r, http.MethodGet, "/api/events/recent", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &recent)
	require.Len(t, recent, 1)
	assert.Equal(t, events.EventScanStarted, recent[0].Type)
}

func TestProgressSocketForwardsEvents(t *testing.T) {
	r, bus := newEventsRouter(t)

	server := httptest.NewServer(r)
	defer server.Close()

	wsURL := strings.Replace(server.URL, "http://", "ws://", 1) + "/api/library/scan/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	// Give the handler a moment to register its bus subscription.
	time.Sleep(100 * time.Millisecond)
	bus.Publish(events.NewSystemEvent(events.EventScanCompleted, "Library scan completed", ""))

	// The feed interleaves event messages with periodic progress
	// snapshots; read until the published event arrives.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg progressMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Kind == "event" {
			require.NotNil(t, msg.Event)
			assert.Equal(t, events.EventScanCompleted, msg.Event.Type)
			return
		}
		assert.Equal(t, "progress", msg.Kind)
		require.NotNil(t, msg.Progress)
	}
}
