package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/interfaces"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// highlightThrottleInterval caps highlight-frame delivery per connection.
// Word boundaries can fire faster than a browser can repaint an overlay.
const highlightThrottleInterval = 50 * time.Millisecond

// streamedEvents is the set of session events forwarded to clients
var streamedEvents = []interfaces.EventType{
	interfaces.EventViewerModeChanged,
	interfaces.EventTextMapReady,
	interfaces.EventSelectionCaptured,
	interfaces.EventAnnotationCreated,
	interfaces.EventAnnotationDeleted,
	interfaces.EventHighlightAdvanced,
	interfaces.EventReadAloudStarted,
	interfaces.EventReadAloudStopped,
	interfaces.EventSessionClosed,
}

// WebSocketHandler streams one viewer session's typed events to the client
// over GET /ws?session=
type WebSocketHandler struct {
	events interfaces.EventService
	logger arbor.ILogger
}

func NewWebSocketHandler(events interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		events: events,
		logger: logger,
	}
}

type wsMessage struct {
	Type      interfaces.EventType `json:"type"`
	SessionID string               `json:"session_id,omitempty"`
	Payload   interface{}          `json:"payload,omitempty"`
}

// HandleWebSocket upgrades the connection and forwards the session's events
// until the client disconnects or the session closes.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		WriteError(w, http.StatusBadRequest, "session query parameter is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &wsClient{
		conn:              conn,
		sessionID:         sessionID,
		highlightThrottle: rate.NewLimiter(rate.Every(highlightThrottleInterval), 1),
	}

	var subs []interfaces.Subscription
	for _, eventType := range streamedEvents {
		subs = append(subs, h.events.Subscribe(eventType, client.forward))
	}

	h.logger.Debug().Str("session_id", sessionID).Msg("WebSocket client connected")

	// Read loop exists only to observe the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	for _, sub := range subs {
		h.events.Unsubscribe(sub)
	}
	conn.Close()
	h.logger.Debug().Str("session_id", sessionID).Msg("WebSocket client disconnected")
}

// wsClient serializes writes to one connection
type wsClient struct {
	conn              *websocket.Conn
	sessionID         string
	writeMu           sync.Mutex
	highlightThrottle *rate.Limiter
}

// forward relays one event to the client. Events for other sessions are
// dropped, and highlight frames beyond the throttle are skipped; the next
// frame supersedes them anyway.
func (c *wsClient) forward(ctx context.Context, event interfaces.Event) error {
	if event.SessionID != "" && event.SessionID != c.sessionID {
		return nil
	}
	if event.Type == interfaces.EventHighlightAdvanced && !c.highlightThrottle.Allow() {
		return nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(wsMessage{
		Type:      event.Type,
		SessionID: event.SessionID,
		Payload:   event.Payload,
	})
}
