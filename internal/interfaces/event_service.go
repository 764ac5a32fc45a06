package interfaces

import "context"

// EventType represents the typed session events published by the viewer and
// read-aloud engine. These replace ad hoc cross-component notification with
// an explicit pub/sub scoped to a document session.
type EventType string

const (
	EventViewerModeChanged  EventType = "viewer_mode_changed"
	EventTextMapReady       EventType = "textmap_ready"
	EventSelectionCaptured  EventType = "selection_captured"
	EventAnnotationCreated  EventType = "annotation_created"
	EventAnnotationDeleted  EventType = "annotation_deleted"
	EventHighlightAdvanced  EventType = "highlight_advanced"
	EventReadAloudStarted   EventType = "readaloud_started"
	EventReadAloudStopped   EventType = "readaloud_stopped"
	EventSessionClosed      EventType = "session_closed"
)

// Event carries a typed payload for one document session. SessionID is empty
// for application-wide events.
type Event struct {
	Type      EventType
	SessionID string
	Payload   interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// Subscription identifies a registered handler so it can be removed again
// when a viewer session closes.
type Subscription int64

// EventService is a typed publish/subscribe bus
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) Subscription
	Unsubscribe(sub Subscription)
	Publish(ctx context.Context, event Event)
}
