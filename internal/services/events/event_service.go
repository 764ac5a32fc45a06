package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/interfaces"
)

// Service implements EventService with a typed pub/sub pattern. Viewer
// sessions subscribe on open and unsubscribe on close, so handlers cannot
// leak across document opens.
type Service struct {
	subscribers map[interfaces.EventType]map[interfaces.Subscription]interfaces.EventHandler
	byID        map[interfaces.Subscription]interfaces.EventType
	nextID      atomic.Int64
	mu          sync.RWMutex
	logger      arbor.ILogger
}

// NewService creates a new event service
func NewService(logger arbor.ILogger) interfaces.EventService {
	return &Service{
		subscribers: make(map[interfaces.EventType]map[interfaces.Subscription]interfaces.EventHandler),
		byID:        make(map[interfaces.Subscription]interfaces.EventType),
		logger:      logger,
	}
}

// Subscribe registers a handler for an event type and returns a subscription
// token for later removal.
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) interfaces.Subscription {
	sub := interfaces.Subscription(s.nextID.Add(1))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribers[eventType] == nil {
		s.subscribers[eventType] = make(map[interfaces.Subscription]interfaces.EventHandler)
	}
	s.subscribers[eventType][sub] = handler
	s.byID[sub] = eventType

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("subscriber_count", len(s.subscribers[eventType])).
		Msg("Event handler subscribed")

	return sub
}

// Unsubscribe removes a previously registered handler. Unknown tokens are a
// no-op.
func (s *Service) Unsubscribe(sub interfaces.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eventType, ok := s.byID[sub]
	if !ok {
		return
	}
	delete(s.byID, sub)
	delete(s.subscribers[eventType], sub)

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Msg("Event handler unsubscribed")
}

// Publish delivers an event to all subscribers synchronously, in the caller's
// goroutine. Handler panics are recovered so a misbehaving subscriber cannot
// take down the publisher.
func (s *Service) Publish(ctx context.Context, event interfaces.Event) {
	s.mu.RLock()
	handlers := make([]interfaces.EventHandler, 0, len(s.subscribers[event.Type]))
	for _, h := range s.subscribers[event.Type] {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()

	for _, handler := range handlers {
		s.safeInvoke(ctx, handler, event)
	}
}

func (s *Service) safeInvoke(ctx context.Context, handler interfaces.EventHandler, event interfaces.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("event_type", string(event.Type)).
				Msg("PANIC in event handler - recovered")
		}
	}()

	if err := handler(ctx, event); err != nil {
		s.logger.Warn().
			Err(err).
			Str("event_type", string(event.Type)).
			Msg("Event handler returned error")
	}
}
