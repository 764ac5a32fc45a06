package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/interfaces"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var received []interfaces.Event
	svc.Subscribe(interfaces.EventHighlightAdvanced, func(ctx context.Context, e interfaces.Event) error {
		received = append(received, e)
		return nil
	})

	svc.Publish(context.Background(), interfaces.Event{
		Type:      interfaces.EventHighlightAdvanced,
		SessionID: "sess_1",
	})

	assert.Len(t, received, 1)
	assert.Equal(t, "sess_1", received[0].SessionID)
}

func TestPublishSkipsOtherEventTypes(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	called := false
	svc.Subscribe(interfaces.EventSessionClosed, func(ctx context.Context, e interfaces.Event) error {
		called = true
		return nil
	})

	svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventHighlightAdvanced})
	assert.False(t, called)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	count := 0
	sub := svc.Subscribe(interfaces.EventHighlightAdvanced, func(ctx context.Context, e interfaces.Event) error {
		count++
		return nil
	})

	svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventHighlightAdvanced})
	svc.Unsubscribe(sub)
	svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventHighlightAdvanced})

	assert.Equal(t, 1, count)

	// Unsubscribing twice is harmless
	svc.Unsubscribe(sub)
}

func TestPublishSurvivesPanickingHandler(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	delivered := false
	svc.Subscribe(interfaces.EventHighlightAdvanced, func(ctx context.Context, e interfaces.Event) error {
		panic("boom")
	})
	svc.Subscribe(interfaces.EventHighlightAdvanced, func(ctx context.Context, e interfaces.Event) error {
		delivered = true
		return errors.New("also logged, not fatal")
	})

	assert.NotPanics(t, func() {
		svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventHighlightAdvanced})
	})
	assert.True(t, delivered)
}
