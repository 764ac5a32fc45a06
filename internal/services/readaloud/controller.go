package readaloud

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/interfaces"
	"github.com/ternarybob/marginalia/internal/models"
)

// HighlightFrame is the payload published on every word-boundary event. Area
// is nil when the spoken word matched nothing; the overlay then simply keeps
// showing whatever the previous frame produced.
type HighlightFrame struct {
	Word     string                 `json:"word"`
	Position models.ReadingPosition `json:"position"`
	Area     *models.HighlightArea  `json:"area,omitempty"`
}

// Controller drives read-aloud for one viewer session: it feeds the document
// text to the synthesizer, consumes the word-boundary stream, advances the
// reading position, and publishes highlight frames. The boundary stream is
// assumed monotonic; pause/resume does not attempt to reconcile missed words.
type Controller struct {
	sessionID string
	textMap   *models.PageTextMap
	mapper    *Mapper
	synth     interfaces.SpeechSynthesizer
	events    interfaces.EventService
	logger    arbor.ILogger

	mu          sync.Mutex
	position    models.ReadingPosition
	currentPage int // 0-based visible page
	playing     bool
	stopSpeak   context.CancelFunc
}

// NewController creates a read-aloud controller for one session
func NewController(sessionID string, textMap *models.PageTextMap, mapper *Mapper, synth interfaces.SpeechSynthesizer, events interfaces.EventService, logger arbor.ILogger) *Controller {
	return &Controller{
		sessionID: sessionID,
		textMap:   textMap,
		mapper:    mapper,
		synth:     synth,
		events:    events,
		logger:    logger,
	}
}

// Play starts (or restarts) read-aloud from the current visible page. A
// synthesizer failure is surfaced as a stopped playback state, never a crash.
func (c *Controller) Play(ctx context.Context) error {
	c.mu.Lock()
	if c.playing {
		c.mu.Unlock()
		c.synth.Resume()
		return nil
	}

	startPage := c.currentPage
	text := c.assembleText(startPage)
	if strings.TrimSpace(text) == "" {
		c.mu.Unlock()
		return fmt.Errorf("no text available for read-aloud")
	}

	speakCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.stopSpeak = cancel
	c.playing = true
	c.position = models.ReadingPosition{PageNumber: startPage + 1}
	c.mu.Unlock()

	boundaries, err := c.synth.Speak(speakCtx, text)
	if err != nil {
		c.markStopped(ctx)
		return fmt.Errorf("speech synthesis failed: %w", err)
	}

	c.events.Publish(ctx, interfaces.Event{
		Type:      interfaces.EventReadAloudStarted,
		SessionID: c.sessionID,
	})

	go func() {
		for boundary := range boundaries {
			c.HandleBoundary(speakCtx, boundary)
		}
		c.markStopped(context.WithoutCancel(speakCtx))
	}()

	return nil
}

// Pause suspends playback; the highlight stays on the last spoken word
func (c *Controller) Pause() {
	c.synth.Pause()
}

// Stop cancels playback immediately and resets the reading position to zero
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	stop := c.stopSpeak
	c.stopSpeak = nil
	c.mu.Unlock()

	c.synth.Cancel()
	if stop != nil {
		stop()
	}
	c.markStopped(ctx)
}

// HandleBoundary processes one word-boundary event, whether produced by the
// built-in synthesizer or posted by an external speech engine. It advances
// the reading position and publishes a highlight frame.
func (c *Controller) HandleBoundary(ctx context.Context, boundary interfaces.WordBoundary) {
	c.mu.Lock()
	currentPage := c.currentPage

	area, found := c.mapper.MapWords([]string{boundary.Word}, currentPage, c.textMap)

	c.position.SentenceIndex = boundary.SentenceIndex
	c.position.WordIndex = boundary.WordIndex
	c.position.CharIndex = boundary.CharIndex
	if found {
		// Follow the reading onto whatever page the match landed on
		c.currentPage = area.PageIndex
		c.position.PageNumber = area.PageIndex + 1
	}
	frame := HighlightFrame{
		Word:     boundary.Word,
		Position: c.position,
	}
	if found {
		areaCopy := area
		frame.Area = &areaCopy
	}
	c.mu.Unlock()

	c.events.Publish(ctx, interfaces.Event{
		Type:      interfaces.EventHighlightAdvanced,
		SessionID: c.sessionID,
		Payload:   frame,
	})
}

// SetCurrentPage updates the visible page used for match precedence
func (c *Controller) SetCurrentPage(pageIndex int) {
	c.mu.Lock()
	if pageIndex >= 0 {
		c.currentPage = pageIndex
	}
	c.mu.Unlock()
}

// Position returns a snapshot of the reading position
func (c *Controller) Position() models.ReadingPosition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// Playing reports whether an utterance is active
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// markStopped transitions to the stopped state exactly once per utterance
func (c *Controller) markStopped(ctx context.Context) {
	c.mu.Lock()
	wasPlaying := c.playing
	c.playing = false
	c.position = models.ReadingPosition{}
	c.mu.Unlock()

	if wasPlaying {
		c.events.Publish(ctx, interfaces.Event{
			Type:      interfaces.EventReadAloudStopped,
			SessionID: c.sessionID,
		})
	}
}

// assembleText flattens the text map into spoken text, starting at the given
// page and continuing in reading order to the end of the document.
func (c *Controller) assembleText(startPage int) string {
	var builder strings.Builder
	for _, pageIndex := range sortedPageIndexes(c.textMap) {
		if pageIndex < startPage {
			continue
		}
		for _, run := range c.textMap.RunsForPage(pageIndex) {
			if builder.Len() > 0 {
				builder.WriteString(" ")
			}
			builder.WriteString(strings.TrimSpace(run.Text))
		}
	}
	return builder.String()
}
