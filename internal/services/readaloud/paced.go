package readaloud

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/common"
	"github.com/ternarybob/marginalia/internal/interfaces"
)

// pauseProbe is how often a paused utterance re-checks for resume/cancel
const pauseProbe = 50 * time.Millisecond

// PacedSynthesizer is the built-in SpeechSynthesizer. It produces no audio;
// it emits word-boundary events at a fixed words-per-minute pace so the
// highlight engine can run without a platform speech API. Boundary events
// are emitted in spoken order (monotonic), matching what consumers assume.
type PacedSynthesizer struct {
	interval time.Duration
	logger   arbor.ILogger

	mu     sync.Mutex
	paused bool
	cancel chan struct{}
}

// NewPacedSynthesizer creates a synthesizer pacing words per the config
func NewPacedSynthesizer(config common.SpeechConfig, logger arbor.ILogger) *PacedSynthesizer {
	return &PacedSynthesizer{
		interval: time.Minute / time.Duration(config.WordsPerMinute),
		logger:   logger,
	}
}

// Speak starts a new utterance, cancelling any previous one. The returned
// channel closes when the utterance finishes or is cancelled.
func (s *PacedSynthesizer) Speak(ctx context.Context, text string) (<-chan interfaces.WordBoundary, error) {
	s.Cancel()

	s.mu.Lock()
	cancel := make(chan struct{})
	s.cancel = cancel
	s.paused = false
	s.mu.Unlock()

	boundaries := splitBoundaries(text)
	ch := make(chan interfaces.WordBoundary)

	go func() {
		defer close(ch)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for _, boundary := range boundaries {
			select {
			case <-ctx.Done():
				return
			case <-cancel:
				return
			case <-ticker.C:
			}

			for s.isPaused() {
				select {
				case <-ctx.Done():
					return
				case <-cancel:
					return
				case <-time.After(pauseProbe):
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-cancel:
				return
			case ch <- boundary:
			}
		}
	}()

	return ch, nil
}

// Pause suspends boundary emission without losing position
func (s *PacedSynthesizer) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume continues a paused utterance
func (s *PacedSynthesizer) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Cancel stops the current utterance immediately. Safe to call when idle.
func (s *PacedSynthesizer) Cancel() {
	s.mu.Lock()
	if s.cancel != nil {
		select {
		case <-s.cancel:
			// already closed
		default:
			close(s.cancel)
		}
		s.cancel = nil
	}
	s.mu.Unlock()
}

func (s *PacedSynthesizer) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// splitBoundaries turns text into word-boundary events with sentence, word
// and character indexes. Sentences end at '.', '!' or '?'.
func splitBoundaries(text string) []interfaces.WordBoundary {
	var boundaries []interfaces.WordBoundary

	sentenceIndex := 0
	wordIndex := 0
	offset := 0

	for _, word := range strings.Fields(text) {
		idx := strings.Index(text[offset:], word)
		if idx < 0 {
			break
		}
		charIndex := offset + idx
		offset = charIndex + len(word)

		boundaries = append(boundaries, interfaces.WordBoundary{
			Word:          word,
			SentenceIndex: sentenceIndex,
			WordIndex:     wordIndex,
			CharIndex:     charIndex,
		})

		if strings.HasSuffix(word, ".") || strings.HasSuffix(word, "!") || strings.HasSuffix(word, "?") {
			sentenceIndex++
			wordIndex = 0
		} else {
			wordIndex++
		}
	}

	return boundaries
}
