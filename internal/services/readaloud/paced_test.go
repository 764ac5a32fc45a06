package readaloud

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/common"
	"github.com/ternarybob/marginalia/internal/interfaces"
)

func TestSplitBoundaries_Indices(t *testing.T) {
	boundaries := splitBoundaries("Hello world. Second sentence")

	require.Len(t, boundaries, 4)

	assert.Equal(t, "Hello", boundaries[0].Word)
	assert.Equal(t, 0, boundaries[0].SentenceIndex)
	assert.Equal(t, 0, boundaries[0].WordIndex)
	assert.Equal(t, 0, boundaries[0].CharIndex)

	assert.Equal(t, "world.", boundaries[1].Word)
	assert.Equal(t, 0, boundaries[1].SentenceIndex)
	assert.Equal(t, 1, boundaries[1].WordIndex)
	assert.Equal(t, 6, boundaries[1].CharIndex)

	// Sentence boundary after "world."
	assert.Equal(t, "Second", boundaries[2].Word)
	assert.Equal(t, 1, boundaries[2].SentenceIndex)
	assert.Equal(t, 0, boundaries[2].WordIndex)

	assert.Equal(t, "sentence", boundaries[3].Word)
	assert.Equal(t, 1, boundaries[3].WordIndex)
}

func TestSplitBoundaries_Empty(t *testing.T) {
	assert.Empty(t, splitBoundaries(""))
	assert.Empty(t, splitBoundaries("   "))
}

func fastSynth() *PacedSynthesizer {
	return NewPacedSynthesizer(common.SpeechConfig{WordsPerMinute: 60000}, arbor.NewLogger())
}

func TestSpeak_EmitsAllWordsInOrder(t *testing.T) {
	synth := fastSynth()

	ch, err := synth.Speak(context.Background(), "one two three")
	require.NoError(t, err)

	var words []string
	for boundary := range ch {
		words = append(words, boundary.Word)
	}
	assert.Equal(t, []string{"one", "two", "three"}, words)
}

func TestSpeak_CancelClosesStream(t *testing.T) {
	synth := NewPacedSynthesizer(common.SpeechConfig{WordsPerMinute: 60}, arbor.NewLogger())

	ch, err := synth.Speak(context.Background(), "a very long utterance that would take seconds")
	require.NoError(t, err)

	synth.Cancel()

	select {
	case _, open := <-ch:
		// Either a buffered boundary or the close; drain until closed
		for open {
			_, open = <-ch
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after cancel")
	}

	// Cancel when idle is safe
	synth.Cancel()
}

func TestSpeak_ContextCancellation(t *testing.T) {
	synth := NewPacedSynthesizer(common.SpeechConfig{WordsPerMinute: 60}, arbor.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := synth.Speak(ctx, "words that will never finish")
	require.NoError(t, err)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after context cancellation")
		}
	}
}

var _ interfaces.SpeechSynthesizer = (*PacedSynthesizer)(nil)
