package interfaces

import "context"

// WordBoundary is one word-boundary progress event from a speech
// synthesizer. The stream is assumed monotonic: words arrive in spoken order
// and the consumer never reorders or reconciles missed words.
type WordBoundary struct {
	Word          string
	SentenceIndex int
	WordIndex     int
	CharIndex     int
}

// SpeechSynthesizer abstracts the text-to-speech engine. The engine only has
// to report word boundaries and honor play/pause/cancel; audio output is
// outside this service.
type SpeechSynthesizer interface {
	// Speak starts synthesis of text and returns the boundary event stream.
	// The channel is closed when synthesis finishes or is cancelled.
	Speak(ctx context.Context, text string) (<-chan WordBoundary, error)
	Pause()
	Resume()
	// Cancel stops synthesis immediately. Safe to call when idle.
	Cancel()
}
