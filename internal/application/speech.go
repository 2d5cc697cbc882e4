package application

import (
	"context"
	"fmt"

	"voice-assistant/internal/domain"
)

// SpeechToText transcribes one utterance of recorded audio. The returned
// Lang is the provider's detected language, or empty when the provider
// does not report one.
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte) (domain.Utterance, error)
}

// Synthesizer turns reply text into playable audio using a named voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Player plays synthesized audio synchronously.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// LanguageDetector guesses the primary language code of a piece of text.
type LanguageDetector interface {
	Detect(text string) string
}

// NoopSTT is a no-op speech-to-text client for text-only sources.
// It returns an error if called with actual audio data.
type NoopSTT struct{}

func (n *NoopSTT) Transcribe(ctx context.Context, audio []byte) (domain.Utterance, error) {
	return domain.Utterance{}, fmt.Errorf("speech-to-text not configured: set stt.api_key to enable audio transcription")
}

// NoopPlayer discards audio, for text mode or headless runs.
type NoopPlayer struct{}

func (n *NoopPlayer) Play(_ context.Context, _ []byte) error { return nil }
