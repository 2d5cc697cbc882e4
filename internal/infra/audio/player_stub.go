//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
)

// PCMPlayer stub when portaudio is not available
type PCMPlayer struct {
	logger *slog.Logger
}

func NewPCMPlayer(logger *slog.Logger) *PCMPlayer {
	return &PCMPlayer{logger: logger}
}

func (p *PCMPlayer) Play(_ context.Context, _ []byte) error {
	return fmt.Errorf("pcm playback not available: rebuild with -tags portaudio")
}
