//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"
)

// PCMPlayer plays WAV audio straight to the default output device. It only
// understands RIFF PCM, so it suits synthesizers configured for a raw or
// riff output format.
type PCMPlayer struct {
	logger *slog.Logger
}

func NewPCMPlayer(logger *slog.Logger) *PCMPlayer {
	return &PCMPlayer{logger: logger}
}

func (p *PCMPlayer) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return nil
	}

	sampleRate, pcm, err := DecodeWAV(audio)
	if err != nil {
		return fmt.Errorf("decoding audio: %w", err)
	}

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}

	const framesPerBuffer = 1024
	out := make([]int16, framesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), framesPerBuffer, out)
	if err != nil {
		return fmt.Errorf("opening output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting output stream: %w", err)
	}
	defer stream.Stop()

	for pos := 0; pos < len(samples); pos += framesPerBuffer {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n := copy(out, samples[pos:])
		for i := n; i < framesPerBuffer; i++ {
			out[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("writing to output stream: %w", err)
		}
	}

	p.logger.Debug("pcm playback finished", "samples", len(samples), "sampleRate", sampleRate)
	return nil
}
