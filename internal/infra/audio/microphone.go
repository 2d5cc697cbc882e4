//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gordonklaus/portaudio"

	"voice-assistant/internal/application"
)

// MicrophoneSource records utterances from the default input device. Speech
// boundaries come from the WebRTC voice activity detector, with a simple
// energy threshold as fallback when the detector cannot be created.
type MicrophoneSource struct {
	sampleRate     int
	silenceTimeout time.Duration
	maxUtterance   time.Duration
	logger         *slog.Logger

	detector *VoiceDetector
	stream   *portaudio.Stream
	frame    []int16
}

func NewMicrophoneSource(sampleRate int, silenceTimeout, maxUtterance time.Duration, vadMode int, logger *slog.Logger) *MicrophoneSource {
	m := &MicrophoneSource{
		sampleRate:     sampleRate,
		silenceTimeout: silenceTimeout,
		maxUtterance:   maxUtterance,
		logger:         logger,
	}

	detector, err := NewVoiceDetector(sampleRate, vadMode)
	if err != nil {
		logger.Warn("voice activity detector unavailable, using energy threshold", "error", err)
	} else {
		m.detector = detector
	}

	return m
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	// 10ms frames keep reads aligned with what the detector expects.
	framesPerBuffer := m.sampleRate / 100
	m.frame = make([]int16, framesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), framesPerBuffer, m.frame)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}
	m.stream = stream

	if err := m.stream.Start(); err != nil {
		portaudio.Terminate()
		return fmt.Errorf("starting stream: %w", err)
	}

	m.logger.Info("microphone started", "sampleRate", m.sampleRate)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	if m.stream != nil {
		m.stream.Stop()
		m.stream.Close()
	}
	portaudio.Terminate()
	return nil
}

// NextUtterance blocks until a complete utterance has been captured and
// returns it as a WAV blob. If no speech begins within the silence timeout it
// returns application.ErrNoSpeech so the caller can prompt and listen again.
func (m *MicrophoneSource) NextUtterance(ctx context.Context) ([]byte, error) {
	const endSilence = 800 * time.Millisecond

	frameDur := time.Duration(len(m.frame)) * time.Second / time.Duration(m.sampleRate)
	maxLeadFrames := int(m.silenceTimeout / frameDur)
	maxTrailFrames := int(endSilence / frameDur)
	maxUtterFrames := int(m.maxUtterance / frameDur)

	// Keep a little audio from before speech onset so the first word is
	// not clipped.
	const preRollFrames = 30
	preRoll := make([]int16, 0, preRollFrames*len(m.frame))

	var samples []int16
	speaking := false
	leadFrames := 0
	trailFrames := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := m.stream.Read(); err != nil {
			return nil, fmt.Errorf("reading from stream: %w", err)
		}

		active := m.frameHasSpeech(m.frame)

		if !speaking {
			preRoll = append(preRoll, m.frame...)
			if over := len(preRoll) - preRollFrames*len(m.frame); over > 0 {
				preRoll = preRoll[over:]
			}

			if active {
				speaking = true
				samples = append(samples, preRoll...)
				continue
			}

			leadFrames++
			if leadFrames >= maxLeadFrames {
				return nil, application.ErrNoSpeech
			}
			continue
		}

		samples = append(samples, m.frame...)

		if active {
			trailFrames = 0
		} else {
			trailFrames++
		}

		if trailFrames >= maxTrailFrames || len(samples) >= maxUtterFrames*len(m.frame) {
			m.logger.Debug("utterance captured", "duration", time.Duration(len(samples))*time.Second/time.Duration(m.sampleRate))
			return EncodeWAV(samples, m.sampleRate), nil
		}
	}
}

func (m *MicrophoneSource) frameHasSpeech(frame []int16) bool {
	if m.detector != nil {
		active, err := m.detector.IsSpeech(frame)
		if err == nil {
			return active
		}
		m.logger.Warn("vad failed, falling back to energy threshold", "error", err)
		m.detector = nil
	}

	const threshold = 500
	for _, sample := range frame {
		if sample > threshold || sample < -threshold {
			return true
		}
	}
	return false
}
