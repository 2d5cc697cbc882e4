//go:build portaudio
// +build portaudio

package audio

import (
	"fmt"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

// VoiceDetector classifies 10ms frames of 16-bit mono PCM as speech or
// silence using the WebRTC voice activity detector.
type VoiceDetector struct {
	vad        *webrtcvad.VAD
	sampleRate int
	frameSize  int
}

// NewVoiceDetector creates a detector. Mode sets the aggressiveness of the
// classifier from 0 (least aggressive) to 3 (most aggressive filtering of
// non-speech). The sample rate must be 8, 16, 32 or 48 kHz.
func NewVoiceDetector(sampleRate, mode int) (*VoiceDetector, error) {
	switch sampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return nil, fmt.Errorf("unsupported sample rate %d", sampleRate)
	}

	if mode < 0 {
		mode = 0
	}
	if mode > 3 {
		mode = 3
	}

	vad, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("creating vad: %w", err)
	}
	if err := vad.SetMode(mode); err != nil {
		return nil, fmt.Errorf("setting vad mode: %w", err)
	}

	return &VoiceDetector{
		vad:        vad,
		sampleRate: sampleRate,
		frameSize:  sampleRate / 100, // 10ms
	}, nil
}

// FrameSize returns the number of samples the detector expects per frame.
func (d *VoiceDetector) FrameSize() int {
	return d.frameSize
}

// IsSpeech reports whether any 10ms frame in the given samples contains
// speech. Trailing samples that do not fill a whole frame are ignored.
func (d *VoiceDetector) IsSpeech(samples []int16) (bool, error) {
	if len(samples) < d.frameSize {
		padded := make([]int16, d.frameSize)
		copy(padded, samples)
		samples = padded
	}

	for i := 0; i+d.frameSize <= len(samples); i += d.frameSize {
		frame := samples[i : i+d.frameSize]
		active, err := d.vad.Process(d.sampleRate, int16ToBytes(frame))
		if err != nil {
			return false, fmt.Errorf("vad processing: %w", err)
		}
		if active {
			return true, nil
		}
	}
	return false, nil
}

func int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}
