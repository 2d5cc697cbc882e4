package tests

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voice-assistant/internal/application"
	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra/audio"
)

type synthCall struct {
	text  string
	voice string
}

type recordingSTT struct {
	calls int
	text  string
	lang  string
}

func (r *recordingSTT) Transcribe(_ context.Context, _ []byte) (domain.Utterance, error) {
	r.calls++
	return domain.Utterance{Text: r.text, Lang: r.lang}, nil
}

type recordingGenerator struct {
	replies map[string]string
	seen    []string
}

func (r *recordingGenerator) Generate(_ context.Context, text string, _ []domain.Exchange) (string, error) {
	r.seen = append(r.seen, text)
	if reply, ok := r.replies[text]; ok {
		return reply, nil
	}
	return "I did not catch that.", nil
}

type recordingSynth struct {
	calls []synthCall
}

func (r *recordingSynth) Synthesize(_ context.Context, text, voice string) ([]byte, error) {
	r.calls = append(r.calls, synthCall{text: text, voice: voice})
	return []byte("audio:" + text), nil
}

type recordingPlayer struct {
	played chan []byte
}

func (r *recordingPlayer) Play(_ context.Context, data []byte) error {
	r.played <- data
	return nil
}

type staticDetector struct {
	lang string
}

func (s *staticDetector) Detect(_ string) string { return s.lang }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newVoiceAssistant(
	source application.UtteranceSource,
	stt application.SpeechToText,
	gen application.ResponseGenerator,
	synth application.Synthesizer,
	player application.Player,
	lang string,
) *application.Assistant {
	return application.NewAssistant(
		source,
		stt,
		gen,
		synth,
		player,
		&staticDetector{lang: lang},
		application.NewHistory(10, 15*time.Minute),
		discardLogger(),
		application.Options{DefaultLang: "en", Speak: true},
	)
}

// Full pipeline over a file source: a dropped utterance flows through
// transcription, generation, synthesis with the language-matched voice, and
// finally playback.
func TestIntegration_UtteranceToPlayback(t *testing.T) {
	tmpDir := t.TempDir()
	wav := audio.EncodeWAV(make([]int16, 1600), 16000)
	if err := os.WriteFile(filepath.Join(tmpDir, "hello.wav"), wav, 0644); err != nil {
		t.Fatalf("writing sample: %v", err)
	}

	source := audio.NewFileSource(tmpDir)
	stt := &recordingSTT{text: "Hello", lang: "en"}
	gen := &recordingGenerator{replies: map[string]string{"Hello": "Hi there!"}}
	synth := &recordingSynth{}
	player := &recordingPlayer{played: make(chan []byte, 1)}

	assistant := newVoiceAssistant(source, stt, gen, synth, player, "en")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = assistant.Run(ctx)
	}()

	select {
	case data := <-player.played:
		if string(data) != "audio:Hi there!" {
			t.Errorf("played audio: got %q", data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for playback")
	}
	cancel()

	if stt.calls != 1 {
		t.Errorf("stt calls: got %d, want 1", stt.calls)
	}
	if len(gen.seen) != 1 || gen.seen[0] != "Hello" {
		t.Errorf("generator input: got %v", gen.seen)
	}
	if len(synth.calls) != 1 {
		t.Fatalf("synth calls: got %d, want 1", len(synth.calls))
	}
	if synth.calls[0].voice != "en-US-ChristopherNeural" {
		t.Errorf("voice: got %q, want en-US-ChristopherNeural", synth.calls[0].voice)
	}

	history := assistant.History().All()
	if len(history) != 2 {
		t.Fatalf("history: got %d entries, want 2", len(history))
	}
	if history[0].Role != domain.RoleUser || history[0].Text != "Hello" {
		t.Errorf("history[0]: got %+v", history[0])
	}
	if history[1].Role != domain.RoleAssistant || history[1].Text != "Hi there!" {
		t.Errorf("history[1]: got %+v", history[1])
	}
}

// A text turn posted over HTTP skips transcription entirely and the reply is
// spoken with the voice for the detected language.
func TestIntegration_HTTPTextTurn(t *testing.T) {
	source := audio.NewHTTPSource(":0", "", discardLogger())
	stt := &recordingSTT{text: "should not be used"}
	gen := &recordingGenerator{replies: map[string]string{
		"¿Qué hora es?": "Son las tres de la tarde.",
	}}
	synth := &recordingSynth{}
	player := &recordingPlayer{played: make(chan []byte, 1)}

	assistant := newVoiceAssistant(source, stt, gen, synth, player, "es")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = assistant.Run(ctx)
	}()

	req := httptest.NewRequest(http.MethodPost, "/text", strings.NewReader("¿Qué hora es?"))
	rec := httptest.NewRecorder()
	source.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("posting text turn: got status %d", rec.Code)
	}

	select {
	case <-player.played:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for playback")
	}
	cancel()

	if stt.calls != 0 {
		t.Errorf("stt should not be called for text turns, got %d calls", stt.calls)
	}
	if len(synth.calls) != 1 {
		t.Fatalf("synth calls: got %d, want 1", len(synth.calls))
	}
	if synth.calls[0].voice != "es-ES-AlvaroNeural" {
		t.Errorf("voice: got %q, want es-ES-AlvaroNeural", synth.calls[0].voice)
	}
	if synth.calls[0].text != "Son las tres de la tarde." {
		t.Errorf("spoken text: got %q", synth.calls[0].text)
	}
}
