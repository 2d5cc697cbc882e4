package application

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"voice-assistant/internal/domain"
)

// Options tunes assistant behavior beyond its collaborators.
type Options struct {
	// DefaultLang is the session language used before anything has been
	// detected and as the fallback target for synthesis.
	DefaultLang string
	// VoiceOverrides maps language codes to voice names, on top of the
	// built-in table.
	VoiceOverrides map[string]string
	// Welcome is spoken/printed when the assistant starts. Empty disables it.
	Welcome string
	// Speak enables spoken replies; when false the reply is only logged.
	Speak bool
}

type Assistant struct {
	source   UtteranceSource
	stt      SpeechToText
	gen      ResponseGenerator
	synth    Synthesizer
	player   Player
	detector LanguageDetector
	history  *History
	logger   *slog.Logger
	opts     Options

	lang string
}

func NewAssistant(
	source UtteranceSource,
	stt SpeechToText,
	gen ResponseGenerator,
	synth Synthesizer,
	player Player,
	detector LanguageDetector,
	history *History,
	logger *slog.Logger,
	opts Options,
) *Assistant {
	if opts.DefaultLang == "" {
		opts.DefaultLang = domain.DefaultLang
	}
	return &Assistant{
		source:   source,
		stt:      stt,
		gen:      gen,
		synth:    synth,
		player:   player,
		detector: detector,
		history:  history,
		logger:   logger,
		opts:     opts,
		lang:     domain.NormalizeLang(opts.DefaultLang),
	}
}

// History exposes the conversation history, mainly for tests and the REPL.
func (a *Assistant) History() *History {
	return a.history
}

// Run is the voice-mode loop: capture, transcribe, generate, render, one
// turn at a time until the context is cancelled.
func (a *Assistant) Run(ctx context.Context) error {
	a.logger.Info("starting utterance source", "source", a.source.Name())
	if err := a.source.Start(ctx); err != nil {
		return fmt.Errorf("starting utterance source: %w", err)
	}
	defer a.source.Stop()

	if a.opts.Welcome != "" {
		a.history.Add(domain.RoleAssistant, a.opts.Welcome, a.lang)
		a.render(ctx, a.opts.Welcome)
	}

	a.logger.Info("assistant ready, listening")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := a.processTurn(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.logger.Error("turn failed", "error", err)
			}
		}
	}
}

// processTurn runs exactly one capture -> generation -> rendering cycle.
// Failures skip the turn; they never take the loop down.
func (a *Assistant) processTurn(ctx context.Context) error {
	data, err := a.source.NextUtterance(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSpeech) {
			a.logger.Info("silence timeout, still listening")
			return nil
		}
		return fmt.Errorf("capturing utterance: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var utt domain.Utterance

	if text, isText := isTextTurn(data); isText {
		a.logger.Info("received text turn", "text", text)
		utt = domain.Utterance{Text: text}
	} else {
		a.logger.Info("received audio", "bytes", len(data))

		utt, err = a.stt.Transcribe(ctx, data)
		if err != nil {
			return fmt.Errorf("transcribing: %w", err)
		}

		a.logger.Info("transcribed", "text", utt.Text, "lang", utt.Lang)
	}

	if strings.TrimSpace(utt.Text) == "" {
		return nil
	}

	a.updateLang(utt)

	reply, err := a.respond(ctx, utt.Text)
	if err != nil {
		return err
	}

	a.render(ctx, reply)
	return nil
}

// RunText is the text-mode loop: a stdin REPL over the same generation
// and rendering path. "exit" or "quit" ends the session.
func (a *Assistant) RunText(ctx context.Context, in io.Reader, out io.Writer) error {
	if a.opts.Welcome != "" {
		fmt.Fprintf(out, "Assistant: %s\n", a.opts.Welcome)
		a.history.Add(domain.RoleAssistant, a.opts.Welcome, a.lang)
	}

	scanner := bufio.NewScanner(in)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if isQuit(text) {
			fmt.Fprintln(out, "Goodbye.")
			return nil
		}

		a.updateLang(domain.Utterance{Text: text})

		reply, err := a.respond(ctx, text)
		if err != nil {
			a.logger.Error("turn failed", "error", err)
			fmt.Fprintln(out, "Assistant: I'm having trouble processing that right now.")
			continue
		}

		fmt.Fprintf(out, "Assistant: %s\n", reply)
		if a.opts.Speak {
			a.speak(ctx, reply)
		}
	}
}

// respond calls the model with the windowed history and records both sides
// of the turn. On generation failure the turn is recorded with a fallback
// reply so the history stays chronological, and the error is returned for
// the caller to log.
func (a *Assistant) respond(ctx context.Context, text string) (string, error) {
	reply, err := a.gen.Generate(ctx, text, a.history.Context())
	if err != nil {
		a.history.Add(domain.RoleUser, text, a.lang)
		a.history.Add(domain.RoleAssistant, fallbackReply, a.lang)
		return "", fmt.Errorf("generating response: %w", err)
	}

	if strings.TrimSpace(reply) == "" {
		reply = "I'm not sure how to respond to that."
	}

	a.history.Add(domain.RoleUser, text, a.lang)
	a.history.Add(domain.RoleAssistant, reply, a.lang)
	return reply, nil
}

const fallbackReply = "I'm having trouble processing that right now."

// render logs the reply and, when speech is enabled, speaks it.
func (a *Assistant) render(ctx context.Context, reply string) {
	a.logger.Info("assistant reply", "text", reply)
	if a.opts.Speak {
		a.speak(ctx, reply)
	}
}

// speak synthesizes and plays the reply. An unsupported language or a
// synthesis failure falls back to the default voice; a second failure
// skips playback for this turn.
func (a *Assistant) speak(ctx context.Context, reply string) {
	lang := a.lang
	if a.detector != nil {
		lang = a.detector.Detect(reply)
	}

	voice := domain.VoiceFor(lang, a.opts.VoiceOverrides)

	audio, err := a.synth.Synthesize(ctx, reply, voice)
	if err != nil {
		defaultVoice := domain.VoiceFor(a.opts.DefaultLang, a.opts.VoiceOverrides)
		if voice == defaultVoice {
			a.logger.Error("synthesis failed, skipping playback", "error", err, "voice", voice)
			return
		}

		a.logger.Warn("synthesis failed, retrying with default voice",
			"error", err, "voice", voice, "fallback", defaultVoice)

		audio, err = a.synth.Synthesize(ctx, reply, defaultVoice)
		if err != nil {
			a.logger.Error("synthesis failed, skipping playback", "error", err, "voice", defaultVoice)
			return
		}
	}

	if err := a.player.Play(ctx, audio); err != nil {
		a.logger.Error("playback failed", "error", err)
	}
}

// updateLang tracks the session language from the latest utterance,
// preferring the STT-reported language over text detection.
func (a *Assistant) updateLang(utt domain.Utterance) {
	if utt.Lang != "" && domain.IsSupported(utt.Lang) {
		a.lang = domain.NormalizeLang(utt.Lang)
		return
	}
	if a.detector != nil {
		if lang := a.detector.Detect(utt.Text); domain.IsSupported(lang) {
			a.lang = domain.NormalizeLang(lang)
		}
	}
}

func isTextTurn(data []byte) (string, bool) {
	if len(data) > len(domain.TextTurnPrefix) && string(data[:len(domain.TextTurnPrefix)]) == domain.TextTurnPrefix {
		return string(data[len(domain.TextTurnPrefix):]), true
	}
	return "", false
}

func isQuit(text string) bool {
	switch strings.ToLower(text) {
	case "exit", "quit", "bye":
		return true
	}
	return false
}
