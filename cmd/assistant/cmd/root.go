package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"voice-assistant/config"
	"voice-assistant/internal/application"
	"voice-assistant/internal/infra/audio"
	"voice-assistant/internal/infra/edgetts"
	"voice-assistant/internal/infra/gemini"
	"voice-assistant/internal/infra/langid"
	"voice-assistant/internal/infra/openai"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Multilingual voice assistant powered by Gemini",
	Long: `A multilingual voice assistant that listens for speech, transcribes it,
generates a reply with Google Gemini and speaks the answer back using
Microsoft Edge neural voices.

Modes:
  voice  - microphone (or HTTP/file) in, spoken replies out
  text   - stdin/stdout chat over the same conversation engine`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "path to config file")
}

// loadConfig reads the configured file. A missing file at the default path
// is not an error so the assistant can run on defaults plus env vars.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config") {
			return config.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// buildAssistant wires the providers behind the conversation engine. A
// missing Gemini key is the one fatal condition.
func buildAssistant(
	cfg *config.Config,
	logger *slog.Logger,
	source application.UtteranceSource,
	speak bool,
) (*application.Assistant, error) {
	key, err := cfg.ResolveGeminiKey()
	if err != nil {
		return nil, err
	}

	gen := gemini.NewClient(key, gemini.Config{
		Model:           cfg.Gemini.Model,
		SystemPrompt:    cfg.Assistant.SystemPrompt,
		Temperature:     cfg.Gemini.Temperature,
		TopP:            cfg.Gemini.TopP,
		TopK:            cfg.Gemini.TopK,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
	})

	var stt application.SpeechToText = &application.NoopSTT{}
	if cfg.STT.APIKey != "" {
		stt = openai.NewWhisperClient(cfg.STT.APIKey, cfg.STT.Model, cfg.STT.Language)
	}

	var player application.Player = &application.NoopPlayer{}
	if speak {
		player, err = createPlayer(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	window, err := time.ParseDuration(cfg.Assistant.ContextWindow)
	if err != nil {
		logger.Warn("invalid context window, using default", "error", err, "value", cfg.Assistant.ContextWindow)
		window = 15 * time.Minute
	}

	overrides := make(map[string]string, len(cfg.TTS.Voices)+1)
	for lang, voice := range cfg.TTS.Voices {
		overrides[lang] = voice
	}
	if cfg.TTS.DefaultVoice != "" {
		if _, ok := overrides[cfg.Assistant.Language]; !ok {
			overrides[cfg.Assistant.Language] = cfg.TTS.DefaultVoice
		}
	}

	return application.NewAssistant(
		source,
		stt,
		gen,
		edgetts.NewClient(cfg.TTS.OutputFormat),
		player,
		langid.NewDetector(cfg.Assistant.Language),
		application.NewHistory(cfg.Assistant.HistorySize, window),
		logger,
		application.Options{
			DefaultLang:    cfg.Assistant.Language,
			VoiceOverrides: overrides,
			Welcome:        cfg.Assistant.Welcome,
			Speak:          speak,
		},
	), nil
}

func createPlayer(cfg *config.Config, logger *slog.Logger) (application.Player, error) {
	if cfg.TTS.Player == "pcm" {
		return audio.NewPCMPlayer(logger), nil
	}
	return audio.NewExecPlayer(cfg.TTS.Player, cfg.TTS.OutputFormat, logger)
}

func parseDurationOr(value string, fallback time.Duration, logger *slog.Logger, name string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn("invalid duration, using default", "setting", name, "value", value, "default", fallback)
		return fallback
	}
	return d
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
