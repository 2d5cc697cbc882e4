package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"voice-assistant/config"
	"voice-assistant/internal/application"
	"voice-assistant/internal/infra/audio"
)

var voiceCmd = &cobra.Command{
	Use:   "voice",
	Short: "Run the voice loop: listen, transcribe, respond, speak",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			printError("loading config", err)
			return err
		}

		logger := setupLogger(cfg.Log)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		source := createSource(cfg.Audio, logger)

		assistant, err := buildAssistant(cfg, logger, source, cfg.TTSEnabled())
		if err != nil {
			printError("building assistant", err)
			return err
		}

		logger.Info("starting voice assistant",
			"source", source.Name(),
			"model", cfg.Gemini.Model,
			"tts", cfg.TTSEnabled(),
		)

		if err := assistant.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			printError("assistant", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(voiceCmd)
}

func createSource(cfg config.AudioConfig, logger *slog.Logger) application.UtteranceSource {
	switch cfg.Source {
	case "http":
		return audio.NewHTTPSource(cfg.HTTPAddr, cfg.AuthToken, logger)
	case "file":
		return audio.NewFileSource(cfg.FileDir)
	case "microphone":
		silence := parseDurationOr(cfg.SilenceTimeout, 5*time.Second, logger, "audio.silence_timeout")
		maxUtterance := parseDurationOr(cfg.MaxUtterance, 30*time.Second, logger, "audio.max_utterance")
		return audio.NewMicrophoneSource(cfg.SampleRate, silence, maxUtterance, cfg.VADMode, logger)
	default:
		logger.Warn("unknown utterance source, using http", "source", cfg.Source)
		return audio.NewHTTPSource(cfg.HTTPAddr, cfg.AuthToken, logger)
	}
}
