package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voice-assistant/internal/application"
)

var textSpeak bool

var textCmd = &cobra.Command{
	Use:   "text",
	Short: "Chat on stdin/stdout, no microphone required",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			printError("loading config", err)
			return err
		}

		logger := setupLogger(cfg.Log)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		speak := textSpeak && cfg.TTSEnabled()

		assistant, err := buildAssistant(cfg, logger, noSource{}, speak)
		if err != nil {
			printError("building assistant", err)
			return err
		}

		if err := assistant.RunText(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			printError("assistant", err)
			return err
		}
		return nil
	},
}

func init() {
	textCmd.Flags().BoolVar(&textSpeak, "speak", false, "also speak replies aloud")
	rootCmd.AddCommand(textCmd)
}

// noSource satisfies the source interface for text mode, which reads stdin
// directly and never captures audio.
type noSource struct{}

func (noSource) Name() string                { return "stdin" }
func (noSource) Start(context.Context) error { return nil }
func (noSource) Stop() error                 { return nil }
func (noSource) NextUtterance(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

var _ application.UtteranceSource = noSource{}
