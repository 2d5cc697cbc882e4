package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// playerCandidates are tried in order when no player command is configured.
var playerCandidates = [][]string{
	{"mpg123", "-q"},
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
	{"mpv", "--no-video", "--really-quiet"},
	{"afplay"},
}

// ExecPlayer writes synthesized audio to a temp file and hands it to an
// external command-line player. The file is removed once playback ends.
type ExecPlayer struct {
	command []string
	format  string
	logger  *slog.Logger
}

// NewExecPlayer creates a player. An empty command selects the first player
// binary found on PATH. Format is the synthesizer's output format name and
// only decides the temp file extension.
func NewExecPlayer(command, format string, logger *slog.Logger) (*ExecPlayer, error) {
	var cmd []string
	if command != "" {
		cmd = strings.Fields(command)
		if _, err := exec.LookPath(cmd[0]); err != nil {
			return nil, fmt.Errorf("player %q not found: %w", cmd[0], err)
		}
	} else {
		for _, candidate := range playerCandidates {
			if _, err := exec.LookPath(candidate[0]); err == nil {
				cmd = candidate
				break
			}
		}
		if cmd == nil {
			return nil, fmt.Errorf("no audio player found, install mpg123 or ffplay or set tts.player")
		}
	}

	return &ExecPlayer{
		command: cmd,
		format:  format,
		logger:  logger,
	}, nil
}

func (p *ExecPlayer) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return nil
	}

	path := filepath.Join(os.TempDir(), "tts_"+uuid.NewString()+ExtensionForFormat(p.format))
	if err := os.WriteFile(path, audio, 0600); err != nil {
		return fmt.Errorf("writing playback file: %w", err)
	}
	defer os.Remove(path)

	args := append(append([]string(nil), p.command[1:]...), path)
	cmd := exec.CommandContext(ctx, p.command[0], args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", p.command[0], err)
	}

	p.logger.Debug("playback finished", "player", p.command[0], "bytes", len(audio))
	return nil
}

// ExtensionForFormat maps a synthesizer output format name to a file
// extension players recognize.
func ExtensionForFormat(format string) string {
	format = strings.ToLower(format)
	switch {
	case strings.Contains(format, "mp3"):
		return ".mp3"
	case strings.Contains(format, "opus"), strings.Contains(format, "webm"):
		return ".webm"
	case strings.Contains(format, "riff"):
		return ".wav"
	default:
		return ".audio"
	}
}
