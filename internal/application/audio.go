package application

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned by an UtteranceSource when no speech was
// detected before the configured silence timeout.
var ErrNoSpeech = errors.New("no speech detected")

// UtteranceSource delivers one captured utterance per call. Implementations
// own the underlying device or transport for the duration of the call.
type UtteranceSource interface {
	Start(ctx context.Context) error
	Stop() error
	NextUtterance(ctx context.Context) ([]byte, error)
	Name() string
}
