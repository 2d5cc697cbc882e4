package application

import (
	"context"

	"voice-assistant/internal/domain"
)

// ResponseGenerator produces a reply to the user's text given the recent
// conversation context, oldest exchange first.
type ResponseGenerator interface {
	Generate(ctx context.Context, text string, history []domain.Exchange) (string, error)
}
