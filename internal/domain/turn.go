package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TextTurnPrefix marks utterances that arrive as text (vs audio) and
// should bypass transcription.
const TextTurnPrefix = "__TEXT__:"

// Exchange is one entry in the conversation history: something the user
// said or something the assistant replied.
type Exchange struct {
	Role      Role
	Text      string
	Lang      string
	Timestamp time.Time
}

// Utterance is one captured span of user speech, already transcribed.
type Utterance struct {
	Text string
	Lang string
}
