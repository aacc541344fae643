package models

import "time"

// Message roles within an interactive mapping negotiation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in an interactive negotiation. The conversation
// is client-held only; it is discarded once execution succeeds or the user
// abandons the thread.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

// ConversationState is the engine-visible state of one negotiation thread.
// CanExecute and NeedsUserInput travel with every assistant turn.
type ConversationState struct {
	ThreadID       string    `json:"thread_id"`
	Messages       []Message `json:"messages"`
	CanExecute     bool      `json:"can_execute"`
	NeedsUserInput bool      `json:"needs_user_input"`
}
