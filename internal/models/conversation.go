package models

import "time"

// Role identifies the author of a conversation turn as the model sees it.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ConversationTurn is one message in the ordered conversation. Metadata turns
// are system-feed facts injected by the orchestrator; they always carry
// RoleUser from the model's perspective and are concatenated before the
// message turns on every model call.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// History is the full per-session conversation split into its two
// sub-sequences.
type History struct {
	Metadata []ConversationTurn `json:"metadata"`
	Messages []ConversationTurn `json:"messages"`
}

// Combined returns metadata-first concatenation, the exact ordering fed to
// the model.
func (h *History) Combined() []ConversationTurn {
	out := make([]ConversationTurn, 0, len(h.Metadata)+len(h.Messages))
	out = append(out, h.Metadata...)
	out = append(out, h.Messages...)
	return out
}
