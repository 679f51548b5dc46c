package llm

import (
	"context"
	"encoding/json"

	"fulfillment-assistant/internal/models"
)

// ReplyKind tags the model's reply union.
type ReplyKind string

const (
	ReplyText     ReplyKind = "text"
	ReplyToolCall ReplyKind = "tool_call"
)

// ToolCall is a structured, named, argument-bearing action the model
// requests in lieu of free text.
type ToolCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// Reply is the model's turn: free text or exactly one tool invocation,
// never both. When the raw output mixes them the tool call wins and the
// accompanying text is discarded from the user-visible path.
type Reply struct {
	Kind ReplyKind
	Text string
	Tool *ToolCall
}

// Caller is the black-box model collaborator.
type Caller interface {
	Send(ctx context.Context, history []models.ConversationTurn, systemInstruction string) (*Reply, error)
}
