package domain

import "time"

// Role identifies who produced a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of the web-channel conversation log. Messages are
// append-only; the role never changes after creation. An assistant message
// carries at most one attached transaction - the one extracted on that turn.
// Bot channels do not persist conversation, only transactions.
type ChatMessage struct {
	ID        string       `json:"id"`
	Role      Role         `json:"role"`
	Content   string       `json:"content"`
	Timestamp time.Time    `json:"timestamp"`
	Metadata  *Transaction `json:"metadata,omitempty"`
}
