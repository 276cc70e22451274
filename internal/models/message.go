package models

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one the store accepts.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one immutable chat turn. Messages are append-only: the core
// never updates or deletes a row once written.
type Message struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ModelID   *int64    `json:"model_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	// ModelTag is resolved from the models table on reads; empty when the
	// row has no model reference.
	ModelTag string `json:"model_tag,omitempty"`
}
