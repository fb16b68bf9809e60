package events

import "time"

// Event types
const (
	UserCreated       = "user.created"
	UserUpdated       = "user.updated"
	UserDeleted       = "user.deleted"
	UserPasswordReset = "user.password_reset"
)

// Stream names
const (
	UserEventsStream = "user.events"
)

// Event is the envelope written to a stream under the "event" field.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type UserCreatedEvent struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	RoleIDs  []int  `json:"roles"`
}

type UserUpdatedEvent struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

type UserDeletedEvent struct {
	UserID string `json:"userId"`
}

type UserPasswordResetEvent struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}
