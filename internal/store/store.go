package store

import (
	"context"
	"time"
)

// Message represents a persisted chat message.
type Message struct {
	ID        int64
	Sender    string
	Recipient string // empty for broadcast messages
	Body      string
	CreatedAt time.Time
}

// IsBroadcast reports whether the message was sent to everyone.
func (m *Message) IsBroadcast() bool {
	return m.Recipient == ""
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage appends a message to the log and sets its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListConversation returns direct messages exchanged between user1 and user2
	// in either direction, oldest first. Ties on CreatedAt keep insertion order.
	// A limit <= 0 returns the whole conversation.
	ListConversation(ctx context.Context, user1, user2 string, limit int) ([]*Message, error)

	// ListBroadcasts returns the most recent broadcast messages, oldest first.
	ListBroadcasts(ctx context.Context, limit int) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	MessageStore

	// Close closes the underlying database.
	Close() error
}
