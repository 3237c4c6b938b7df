package core

import (
	"time"

	"github.com/vovakirdan/wirerelay/internal/store"
)

// Message is the domain model for a chat message.
type Message struct {
	ID        int64
	From      string
	To        string // empty for broadcast
	Text      string
	CreatedAt time.Time
}

// IsDirect reports whether the message targets a single recipient.
func (m Message) IsDirect() bool {
	return m.To != ""
}

func messageFromStore(m *store.Message) Message {
	return Message{
		ID:        m.ID,
		From:      m.Sender,
		To:        m.Recipient,
		Text:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

func messagesFromStore(in []*store.Message) []Message {
	out := make([]Message, 0, len(in))
	for _, m := range in {
		out = append(out, messageFromStore(m))
	}
	return out
}
