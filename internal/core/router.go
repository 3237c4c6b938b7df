package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirerelay/internal/store"
)

// DeliveryResult reports what happened to a direct message after it was stored.
type DeliveryResult struct {
	Message Message
	// Delivered is false when the recipient was not present; the message is
	// still in history.
	Delivered bool
	// Echoed reports whether the sender's own connection accepted the copy.
	Echoed bool
}

// Router stores chat messages and delivers them to present identities.
// Every message is persisted before any delivery is attempted.
type Router struct {
	presence *Registry
	store    store.MessageStore
	push     Pusher
	now      func() time.Time
	log      *zerolog.Logger
}

// NewRouter builds a router over the given registry, store and push primitive.
func NewRouter(presence *Registry, st store.MessageStore, push Pusher, logger *zerolog.Logger) *Router {
	return &Router{
		presence: presence,
		store:    st,
		push:     push,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger,
	}
}

// Broadcast stores content as a message to everyone, then pushes it to every
// registered connection including the sender's. It returns how many
// connections accepted the push.
func (r *Router) Broadcast(ctx context.Context, sender, content string) (int, error) {
	if _, ok := r.presence.Resolve(sender); !ok {
		return 0, ErrUnauthenticated
	}

	msg, err := r.persist(ctx, sender, "", content)
	if err != nil {
		return 0, err
	}

	ev := &Event{Kind: EventMessage, Message: msg}
	delivered := 0
	for _, h := range r.presence.Handles() {
		if r.push.Push(h, ev) {
			delivered++
		}
	}

	r.log.Debug().Str("sender", sender).Int64("message_id", msg.ID).Int("delivered", delivered).Msg("broadcast")
	return delivered, nil
}

// SendDirect stores a message for recipient and pushes it to the recipient
// when present. The sender always receives an echo.
func (r *Router) SendDirect(ctx context.Context, sender, recipient, content string) (DeliveryResult, error) {
	senderHandle, ok := r.presence.Resolve(sender)
	if !ok {
		return DeliveryResult{}, ErrUnauthenticated
	}
	if recipient == "" {
		return DeliveryResult{}, fmt.Errorf("%w: recipient is required", ErrBadRequest)
	}

	msg, err := r.persist(ctx, sender, recipient, content)
	if err != nil {
		return DeliveryResult{}, err
	}

	res := DeliveryResult{Message: msg}
	ev := &Event{Kind: EventPrivateMessage, Message: msg}

	recipientHandle, present := r.presence.Resolve(recipient)
	if present && recipientHandle != senderHandle {
		res.Delivered = r.push.Push(recipientHandle, ev)
	}
	res.Echoed = r.push.Push(senderHandle, ev)
	if present && recipientHandle == senderHandle {
		res.Delivered = res.Echoed
	}

	r.log.Debug().
		Str("sender", sender).
		Str("recipient", recipient).
		Int64("message_id", msg.ID).
		Bool("delivered", res.Delivered).
		Msg("direct message")
	return res, nil
}

// History returns the direct conversation between two identities, oldest
// first. Neither side has to be connected.
func (r *Router) History(ctx context.Context, user1, user2 string) ([]Message, error) {
	stored, err := r.store.ListConversation(ctx, user1, user2, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: list conversation: %w", ErrStorageUnavailable, err)
	}
	return messagesFromStore(stored), nil
}

// HistoryFor is History on behalf of requester, who must be present.
func (r *Router) HistoryFor(ctx context.Context, requester, peer string) ([]Message, error) {
	if _, ok := r.presence.Resolve(requester); !ok {
		return nil, ErrUnauthenticated
	}
	if peer == "" {
		return nil, fmt.Errorf("%w: peer is required", ErrBadRequest)
	}
	return r.History(ctx, requester, peer)
}

// Backlog returns the latest broadcast messages, oldest first.
func (r *Router) Backlog(ctx context.Context, limit int) ([]Message, error) {
	stored, err := r.store.ListBroadcasts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list broadcasts: %w", ErrStorageUnavailable, err)
	}
	return messagesFromStore(stored), nil
}

func (r *Router) persist(ctx context.Context, sender, recipient, content string) (Message, error) {
	rec := &store.Message{
		Sender:    sender,
		Recipient: recipient,
		Body:      content,
		CreatedAt: r.now(),
	}
	if err := r.store.SaveMessage(ctx, rec); err != nil {
		r.log.Error().Err(err).Str("sender", sender).Msg("failed to persist message")
		return Message{}, fmt.Errorf("%w: save message: %w", ErrStorageUnavailable, err)
	}
	return messageFromStore(rec), nil
}
