package livekit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/livekit/protocol/auth"

	"github.com/vovakirdan/wirerelay/internal/callengine"
)

// LiveKitEngine implements callengine.Engine using LiveKit as the media backend.
type LiveKitEngine struct {
	apiKey    string
	apiSecret string
	wsURL     string
	tokenTTL  time.Duration
}

// Option customizes a LiveKitEngine.
type Option func(*LiveKitEngine)

// WithTokenTTL sets how long issued join tokens stay valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(e *LiveKitEngine) {
		if ttl > 0 {
			e.tokenTTL = ttl
		}
	}
}

// New creates a LiveKit engine issuing tokens signed with apiKey/apiSecret
// for the server at wsURL.
func New(apiKey, apiSecret, wsURL string, opts ...Option) *LiveKitEngine {
	e := &LiveKitEngine{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		wsURL:     wsURL,
		tokenTTL:  time.Hour,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RoomName returns a new room for every accepted call. LiveKit creates
// rooms on demand when the first participant joins.
func (e *LiveKitEngine) RoomName(_, _ string) string {
	return "wirerelay-call-" + uuid.NewString()
}

// GenerateJoinInfo creates join credentials for a participant.
func (e *LiveKitEngine) GenerateJoinInfo(_ context.Context, room, identity string) (*callengine.JoinInfo, error) {
	if room == "" {
		return nil, errors.New("room name is required")
	}
	if identity == "" {
		return nil, errors.New("identity is required")
	}

	publish, subscribe := true, true
	at := auth.NewAccessToken(e.apiKey, e.apiSecret)
	grant := &auth.VideoGrant{
		RoomJoin:     true,
		Room:         room,
		CanPublish:   &publish,
		CanSubscribe: &subscribe,
	}
	at.SetVideoGrant(grant).
		SetIdentity(identity).
		SetName(identity).
		SetValidFor(e.tokenTTL)

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("sign join token for %s: %w", identity, err)
	}

	return &callengine.JoinInfo{
		URL:      e.wsURL,
		Token:    token,
		RoomName: room,
		Identity: identity,
	}, nil
}

// Ensure LiveKitEngine implements callengine.Engine
var _ callengine.Engine = (*LiveKitEngine)(nil)
