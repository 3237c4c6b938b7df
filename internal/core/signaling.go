package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirerelay/internal/callengine"
)

// CallState is the handshake state tracked for a (caller, callee) pair.
type CallState int

const (
	// CallIdle means no handshake is tracked for the pair.
	CallIdle CallState = iota
	// CallRequested means the caller asked and the callee has not answered.
	CallRequested
)

func (s CallState) String() string {
	switch s {
	case CallRequested:
		return "requested"
	default:
		return "idle"
	}
}

type callKey struct {
	caller string
	callee string
}

// Signaling mediates the request -> accept call handshake. Payloads are
// forwarded untouched. Accepted, declined and abandoned handshakes are simply
// forgotten.
type Signaling struct {
	presence *Registry
	push     Pusher
	engine   callengine.Engine // optional
	log      *zerolog.Logger

	mu      sync.Mutex
	pending map[callKey]time.Time
}

// NewSignaling builds a coordinator. engine may be nil.
func NewSignaling(presence *Registry, push Pusher, engine callengine.Engine, logger *zerolog.Logger) *Signaling {
	return &Signaling{
		presence: presence,
		push:     push,
		engine:   engine,
		log:      logger,
		pending:  make(map[callKey]time.Time),
	}
}

// RequestCall forwards an incoming_call to callee. An absent callee drops the
// request without error.
func (s *Signaling) RequestCall(_ context.Context, caller, callee string, payload json.RawMessage) error {
	if _, ok := s.presence.Resolve(caller); !ok {
		return ErrUnauthenticated
	}
	if callee == "" {
		return fmt.Errorf("%w: recipient is required", ErrBadRequest)
	}

	h, ok := s.presence.Resolve(callee)
	if !ok {
		s.log.Debug().Str("caller", caller).Str("callee", callee).Msg("call target not present, dropping request")
		return nil
	}

	s.mu.Lock()
	s.pending[callKey{caller: caller, callee: callee}] = time.Now()
	s.mu.Unlock()

	s.push.Push(h, &Event{
		Kind: EventCallIncoming,
		Call: &CallEvent{From: caller, To: callee, Payload: payload},
	})
	s.log.Info().Str("caller", caller).Str("callee", callee).Msg("call requested")
	return nil
}

// AcceptCall forwards call_accepted to the original caller and clears the
// handshake. With a media engine configured both sides also get join
// credentials for a fresh room.
func (s *Signaling) AcceptCall(ctx context.Context, accepter, caller string, payload json.RawMessage) error {
	accepterHandle, ok := s.presence.Resolve(accepter)
	if !ok {
		return ErrUnauthenticated
	}
	if caller == "" {
		return fmt.Errorf("%w: recipient is required", ErrBadRequest)
	}

	requestedAt, tracked := s.clear(caller, accepter)

	callerHandle, ok := s.presence.Resolve(caller)
	if !ok {
		s.log.Debug().Str("caller", caller).Str("accepter", accepter).Msg("caller gone, dropping accept")
		return nil
	}

	accepted := &CallEvent{From: accepter, To: caller, Payload: payload}
	var accepterInfo *callengine.JoinInfo
	if s.engine != nil {
		room := s.engine.RoomName(caller, accepter)
		callerInfo, err := s.engine.GenerateJoinInfo(ctx, room, caller)
		if err == nil {
			accepterInfo, err = s.engine.GenerateJoinInfo(ctx, room, accepter)
		}
		if err != nil {
			s.log.Warn().Err(err).Str("caller", caller).Str("accepter", accepter).Msg("failed to generate join info")
		} else {
			accepted.JoinInfo = callerInfo
		}
	}

	s.push.Push(callerHandle, &Event{Kind: EventCallAccepted, Call: accepted})
	if accepted.JoinInfo != nil && accepterInfo != nil {
		s.push.Push(accepterHandle, &Event{
			Kind: EventCallJoinInfo,
			Call: &CallEvent{From: caller, To: accepter, JoinInfo: accepterInfo},
		})
	}

	logEv := s.log.Info().Str("caller", caller).Str("accepter", accepter)
	if tracked {
		logEv = logEv.Dur("ringing", time.Since(requestedAt))
	}
	logEv.Msg("call accepted")
	return nil
}

// DeclineCall tells the original caller that decliner refused the call.
func (s *Signaling) DeclineCall(_ context.Context, decliner, caller, reason string) error {
	if _, ok := s.presence.Resolve(decliner); !ok {
		return ErrUnauthenticated
	}
	if caller == "" {
		return fmt.Errorf("%w: recipient is required", ErrBadRequest)
	}

	s.clear(caller, decliner)

	if h, ok := s.presence.Resolve(caller); ok {
		s.push.Push(h, &Event{
			Kind: EventCallDeclined,
			Call: &CallEvent{From: decliner, To: caller, Reason: reason},
		})
	}
	s.log.Info().Str("caller", caller).Str("decliner", decliner).Msg("call declined")
	return nil
}

// Abandon forgets every handshake involving identity and returns how many
// were dropped.
func (s *Signaling) Abandon(identity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for k := range s.pending {
		if k.caller == identity || k.callee == identity {
			delete(s.pending, k)
			dropped++
		}
	}
	return dropped
}

// state reports the tracked handshake state for a pair.
func (s *Signaling) state(caller, callee string) CallState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[callKey{caller: caller, callee: callee}]; ok {
		return CallRequested
	}
	return CallIdle
}

func (s *Signaling) clear(caller, callee string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := callKey{caller: caller, callee: callee}
	at, ok := s.pending[k]
	delete(s.pending, k)
	return at, ok
}
