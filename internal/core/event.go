package core

import (
	"encoding/json"

	"github.com/vovakirdan/wirerelay/internal/callengine"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventUserList carries the full set of present identities.
	EventUserList EventKind = iota
	// EventMessage delivers a broadcast chat message.
	EventMessage
	// EventPrivateMessage delivers a direct message (or its sender echo).
	EventPrivateMessage
	// EventHistory delivers stored messages.
	EventHistory
	// EventError notifies clients about a domain error.
	EventError

	// EventCallIncoming notifies the callee of a call request.
	EventCallIncoming
	// EventCallAccepted notifies the caller that the callee accepted.
	EventCallAccepted
	// EventCallDeclined notifies the caller that the callee declined.
	EventCallDeclined
	// EventCallJoinInfo delivers media credentials to the accepting side.
	EventCallJoinInfo
)

// Event is sent to clients to describe what happened in the system.
// Events may be shared between recipients and must not be mutated.
type Event struct {
	Kind     EventKind
	Users    []string  // EventUserList
	Peer     string    // EventHistory: conversation peer, empty for the broadcast backlog
	Message  Message   // EventMessage, EventPrivateMessage
	Messages []Message // EventHistory
	Error    *CoreError
	Call     *CallEvent // non-nil for call events
}

// CallEvent holds data specific to call events.
type CallEvent struct {
	From     string
	To       string
	Payload  json.RawMessage
	Reason   string
	JoinInfo *callengine.JoinInfo
}
