package proto

import (
	"encoding/json"

	"github.com/vovakirdan/wirerelay/internal/callengine"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin           = "join"
	InboundTypeMessage        = "message"
	InboundTypePrivateMessage = "private_message"
	InboundTypeRequestCall    = "request_call"
	InboundTypeAcceptCall     = "accept_call"
	InboundTypeDeclineCall    = "decline_call"
	InboundTypeHistory        = "history"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventUserList       = "user_list"
	EventMessage        = "message"
	EventPrivateMessage = "private_message"
	EventHistory        = "history"
	EventIncomingCall   = "incoming_call"
	EventCallAccepted   = "call_accepted"
	EventCallDeclined   = "call_declined"
	EventCallJoinInfo   = "call_join_info"
)

// JoinData announces the sender's display name. A bare JSON string is accepted too.
type JoinData struct {
	Name string `json:"name" validate:"required,max=64"`
}

// MessageData is a broadcast chat message. A bare JSON string is accepted too.
type MessageData struct {
	Msg string `json:"msg" validate:"required"`
}

// PrivateMessageData is a direct chat message.
type PrivateMessageData struct {
	Recipient string `json:"recipient" validate:"required,max=64"`
	Msg       string `json:"msg" validate:"required"`
}

// CallData requests or accepts a call. For accept_call the recipient is the
// original caller. Payload is forwarded untouched.
type CallData struct {
	Recipient string          `json:"recipient" validate:"required,max=64"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// DeclineData refuses a call from recipient.
type DeclineData struct {
	Recipient string `json:"recipient" validate:"required,max=64"`
	Reason    string `json:"reason,omitempty" validate:"max=256"`
}

// HistoryData requests the direct conversation with peer.
type HistoryData struct {
	Peer string `json:"peer" validate:"required,max=64"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventUsers carries the directory of present identities.
type EventUsers struct {
	Users []string `json:"users"`
}

// EventChat is a delivered chat message, broadcast or direct.
type EventChat struct {
	ID        int64  `json:"id,omitempty"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient,omitempty"`
	Msg       string `json:"msg"`
	TS        int64  `json:"ts"`
}

// EventHistoryData delivers stored messages, oldest first.
type EventHistoryData struct {
	Peer     string      `json:"peer,omitempty"`
	Messages []EventChat `json:"messages"`
}

// EventCall is sent for incoming_call, call_accepted, call_declined and call_join_info.
type EventCall struct {
	Sender  string               `json:"sender"`
	Payload json.RawMessage      `json:"payload,omitempty"`
	Reason  string               `json:"reason,omitempty"`
	Join    *callengine.JoinInfo `json:"join,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
