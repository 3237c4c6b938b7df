package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin announces the connection's display name.
	CommandJoin CommandKind = iota
	// CommandBroadcast sends a chat message to everyone present.
	CommandBroadcast
	// CommandPrivateMessage sends a chat message to one identity.
	CommandPrivateMessage
	// CommandRequestCall asks a peer to start a call.
	CommandRequestCall
	// CommandAcceptCall accepts a call requested by a peer.
	CommandAcceptCall
	// CommandDeclineCall refuses a call requested by a peer.
	CommandDeclineCall
	// CommandHistory asks for the direct conversation with a peer.
	CommandHistory
)

// Command represents an action requested by a client.
type Command struct {
	Kind    CommandKind
	Name    string // CommandJoin
	Peer    string // recipient, original caller or history peer
	Text    string
	Payload json.RawMessage // opaque call signaling data
	Reason  string
}
