package callengine

import "context"

// JoinInfo contains information needed to join a call's media room.
type JoinInfo struct {
	URL      string `json:"url"`       // WebSocket URL (e.g., ws://localhost:7880)
	Token    string `json:"token"`     // access token for the media server
	RoomName string `json:"room_name"` // media room name
	Identity string `json:"identity"`  // participant identity in the room
}

// Engine abstracts the media backend used once a call is accepted.
// The relay itself never interprets call payloads.
type Engine interface {
	// RoomName returns a fresh media room name for a call between two identities.
	RoomName(caller, callee string) string

	// GenerateJoinInfo creates join credentials for identity in room.
	GenerateJoinInfo(ctx context.Context, room, identity string) (*JoinInfo, error)
}
