package core

// Handle identifies one live connection. The core only stores and compares it.
type Handle string

const defaultClientBuffer = 32

// Client is a live connection as seen by the core layer.
type Client struct {
	ID       Handle
	Commands chan *Command
	Events   chan *Event

	quit chan struct{}
}

// NewClient constructs a client with buffered channels. A non-positive
// buffer falls back to the default size.
func NewClient(id Handle, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &Client{
		ID:       id,
		Commands: make(chan *Command, buffer),
		Events:   make(chan *Event, buffer),
		quit:     make(chan struct{}),
	}
}

// deliver enqueues ev without blocking and reports whether it was accepted.
func (c *Client) deliver(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}

// Pusher delivers events to live connections. Push never blocks; a false
// result means the handle is gone or its queue is full and the event was dropped.
type Pusher interface {
	Push(h Handle, ev *Event) bool
}
