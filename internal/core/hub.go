package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/wirerelay/internal/callengine"
	"github.com/vovakirdan/wirerelay/internal/store"
)

// DefaultBacklog is how many broadcast messages a joiner receives.
const DefaultBacklog = 50

// Hub owns the connection table and dispatches client commands to the
// presence registry, the message router and the call coordinator.
//
// Commands from one client are handled in order by that client's serving
// goroutine; different clients are served concurrently.
type Hub struct {
	presence *Registry
	router   *Router
	calls    *Signaling
	backlog  int
	log      *zerolog.Logger

	mu      sync.RWMutex
	clients map[Handle]*Client

	// notifyMu orders directory snapshots with their fan-out.
	notifyMu sync.Mutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewHub creates a hub persisting messages to st. engine is optional; a
// negative backlog disables the join backlog and zero selects DefaultBacklog.
func NewHub(st store.MessageStore, engine callengine.Engine, backlog int, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if backlog == 0 {
		backlog = DefaultBacklog
	}

	h := &Hub{
		presence:   NewRegistry(),
		backlog:    backlog,
		log:        logger,
		clients:    make(map[Handle]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	h.router = NewRouter(h.presence, st, h, logger)
	h.calls = NewSignaling(h.presence, h, engine, logger)
	return h
}

// Presence exposes the registry for read-only queries.
func (h *Hub) Presence() *Registry { return h.presence }

// Router exposes the message router for the history query interface.
func (h *Hub) Router() *Router { return h.router }

// Calls exposes the call coordinator.
func (h *Hub) Calls() *Signaling { return h.calls }

// Run serves registrations until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.wg.Wait()
			h.log.Info().Msg("hub stopped")
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.ID] = c
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Str("client_id", string(c.ID)).Int("clients", total).Msg("client registered")

			h.wg.Add(1)
			go func() {
				defer h.wg.Done()
				h.serve(ctx, c)
			}()
		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.ID]; ok && cur == c {
				delete(h.clients, c.ID)
				close(c.quit)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Str("client_id", string(c.ID)).Int("clients", total).Msg("client unregistered")
		}
	}
}

// RegisterClient adds a connection to the hub.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient reports that a connection is gone. Its presence entry, if
// still current, is removed once queued commands stop being served.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// clientCount returns the number of live connections.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Push implements Pusher over the connection table.
func (h *Hub) Push(handle Handle, ev *Event) bool {
	h.mu.RLock()
	c, ok := h.clients[handle]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if !c.deliver(ev) {
		h.log.Warn().Str("client_id", string(handle)).Msg("dropping event for slow client")
		return false
	}
	return true
}

func (h *Hub) serve(ctx context.Context, c *Client) {
	defer h.disconnect(c)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.quit:
			return
		case cmd := <-c.Commands:
			if cmd != nil {
				h.dispatch(ctx, c, cmd)
			}
		}
	}
}

// dispatch executes one command on behalf of c. Failures are reported to c
// as error events and never close the connection.
func (h *Hub) dispatch(ctx context.Context, c *Client, cmd *Command) {
	var err error
	if cmd.Kind == CommandJoin {
		err = h.join(ctx, c, cmd.Name)
	} else {
		identity, ok := h.presence.IdentityOf(c.ID)
		if !ok {
			err = ErrUnauthenticated
		} else {
			err = h.dispatchAs(ctx, c, identity, cmd)
		}
	}

	if err != nil {
		h.log.Debug().Err(err).Str("client_id", string(c.ID)).Int("command", int(cmd.Kind)).Msg("command failed")
		c.deliver(&Event{Kind: EventError, Error: toCoreError(err)})
	}
}

func (h *Hub) dispatchAs(ctx context.Context, c *Client, identity string, cmd *Command) error {
	switch cmd.Kind {
	case CommandBroadcast:
		_, err := h.router.Broadcast(ctx, identity, cmd.Text)
		return err
	case CommandPrivateMessage:
		_, err := h.router.SendDirect(ctx, identity, cmd.Peer, cmd.Text)
		return err
	case CommandRequestCall:
		return h.calls.RequestCall(ctx, identity, cmd.Peer, cmd.Payload)
	case CommandAcceptCall:
		return h.calls.AcceptCall(ctx, identity, cmd.Peer, cmd.Payload)
	case CommandDeclineCall:
		return h.calls.DeclineCall(ctx, identity, cmd.Peer, cmd.Reason)
	case CommandHistory:
		messages, err := h.router.HistoryFor(ctx, identity, cmd.Peer)
		if err != nil {
			return err
		}
		c.deliver(&Event{Kind: EventHistory, Peer: cmd.Peer, Messages: messages})
		return nil
	default:
		return fmt.Errorf("%w: unknown command %d", ErrBadRequest, cmd.Kind)
	}
}

func (h *Hub) join(ctx context.Context, c *Client, name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrBadRequest)
	}

	change := h.presence.Join(name, c.ID)
	if change.Renamed != "" {
		h.calls.Abandon(change.Renamed)
	}
	logEv := h.log.Info().Str("client_id", string(c.ID)).Str("user", name)
	if change.Superseded != "" {
		logEv = logEv.Str("superseded", string(change.Superseded))
	}
	logEv.Msg("user joined")

	h.broadcastUsers()

	if h.backlog > 0 {
		messages, err := h.router.Backlog(ctx, h.backlog)
		if err != nil {
			return err
		}
		c.deliver(&Event{Kind: EventHistory, Messages: messages})
	}
	return nil
}

func (h *Hub) disconnect(c *Client) {
	identity, removed, _ := h.presence.Leave(c.ID)
	if !removed {
		return
	}
	if n := h.calls.Abandon(identity); n > 0 {
		h.log.Debug().Str("user", identity).Int("handshakes", n).Msg("abandoned pending calls")
	}
	h.log.Info().Str("client_id", string(c.ID)).Str("user", identity).Msg("user left")
	h.broadcastUsers()
}

// broadcastUsers sends the current directory to every connection, joined or
// not. The snapshot is taken under notifyMu, so the last list a connection
// receives is never older than the registry state when it was sent.
func (h *Hub) broadcastUsers() {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	users := h.presence.Identities()
	h.mu.RLock()
	clients := lo.Values(h.clients)
	h.mu.RUnlock()

	ev := &Event{Kind: EventUserList, Users: users}
	for _, c := range clients {
		c.deliver(ev)
	}
}
