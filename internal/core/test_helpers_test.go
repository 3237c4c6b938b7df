package core

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirerelay/internal/store"
	"github.com/vovakirdan/wirerelay/internal/store/sqlite"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// noEvent asserts that no event of kind shows up within a short window.
func noEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func newTestStore(t testing.TB) store.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func startHub(t *testing.T, st store.MessageStore) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(st, nil, -1, nil)
	go hub.Run(ctx)
	return hub
}

// connect registers a client and waits until the hub serves it.
func connect(t *testing.T, hub *Hub, id string) *Client {
	t.Helper()
	c := NewClient(Handle(id), 64)
	hub.RegisterClient(c)
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return hub.clients[c.ID] == c
	}, time.Second, 5*time.Millisecond)
	return c
}

// joinAs joins c under name and waits for a directory that lists it.
func joinAs(t *testing.T, c *Client, name string) {
	t.Helper()
	c.Commands <- &Command{Kind: CommandJoin, Name: name}
	for {
		ev := mustEvent(t, c.Events, EventUserList)
		if slices.Contains(ev.Users, name) {
			return
		}
	}
}

// recordingPusher captures pushes per handle.
type recordingPusher struct {
	mu     sync.Mutex
	pushed map[Handle][]*Event
	dead   map[Handle]bool
}

func newRecordingPusher() *recordingPusher {
	return &recordingPusher{pushed: make(map[Handle][]*Event), dead: make(map[Handle]bool)}
}

func (p *recordingPusher) Push(h Handle, ev *Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dead[h] {
		return false
	}
	p.pushed[h] = append(p.pushed[h], ev)
	return true
}

func (p *recordingPusher) events(h Handle) []*Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Event(nil), p.pushed[h]...)
}

func (p *recordingPusher) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, evs := range p.pushed {
		n += len(evs)
	}
	return n
}

// failingStore rejects every write.
type failingStore struct{}

var errDiskFull = errors.New("disk full")

func (failingStore) SaveMessage(context.Context, *store.Message) error { return errDiskFull }

func (failingStore) ListConversation(context.Context, string, string, int) ([]*store.Message, error) {
	return nil, errDiskFull
}

func (failingStore) ListBroadcasts(context.Context, int) ([]*store.Message, error) {
	return nil, errDiskFull
}
