// Package storetest holds behaviour checks shared by every store.MessageStore backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirerelay/internal/store"
)

// Run exercises a fresh store produced by open for each sub-test.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("conversation is symmetric and ordered", func(t *testing.T) {
		testConversation(t, open(t))
	})
	t.Run("equal timestamps keep insertion order", func(t *testing.T) {
		testTies(t, open(t))
	})
	t.Run("conversation limit keeps newest", func(t *testing.T) {
		testConversationLimit(t, open(t))
	})
	t.Run("broadcast backlog", func(t *testing.T) {
		testBroadcasts(t, open(t))
	})
	t.Run("concurrent writers", func(t *testing.T) {
		testConcurrent(t, open(t))
	})
}

func save(t *testing.T, st store.Store, sender, recipient, body string, at time.Time) *store.Message {
	t.Helper()
	msg := &store.Message{Sender: sender, Recipient: recipient, Body: body, CreatedAt: at}
	require.NoError(t, st.SaveMessage(context.Background(), msg))
	require.NotZero(t, msg.ID)
	return msg
}

func bodies(messages []*store.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Body)
	}
	return out
}

func testConversation(t *testing.T, st store.Store) {
	req := require.New(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	save(t, st, "alice", "bob", "second", base.Add(2*time.Second))
	save(t, st, "bob", "alice", "first", base.Add(time.Second))
	save(t, st, "alice", "", "to everyone", base.Add(3*time.Second))
	save(t, st, "alice", "carol", "not for bob", base.Add(4*time.Second))
	save(t, st, "bob", "alice", "third", base.Add(5*time.Second))

	ab, err := st.ListConversation(ctx, "alice", "bob", 0)
	req.NoError(err)
	ba, err := st.ListConversation(ctx, "bob", "alice", 0)
	req.NoError(err)

	req.Equal([]string{"first", "second", "third"}, bodies(ab))
	req.Equal(ab, ba)

	req.Equal("bob", ab[0].Sender)
	req.Equal("alice", ab[0].Recipient)
	req.True(ab[0].CreatedAt.Equal(base.Add(time.Second)))

	none, err := st.ListConversation(ctx, "bob", "carol", 0)
	req.NoError(err)
	req.Empty(none)
}

func testTies(t *testing.T, st store.Store) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		save(t, st, "alice", "bob", fmt.Sprintf("m%d", i), at)
	}

	got, err := st.ListConversation(context.Background(), "bob", "alice", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"m0", "m1", "m2", "m3", "m4"}, bodies(got))
}

func testConversationLimit(t *testing.T, st store.Store) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		save(t, st, "alice", "bob", fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Second))
	}

	got, err := st.ListConversation(context.Background(), "alice", "bob", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"m4", "m5"}, bodies(got))
}

func testBroadcasts(t *testing.T, st store.Store) {
	req := require.New(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		save(t, st, "alice", "", fmt.Sprintf("b%d", i), base.Add(time.Duration(i)*time.Second))
	}
	save(t, st, "alice", "bob", "direct", base.Add(10*time.Second))

	got, err := st.ListBroadcasts(ctx, 3)
	req.NoError(err)
	req.Equal([]string{"b1", "b2", "b3"}, bodies(got))
	for _, m := range got {
		req.True(m.IsBroadcast())
	}

	empty, err := st.ListBroadcasts(ctx, 0)
	req.NoError(err)
	req.Empty(empty)
}

func testConcurrent(t *testing.T, st store.Store) {
	req := require.New(t)
	base := time.Now().UTC()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			sender, recipient := "alice", "bob"
			if w%2 == 1 {
				sender, recipient = recipient, sender
			}
			for i := 0; i < 10; i++ {
				msg := &store.Message{
					Sender:    sender,
					Recipient: recipient,
					Body:      fmt.Sprintf("w%d-%d", w, i),
					CreatedAt: base.Add(time.Duration(i*4+w) * time.Millisecond),
				}
				if err := st.SaveMessage(context.Background(), msg); err != nil {
					t.Errorf("save: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	got, err := st.ListConversation(context.Background(), "alice", "bob", 0)
	req.NoError(err)
	req.Len(got, 40)
	for i := 1; i < len(got); i++ {
		req.False(got[i].CreatedAt.Before(got[i-1].CreatedAt), "history out of order at %d", i)
	}
}
