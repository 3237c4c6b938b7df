package core

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func benchmarkBroadcast(b *testing.B, recipients int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := newTestStore(b)
	hub := NewHub(st, nil, -1, nil)
	go hub.Run(ctx)

	sender := NewClient("sender", 0)
	hub.RegisterClient(sender)

	clients := make([]*Client, 0, recipients)
	for i := range recipients {
		c := NewClient(Handle(fmt.Sprintf("c%d", i)), 0)
		hub.RegisterClient(c)
		clients = append(clients, c)
	}
	for hub.clientCount() < recipients+1 {
		time.Sleep(time.Millisecond)
	}

	hub.dispatch(ctx, sender, &Command{Kind: CommandJoin, Name: "sender"})
	for i, c := range clients {
		hub.dispatch(ctx, c, &Command{Kind: CommandJoin, Name: fmt.Sprintf("client-%d", i)})
	}

	// Drain events for everyone but the target to avoid channel backpressure.
	target := clients[0]
	for _, c := range append(clients[1:], sender) {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}
	for len(target.Events) > 0 {
		<-target.Events
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		hub.dispatch(ctx, sender, &Command{Kind: CommandBroadcast, Text: "payload"})
		<-target.Events
	}
}

func BenchmarkBroadcast_10(b *testing.B)  { benchmarkBroadcast(b, 10) }
func BenchmarkBroadcast_100(b *testing.B) { benchmarkBroadcast(b, 100) }
