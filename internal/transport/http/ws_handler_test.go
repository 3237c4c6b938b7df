package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirerelay/internal/config"
	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/proto"
	"github.com/vovakirdan/wirerelay/internal/store/sqlite"
)

type testServer struct {
	*httptest.Server
	hub *core.Hub
}

func startTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.Nop()
	hub := core.NewHub(st, nil, -1, &logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	cfg := config.Default()
	cfg.Addr = ":0"
	for _, m := range mutate {
		m(&cfg)
	}

	server := NewServer(hub, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})

	return &testServer{Server: ts, hub: hub}
}

// wire is the client-side view of an outbound frame.
type wire struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func dial(ctx context.Context, t *testing.T, ts *testServer) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}))
}

// readUntil skips frames until match returns true.
func readUntil(ctx context.Context, t *testing.T, conn *websocket.Conn, match func(wire) bool) wire {
	t.Helper()

	for {
		var out wire
		require.NoError(t, wsjson.Read(ctx, conn, &out))
		if match(out) {
			return out
		}
	}
}

func isEvent(name string) func(wire) bool {
	return func(w wire) bool { return w.Type == proto.OutboundTypeEvent && w.Event == name }
}

func isError(w wire) bool { return w.Type == proto.OutboundTypeError }

func join(ctx context.Context, t *testing.T, ts *testServer, conn *websocket.Conn, name string) {
	t.Helper()

	send(ctx, t, conn, proto.InboundTypeJoin, name)
	readUntil(ctx, t, conn, func(w wire) bool {
		if !isEvent(proto.EventUserList)(w) {
			return false
		}
		var users proto.EventUsers
		require.NoError(t, json.Unmarshal(w.Data, &users))
		for _, u := range users.Users {
			if u == name {
				return true
			}
		}
		return false
	})
}

func TestHealthEndpoint(t *testing.T) {
	ts := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, 200, resp.StatusCode)
}

func TestWebSocketUpgradeBecomesPresent(t *testing.T) {
	ts := startTestServer(t)
	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	conn := dial(ctx, t, ts)
	join(ctx, t, ts, conn, "alice")

	_, present := ts.hub.Presence().Resolve("alice")
	require.True(t, present)

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
}

func TestWebSocketBroadcast(t *testing.T) {
	ts := startTestServer(t)
	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	connA := dial(ctx, t, ts)
	connB := dial(ctx, t, ts)
	join(ctx, t, ts, connA, "alice")
	join(ctx, t, ts, connB, "bob")

	send(ctx, t, connA, proto.InboundTypeMessage, map[string]string{"msg": "hi there"})

	for _, conn := range []*websocket.Conn{connA, connB} {
		out := readUntil(ctx, t, conn, isEvent(proto.EventMessage))
		var chat proto.EventChat
		require.NoError(t, json.Unmarshal(out.Data, &chat))
		require.Equal(t, "alice", chat.Sender)
		require.Equal(t, "hi there", chat.Msg)
		require.Empty(t, chat.Recipient)
	}
}

func TestWebSocketPrivateMessageAndHistory(t *testing.T) {
	ts := startTestServer(t)
	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	connA := dial(ctx, t, ts)
	connB := dial(ctx, t, ts)
	join(ctx, t, ts, connA, "alice")
	join(ctx, t, ts, connB, "bob")

	send(ctx, t, connA, proto.InboundTypePrivateMessage, proto.PrivateMessageData{Recipient: "bob", Msg: "hi"})

	for _, conn := range []*websocket.Conn{connB, connA} {
		out := readUntil(ctx, t, conn, isEvent(proto.EventPrivateMessage))
		var chat proto.EventChat
		require.NoError(t, json.Unmarshal(out.Data, &chat))
		require.Equal(t, "alice", chat.Sender)
		require.Equal(t, "bob", chat.Recipient)
		require.Equal(t, "hi", chat.Msg)
	}

	send(ctx, t, connB, proto.InboundTypeHistory, proto.HistoryData{Peer: "alice"})
	out := readUntil(ctx, t, connB, isEvent(proto.EventHistory))
	var hist proto.EventHistoryData
	require.NoError(t, json.Unmarshal(out.Data, &hist))
	require.Equal(t, "alice", hist.Peer)
	require.Len(t, hist.Messages, 1)
	require.Equal(t, "hi", hist.Messages[0].Msg)
}

func TestWebSocketCallHandshake(t *testing.T) {
	ts := startTestServer(t)
	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	connA := dial(ctx, t, ts)
	connB := dial(ctx, t, ts)
	join(ctx, t, ts, connA, "alice")
	join(ctx, t, ts, connB, "bob")

	send(ctx, t, connA, proto.InboundTypeRequestCall, map[string]any{"recipient": "bob", "payload": map[string]string{"sdp": "offer"}})
	out := readUntil(ctx, t, connB, isEvent(proto.EventIncomingCall))
	var call proto.EventCall
	require.NoError(t, json.Unmarshal(out.Data, &call))
	require.Equal(t, "alice", call.Sender)
	require.JSONEq(t, `{"sdp":"offer"}`, string(call.Payload))

	send(ctx, t, connB, proto.InboundTypeAcceptCall, map[string]any{"recipient": "alice", "payload": map[string]string{"sdp": "answer"}})
	out = readUntil(ctx, t, connA, isEvent(proto.EventCallAccepted))
	call = proto.EventCall{}
	require.NoError(t, json.Unmarshal(out.Data, &call))
	require.Equal(t, "bob", call.Sender)
	require.JSONEq(t, `{"sdp":"answer"}`, string(call.Payload))
	require.Nil(t, call.Join)
}

func TestWebSocketErrorsKeepConnectionOpen(t *testing.T) {
	ts := startTestServer(t)
	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	conn := dial(ctx, t, ts)

	send(ctx, t, conn, proto.InboundTypeMessage, "too early")
	out := readUntil(ctx, t, conn, isError)
	require.Equal(t, core.ErrCodeUnauthenticated, out.Error.Code)

	send(ctx, t, conn, "bogus", map[string]string{})
	out = readUntil(ctx, t, conn, isError)
	require.Equal(t, errCodeInvalidMessage, out.Error.Code)

	send(ctx, t, conn, proto.InboundTypePrivateMessage, map[string]string{"msg": "no recipient"})
	out = readUntil(ctx, t, conn, isError)
	require.Equal(t, core.ErrCodeBadRequest, out.Error.Code)

	join(ctx, t, ts, conn, "alice")
}

func TestWebSocketRateLimit(t *testing.T) {
	ts := startTestServer(t, func(cfg *config.Config) { cfg.RateLimitPerMinute = 2 })
	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	conn := dial(ctx, t, ts)
	join(ctx, t, ts, conn, "alice")
	send(ctx, t, conn, proto.InboundTypeMessage, "one")
	readUntil(ctx, t, conn, isEvent(proto.EventMessage))

	send(ctx, t, conn, proto.InboundTypeMessage, "two")
	out := readUntil(ctx, t, conn, isError)
	require.Equal(t, errCodeRateLimited, out.Error.Code)
}

func TestWebSocketDisconnectLeaves(t *testing.T) {
	ts := startTestServer(t)
	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	connA := dial(ctx, t, ts)
	connB := dial(ctx, t, ts)
	join(ctx, t, ts, connA, "alice")
	join(ctx, t, ts, connB, "bob")

	require.NoError(t, connB.Close(websocket.StatusNormalClosure, "bye"))

	readUntil(ctx, t, connA, func(w wire) bool {
		if !isEvent(proto.EventUserList)(w) {
			return false
		}
		var users proto.EventUsers
		require.NoError(t, json.Unmarshal(w.Data, &users))
		return len(users.Users) == 1 && users.Users[0] == "alice"
	})
	_, present := ts.hub.Presence().Resolve("bob")
	require.False(t, present)
}
