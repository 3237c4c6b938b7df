package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirerelay/internal/proto"
)

func TestUsersEndpoint(t *testing.T) {
	ts := startTestServer(t)
	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	join(ctx, t, ts, dial(ctx, t, ts), "bob")
	join(ctx, t, ts, dial(ctx, t, ts), "alice")

	resp := httptest.NewRecorder()
	ts.Config.Handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var users UsersResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &users))
	require.Equal(t, []string{"alice", "bob"}, users.Users)
}

func TestHistoryEndpoint(t *testing.T) {
	ts := startTestServer(t)
	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	connA := dial(ctx, t, ts)
	connB := dial(ctx, t, ts)
	join(ctx, t, ts, connA, "alice")
	join(ctx, t, ts, connB, "bob")
	send(ctx, t, connA, proto.InboundTypePrivateMessage, proto.PrivateMessageData{Recipient: "bob", Msg: "hi"})
	readUntil(ctx, t, connB, isEvent(proto.EventPrivateMessage))

	get := func(target string) *httptest.ResponseRecorder {
		resp := httptest.NewRecorder()
		ts.Config.Handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		return resp
	}

	resp := get("/api/history?user=bob&peer=alice")
	require.Equal(t, http.StatusOK, resp.Code)
	var hist HistoryResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &hist))
	require.Equal(t, "alice", hist.Peer)
	require.Len(t, hist.Messages, 1)
	require.Equal(t, "alice", hist.Messages[0].Sender)
	require.Equal(t, "hi", hist.Messages[0].Msg)

	resp = get("/api/history?user=carol&peer=alice")
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = get("/api/history?user=bob")
	require.Equal(t, http.StatusBadRequest, resp.Code)
}
