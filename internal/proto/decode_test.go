package proto

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeJoinForms(t *testing.T) {
	join, err := DecodeJoin(json.RawMessage(`"alice"`))
	require.NoError(t, err)
	require.Equal(t, "alice", join.Name)

	join, err = DecodeJoin(json.RawMessage(`{"name":"bob"}`))
	require.NoError(t, err)
	require.Equal(t, "bob", join.Name)

	_, err = DecodeJoin(json.RawMessage(`""`))
	require.Error(t, err)

	_, err = DecodeJoin(json.RawMessage(`"` + strings.Repeat("x", 65) + `"`))
	require.Error(t, err)
}

func TestDecodeMessageForms(t *testing.T) {
	msg, err := DecodeMessage(json.RawMessage(`"hello"`))
	require.NoError(t, err)
	require.Equal(t, "hello", msg.Msg)

	msg, err = DecodeMessage(json.RawMessage(`{"msg":"hi"}`))
	require.NoError(t, err)
	require.Equal(t, "hi", msg.Msg)

	_, err = DecodeMessage(nil)
	require.Error(t, err)
}

func TestDecodeValidatesRequiredFields(t *testing.T) {
	var pm PrivateMessageData
	require.Error(t, Decode(json.RawMessage(`{"msg":"hi"}`), &pm))
	require.NoError(t, Decode(json.RawMessage(`{"recipient":"bob","msg":"hi"}`), &pm))

	var call CallData
	require.NoError(t, Decode(json.RawMessage(`{"recipient":"bob","payload":{"sdp":"x"}}`), &call))
	require.JSONEq(t, `{"sdp":"x"}`, string(call.Payload))

	require.Error(t, Decode(json.RawMessage(`{`), &call))
}
