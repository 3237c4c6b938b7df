package http

import (
	"github.com/samber/lo"

	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/proto"
)

const (
	errCodeInvalidMessage = "invalid_message"
	errCodeRateLimited    = "rate_limited"
)

// inboundToCommand maps a client frame onto a core command. A non-nil
// proto.Error is reported back to the client and the connection stays open.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		join, err := proto.DecodeJoin(inbound.Data)
		if err != nil {
			return nil, badRequest("name is required (1-64 chars)")
		}
		return &core.Command{Kind: core.CommandJoin, Name: join.Name}, nil
	case proto.InboundTypeMessage:
		msg, err := proto.DecodeMessage(inbound.Data)
		if err != nil {
			return nil, badRequest("msg is required")
		}
		return &core.Command{Kind: core.CommandBroadcast, Text: msg.Msg}, nil
	case proto.InboundTypePrivateMessage:
		var pm proto.PrivateMessageData
		if err := proto.Decode(inbound.Data, &pm); err != nil {
			return nil, badRequest("recipient and msg are required")
		}
		return &core.Command{Kind: core.CommandPrivateMessage, Peer: pm.Recipient, Text: pm.Msg}, nil
	case proto.InboundTypeRequestCall, proto.InboundTypeAcceptCall:
		var call proto.CallData
		if err := proto.Decode(inbound.Data, &call); err != nil {
			return nil, badRequest("recipient is required")
		}
		kind := core.CommandRequestCall
		if inbound.Type == proto.InboundTypeAcceptCall {
			kind = core.CommandAcceptCall
		}
		return &core.Command{Kind: kind, Peer: call.Recipient, Payload: call.Payload}, nil
	case proto.InboundTypeDeclineCall:
		var decline proto.DeclineData
		if err := proto.Decode(inbound.Data, &decline); err != nil {
			return nil, badRequest("recipient is required")
		}
		return &core.Command{Kind: core.CommandDeclineCall, Peer: decline.Recipient, Reason: decline.Reason}, nil
	case proto.InboundTypeHistory:
		var hist proto.HistoryData
		if err := proto.Decode(inbound.Data, &hist); err != nil {
			return nil, badRequest("peer is required")
		}
		return &core.Command{Kind: core.CommandHistory, Peer: hist.Peer}, nil
	default:
		return nil, &proto.Error{Code: errCodeInvalidMessage, Msg: "unknown message type"}
	}
}

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

func chatFromMessage(m core.Message) proto.EventChat {
	return proto.EventChat{
		ID:        m.ID,
		Sender:    m.From,
		Recipient: m.To,
		Msg:       m.Text,
		TS:        m.CreatedAt.Unix(),
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventUserList:
		return eventOutbound(proto.EventUserList, proto.EventUsers{Users: event.Users})
	case core.EventMessage:
		return eventOutbound(proto.EventMessage, chatFromMessage(event.Message))
	case core.EventPrivateMessage:
		return eventOutbound(proto.EventPrivateMessage, chatFromMessage(event.Message))
	case core.EventHistory:
		return eventOutbound(proto.EventHistory, proto.EventHistoryData{
			Peer:     event.Peer,
			Messages: lo.Map(event.Messages, func(m core.Message, _ int) proto.EventChat { return chatFromMessage(m) }),
		})
	case core.EventCallIncoming:
		return eventOutbound(proto.EventIncomingCall, callData(event))
	case core.EventCallAccepted:
		return eventOutbound(proto.EventCallAccepted, callData(event))
	case core.EventCallDeclined:
		return eventOutbound(proto.EventCallDeclined, callData(event))
	case core.EventCallJoinInfo:
		return eventOutbound(proto.EventCallJoinInfo, callData(event))
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: core.ErrCodeInternal, Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventOutbound(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}

func callData(event *core.Event) proto.EventCall {
	if event.Call == nil {
		return proto.EventCall{}
	}
	return proto.EventCall{
		Sender:  event.Call.From,
		Payload: event.Call.Payload,
		Reason:  event.Call.Reason,
		Join:    event.Call.JoinInfo,
	}
}
