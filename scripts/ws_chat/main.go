package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirerelay/internal/proto"
)

// frame is an outbound message with its data left raw for per-event decoding.
type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "name to join as")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.InboundTypeJoin, proto.JoinData{Name: *user}); err != nil {
		return fmt.Errorf("join: %w", err)
	}

	fmt.Printf("Connected to %s as %s\n", *addr, *user)
	fmt.Println("Type a message to broadcast. Commands: /pm <user> <text>, /call <user>, /accept <user>, /decline <user>, /history <user>. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	return wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload})
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var out frame
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}
		if out.Type == proto.OutboundTypeError && out.Error != nil {
			fmt.Printf("! %s: %s\n", out.Error.Code, out.Error.Msg)
			continue
		}
		if err := printEvent(out); err != nil {
			log.Printf("decode %s: %v", out.Event, err)
		}
	}
}

func printEvent(out frame) error {
	switch out.Event {
	case proto.EventUserList:
		var evt proto.EventUsers
		if err := json.Unmarshal(out.Data, &evt); err != nil {
			return err
		}
		fmt.Printf("* online: %s\n", strings.Join(evt.Users, ", "))
	case proto.EventMessage:
		var evt proto.EventChat
		if err := json.Unmarshal(out.Data, &evt); err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", evt.Sender, evt.Msg)
	case proto.EventPrivateMessage:
		var evt proto.EventChat
		if err := json.Unmarshal(out.Data, &evt); err != nil {
			return err
		}
		fmt.Printf("[%s -> %s] %s\n", evt.Sender, evt.Recipient, evt.Msg)
	case proto.EventHistory:
		var evt proto.EventHistoryData
		if err := json.Unmarshal(out.Data, &evt); err != nil {
			return err
		}
		for _, m := range evt.Messages {
			fmt.Printf("  (history) %s: %s\n", m.Sender, m.Msg)
		}
	case proto.EventIncomingCall:
		var evt proto.EventCall
		if err := json.Unmarshal(out.Data, &evt); err != nil {
			return err
		}
		fmt.Printf("* %s is calling, /accept %s or /decline %s\n", evt.Sender, evt.Sender, evt.Sender)
	case proto.EventCallAccepted, proto.EventCallJoinInfo:
		var evt proto.EventCall
		if err := json.Unmarshal(out.Data, &evt); err != nil {
			return err
		}
		fmt.Printf("* call with %s is on\n", evt.Sender)
		if evt.Join != nil {
			fmt.Printf("  room=%s url=%s\n", evt.Join.RoomName, evt.Join.URL)
		}
	case proto.EventCallDeclined:
		var evt proto.EventCall
		if err := json.Unmarshal(out.Data, &evt); err != nil {
			return err
		}
		fmt.Printf("* %s declined: %s\n", evt.Sender, evt.Reason)
	default:
		fmt.Printf("event=%s data=%s\n", out.Event, out.Data)
	}
	return nil
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			typ, data := parseLine(text)
			if typ == "" {
				fmt.Println("! usage: /pm <user> <text>")
				continue
			}
			if err := send(ctx, conn, typ, data); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

// parseLine turns a typed line into an inbound message type and payload.
func parseLine(text string) (string, any) {
	if !strings.HasPrefix(text, "/") {
		return proto.InboundTypeMessage, proto.MessageData{Msg: text}
	}
	cmd, rest, _ := strings.Cut(text, " ")
	rest = strings.TrimSpace(rest)
	peer, body, _ := strings.Cut(rest, " ")

	switch cmd {
	case "/pm":
		if peer == "" || body == "" {
			return "", nil
		}
		return proto.InboundTypePrivateMessage, proto.PrivateMessageData{Recipient: peer, Msg: body}
	case "/call":
		return proto.InboundTypeRequestCall, proto.CallData{Recipient: peer}
	case "/accept":
		return proto.InboundTypeAcceptCall, proto.CallData{Recipient: peer}
	case "/decline":
		return proto.InboundTypeDeclineCall, proto.DeclineData{Recipient: peer, Reason: body}
	case "/history":
		return proto.InboundTypeHistory, proto.HistoryData{Peer: peer}
	default:
		return proto.InboundTypeMessage, proto.MessageData{Msg: text}
	}
}
