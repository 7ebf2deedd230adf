package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

// ws_smoke sends one message to a peer and prints frames until the thread
// containing it comes back.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

type inboundFrame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "access token (relay token --user-id N)")
	peer := flag.Int64("peer", 0, "receiver user ID")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	if *token == "" || *peer <= 0 {
		return fmt.Errorf("-token and -peer are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr+"?token="+*token, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	payload, err := json.Marshal(proto.SendMessageData{ReceiverID: *peer, Text: *text})
	if err != nil {
		return fmt.Errorf("marshal send-message: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSendMessage, Data: payload}); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	for {
		var frame inboundFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		if frame.Type == proto.OutboundTypeError && frame.Error != nil {
			return fmt.Errorf("server error %s: %s", frame.Error.Code, frame.Error.Msg)
		}
		fmt.Printf("event=%s\n", frame.Event)

		switch frame.Event {
		case proto.EventOnlineUsers:
			var evt proto.OnlineUsersData
			if err := json.Unmarshal(frame.Data, &evt); err == nil {
				fmt.Printf("online: %v\n", evt.Users)
			}
		case proto.EventThread:
			var evt proto.ThreadData
			if err := json.Unmarshal(frame.Data, &evt); err != nil {
				return fmt.Errorf("unmarshal thread: %w", err)
			}
			for _, m := range evt.Messages {
				fmt.Printf("  #%d from=%d seen=%t text=%q\n", m.ID, m.SenderID, m.Seen, m.Text)
			}
			return nil
		}
	}
}
