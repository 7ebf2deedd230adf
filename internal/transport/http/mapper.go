package http

import (
	"encoding/json"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

// inboundToCommand maps a client frame to a hub command. A non-nil
// *proto.Error is reported to the client and the connection stays open.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeOpenThread, proto.InboundTypeMarkSeen:
		var data proto.PeerData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "malformed data"}
		}
		if data.PeerID <= 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "peer_id is required"}
		}
		kind := core.CommandOpenThread
		if inbound.Type == proto.InboundTypeMarkSeen {
			kind = core.CommandMarkSeen
		}
		return &core.Command{Kind: kind, PeerID: data.PeerID}, nil
	case proto.InboundTypeSendMessage:
		var data proto.SendMessageData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "malformed data"}
		}
		if data.ReceiverID <= 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "receiver_id is required"}
		}
		return &core.Command{
			Kind:   core.CommandSendMessage,
			PeerID: data.ReceiverID,
			Draft: core.Draft{
				Text:     data.Text,
				ImageURL: data.ImageURL,
				VideoURL: data.VideoURL,
			},
		}, nil
	case proto.InboundTypeRequestSidebar:
		return &core.Command{Kind: core.CommandRequestSidebar}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventPeerSnapshot:
		var data proto.Peer
		if event.Peer != nil {
			data = peerToProto(*event.Peer)
		}
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventPeerSnapshot, Data: data}
	case core.EventThread:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventThread,
			Data:  threadToProto(event.ConversationID, event.PeerID, event.Messages),
		}
	case core.EventSidebar:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventSidebar,
			Data:  sidebarToProto(event.Conversations),
		}
	case core.EventOnlineUsers:
		users := event.OnlineUsers
		if users == nil {
			users = []int64{}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventOnlineUsers,
			Data:  proto.OnlineUsersData{Users: users},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func peerToProto(p core.Peer) proto.Peer {
	return proto.Peer{ID: p.ID, Name: p.Name, AvatarURL: p.AvatarURL, Online: p.Online}
}

func messageToProto(m core.Message) proto.Message {
	return proto.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		ImageURL:       m.ImageURL,
		VideoURL:       m.VideoURL,
		Seen:           m.Seen,
		TS:             m.CreatedAt.UnixMilli(),
	}
}

func threadToProto(conversationID, peerID int64, messages []core.Message) proto.ThreadData {
	out := make([]proto.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageToProto(m))
	}
	return proto.ThreadData{ConversationID: conversationID, PeerID: peerID, Messages: out}
}

func sidebarToProto(summaries []core.Summary) proto.SidebarData {
	out := make([]proto.Conversation, 0, len(summaries))
	for _, s := range summaries {
		conv := proto.Conversation{
			ID:          s.ConversationID,
			Peer:        peerToProto(s.Peer),
			UnseenCount: s.UnseenCount,
			UpdatedAt:   s.UpdatedAt.UnixMilli(),
		}
		if s.LastMessage != nil {
			last := messageToProto(*s.LastMessage)
			conv.LastMessage = &last
		}
		out = append(out, conv)
	}
	return proto.SidebarData{Conversations: out}
}
