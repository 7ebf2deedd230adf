package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeOpenThread     = "open-thread"
	InboundTypeMarkSeen       = "mark-seen"
	InboundTypeSendMessage    = "send-message"
	InboundTypeRequestSidebar = "request-sidebar"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventPeerSnapshot = "peer-snapshot"
	EventThread       = "thread"
	EventSidebar      = "sidebar"
	EventOnlineUsers  = "online-users"
)

// PeerData addresses another user (open-thread, mark-seen).
type PeerData struct {
	PeerID int64 `json:"peer_id"`
}

// SendMessageData is an outgoing chat message. At least one of the content
// fields must be non-empty.
type SendMessageData struct {
	ReceiverID int64  `json:"receiver_id"`
	Text       string `json:"text,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	VideoURL   string `json:"video_url,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Peer is a user snapshot with its online flag.
type Peer struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Online    bool   `json:"online"`
}

// Message is a persisted chat message. TS is milliseconds since the epoch.
type Message struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversation_id"`
	SenderID       int64  `json:"sender_id"`
	Text           string `json:"text,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	VideoURL       string `json:"video_url,omitempty"`
	Seen           bool   `json:"seen"`
	TS             int64  `json:"ts"`
}

// ThreadData carries the full thread between the recipient and PeerID.
// ConversationID is 0 when the pair has not exchanged messages yet.
type ThreadData struct {
	ConversationID int64     `json:"conversation_id"`
	PeerID         int64     `json:"peer_id"`
	Messages       []Message `json:"messages"`
}

// Conversation is one sidebar entry.
type Conversation struct {
	ID          int64    `json:"id"`
	Peer        Peer     `json:"peer"`
	LastMessage *Message `json:"last_message,omitempty"`
	UnseenCount int      `json:"unseen_count"`
	UpdatedAt   int64    `json:"updated_at"`
}

// SidebarData carries the recipient's conversations, most recent first.
type SidebarData struct {
	Conversations []Conversation `json:"conversations"`
}

// OnlineUsersData carries the full online user set.
type OnlineUsersData struct {
	Users []int64 `json:"users"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
