package core

import "time"

// EventKind is a notification the core emits to sessions.
type EventKind int

const (
	// EventPeerSnapshot describes the peer of a thread the session opened.
	EventPeerSnapshot EventKind = iota
	// EventThread delivers the full message sequence of a conversation.
	EventThread
	// EventSidebar delivers the session user's conversation summaries.
	EventSidebar
	// EventOnlineUsers broadcasts the online user set.
	EventOnlineUsers
	// EventError notifies the originating session about a failed request.
	EventError
)

var eventKindNames = [...]string{
	EventPeerSnapshot: "peer-snapshot",
	EventThread:       "thread",
	EventSidebar:      "sidebar",
	EventOnlineUsers:  "online-users",
	EventError:        "error",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// Event is sent to sessions to describe what happened in the system.
type Event struct {
	Kind           EventKind
	PeerID         int64 // thread events: the other participant, from the recipient's view
	ConversationID int64
	Peer           *Peer
	Messages       []Message // EventThread
	Conversations  []Summary // EventSidebar
	OnlineUsers    []int64   // EventOnlineUsers
	Error          *CoreError
}

// Peer is a user snapshot with the derived online flag.
type Peer struct {
	ID        int64
	Name      string
	AvatarURL string
	Online    bool
}

// Summary is one sidebar entry as seen by a viewing user.
type Summary struct {
	ConversationID int64
	Peer           Peer
	LastMessage    *Message
	UnseenCount    int
	UpdatedAt      time.Time
}
