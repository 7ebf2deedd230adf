package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandOpenThread requests the peer snapshot and the thread with a peer.
	CommandOpenThread CommandKind = iota
	// CommandSendMessage persists a message to a peer and fans it out.
	CommandSendMessage
	// CommandMarkSeen marks the peer's messages as seen by the sender of the command.
	CommandMarkSeen
	// CommandRequestSidebar requests the conversation list.
	CommandRequestSidebar
)

// Command represents an action requested by a session.
type Command struct {
	Kind   CommandKind
	PeerID int64
	Draft  Draft // for CommandSendMessage
}
