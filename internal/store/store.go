package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned (wrapped) when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents a user in the system.
type User struct {
	ID           int64
	Name         string
	AvatarURL    string
	PasswordHash string
	CreatedAt    time.Time
}

// Conversation is the durable thread between two users.
// Initiator and Responder are storage slots only; lookups treat the pair as unordered.
type Conversation struct {
	ID          int64
	InitiatorID int64
	ResponderID int64
	PairKey     string // "dm:{minUserId}:{maxUserId}"
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PeerOf returns the other participant as seen by userID.
// For a self-conversation the initiator is returned.
func (c *Conversation) PeerOf(userID int64) int64 {
	if c.InitiatorID == userID && c.ResponderID != userID {
		return c.ResponderID
	}
	return c.InitiatorID
}

// Includes reports whether userID is one of the participants.
func (c *Conversation) Includes(userID int64) bool {
	return c.InitiatorID == userID || c.ResponderID == userID
}

// Message represents a persisted chat message.
type Message struct {
	ID             int64
	ConversationID int64
	SenderID       int64
	Text           string
	ImageURL       string
	VideoURL       string
	Seen           bool
	CreatedAt      time.Time
}

// PairKey builds the unordered key for two user IDs.
func PairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%d:%d", a, b)
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user. passwordHash is produced by the caller.
	CreateUser(ctx context.Context, name, avatarURL, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)
}

// ConversationStore handles conversation and message persistence.
type ConversationStore interface {
	// FindOrCreateConversation returns the conversation for the unordered pair,
	// creating it with a as initiator when none exists. Concurrent callers for the
	// same pair converge on one record.
	FindOrCreateConversation(ctx context.Context, a, b int64) (*Conversation, error)

	// FindConversation looks up the conversation for the unordered pair.
	// Returns an error wrapping ErrNotFound when none exists.
	FindConversation(ctx context.Context, a, b int64) (*Conversation, error)

	// ListConversations lists conversations involving userID, most recently updated first.
	ListConversations(ctx context.Context, userID int64) ([]*Conversation, error)

	// AppendMessage persists msg into the conversation and bumps its updated_at.
	// msg.ID and msg.ConversationID are set on success.
	AppendMessage(ctx context.Context, conversationID int64, msg *Message) error

	// ListMessages returns the conversation's messages in append order.
	ListMessages(ctx context.Context, conversationID int64) ([]*Message, error)

	// LastMessage returns the most recent message, or an error wrapping ErrNotFound.
	LastMessage(ctx context.Context, conversationID int64) (*Message, error)

	// CountUnseen counts messages from senderID that are not yet seen.
	CountUnseen(ctx context.Context, conversationID, senderID int64) (int, error)

	// MarkSeen flips unseen messages from senderID to seen and returns how many changed.
	MarkSeen(ctx context.Context, conversationID, senderID int64) (int64, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ConversationStore

	// Close closes the underlying database connection.
	Close() error
}
