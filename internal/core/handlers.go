package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// Handle executes cmd on behalf of s. Failures are reported to s only.
//
// Store work runs on a context detached from ctx so that a write which has
// started completes even if the session disconnects mid-operation.
func (h *Hub) Handle(ctx context.Context, s *Session, cmd *Command) {
	opCtx := context.WithoutCancel(ctx)

	var err error
	switch cmd.Kind {
	case CommandOpenThread:
		err = h.openThread(opCtx, s, cmd.PeerID)
	case CommandSendMessage:
		err = h.sendMessage(opCtx, s, cmd.PeerID, cmd.Draft)
	case CommandMarkSeen:
		err = h.markSeen(opCtx, s.UserID, cmd.PeerID)
	case CommandRequestSidebar:
		err = h.requestSidebar(opCtx, s)
	default:
		err = coreError(ErrCodeBadRequest, "unknown command")
	}
	if err != nil {
		h.reportError(s, cmd, err)
	}
}

func (h *Hub) reportError(s *Session, cmd *Command, err error) {
	ce := toCoreError(err)
	ev := h.log.Debug()
	if ce.Code == ErrCodeStoreUnavailable {
		ev = h.log.Error()
	}
	ev.Err(err).
		Int64("user_id", s.UserID).
		Str("session_id", s.ID).
		Int("command", int(cmd.Kind)).
		Str("code", ce.Code).
		Msg("command failed")
	s.Send(&Event{Kind: EventError, Error: ce})
}

func (h *Hub) openThread(ctx context.Context, s *Session, peerID int64) error {
	peer, err := h.Peer(ctx, peerID)
	if err != nil {
		return err
	}
	convID, messages, err := h.conversations.MessagesFor(ctx, s.UserID, peerID)
	if err != nil {
		return err
	}

	s.Send(&Event{Kind: EventPeerSnapshot, PeerID: peer.ID, Peer: peer})
	s.Send(&Event{Kind: EventThread, PeerID: peerID, ConversationID: convID, Messages: messages})
	return nil
}

func (h *Hub) sendMessage(ctx context.Context, s *Session, receiverID int64, draft Draft) error {
	if err := draft.Validate(); err != nil {
		return err
	}
	if _, err := h.lookupUser(ctx, receiverID); err != nil {
		return err
	}

	conv, err := h.conversations.FindOrCreate(ctx, s.UserID, receiverID)
	if err != nil {
		return err
	}
	msg, err := h.conversations.Append(ctx, conv, s.UserID, draft)
	if err != nil {
		return err
	}
	h.log.Debug().Int64("conversation_id", conv.ID).Int64("message_id", msg.ID).Int64("sender_id", s.UserID).Msg("message stored")

	h.publish(ctx, conv, s.UserID, receiverID)
	return nil
}

func (h *Hub) requestSidebar(ctx context.Context, s *Session) error {
	summaries, err := h.sidebar.ConversationsFor(ctx, s.UserID)
	if err != nil {
		return err
	}
	s.Send(&Event{Kind: EventSidebar, Conversations: summaries})
	return nil
}

func (h *Hub) lookupUser(ctx context.Context, userID int64) (*store.User, error) {
	u, err := h.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return nil, storeError("load user", err)
	}
	return u, nil
}

// Sidebar returns userID's conversation summaries.
func (h *Hub) Sidebar(ctx context.Context, userID int64) ([]Summary, error) {
	return h.sidebar.ConversationsFor(ctx, userID)
}

// Thread returns the conversation ID and messages between userID and peerID.
// The peer must exist; a missing conversation yields an empty thread.
func (h *Hub) Thread(ctx context.Context, userID, peerID int64) (int64, []Message, error) {
	if _, err := h.lookupUser(ctx, peerID); err != nil {
		return 0, nil, err
	}
	return h.conversations.MessagesFor(ctx, userID, peerID)
}

// Peer returns a snapshot of the user with their online flag.
func (h *Hub) Peer(ctx context.Context, peerID int64) (*Peer, error) {
	u, err := h.lookupUser(ctx, peerID)
	if err != nil {
		return nil, err
	}
	p := h.sidebar.peer(u)
	return &p, nil
}

// AsCoreError maps err onto the wire error taxonomy.
func AsCoreError(err error) *CoreError {
	return toCoreError(err)
}
