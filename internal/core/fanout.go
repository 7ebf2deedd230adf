package core

import (
	"context"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// publish delivers the current thread of conv to every live session of both
// participants, then refreshes both sidebars. Users without sessions are skipped.
// The message is already stored, so delivery failures are logged, not returned.
func (h *Hub) publish(ctx context.Context, conv *store.Conversation, senderID, receiverID int64) {
	recipients := []int64{senderID}
	if receiverID != senderID {
		recipients = append(recipients, receiverID)
	}

	online := false
	for _, id := range recipients {
		if h.registry.IsOnline(id) {
			online = true
			break
		}
	}
	if !online {
		return
	}

	stored, err := h.store.ListMessages(ctx, conv.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("conversation_id", conv.ID).Msg("thread fan-out skipped")
		return
	}
	messages := messagesFromStore(stored)

	for _, userID := range recipients {
		peerID := conv.PeerOf(userID)
		for _, s := range h.registry.SessionsFor(userID) {
			if !s.Send(&Event{Kind: EventThread, PeerID: peerID, ConversationID: conv.ID, Messages: messages}) {
				h.log.Warn().Int64("user_id", userID).Str("session_id", s.ID).Msg("thread dropped for slow session")
			}
		}
	}

	h.refreshSidebars(ctx, recipients...)
}

// refreshSidebars pushes fresh sidebars after a committed write. A failed
// recompute leaves that user's sidebar stale until their next update.
func (h *Hub) refreshSidebars(ctx context.Context, userIDs ...int64) {
	for _, userID := range userIDs {
		if err := h.pushSidebar(ctx, userID); err != nil {
			h.log.Error().Err(err).Int64("user_id", userID).Msg("sidebar refresh failed")
		}
	}
}

// pushSidebar recomputes userID's sidebar and sends it to each of their sessions.
func (h *Hub) pushSidebar(ctx context.Context, userID int64) error {
	sessions := h.registry.SessionsFor(userID)
	if len(sessions) == 0 {
		return nil
	}

	summaries, err := h.sidebar.ConversationsFor(ctx, userID)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		s.Send(&Event{Kind: EventSidebar, Conversations: summaries})
	}
	return nil
}
