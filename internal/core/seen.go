package core

import (
	"context"
	"errors"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// markSeen flips every unseen message peerID sent to viewerID, then refreshes
// both sidebars. Without a conversation there is nothing to flip.
func (h *Hub) markSeen(ctx context.Context, viewerID, peerID int64) error {
	if _, err := h.lookupUser(ctx, peerID); err != nil {
		return err
	}

	conv, err := h.store.FindConversation(ctx, viewerID, peerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return storeError("find conversation", err)
	}

	changed, err := h.store.MarkSeen(ctx, conv.ID, peerID)
	if err != nil {
		return storeError("mark seen", err)
	}
	h.log.Debug().Int64("conversation_id", conv.ID).Int64("viewer_id", viewerID).Int64("changed", changed).Msg("messages marked seen")

	if peerID == viewerID {
		h.refreshSidebars(ctx, viewerID)
	} else {
		h.refreshSidebars(ctx, viewerID, peerID)
	}
	return nil
}
