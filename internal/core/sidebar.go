package core

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// Aggregator computes conversation summaries. Every call recomputes from the
// store and the registry; nothing is cached.
type Aggregator struct {
	store    store.Store
	registry *Registry
	log      *zerolog.Logger
}

// NewAggregator builds an Aggregator.
func NewAggregator(st store.Store, registry *Registry, logger *zerolog.Logger) *Aggregator {
	return &Aggregator{store: st, registry: registry, log: logger}
}

// ConversationsFor returns userID's summaries, most recently updated first.
func (a *Aggregator) ConversationsFor(ctx context.Context, userID int64) ([]Summary, error) {
	convs, err := a.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, storeError("list conversations", err)
	}

	summaries := make([]Summary, 0, len(convs))
	for _, conv := range convs {
		peerID := conv.PeerOf(userID)

		peer, err := a.store.GetUserByID(ctx, peerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				a.log.Warn().Int64("conversation_id", conv.ID).Int64("peer_id", peerID).Msg("sidebar peer not found, skipping")
				continue
			}
			return nil, storeError("load peer", err)
		}

		unseen, err := a.store.CountUnseen(ctx, conv.ID, peerID)
		if err != nil {
			return nil, storeError("count unseen", err)
		}

		summary := Summary{
			ConversationID: conv.ID,
			Peer:           a.peer(peer),
			UnseenCount:    unseen,
			UpdatedAt:      conv.UpdatedAt,
		}

		last, err := a.store.LastMessage(ctx, conv.ID)
		switch {
		case err == nil:
			m := messageFromStore(last)
			summary.LastMessage = &m
		case !errors.Is(err, store.ErrNotFound):
			return nil, storeError("last message", err)
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func (a *Aggregator) peer(u *store.User) Peer {
	return Peer{
		ID:        u.ID,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Online:    a.registry.IsOnline(u.ID),
	}
}
