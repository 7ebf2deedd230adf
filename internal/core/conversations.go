package core

import (
	"context"
	"errors"
	"sync"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// Conversations wraps the conversation store with per-pair creation
// serialization and message validation.
type Conversations struct {
	store store.ConversationStore
	pairs *pairLocks
}

// NewConversations builds a Conversations over st.
func NewConversations(st store.ConversationStore) *Conversations {
	return &Conversations{store: st, pairs: newPairLocks()}
}

// FindOrCreate returns the single conversation for the unordered pair (a, b).
// Creation for a pair is serialized in-process; the store's unique pair key
// covers anything that bypasses this process.
func (c *Conversations) FindOrCreate(ctx context.Context, a, b int64) (*store.Conversation, error) {
	unlock := c.pairs.lock(store.PairKey(a, b))
	defer unlock()

	conv, err := c.store.FindConversation(ctx, a, b)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, storeError("find conversation", err)
	}

	conv, err = c.store.FindOrCreateConversation(ctx, a, b)
	if err != nil {
		return nil, storeError("create conversation", err)
	}
	return conv, nil
}

// Append validates draft and persists it as senderID's message in conv.
func (c *Conversations) Append(ctx context.Context, conv *store.Conversation, senderID int64, draft Draft) (Message, error) {
	if err := draft.Validate(); err != nil {
		return Message{}, err
	}
	if !conv.Includes(senderID) {
		return Message{}, coreError(ErrCodeBadRequest, "sender is not a participant")
	}

	d := draft.Normalize()
	msg := &store.Message{
		SenderID: senderID,
		Text:     d.Text,
		ImageURL: d.ImageURL,
		VideoURL: d.VideoURL,
	}
	if err := c.store.AppendMessage(ctx, conv.ID, msg); err != nil {
		return Message{}, storeError("append message", err)
	}
	return messageFromStore(msg), nil
}

// MessagesFor returns the thread between a and b in append order, and its
// conversation ID. A missing conversation yields ID 0 and no messages.
func (c *Conversations) MessagesFor(ctx context.Context, a, b int64) (int64, []Message, error) {
	conv, err := c.store.FindConversation(ctx, a, b)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, []Message{}, nil
		}
		return 0, nil, storeError("find conversation", err)
	}

	messages, err := c.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return 0, nil, storeError("list messages", err)
	}
	return conv.ID, messagesFromStore(messages), nil
}

// pairLocks is a refcounted keyed mutex; entries are dropped once unused.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[string]*pairLock)}
}

func (p *pairLocks) lock(key string) (unlock func()) {
	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &pairLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}

func (p *pairLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
