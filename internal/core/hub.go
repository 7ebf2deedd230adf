package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// PresenceMirror receives every online-set snapshot the hub broadcasts.
type PresenceMirror interface {
	PublishOnline(ctx context.Context, users []int64) error
}

// Option configures a Hub.
type Option func(*Hub)

// WithPresenceMirror mirrors online snapshots to m.
func WithPresenceMirror(m PresenceMirror) Option {
	return func(h *Hub) { h.presence = m }
}

// WithSessionBuffer sets the event queue size of sessions created by Open.
func WithSessionBuffer(n int) Option {
	return func(h *Hub) { h.sessionBuffer = n }
}

// Hub coordinates sessions, conversations and fan-out.
type Hub struct {
	store         store.Store
	registry      *Registry
	conversations *Conversations
	sidebar       *Aggregator
	presence      PresenceMirror
	sessionBuffer int
	log           *zerolog.Logger

	// presenceMu orders online snapshots so observers never see a stale one last.
	presenceMu sync.Mutex
}

// NewHub creates a hub with an empty registry.
func NewHub(st store.Store, logger *zerolog.Logger, opts ...Option) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	registry := NewRegistry()
	h := &Hub{
		store:         st,
		registry:      registry,
		conversations: NewConversations(st),
		sidebar:       NewAggregator(st, registry, logger),
		sessionBuffer: DefaultSessionBuffer,
		log:           logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Registry exposes the hub's session registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Open creates and connects a session for an authenticated user.
func (h *Hub) Open(ctx context.Context, user *store.User) *Session {
	session := NewSession(user.ID, user.Name, h.sessionBuffer)
	h.Connect(ctx, session)
	return session
}

// Connect registers s and broadcasts the online set to every session.
func (h *Hub) Connect(ctx context.Context, s *Session) {
	h.registry.Register(s)
	h.log.Info().Int64("user_id", s.UserID).Str("session_id", s.ID).Msg("session connected")
	h.broadcastOnline(ctx)
}

// Disconnect closes and unregisters s. The online set is re-broadcast only
// when s was the user's last session.
func (h *Hub) Disconnect(ctx context.Context, s *Session) {
	s.Close()
	last := h.registry.Unregister(s)
	h.log.Info().Int64("user_id", s.UserID).Str("session_id", s.ID).Bool("offline", last).Msg("session disconnected")
	if last {
		h.broadcastOnline(ctx)
	}
}

// Serve processes s's commands in receipt order until Commands is closed.
// Closing the session does not stop it: commands already queued are still
// handled. When ctx ends, whatever is buffered is handled before returning.
func (h *Hub) Serve(ctx context.Context, s *Session) {
	for {
		select {
		case cmd, ok := <-s.Commands:
			if !ok {
				return
			}
			if cmd != nil {
				h.Handle(ctx, s, cmd)
			}
		case <-ctx.Done():
			h.drain(ctx, s)
			return
		}
	}
}

func (h *Hub) drain(ctx context.Context, s *Session) {
	for {
		select {
		case cmd, ok := <-s.Commands:
			if !ok {
				return
			}
			if cmd != nil {
				h.Handle(ctx, s, cmd)
			}
		default:
			return
		}
	}
}

// Shutdown closes every live session.
func (h *Hub) Shutdown() {
	for _, s := range h.registry.Sessions() {
		s.Close()
	}
}

func (h *Hub) broadcastOnline(ctx context.Context) {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	users := h.registry.OnlineUsers()
	for _, s := range h.registry.Sessions() {
		s.Send(&Event{Kind: EventOnlineUsers, OnlineUsers: users})
	}

	if h.presence == nil {
		return
	}
	mirrorCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := h.presence.PublishOnline(mirrorCtx, users); err != nil {
		h.log.Warn().Err(err).Int("online", len(users)).Msg("presence mirror publish failed")
	}
}
