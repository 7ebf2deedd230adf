package core

import (
	"slices"
	"sync"
)

// Registry maps user IDs to their live sessions. A user is online while
// at least one of their sessions is registered.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int64]map[*Session]struct{}
	total  int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byUser: make(map[int64]map[*Session]struct{})}
}

// Register adds s. It reports true when s is the user's first session.
func (r *Registry) Register(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.byUser[s.UserID]
	if !ok {
		sessions = make(map[*Session]struct{})
		r.byUser[s.UserID] = sessions
	}
	if _, exists := sessions[s]; exists {
		return false
	}
	sessions[s] = struct{}{}
	r.total++
	return len(sessions) == 1
}

// Unregister removes s. It reports true when s was the user's last session.
func (r *Registry) Unregister(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.byUser[s.UserID]
	if !ok {
		return false
	}
	if _, exists := sessions[s]; !exists {
		return false
	}
	delete(sessions, s)
	r.total--
	if len(sessions) == 0 {
		delete(r.byUser, s.UserID)
		return true
	}
	return false
}

// SessionsFor returns a copy of the user's live sessions, possibly empty.
func (r *Registry) SessionsFor(userID int64) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := r.byUser[userID]
	out := make([]*Session, 0, len(sessions))
	for s := range sessions {
		out = append(out, s)
	}
	return out
}

// IsOnline reports whether the user has a live session.
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// OnlineUsers returns the sorted online user set.
func (r *Registry) OnlineUsers() []int64 {
	r.mu.RLock()
	users := make([]int64, 0, len(r.byUser))
	for id := range r.byUser {
		users = append(users, id)
	}
	r.mu.RUnlock()

	slices.Sort(users)
	return users
}

// Sessions returns a copy of every live session.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, r.total)
	for _, sessions := range r.byUser {
		for s := range sessions {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}
