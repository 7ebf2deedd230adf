package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionBuffer is the event queue size used when none is configured.
const DefaultSessionBuffer = 64

// Session is one live connection belonging to an authenticated user.
type Session struct {
	ID        string
	UserID    int64
	Name      string
	CreatedAt time.Time
	Commands  chan *Command
	Events    chan *Event

	done      chan struct{}
	closeOnce sync.Once
	endOnce   sync.Once
}

// NewSession constructs a session with initialized queues.
func NewSession(userID int64, name string, buffer int) *Session {
	if buffer <= 0 {
		buffer = DefaultSessionBuffer
	}
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now(),
		Commands:  make(chan *Command, 8),
		Events:    make(chan *Event, buffer),
		done:      make(chan struct{}),
	}
}

// Send queues an event without blocking. It reports false when the session
// is closed or its queue is full; delivery is best-effort.
func (s *Session) Send(event *Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.Events <- event:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}

// Close marks the session as gone. Safe to call multiple times.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// EndCommands closes Commands once the reader has stopped feeding it.
// Only the goroutine that writes to Commands may call it.
func (s *Session) EndCommands() {
	s.endOnce.Do(func() { close(s.Commands) })
}

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
