package core

import (
	"context"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-relay/internal/store"
	"github.com/vovakirdan/wirechat-relay/internal/store/sqlite"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// collectUntil returns every event received up to and including the first of kind.
func collectUntil(t *testing.T, ch <-chan *Event, kind EventKind) []*Event {
	t.Helper()

	var events []*Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			events = append(events, ev)
			if ev.Kind == kind {
				return events
			}
		case <-timeout:
			t.Fatalf("expected event kind %v not received, got %d other events", kind, len(events))
			return nil
		}
	}
}

// drain empties ch without waiting and returns what it held.
func drain(ch <-chan *Event) []*Event {
	var events []*Event
	for {
		select {
		case ev := <-ch:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func countKind(events []*Event, kind EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestHub(t *testing.T, st store.Store, opts ...Option) *Hub {
	t.Helper()
	return NewHub(st, nil, opts...)
}

func seedUser(t *testing.T, st store.UserStore, name string) *store.User {
	t.Helper()

	u, err := st.CreateUser(context.Background(), name, "https://cdn/"+name+".png", "hash")
	if err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return u
}

// connect opens a session for u and serves its commands until the test ends.
func connect(t *testing.T, ctx context.Context, hub *Hub, u *store.User) *Session {
	t.Helper()

	s := hub.Open(ctx, u)
	go hub.Serve(ctx, s)
	t.Cleanup(func() {
		s.EndCommands()
		hub.Disconnect(context.Background(), s)
	})
	return s
}
