package core

import (
	"slices"
	"sync"
	"testing"
)

func TestRegistryOnlineTransitions(t *testing.T) {
	r := NewRegistry()
	a1 := NewSession(1, "alice", 0)
	a2 := NewSession(1, "alice", 0)
	b := NewSession(2, "bob", 0)

	if !r.Register(a1) {
		t.Fatalf("first session should bring alice online")
	}
	if r.Register(a2) {
		t.Fatalf("second session should not report a transition")
	}
	if r.Register(a2) {
		t.Fatalf("re-registering is a no-op")
	}
	r.Register(b)

	if r.Len() != 3 {
		t.Fatalf("expected 3 sessions, got %d", r.Len())
	}
	if got := r.OnlineUsers(); !slices.Equal(got, []int64{1, 2}) {
		t.Fatalf("unexpected online users: %v", got)
	}
	if got := len(r.SessionsFor(1)); got != 2 {
		t.Fatalf("expected 2 sessions for alice, got %d", got)
	}

	if r.Unregister(a1) {
		t.Fatalf("alice still has a session")
	}
	if !r.IsOnline(1) {
		t.Fatalf("alice should be online")
	}
	if !r.Unregister(a2) {
		t.Fatalf("last session should take alice offline")
	}
	if r.Unregister(a2) {
		t.Fatalf("unregistering twice is a no-op")
	}
	if r.IsOnline(1) || len(r.SessionsFor(1)) != 0 {
		t.Fatalf("alice should be offline")
	}
	if got := r.OnlineUsers(); !slices.Equal(got, []int64{2}) {
		t.Fatalf("unexpected online users: %v", got)
	}
}

func TestRegistrySessionsForReturnsCopy(t *testing.T) {
	r := NewRegistry()
	s := NewSession(1, "alice", 0)
	r.Register(s)

	got := r.SessionsFor(1)
	got[0] = nil

	if r.SessionsFor(1)[0] != s {
		t.Fatalf("registry state mutated through returned slice")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := NewSession(int64(i%5), "u", 0)
			r.Register(s)
			_ = r.OnlineUsers()
			_ = r.IsOnline(int64(i % 5))
			r.Unregister(s)
		}(i)
	}
	wg.Wait()

	if r.Len() != 0 || len(r.OnlineUsers()) != 0 {
		t.Fatalf("registry should be empty, len=%d online=%v", r.Len(), r.OnlineUsers())
	}
}

func TestSessionSendDropsWhenFull(t *testing.T) {
	s := NewSession(1, "alice", 1)

	if !s.Send(&Event{Kind: EventSidebar}) {
		t.Fatalf("first send should fit")
	}
	if s.Send(&Event{Kind: EventSidebar}) {
		t.Fatalf("second send should be dropped")
	}
	s.Close()
	s.Close()
	<-s.Events
	if s.Send(&Event{Kind: EventSidebar}) {
		t.Fatalf("send after close should fail")
	}
}
