package presence

import (
	"context"
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestMirror(t *testing.T) (*RedisMirror, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	m, err := NewRedisMirror(context.Background(), "redis://"+srv.Addr(), "relay:online-users")
	if err != nil {
		t.Fatalf("new mirror: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, srv
}

func TestPublishOnlineReplacesSet(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()

	if err := m.PublishOnline(ctx, []int64{1, 2, 3}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := m.PublishOnline(ctx, []int64{2}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got, err := m.Online(ctx)
	if err != nil {
		t.Fatalf("online: %v", err)
	}
	if !slices.Equal(got, []int64{2}) {
		t.Fatalf("expected [2], got %v", got)
	}

	if err := m.PublishOnline(ctx, nil); err != nil {
		t.Fatalf("publish empty: %v", err)
	}
	got, err = m.Online(ctx)
	if err != nil {
		t.Fatalf("online: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
}

func TestPublishOnlineNotifiesSubscribers(t *testing.T) {
	m, srv := newTestMirror(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()
	sub := client.Subscribe(ctx, "relay:online-users")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := m.PublishOnline(ctx, []int64{7, 9}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !slices.Equal(snap.Users, []int64{7, 9}) {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestNewRedisMirrorRejectsBadURL(t *testing.T) {
	if _, err := NewRedisMirror(context.Background(), "not a url", "x"); err == nil {
		t.Fatalf("expected error for bad url")
	}
}
