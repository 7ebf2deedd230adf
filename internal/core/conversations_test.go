package core

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestConversationsFindOrCreateConcurrent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	convs := NewConversations(st)
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	const workers = 20
	ids := make([]int64, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := alice.ID, bob.ID
			if i%2 == 1 {
				a, b = b, a
			}
			conv, err := convs.FindOrCreate(ctx, a, b)
			errs[i] = err
			if conv != nil {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("worker %d got conversation %d, want %d", i, ids[i], ids[0])
		}
	}

	list, err := st.ListConversations(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected exactly one conversation, got %d", len(list))
	}
	if n := convs.pairs.size(); n != 0 {
		t.Fatalf("pair locks leaked: %d", n)
	}
}

func TestConversationsAppendValidates(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	convs := NewConversations(st)
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")
	carol := seedUser(t, st, "carol")

	conv, err := convs.FindOrCreate(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}

	if _, err := convs.Append(ctx, conv, alice.ID, Draft{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := convs.Append(ctx, conv, carol.ID, Draft{Text: "hi"}); AsCoreError(err).Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request for outsider, got %v", err)
	}

	msg, err := convs.Append(ctx, conv, bob.ID, Draft{Text: "  hey  ", VideoURL: " https://cdn/v.mp4 "})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if msg.ID == 0 || msg.Text != "hey" || msg.VideoURL != "https://cdn/v.mp4" || msg.Seen {
		t.Fatalf("unexpected message: %+v", msg)
	}

	id, messages, err := convs.MessagesFor(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("messages for: %v", err)
	}
	if id != conv.ID || len(messages) != 1 {
		t.Fatalf("expected one message in %d, got %d in %d", conv.ID, len(messages), id)
	}

	id, messages, err = convs.MessagesFor(ctx, alice.ID, carol.ID)
	if err != nil || id != 0 || len(messages) != 0 {
		t.Fatalf("expected empty thread, got %d %v %v", id, messages, err)
	}
}

func TestPairLocksSerializeSameKey(t *testing.T) {
	locks := newPairLocks()

	unlock := locks.lock("dm:1:2")
	acquired := make(chan struct{})
	released := make(chan struct{})
	go func() {
		release := locks.lock("dm:1:2")
		close(acquired)
		release()
		close(released)
	}()

	other := locks.lock("dm:1:3")
	other()

	select {
	case <-acquired:
		t.Fatalf("same key acquired twice")
	default:
	}

	unlock()
	<-acquired
	<-released
	if n := locks.size(); n != 0 {
		t.Fatalf("expected no lock entries, got %d", n)
	}
}
