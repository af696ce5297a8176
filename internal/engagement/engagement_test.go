package engagement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Shivanand-hulikatti/eventpulse/internal/auth"
	"github.com/Shivanand-hulikatti/eventpulse/internal/docstore"
	"github.com/Shivanand-hulikatti/eventpulse/internal/model"
)

func seedEvent(t *testing.T, store docstore.Store, id string, likedBy []string) {
	t.Helper()
	if likedBy == nil {
		likedBy = []string{}
	}
	event := model.Event{
		ID:           id,
		OrganizerID:  "org-1",
		Title:        "Launch Party",
		PricingTiers: []model.PricingTier{{Name: "General", Price: 500}},
		LikedBy:      likedBy,
	}
	err := store.RunTransaction(context.Background(), func(tx docstore.Tx) error {
		return tx.Create(model.EventPath(id), event)
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func likedBy(t *testing.T, store docstore.Store, id string) []string {
	t.Helper()
	var event model.Event
	if err := store.Get(context.Background(), model.EventPath(id), &event); err != nil {
		t.Fatalf("get event: %v", err)
	}
	return event.LikedBy
}

func TestToggleOnThenOff(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedEvent(t, store, "e1", nil)
	tog := New(store)

	res, err := tog.Toggle(context.Background(), "e1", "u1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !res.Liked || res.LikeCount != 1 {
		t.Fatalf("expected liked=true count=1, got %+v", res)
	}
	if set := likedBy(t, store, "e1"); len(set) != 1 || set[0] != "u1" {
		t.Fatalf("unexpected set %v", set)
	}

	res, err = tog.Toggle(context.Background(), "e1", "u1")
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if res.Liked || res.LikeCount != 0 {
		t.Fatalf("expected liked=false count=0, got %+v", res)
	}
	if set := likedBy(t, store, "e1"); len(set) != 0 {
		t.Fatalf("double toggle did not restore the set: %v", set)
	}
}

func TestToggleSeededMember(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedEvent(t, store, "e1", []string{"u1", "u2"})
	tog := New(store)

	res, err := tog.Toggle(context.Background(), "e1", "u1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if res.Liked || res.LikeCount != 1 {
		t.Fatalf("expected liked=false count=1, got %+v", res)
	}
	if set := likedBy(t, store, "e1"); len(set) != 1 || set[0] != "u2" {
		t.Fatalf("unexpected set %v", set)
	}
}

func TestToggleEventNotFound(t *testing.T) {
	store := docstore.NewMemoryStore()
	tog := New(store)

	_, err := tog.Toggle(context.Background(), "missing", "u1")
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestToggleUnauthenticated(t *testing.T) {
	store := docstore.NewMemoryStore()
	tog := New(store)

	_, err := tog.Toggle(context.Background(), "e1", "")
	if !errors.Is(err, auth.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestToggleConcurrentDistinctUsers(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedEvent(t, store, "e1", nil)
	tog := New(store)

	const users = 25
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := tog.Toggle(context.Background(), "e1", fmt.Sprintf("user-%02d", n)); err != nil {
				t.Errorf("toggle: %v", err)
			}
		}(i)
	}
	wg.Wait()

	set := likedBy(t, store, "e1")
	if len(set) != users {
		t.Fatalf("expected %d members, got %d", users, len(set))
	}
	seen := make(map[string]bool, len(set))
	for _, m := range set {
		if seen[m] {
			t.Fatalf("duplicate member %s", m)
		}
		seen[m] = true
	}
}
