package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/eventpulse/internal/auth"
	"github.com/Shivanand-hulikatti/eventpulse/internal/docstore"
	"github.com/Shivanand-hulikatti/eventpulse/internal/model"
)

func seedEvent(t *testing.T, store docstore.Store, id string) {
	t.Helper()
	event := model.Event{
		ID:          id,
		OrganizerID: "org-1",
		Title:       "Launch Party",
		PricingTiers: []model.PricingTier{
			{Name: "General", Price: 500},
			{Name: "VIP", Price: 1500},
		},
		LikedBy:   []string{},
		CreatedAt: time.Now().UTC(),
	}
	err := store.RunTransaction(context.Background(), func(tx docstore.Tx) error {
		return tx.Create(model.EventPath(id), event)
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func eventCount(t *testing.T, store docstore.Store, id string) int {
	t.Helper()
	var event model.Event
	if err := store.Get(context.Background(), model.EventPath(id), &event); err != nil {
		t.Fatalf("get event: %v", err)
	}
	return event.RegisteredCount
}

func TestRegisterSuccess(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedEvent(t, store, "e1")
	l := New(store)

	reg, err := l.Register(context.Background(), "e1", "u1", "General")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.UserID != "u1" || reg.Tier != "General" {
		t.Fatalf("unexpected receipt: %+v", reg)
	}
	if reg.RegisteredAt.IsZero() {
		t.Fatal("expected server-assigned timestamp")
	}

	if got := eventCount(t, store, "e1"); got != 1 {
		t.Fatalf("expected count 1, got %d", got)
	}
	var stored model.Registration
	if err := store.Get(context.Background(), model.RegistrationPath("e1", "u1"), &stored); err != nil {
		t.Fatalf("registration document missing: %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedEvent(t, store, "e1")
	l := New(store)

	if _, err := l.Register(context.Background(), "e1", "u1", "General"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := l.Register(context.Background(), "e1", "u1", "General")
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if got := eventCount(t, store, "e1"); got != 1 {
		t.Fatalf("duplicate attempt moved the counter: %d", got)
	}
}

func TestRegisterTierNotFound(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedEvent(t, store, "e1")
	l := New(store)

	_, err := l.Register(context.Background(), "e1", "u1", "Nonexistent Tier")
	if !errors.Is(err, ErrTierNotFound) {
		t.Fatalf("expected ErrTierNotFound, got %v", err)
	}
	if got := eventCount(t, store, "e1"); got != 0 {
		t.Fatalf("failed attempt moved the counter: %d", got)
	}
	var stored model.Registration
	err = store.Get(context.Background(), model.RegistrationPath("e1", "u1"), &stored)
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("failed attempt left a registration document: %v", err)
	}
}

func TestRegisterEventNotFound(t *testing.T) {
	store := docstore.NewMemoryStore()
	l := New(store)

	_, err := l.Register(context.Background(), "missing", "u1", "General")
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegisterUnauthenticatedTouchesNoStore(t *testing.T) {
	l := New(deadStore{t})

	_, err := l.Register(context.Background(), "e1", "", "General")
	if !errors.Is(err, auth.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestRegisterConcurrentSamePair(t *testing.T) {
	store := docstore.NewMemoryStore(docstore.WithMaxAttempts(50))
	seedEvent(t, store, "e1")
	l := New(store)

	const callers = 20
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		succeeded  int
		duplicates int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Register(context.Background(), "e1", "u1", "General")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrAlreadyRegistered):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || duplicates != callers-1 {
		t.Fatalf("expected 1 success and %d duplicates, got %d/%d",
			callers-1, succeeded, duplicates)
	}
	if got := eventCount(t, store, "e1"); got != 1 {
		t.Fatalf("counter drifted: %d", got)
	}
}

func TestRegisterConcurrentDistinctUsers(t *testing.T) {
	store := docstore.NewMemoryStore(docstore.WithMaxAttempts(100))
	seedEvent(t, store, "e1")
	l := New(store)

	const users = 30
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%02d", n)
			for {
				_, err := l.Register(context.Background(), "e1", userID, "General")
				if err == nil {
					return
				}
				if !errors.Is(err, docstore.ErrConflictExhausted) {
					t.Errorf("unexpected error for %s: %v", userID, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	regs, err := l.ListByEvent(context.Background(), "e1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(regs) != users {
		t.Fatalf("expected %d registrations, got %d", users, len(regs))
	}
	if got := eventCount(t, store, "e1"); got != users {
		t.Fatalf("counter %d != registrations %d", got, users)
	}
}

// A caller that timed out with an unknown outcome may safely repeat the call
// with identical arguments: the second attempt either succeeds exactly once
// or reports the earlier success as ErrAlreadyRegistered.
func TestRegisterRetryAfterUnknownOutcome(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedEvent(t, store, "e1")
	l := New(store)

	if _, err := l.Register(context.Background(), "e1", "u1", "VIP"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := l.Register(context.Background(), "e1", "u1", "VIP")
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered on retry, got %v", err)
	}

	regs, err := l.ListByEvent(context.Background(), "e1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(regs) != 1 {
		t.Fatalf("retry produced %d registration documents", len(regs))
	}
	if got := eventCount(t, store, "e1"); got != 1 {
		t.Fatalf("retry moved the counter: %d", got)
	}
}

func TestListByEventUnknownEvent(t *testing.T) {
	store := docstore.NewMemoryStore()
	l := New(store)

	_, err := l.ListByEvent(context.Background(), "missing")
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// deadStore fails the test on any access; it proves boundary checks reject
// before touching storage.
type deadStore struct{ t *testing.T }

func (d deadStore) Get(context.Context, string, any) error {
	d.t.Fatal("store accessed")
	return nil
}

func (d deadStore) List(context.Context, string) ([]docstore.Doc, error) {
	d.t.Fatal("store accessed")
	return nil, nil
}

func (d deadStore) RunTransaction(context.Context, func(docstore.Tx) error) error {
	d.t.Fatal("store accessed")
	return nil
}

func (d deadStore) Delete(context.Context, string) error {
	d.t.Fatal("store accessed")
	return nil
}

func (d deadStore) AddMember(context.Context, string, string, string) error {
	d.t.Fatal("store accessed")
	return nil
}

func (d deadStore) RemoveMember(context.Context, string, string, string) error {
	d.t.Fatal("store accessed")
	return nil
}
