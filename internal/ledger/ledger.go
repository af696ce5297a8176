// Package ledger owns the registration invariant: at most one registration
// document per (event, user), and an event counter that always equals the
// number of registration documents after every committed transaction.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Shivanand-hulikatti/eventpulse/internal/auth"
	"github.com/Shivanand-hulikatti/eventpulse/internal/docstore"
	"github.com/Shivanand-hulikatti/eventpulse/internal/model"
)

// ErrAlreadyRegistered is returned when the user already holds a
// registration for the event. Never retried internally.
var ErrAlreadyRegistered = errors.New("already registered for this event")

// ErrTierNotFound is returned when the requested tier does not match any of
// the event's current pricing tiers.
var ErrTierNotFound = errors.New("pricing tier not found")

// Ledger performs concurrency-safe registrations against the document store.
type Ledger struct {
	store docstore.Store
	now   func() time.Time
}

// New constructs a Ledger.
func New(store docstore.Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Register creates the registration for (eventID, userID) and increments the
// event's registered count as one atomic transaction.
//
// The duplicate check, the tier validation and the counter increment all
// read state inside the same transaction, so a rerun after a commit-time
// conflict re-evaluates them against fresh state: an attempt that lost the
// race to another registration of the same pair reports ErrAlreadyRegistered
// instead of double-incrementing. That also makes Register safe to repeat
// with identical arguments after a timeout with an unknown outcome.
func (l *Ledger) Register(ctx context.Context, eventID, userID, tierName string) (*model.Registration, error) {
	if userID == "" {
		return nil, auth.ErrUnauthenticated
	}

	var reg *model.Registration
	err := l.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		var existing model.Registration
		err := tx.Get(model.RegistrationPath(eventID, userID), &existing)
		if err == nil {
			return ErrAlreadyRegistered
		}
		if !errors.Is(err, docstore.ErrNotFound) {
			return err
		}

		var event model.Event
		if err := tx.Get(model.EventPath(eventID), &event); err != nil {
			return err
		}

		tier, ok := event.Tier(tierName)
		if !ok {
			return ErrTierNotFound
		}

		reg = &model.Registration{
			UserID:       userID,
			Tier:         tier.Name,
			RegisteredAt: l.now().UTC(),
		}
		if err := tx.Create(model.RegistrationPath(eventID, userID), reg); err != nil {
			return err
		}

		event.RegisteredCount++
		return tx.Update(model.EventPath(eventID), &event)
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// ListByEvent returns the registrations for an event, oldest first.
func (l *Ledger) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	var event model.Event
	if err := l.store.Get(ctx, model.EventPath(eventID), &event); err != nil {
		return nil, err
	}

	docs, err := l.store.List(ctx, model.RegistrationsPath(eventID))
	if err != nil {
		return nil, err
	}

	regs := make([]model.Registration, 0, len(docs))
	for _, d := range docs {
		var reg model.Registration
		if err := json.Unmarshal(d.Body, &reg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.Path, err)
		}
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].RegisteredAt.Before(regs[j].RegisteredAt)
	})
	return regs, nil
}
