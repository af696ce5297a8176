// Package catalog handles event authoring and reading on behalf of
// organizers: create, list, update and delete. It reads the counter and
// liked-by fields but never writes them; those belong to the registration
// ledger and the engagement toggle.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/eventpulse/internal/auth"
	"github.com/Shivanand-hulikatti/eventpulse/internal/docstore"
	"github.com/Shivanand-hulikatti/eventpulse/internal/model"
)

// ErrForbidden is returned when a caller edits or deletes an event they do
// not own.
var ErrForbidden = errors.New("not the event organizer")

// ErrInvalid wraps validation failures so handlers can map them to 400.
var ErrInvalid = errors.New("invalid event")

// Catalog persists organizer-authored event documents.
type Catalog struct {
	store docstore.Store
	now   func() time.Time
}

// New constructs a Catalog.
func New(store docstore.Store) *Catalog {
	return &Catalog{store: store, now: time.Now}
}

// Create publishes a new event owned by organizerID.
func (c *Catalog) Create(ctx context.Context, organizerID string, in model.EventInput) (*model.Event, error) {
	if organizerID == "" {
		return nil, auth.ErrUnauthenticated
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	event := &model.Event{
		ID:              uuid.New().String(),
		OrganizerID:     organizerID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Category:        in.Category,
		StartsAt:        in.StartsAt,
		Duration:        in.Duration,
		Location:        in.Location,
		PricingTiers:    in.PricingTiers,
		RegisteredCount: 0,
		LikedBy:         []string{},
		ImageData:       in.ImageData,
		CreatedAt:       c.now().UTC(),
	}

	err := c.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		return tx.Create(model.EventPath(event.ID), event)
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// Get returns a single event.
func (c *Catalog) Get(ctx context.Context, eventID string) (*model.Event, error) {
	var event model.Event
	if err := c.store.Get(ctx, model.EventPath(eventID), &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns all events, newest first.
func (c *Catalog) List(ctx context.Context) ([]model.Event, error) {
	return c.list(ctx, func(*model.Event) bool { return true })
}

// ListByOrganizer returns the events owned by one organizer, newest first.
func (c *Catalog) ListByOrganizer(ctx context.Context, organizerID string) ([]model.Event, error) {
	return c.list(ctx, func(e *model.Event) bool { return e.OrganizerID == organizerID })
}

func (c *Catalog) list(ctx context.Context, keep func(*model.Event) bool) ([]model.Event, error) {
	docs, err := c.store.List(ctx, model.EventsCollection)
	if err != nil {
		return nil, err
	}
	events := make([]model.Event, 0, len(docs))
	for _, d := range docs {
		var e model.Event
		if err := json.Unmarshal(d.Body, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.Path, err)
		}
		if keep(&e) {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

// Update replaces the organizer-owned fields of an event. The stored
// registered count and liked-by set are carried through from the document
// read inside the same transaction, so an edit can never clobber a
// concurrent registration or like.
func (c *Catalog) Update(ctx context.Context, organizerID, eventID string, in model.EventInput) (*model.Event, error) {
	if organizerID == "" {
		return nil, auth.ErrUnauthenticated
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	var updated model.Event
	err := c.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		var event model.Event
		if err := tx.Get(model.EventPath(eventID), &event); err != nil {
			return err
		}
		if event.OrganizerID != organizerID {
			return ErrForbidden
		}

		event.Title = strings.TrimSpace(in.Title)
		event.Description = in.Description
		event.Category = in.Category
		event.StartsAt = in.StartsAt
		event.Duration = in.Duration
		event.Location = in.Location
		event.PricingTiers = in.PricingTiers
		event.ImageData = in.ImageData

		updated = event
		return tx.Update(model.EventPath(eventID), &event)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an event and its registration sub-collection. Only the
// owning organizer may delete.
func (c *Catalog) Delete(ctx context.Context, organizerID, eventID string) error {
	if organizerID == "" {
		return auth.ErrUnauthenticated
	}
	var event model.Event
	if err := c.store.Get(ctx, model.EventPath(eventID), &event); err != nil {
		return err
	}
	if event.OrganizerID != organizerID {
		return ErrForbidden
	}
	return c.store.Delete(ctx, model.EventPath(eventID))
}

func validate(in model.EventInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if len(in.PricingTiers) == 0 {
		return fmt.Errorf("%w: at least one pricing tier is required", ErrInvalid)
	}
	seen := make(map[string]bool, len(in.PricingTiers))
	for _, tier := range in.PricingTiers {
		name := strings.TrimSpace(tier.Name)
		if name == "" {
			return fmt.Errorf("%w: tier name is required", ErrInvalid)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate tier name %q", ErrInvalid, name)
		}
		seen[name] = true
		if tier.Price < 0 {
			return fmt.Errorf("%w: tier %q price must not be negative", ErrInvalid, name)
		}
	}
	return nil
}
