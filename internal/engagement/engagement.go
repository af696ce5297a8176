// Package engagement owns the liked-by membership set on an event.
//
// Toggling deliberately skips the transaction machinery the registration
// ledger uses: the store's set operations are atomic and idempotent on their
// own, so a racing pair of toggles can at worst pick a stale direction, never
// corrupt the set. Duplicate tickets are a business failure; duplicate likes
// cannot happen and a lost toggle is tolerable.
package engagement

import (
	"context"

	"github.com/Shivanand-hulikatti/eventpulse/internal/auth"
	"github.com/Shivanand-hulikatti/eventpulse/internal/docstore"
	"github.com/Shivanand-hulikatti/eventpulse/internal/model"
)

// likedByField is the event document field holding the membership set.
const likedByField = "liked_by"

// Toggler flips a user's membership in an event's liked-by set.
type Toggler struct {
	store docstore.Store
}

// New constructs a Toggler.
func New(store docstore.Store) *Toggler {
	return &Toggler{store: store}
}

// Toggle flips membership for (eventID, userID) and reports the resulting
// state. The result is computed from the point read, so under a race between
// two toggles of the same pair the last applied set operation wins; the set
// itself stays valid either way.
func (t *Toggler) Toggle(ctx context.Context, eventID, userID string) (model.Engagement, error) {
	if userID == "" {
		return model.Engagement{}, auth.ErrUnauthenticated
	}

	var event model.Event
	if err := t.store.Get(ctx, model.EventPath(eventID), &event); err != nil {
		return model.Engagement{}, err
	}

	if event.Liked(userID) {
		if err := t.store.RemoveMember(ctx, model.EventPath(eventID), likedByField, userID); err != nil {
			return model.Engagement{}, err
		}
		return model.Engagement{Liked: false, LikeCount: len(event.LikedBy) - 1}, nil
	}

	if err := t.store.AddMember(ctx, model.EventPath(eventID), likedByField, userID); err != nil {
		return model.Engagement{}, err
	}
	return model.Engagement{Liked: true, LikeCount: len(event.LikedBy) + 1}, nil
}
