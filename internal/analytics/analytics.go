// Package analytics computes the organizer dashboard roll-up. It is a
// read-only, eventually-consistent report and must never drive registration
// decisions.
package analytics

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Shivanand-hulikatti/eventpulse/internal/docstore"
	"github.com/Shivanand-hulikatti/eventpulse/internal/model"
)

// Aggregator folds booking and event records into per-organizer stats.
type Aggregator struct {
	store docstore.Store
	log   *slog.Logger
}

// New constructs an Aggregator.
func New(store docstore.Store, log *slog.Logger) *Aggregator {
	return &Aggregator{store: store, log: log}
}

// ComputeStats sums earnings over the organizer's bookings and likes over
// the organizer's events. The caller contract never fails: a hard scan
// failure degrades to zero-valued stats, and documents that fail to decode
// are skipped rather than aborting the report.
func (a *Aggregator) ComputeStats(ctx context.Context, organizerID string) model.OrganizerStats {
	bookings, err := a.store.List(ctx, model.BookingsCollection)
	if err != nil {
		a.log.Error("stats: booking scan failed", "organizer_id", organizerID, "error", err)
		return model.OrganizerStats{}
	}
	events, err := a.store.List(ctx, model.EventsCollection)
	if err != nil {
		a.log.Error("stats: event scan failed", "organizer_id", organizerID, "error", err)
		return model.OrganizerStats{}
	}

	var stats model.OrganizerStats
	for _, d := range bookings {
		var b model.Booking
		if err := json.Unmarshal(d.Body, &b); err != nil {
			a.log.Warn("stats: skipping malformed booking", "path", d.Path, "error", err)
			continue
		}
		if b.OrganizerID == organizerID {
			stats.TotalEarnings += b.AmountPaid
		}
	}
	for _, d := range events {
		var e model.Event
		if err := json.Unmarshal(d.Body, &e); err != nil {
			a.log.Warn("stats: skipping malformed event", "path", d.Path, "error", err)
			continue
		}
		if e.OrganizerID == organizerID {
			stats.EventCount++
			stats.TotalLikes += len(e.LikedBy)
		}
	}
	return stats
}
