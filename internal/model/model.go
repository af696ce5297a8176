// Package model defines the document shapes and API payloads shared by the
// core components.
package model

import "time"

// PricingTier is a named price option within an event. Tier names are unique
// within their event, not globally.
type PricingTier struct {
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description,omitempty"`
}

// Duration is how long an event runs, e.g. {2, "hours"}.
type Duration struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

// Location is where an event takes place.
type Location struct {
	City   string `json:"city"`
	MapURL string `json:"map_url,omitempty"`
}

// Event is a published event document. RegisteredCount is written only by the
// registration ledger and LikedBy only by the engagement toggle; organizer
// edits must carry both fields through unchanged.
type Event struct {
	ID              string        `json:"id"`
	OrganizerID     string        `json:"organizer_id"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	Category        string        `json:"category,omitempty"`
	StartsAt        time.Time     `json:"starts_at"`
	Duration        Duration      `json:"duration"`
	Location        Location      `json:"location"`
	PricingTiers    []PricingTier `json:"pricing_tiers"`
	RegisteredCount int           `json:"registered_count"`
	LikedBy         []string      `json:"liked_by"`
	ImageData       string        `json:"image_data,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Tier returns the pricing tier with the given name.
func (e *Event) Tier(name string) (PricingTier, bool) {
	for _, t := range e.PricingTiers {
		if t.Name == name {
			return t, true
		}
	}
	return PricingTier{}, false
}

// Liked reports whether userID is in the event's liked-by set.
func (e *Event) Liked(userID string) bool {
	for _, id := range e.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Registration is the durable fact that one user claimed one tier of one
// event. It is keyed by user id within the event's registration collection
// and is never updated once written.
type Registration struct {
	UserID       string    `json:"user_id"`
	Tier         string    `json:"tier"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Booking is an earnings fact written by the payment collaborator. The core
// only ever reads these.
type Booking struct {
	OrganizerID string `json:"organizer_id"`
	AmountPaid  int64  `json:"amount_paid"`
}

// OrganizerStats is the dashboard roll-up for one organizer. It is a
// point-in-time report, not a source of truth.
type OrganizerStats struct {
	TotalEarnings int64 `json:"total_earnings"`
	TotalLikes    int   `json:"total_likes"`
	EventCount    int   `json:"event_count"`
}

// Engagement is the caller-visible outcome of a like toggle.
type Engagement struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// EventInput is the payload for creating or updating an event.
type EventInput struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Category     string        `json:"category"`
	StartsAt     time.Time     `json:"starts_at"`
	Duration     Duration      `json:"duration"`
	Location     Location      `json:"location"`
	PricingTiers []PricingTier `json:"pricing_tiers"`
	ImageData    string        `json:"image_data,omitempty"`
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	Tier string `json:"tier"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
