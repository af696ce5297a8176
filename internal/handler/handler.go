// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the core components.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/eventpulse/internal/analytics"
	"github.com/Shivanand-hulikatti/eventpulse/internal/auth"
	"github.com/Shivanand-hulikatti/eventpulse/internal/catalog"
	"github.com/Shivanand-hulikatti/eventpulse/internal/docstore"
	"github.com/Shivanand-hulikatti/eventpulse/internal/engagement"
	"github.com/Shivanand-hulikatti/eventpulse/internal/ledger"
	"github.com/Shivanand-hulikatti/eventpulse/internal/metrics"
	"github.com/Shivanand-hulikatti/eventpulse/internal/model"
)

// EventHandler holds all HTTP handlers for the event API.
type EventHandler struct {
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
	toggler *engagement.Toggler
	stats   *analytics.Aggregator
	metrics *metrics.Metrics
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(
	cat *catalog.Catalog,
	led *ledger.Ledger,
	tog *engagement.Toggler,
	agg *analytics.Aggregator,
	m *metrics.Metrics,
) *EventHandler {
	return &EventHandler{catalog: cat, ledger: led, toggler: tog, stats: agg, metrics: m}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeCoreError maps the shared error taxonomy onto HTTP statuses without
// leaking storage detail.
func writeCoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, catalog.ErrForbidden):
		writeError(w, http.StatusForbidden, "you do not own this event")
	case errors.Is(err, catalog.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, docstore.ErrConflictExhausted):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "high contention, please retry")
	case errors.Is(err, docstore.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage temporarily unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var in model.EventInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.catalog.Create(r.Context(), userID, in)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.catalog.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PUT /events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var in model.EventInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.catalog.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	if err := h.catalog.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Register handles POST /events/{id}/register
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	eventID := chi.URLParam(r, "id")

	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.ledger.Register(r.Context(), eventID, userID, req.Tier)
	if err != nil {
		h.metrics.Registrations.WithLabelValues(registerOutcome(err)).Inc()
		switch {
		case errors.Is(err, ledger.ErrAlreadyRegistered):
			writeError(w, http.StatusConflict, "you already registered for this event")
		case errors.Is(err, ledger.ErrTierNotFound):
			writeError(w, http.StatusUnprocessableEntity, "that ticket tier is no longer available")
		default:
			writeCoreError(w, err)
		}
		return
	}

	h.metrics.Registrations.WithLabelValues(metrics.OutcomeSuccess).Inc()
	writeJSON(w, http.StatusCreated, reg)
}

func registerOutcome(err error) string {
	switch {
	case errors.Is(err, ledger.ErrAlreadyRegistered):
		return metrics.OutcomeDuplicate
	case errors.Is(err, ledger.ErrTierNotFound):
		return metrics.OutcomeTierMiss
	case errors.Is(err, docstore.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, docstore.ErrConflictExhausted):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}

// ToggleLike handles POST /events/{id}/like
func (h *EventHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	result, err := h.toggler.Toggle(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeCoreError(w, err)
		return
	}

	action := "unlike"
	if result.Liked {
		action = "like"
	}
	h.metrics.LikeToggles.WithLabelValues(action).Inc()
	writeJSON(w, http.StatusOK, result)
}

// ListRegistrations handles GET /events/{id}/registrations
func (h *EventHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.ledger.ListByEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// OrganizerEvents handles GET /organizers/me/events
func (h *EventHandler) OrganizerEvents(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	events, err := h.catalog.ListByOrganizer(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// OrganizerStats handles GET /organizers/me/stats
func (h *EventHandler) OrganizerStats(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	writeJSON(w, http.StatusOK, h.stats.ComputeStats(r.Context(), userID))
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
