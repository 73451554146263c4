package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rollcall-app/rollcall/internal/metrics"
	"github.com/rollcall-app/rollcall/internal/models"
	pkghttp "github.com/rollcall-app/rollcall/pkg/http"
	qrcode "github.com/skip2/go-qrcode"
)

// TokenServiceInterface defines the token rotation logic
type TokenServiceInterface interface {
	Rotate(ctx context.Context, eventID string) (*models.EventToken, error)
	Deactivate(ctx context.Context, eventID string) error
}

// RosterLister lists the attendance roster for an event
type RosterLister interface {
	ListByEvent(ctx context.Context, eventID string) ([]*models.AttendanceRecord, error)
}

// EventsHandler handles the staff-facing event endpoints: rotation, the QR
// display image, deactivation and the roster
type EventsHandler struct {
	tokens  TokenServiceInterface
	roster  RosterLister
	metrics *metrics.Metrics
	baseURL string
}

// NewEventsHandler creates a new EventsHandler
func NewEventsHandler(tokens TokenServiceInterface, roster RosterLister, m *metrics.Metrics, baseURL string) *EventsHandler {
	return &EventsHandler{
		tokens:  tokens,
		roster:  roster,
		metrics: m,
		baseURL: baseURL,
	}
}

// RotateResponse is the response body for a token rotation
type RotateResponse struct {
	Token    string `json:"token"`
	IssuedAt string `json:"issued_at"`
}

// Rotate handles POST /staff/events/{id}/rotate. The display client calls
// this every few seconds while attendance is open; each call replaces the
// previous token.
func (h *EventsHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	token, err := h.tokens.Rotate(r.Context(), eventID)
	if err != nil {
		h.writeRotateError(w, err)
		return
	}

	h.metrics.TokensRotated.Inc()
	writeJSON(w, http.StatusOK, RotateResponse{
		Token:    token.Value,
		IssuedAt: token.IssuedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

// QRCode handles GET /staff/events/{id}/qr.png: rotates the token and
// renders the claim URL as a PNG for the lecture-hall display. Rendering
// implies rotation so a screenshotted QR goes stale within the freshness
// window.
func (h *EventsHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	token, err := h.tokens.Rotate(r.Context(), eventID)
	if err != nil {
		h.writeRotateError(w, err)
		return
	}

	h.metrics.TokensRotated.Inc()

	claimURL := fmt.Sprintf("%s/a/%s", h.baseURL, token.Value)
	png, err := qrcode.Encode(claimURL, qrcode.Medium, 512)
	if err != nil {
		pkghttp.WriteInternalError(w, msgInternal)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// Deactivate handles POST /staff/events/{id}/deactivate. Terminal: once
// closed, even a fresh token and a live session are rejected.
func (h *EventsHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	if err := h.tokens.Deactivate(r.Context(), eventID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Event not found")
			return
		}
		pkghttp.WriteInternalError(w, msgInternal)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Roster handles GET /staff/events/{id}/attendance
func (h *EventsHandler) Roster(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	records, err := h.roster.ListByEvent(r.Context(), eventID)
	if err != nil {
		pkghttp.WriteInternalError(w, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (h *EventsHandler) writeRotateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Event not found")
	case errors.Is(err, models.ErrClosed):
		pkghttp.WriteForbidden(w, msgClosed)
	default:
		pkghttp.WriteInternalError(w, msgInternal)
	}
}
