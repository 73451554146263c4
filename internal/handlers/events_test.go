package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rollcall-app/rollcall/internal/metrics"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/stretchr/testify/assert"
)

// MockTokenService implements TokenServiceInterface for testing
type MockTokenService struct {
	RotateFunc     func(ctx context.Context, eventID string) (*models.EventToken, error)
	DeactivateFunc func(ctx context.Context, eventID string) error
}

func (m *MockTokenService) Rotate(ctx context.Context, eventID string) (*models.EventToken, error) {
	if m.RotateFunc != nil {
		return m.RotateFunc(ctx, eventID)
	}
	return &models.EventToken{EventID: eventID, Value: "tok-abc", IssuedAt: time.Now()}, nil
}

func (m *MockTokenService) Deactivate(ctx context.Context, eventID string) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, eventID)
	}
	return nil
}

// MockRosterLister implements RosterLister for testing
type MockRosterLister struct {
	ListByEventFunc func(ctx context.Context, eventID string) ([]*models.AttendanceRecord, error)
}

func (m *MockRosterLister) ListByEvent(ctx context.Context, eventID string) ([]*models.AttendanceRecord, error) {
	if m.ListByEventFunc != nil {
		return m.ListByEventFunc(ctx, eventID)
	}
	return []*models.AttendanceRecord{}, nil
}

func newEventsRouter(tokens TokenServiceInterface, roster RosterLister) *chi.Mux {
	handler := NewEventsHandler(tokens, roster, metrics.New(prometheus.NewRegistry()), "https://attend.example.edu")

	router := chi.NewRouter()
	router.Post("/staff/events/{id}/rotate", handler.Rotate)
	router.Get("/staff/events/{id}/qr.png", handler.QRCode)
	router.Post("/staff/events/{id}/deactivate", handler.Deactivate)
	router.Get("/staff/events/{id}/attendance", handler.Roster)
	return router
}

func TestEventsHandler_Rotate_Success(t *testing.T) {
	issuedAt := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	tokens := &MockTokenService{
		RotateFunc: func(ctx context.Context, eventID string) (*models.EventToken, error) {
			assert.Equal(t, "event-1", eventID)
			return &models.EventToken{EventID: eventID, Value: "tok-fresh", IssuedAt: issuedAt}, nil
		},
	}
	router := newEventsRouter(tokens, &MockRosterLister{})

	req := httptest.NewRequest(http.MethodPost, "/staff/events/event-1/rotate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp RotateResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "tok-fresh", resp.Token)
	assert.Equal(t, "2026-09-01T10:00:00.000Z", resp.IssuedAt)
}

func TestEventsHandler_Rotate_ClosedEvent(t *testing.T) {
	tokens := &MockTokenService{
		RotateFunc: func(ctx context.Context, eventID string) (*models.EventToken, error) {
			return nil, models.ErrClosed
		},
	}
	router := newEventsRouter(tokens, &MockRosterLister{})

	req := httptest.NewRequest(http.MethodPost, "/staff/events/event-1/rotate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEventsHandler_Rotate_UnknownEvent(t *testing.T) {
	tokens := &MockTokenService{
		RotateFunc: func(ctx context.Context, eventID string) (*models.EventToken, error) {
			return nil, models.ErrNotFound
		},
	}
	router := newEventsRouter(tokens, &MockRosterLister{})

	req := httptest.NewRequest(http.MethodPost, "/staff/events/missing/rotate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventsHandler_QRCode_RotatesAndRendersPNG(t *testing.T) {
	rotated := false
	tokens := &MockTokenService{
		RotateFunc: func(ctx context.Context, eventID string) (*models.EventToken, error) {
			rotated = true
			return &models.EventToken{EventID: eventID, Value: "tok-qr", IssuedAt: time.Now()}, nil
		},
	}
	router := newEventsRouter(tokens, &MockRosterLister{})

	req := httptest.NewRequest(http.MethodGet, "/staff/events/event-1/qr.png", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, rotated)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	// PNG magic bytes
	assert.True(t, len(rec.Body.Bytes()) > 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, rec.Body.Bytes()[:4])
}

func TestEventsHandler_Deactivate(t *testing.T) {
	var deactivated string
	tokens := &MockTokenService{
		DeactivateFunc: func(ctx context.Context, eventID string) error {
			deactivated = eventID
			return nil
		},
	}
	router := newEventsRouter(tokens, &MockRosterLister{})

	req := httptest.NewRequest(http.MethodPost, "/staff/events/event-1/deactivate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "event-1", deactivated)
}

func TestEventsHandler_Roster(t *testing.T) {
	now := time.Now()
	roster := &MockRosterLister{
		ListByEventFunc: func(ctx context.Context, eventID string) ([]*models.AttendanceRecord, error) {
			return []*models.AttendanceRecord{
				{EventID: eventID, StudentID: "student-1", Status: models.StatusPresent, MarkedAt: &now},
				{EventID: eventID, StudentID: "student-2", Status: models.StatusExpected},
			}, nil
		},
	}
	router := newEventsRouter(&MockTokenService{}, roster)

	req := httptest.NewRequest(http.MethodGet, "/staff/events/event-1/attendance", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var records []*models.AttendanceRecord
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&records))
	assert.Len(t, records, 2)
	assert.Equal(t, models.StatusPresent, records[0].Status)
}
