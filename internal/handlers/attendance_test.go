package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rollcall-app/rollcall/internal/auth"
	"github.com/rollcall-app/rollcall/internal/metrics"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/services"
	pkghttp "github.com/rollcall-app/rollcall/pkg/http"
	"github.com/stretchr/testify/assert"
)

// MockClaimService implements ClaimServiceInterface for testing
type MockClaimService struct {
	ClaimFunc func(ctx context.Context, tokenValue, sessionID string) (*models.ClaimSession, error)
}

func (m *MockClaimService) Claim(ctx context.Context, tokenValue, sessionID string) (*models.ClaimSession, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, tokenValue, sessionID)
	}
	return nil, models.ErrInvalidOrExpired
}

// MockSubmissionService implements SubmissionServiceInterface for testing
type MockSubmissionService struct {
	AttemptFunc func(ctx context.Context, input services.SubmissionInput) (*services.SubmissionResult, error)
}

func (m *MockSubmissionService) Attempt(ctx context.Context, input services.SubmissionInput) (*services.SubmissionResult, error) {
	if m.AttemptFunc != nil {
		return m.AttemptFunc(ctx, input)
	}
	return nil, models.ErrInvalidOrExpired
}

func newAttendanceRouter(claims ClaimServiceInterface, submissions SubmissionServiceInterface) *chi.Mux {
	handler := NewAttendanceHandler(
		claims,
		submissions,
		metrics.New(prometheus.NewRegistry()),
		auth.CookieConfig{},
		365*24*time.Hour,
		&pkghttp.IPConfig{},
	)

	router := chi.NewRouter()
	router.Post("/events/{token}/claim", handler.Claim)
	router.Post("/events/{token}/attend", handler.Attend)
	return router
}

func attendBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(AttendRequest{
		RegNo:       "s12345",
		Secret:      "hunter2!",
		Fingerprint: "fp-1",
		DeviceKey:   "key-1",
		DeviceGroup: "grp-1",
	})
	assert.NoError(t, err)
	return bytes.NewBuffer(body)
}

func cookieByName(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAttendanceHandler_Claim_Success(t *testing.T) {
	expiresAt := time.Now().Add(20 * time.Second)
	claims := &MockClaimService{
		ClaimFunc: func(ctx context.Context, tokenValue, sessionID string) (*models.ClaimSession, error) {
			assert.Equal(t, "tok-abc", tokenValue)
			assert.Equal(t, "", sessionID)
			return &models.ClaimSession{ID: "sess-1", EventID: "event-1", ExpiresAt: expiresAt}, nil
		},
	}
	router := newAttendanceRouter(claims, &MockSubmissionService{})

	req := httptest.NewRequest(http.MethodPost, "/events/tok-abc/claim", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ClaimResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Accepted)

	session := cookieByName(rec.Result(), auth.SessionCookieName)
	assert.NotNil(t, session)
	assert.Equal(t, "sess-1", session.Value)
	assert.True(t, session.HttpOnly)
}

func TestAttendanceHandler_Claim_ForwardsSessionCookie(t *testing.T) {
	var gotSession string
	claims := &MockClaimService{
		ClaimFunc: func(ctx context.Context, tokenValue, sessionID string) (*models.ClaimSession, error) {
			gotSession = sessionID
			return &models.ClaimSession{ID: sessionID, EventID: "event-1", ExpiresAt: time.Now().Add(time.Second)}, nil
		},
	}
	router := newAttendanceRouter(claims, &MockSubmissionService{})

	req := httptest.NewRequest(http.MethodPost, "/events/stale-tok/claim", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "sess-live"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sess-live", gotSession)
}

func TestAttendanceHandler_Claim_InvalidToken(t *testing.T) {
	router := newAttendanceRouter(&MockClaimService{}, &MockSubmissionService{})

	req := httptest.NewRequest(http.MethodPost, "/events/bogus/claim", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp pkghttp.ErrorResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, msgRescan, resp.Message)
}

func TestAttendanceHandler_Claim_ClosedEvent(t *testing.T) {
	claims := &MockClaimService{
		ClaimFunc: func(ctx context.Context, tokenValue, sessionID string) (*models.ClaimSession, error) {
			return nil, models.ErrClosed
		},
	}
	router := newAttendanceRouter(claims, &MockSubmissionService{})

	req := httptest.NewRequest(http.MethodPost, "/events/tok-abc/claim", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAttendanceHandler_Attend_Success(t *testing.T) {
	expiresAt := time.Now().Add(20 * time.Second)
	submissions := &MockSubmissionService{
		AttemptFunc: func(ctx context.Context, input services.SubmissionInput) (*services.SubmissionResult, error) {
			assert.Equal(t, "tok-abc", input.TokenValue)
			assert.Equal(t, "s12345", input.RegNo)
			assert.NotEmpty(t, input.Identity.DeviceID)
			return &services.SubmissionResult{
				Student: &models.Student{ID: "student-1", RegNo: input.RegNo},
				Session: &models.ClaimSession{ID: "sess-1", EventID: "event-1", ExpiresAt: expiresAt},
			}, nil
		},
	}
	router := newAttendanceRouter(&MockClaimService{}, submissions)

	req := httptest.NewRequest(http.MethodPost, "/events/tok-abc/attend", attendBody(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp AttendResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, msgRecorded, resp.Message)

	res := rec.Result()
	device := cookieByName(res, auth.DeviceCookieName)
	assert.NotNil(t, device)
	assert.NotEmpty(t, device.Value)
	assert.True(t, device.HttpOnly)
	assert.NotNil(t, cookieByName(res, auth.SessionCookieName))
}

func TestAttendanceHandler_Attend_ReusesDeviceCookie(t *testing.T) {
	var gotDeviceID string
	submissions := &MockSubmissionService{
		AttemptFunc: func(ctx context.Context, input services.SubmissionInput) (*services.SubmissionResult, error) {
			gotDeviceID = input.Identity.DeviceID
			return &services.SubmissionResult{
				Student: &models.Student{ID: "student-1"},
				Session: &models.ClaimSession{ID: "sess-1", ExpiresAt: time.Now().Add(time.Second)},
			}, nil
		},
	}
	router := newAttendanceRouter(&MockClaimService{}, submissions)

	req := httptest.NewRequest(http.MethodPost, "/events/tok-abc/attend", attendBody(t))
	req.AddCookie(&http.Cookie{Name: auth.DeviceCookieName, Value: "device-known"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "device-known", gotDeviceID)
}

func TestAttendanceHandler_Attend_InvalidBody(t *testing.T) {
	router := newAttendanceRouter(&MockClaimService{}, &MockSubmissionService{})

	req := httptest.NewRequest(http.MethodPost, "/events/tok-abc/attend", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttendanceHandler_Attend_MissingCredentials(t *testing.T) {
	router := newAttendanceRouter(&MockClaimService{}, &MockSubmissionService{})

	body, _ := json.Marshal(AttendRequest{RegNo: "s12345"})
	req := httptest.NewRequest(http.MethodPost, "/events/tok-abc/attend", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttendanceHandler_Attend_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"closed", models.ErrClosed, http.StatusForbidden, msgClosed},
		{"invalid_or_expired", models.ErrInvalidOrExpired, http.StatusNotFound, msgRescan},
		{"invalid_credentials", models.ErrInvalidCredentials, http.StatusUnauthorized, msgBadCreds},
		{"not_eligible", models.ErrNotEligible, http.StatusForbidden, msgNotEligible},
		{"duplicate_device", models.ErrDuplicateDevice, http.StatusConflict, msgNotRecorded},
		{"already_marked", models.ErrAlreadyMarked, http.StatusConflict, msgNotRecorded},
		{"internal", models.ErrInternalServer, http.StatusInternalServerError, msgInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			submissions := &MockSubmissionService{
				AttemptFunc: func(ctx context.Context, input services.SubmissionInput) (*services.SubmissionResult, error) {
					return nil, tc.err
				},
			}
			router := newAttendanceRouter(&MockClaimService{}, submissions)

			req := httptest.NewRequest(http.MethodPost, "/events/tok-abc/attend", attendBody(t))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)

			var resp pkghttp.ErrorResponse
			assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tc.wantMsg, resp.Message)
		})
	}
}

func TestAttendanceHandler_Attend_DuplicateAndMarkedShareMessage(t *testing.T) {
	// The two 409 causes must be indistinguishable to the caller, otherwise
	// a probing client can tell "device seen" apart from "student marked".
	messages := make(map[string]bool)
	for _, cause := range []error{models.ErrDuplicateDevice, models.ErrAlreadyMarked} {
		submissions := &MockSubmissionService{
			AttemptFunc: func(ctx context.Context, input services.SubmissionInput) (*services.SubmissionResult, error) {
				return nil, cause
			},
		}
		router := newAttendanceRouter(&MockClaimService{}, submissions)

		req := httptest.NewRequest(http.MethodPost, "/events/tok-abc/attend", attendBody(t))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)

		var resp pkghttp.ErrorResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		messages[resp.Message] = true
	}
	assert.Len(t, messages, 1)
}
