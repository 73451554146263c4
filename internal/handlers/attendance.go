package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/auth"
	"github.com/rollcall-app/rollcall/internal/metrics"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/services"
	pkghttp "github.com/rollcall-app/rollcall/pkg/http"
)

// ClaimServiceInterface defines the claim resolution logic
type ClaimServiceInterface interface {
	Claim(ctx context.Context, tokenValue, sessionID string) (*models.ClaimSession, error)
}

// SubmissionServiceInterface defines the submission guard logic
type SubmissionServiceInterface interface {
	Attempt(ctx context.Context, input services.SubmissionInput) (*services.SubmissionResult, error)
}

// Coarse user-facing messages. Duplicate-device, already-marked and
// not-eligible deliberately share wording that does not reveal which check
// tripped; the specific reason goes to logs and metrics only.
const (
	msgRescan      = "Invalid or expired code, please rescan the QR."
	msgClosed      = "Attendance for this event is closed."
	msgBadCreds    = "Authentication failed."
	msgNotRecorded = "Attendance could not be recorded for this device or student."
	msgNotEligible = "You cannot submit attendance for this event."
	msgRecorded    = "Attendance recorded."
	msgInternal    = "Something went wrong, please try again."
)

// AttendanceHandler handles the student-facing claim and attend requests
type AttendanceHandler struct {
	claims       ClaimServiceInterface
	submissions  SubmissionServiceInterface
	metrics      *metrics.Metrics
	cookieConfig auth.CookieConfig
	deviceTTL    time.Duration
	ipConfig     *pkghttp.IPConfig
}

// NewAttendanceHandler creates a new AttendanceHandler
func NewAttendanceHandler(
	claims ClaimServiceInterface,
	submissions SubmissionServiceInterface,
	m *metrics.Metrics,
	cookieConfig auth.CookieConfig,
	deviceTTL time.Duration,
	ipConfig *pkghttp.IPConfig,
) *AttendanceHandler {
	return &AttendanceHandler{
		claims:       claims,
		submissions:  submissions,
		metrics:      m,
		cookieConfig: cookieConfig,
		deviceTTL:    deviceTTL,
		ipConfig:     ipConfig,
	}
}

// AttendRequest is the request body for an attendance submission
type AttendRequest struct {
	RegNo       string `json:"reg_no" validate:"required,max=64"`
	Secret      string `json:"secret" validate:"required,max=128"`
	Fingerprint string `json:"fingerprint" validate:"max=128"`
	DeviceKey   string `json:"device_key" validate:"max=128"`
	DeviceGroup string `json:"device_group" validate:"max=128"`
}

// ClaimResponse is the response body for a claim
type ClaimResponse struct {
	Accepted bool `json:"accepted"`
}

// AttendResponse is the response body for an attendance submission
type AttendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Claim handles POST /events/{token}/claim. First contact from a browser
// that scanned the QR: opens (or extends) the claim session that will keep
// the student valid through token rotation while they type credentials.
func (h *AttendanceHandler) Claim(w http.ResponseWriter, r *http.Request) {
	tokenValue := chi.URLParam(r, "token")
	sessionID := auth.GetSessionCookie(r)

	session, err := h.claims.Claim(r.Context(), tokenValue, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrClosed):
			h.metrics.SubmissionsRejected.WithLabelValues("closed").Inc()
			pkghttp.WriteForbidden(w, msgClosed)
		case errors.Is(err, models.ErrInvalidOrExpired):
			pkghttp.WriteNotFound(w, msgRescan)
		default:
			pkghttp.WriteInternalError(w, msgInternal)
		}
		return
	}

	h.metrics.ClaimsOpened.Inc()
	auth.SetSessionCookie(w, session.ID, session.ExpiresAt, h.cookieConfig)
	writeJSON(w, http.StatusOK, ClaimResponse{Accepted: true})
}

// Attend handles POST /events/{token}/attend: one full submission attempt
// through the guard. On success the device and session cookies are
// set/refreshed.
func (h *AttendanceHandler) Attend(w http.ResponseWriter, r *http.Request) {
	var req AttendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	// Issue the device id up front when the browser has none, so the dedup
	// ledger row for a first-time device still carries the full tuple.
	deviceID := auth.GetDeviceCookie(r)
	issuedDevice := false
	if deviceID == "" {
		deviceID = uuid.New().String()
		issuedDevice = true
	}

	input := services.SubmissionInput{
		TokenValue: chi.URLParam(r, "token"),
		SessionID:  auth.GetSessionCookie(r),
		RegNo:      req.RegNo,
		Secret:     req.Secret,
		Identity: models.DeviceIdentity{
			DeviceID:    deviceID,
			DeviceKey:   req.DeviceKey,
			Fingerprint: req.Fingerprint,
			DeviceGroup: req.DeviceGroup,
			IPAddress:   pkghttp.ExtractClientIP(r, h.ipConfig),
		},
	}

	result, err := h.submissions.Attempt(r.Context(), input)
	if err != nil {
		h.writeAttemptError(w, err)
		return
	}

	h.metrics.SubmissionsAccepted.Inc()
	if issuedDevice || h.deviceTTL > 0 {
		auth.SetDeviceCookie(w, deviceID, h.deviceTTL, h.cookieConfig)
	}
	auth.SetSessionCookie(w, result.Session.ID, result.Session.ExpiresAt, h.cookieConfig)
	writeJSON(w, http.StatusOK, AttendResponse{Success: true, Message: msgRecorded})
}

func (h *AttendanceHandler) writeAttemptError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrClosed):
		h.metrics.SubmissionsRejected.WithLabelValues("closed").Inc()
		pkghttp.WriteForbidden(w, msgClosed)
	case errors.Is(err, models.ErrInvalidOrExpired):
		h.metrics.SubmissionsRejected.WithLabelValues("invalid_or_expired").Inc()
		pkghttp.WriteNotFound(w, msgRescan)
	case errors.Is(err, models.ErrInvalidCredentials):
		h.metrics.SubmissionsRejected.WithLabelValues("invalid_credentials").Inc()
		pkghttp.WriteUnauthorized(w, msgBadCreds)
	case errors.Is(err, models.ErrNotEligible):
		h.metrics.SubmissionsRejected.WithLabelValues("not_eligible").Inc()
		pkghttp.WriteForbidden(w, msgNotEligible)
	case errors.Is(err, models.ErrDuplicateDevice):
		h.metrics.SubmissionsRejected.WithLabelValues("duplicate_device").Inc()
		pkghttp.WriteConflict(w, msgNotRecorded)
	case errors.Is(err, models.ErrAlreadyMarked):
		h.metrics.SubmissionsRejected.WithLabelValues("already_marked").Inc()
		pkghttp.WriteConflict(w, msgNotRecorded)
	default:
		h.metrics.SubmissionsRejected.WithLabelValues("internal").Inc()
		pkghttp.WriteInternalError(w, msgInternal)
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
