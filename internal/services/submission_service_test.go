package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/stretchr/testify/assert"
)

func validInput() SubmissionInput {
	return SubmissionInput{
		TokenValue: "tok-abc",
		SessionID:  "sess-1",
		RegNo:      "s12345",
		Secret:     "hunter2!",
		Identity: models.DeviceIdentity{
			DeviceID:    "device-1",
			DeviceKey:   "key-1",
			Fingerprint: "fp-1",
			DeviceGroup: "grp-1",
			IPAddress:   "10.1.2.3",
		},
	}
}

type guardMocks struct {
	tx           *MockTxRunner
	events       *MockEventStore
	claims       *MockClaimResolver
	fingerprints *MockFingerprintStore
	attendance   *MockAttendanceStore
	verifier     *MockCredentialVerifier
	eligibility  *MockEligibilityChecker
}

func newGuardMocks(event *models.AttendanceEvent, student *models.Student) *guardMocks {
	return &guardMocks{
		tx: &MockTxRunner{},
		events: &MockEventStore{
			GetByIDFunc: func(ctx context.Context, id string) (*models.AttendanceEvent, error) {
				return event, nil
			},
		},
		claims: &MockClaimResolver{
			ClaimFunc: func(ctx context.Context, tokenValue, sessionID string) (*models.ClaimSession, error) {
				return &models.ClaimSession{ID: "sess-1", EventID: event.ID, ExpiresAt: time.Now().Add(20 * time.Second)}, nil
			},
		},
		fingerprints: &MockFingerprintStore{},
		attendance:   &MockAttendanceStore{},
		verifier: &MockCredentialVerifier{
			VerifyFunc: func(ctx context.Context, regNo, secret string) (*models.Student, error) {
				return student, nil
			},
		},
		eligibility: &MockEligibilityChecker{
			IsEligibleFunc: func(ctx context.Context, studentID string, event *models.AttendanceEvent) (bool, error) {
				return true, nil
			},
		},
	}
}

func (g *guardMocks) service() *SubmissionService {
	return NewSubmissionService(
		g.tx, g.events, g.claims, g.fingerprints, g.attendance,
		g.verifier, g.eligibility, slog.Default(),
	)
}

func TestSubmissionService_Accepted(t *testing.T) {
	event := NewTestEvent("event-1", models.EventKindLecture)
	student := NewTestStudent("student-1", "s12345")
	g := newGuardMocks(event, student)

	marked := false
	logged := false
	g.attendance.MarkPresentFunc = func(ctx context.Context, tx pgx.Tx, eventID, studentID string) error {
		marked = true
		assert.Equal(t, "event-1", eventID)
		assert.Equal(t, "student-1", studentID)
		return nil
	}
	g.fingerprints.InsertFunc = func(ctx context.Context, tx pgx.Tx, eventID string, identity *models.DeviceIdentity) error {
		logged = true
		return nil
	}

	result, err := g.service().Attempt(context.Background(), validInput())

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "student-1", result.Student.ID)
	assert.Equal(t, "sess-1", result.Session.ID)
	assert.True(t, marked)
	assert.True(t, logged)
}

func TestSubmissionService_ClaimFailurePropagates(t *testing.T) {
	event := NewTestEvent("event-1", models.EventKindLecture)
	g := newGuardMocks(event, NewTestStudent("student-1", "s12345"))
	g.claims.ClaimFunc = func(ctx context.Context, tokenValue, sessionID string) (*models.ClaimSession, error) {
		return nil, models.ErrInvalidOrExpired
	}

	result, err := g.service().Attempt(context.Background(), validInput())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrInvalidOrExpired)
}

func TestSubmissionService_DuplicateLayer_RejectsBeforeAuth(t *testing.T) {
	event := NewTestEvent("event-1", models.EventKindLecture)
	g := newGuardMocks(event, NewTestStudent("student-1", "s12345"))

	g.fingerprints.LayerExistsFunc = func(ctx context.Context, eventID string, layer models.IdentityLayer, value string) (bool, error) {
		return layer == models.LayerDeviceGroup, nil
	}
	g.verifier.VerifyFunc = func(ctx context.Context, regNo, secret string) (*models.Student, error) {
		t.Fatal("credentials must not be verified after a duplicate device")
		return nil, nil
	}

	result, err := g.service().Attempt(context.Background(), validInput())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrDuplicateDevice)
}

func TestSubmissionService_AnyLayerMatchRejects(t *testing.T) {
	layers := []models.IdentityLayer{
		models.LayerDeviceGroup, models.LayerDeviceKey, models.LayerFingerprint,
		models.LayerDeviceID, models.LayerIPAddress,
	}

	for _, dup := range layers {
		t.Run(string(dup), func(t *testing.T) {
			event := NewTestEvent("event-1", models.EventKindLecture)
			g := newGuardMocks(event, NewTestStudent("student-1", "s12345"))
			g.fingerprints.LayerExistsFunc = func(ctx context.Context, eventID string, layer models.IdentityLayer, value string) (bool, error) {
				return layer == dup, nil
			}

			_, err := g.service().Attempt(context.Background(), validInput())
			assert.ErrorIs(t, err, models.ErrDuplicateDevice)
		})
	}
}

func TestSubmissionService_EmptyLayersSkipped(t *testing.T) {
	// Two submissions both lacking a fingerprint must never be compared on
	// it: the guard may not even ask the store about an empty layer.
	event := NewTestEvent("event-1", models.EventKindLecture)
	g := newGuardMocks(event, NewTestStudent("student-1", "s12345"))

	checked := make(map[models.IdentityLayer]bool)
	g.fingerprints.LayerExistsFunc = func(ctx context.Context, eventID string, layer models.IdentityLayer, value string) (bool, error) {
		assert.NotEmpty(t, value)
		checked[layer] = true
		return false, nil
	}

	input := validInput()
	input.Identity.Fingerprint = ""
	input.Identity.DeviceGroup = "   " // whitespace only, absent after normalization

	result, err := g.service().Attempt(context.Background(), input)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.False(t, checked[models.LayerFingerprint])
	assert.False(t, checked[models.LayerDeviceGroup])
	assert.True(t, checked[models.LayerDeviceKey])
	assert.True(t, checked[models.LayerDeviceID])
	assert.True(t, checked[models.LayerIPAddress])
}

func TestSubmissionService_IdentityNormalizedBeforeChecks(t *testing.T) {
	event := NewTestEvent("event-1", models.EventKindLecture)
	g := newGuardMocks(event, NewTestStudent("student-1", "s12345"))

	var seenKey string
	g.fingerprints.LayerExistsFunc = func(ctx context.Context, eventID string, layer models.IdentityLayer, value string) (bool, error) {
		if layer == models.LayerDeviceKey {
			seenKey = value
		}
		return false, nil
	}

	input := validInput()
	input.Identity.DeviceKey = "  KEY-MiXeD  "

	_, err := g.service().Attempt(context.Background(), input)

	assert.NoError(t, err)
	assert.Equal(t, "key-mixed", seenKey)
}

func TestSubmissionService_InvalidCredentials(t *testing.T) {
	event := NewTestEvent("event-1", models.EventKindLecture)
	g := newGuardMocks(event, nil)
	g.verifier.VerifyFunc = func(ctx context.Context, regNo, secret string) (*models.Student, error) {
		return nil, models.ErrInvalidCredentials
	}

	result, err := g.service().Attempt(context.Background(), validInput())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestSubmissionService_NotEligible(t *testing.T) {
	event := NewTestEvent("event-1", models.EventKindSeminar)
	g := newGuardMocks(event, NewTestStudent("student-1", "s12345"))
	g.eligibility.IsEligibleFunc = func(ctx context.Context, studentID string, event *models.AttendanceEvent) (bool, error) {
		return false, nil
	}
	g.tx.WithTransactionFunc = func(ctx context.Context, fn func(pgx.Tx) error) error {
		t.Fatal("nothing may be written for an ineligible student")
		return nil
	}

	result, err := g.service().Attempt(context.Background(), validInput())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrNotEligible)
}

func TestSubmissionService_AlreadyMarked(t *testing.T) {
	event := NewTestEvent("event-1", models.EventKindLecture)
	g := newGuardMocks(event, NewTestStudent("student-1", "s12345"))
	g.attendance.GetFunc = func(ctx context.Context, eventID, studentID string) (*models.AttendanceRecord, error) {
		return &models.AttendanceRecord{EventID: eventID, StudentID: studentID, Status: models.StatusPresent}, nil
	}

	result, err := g.service().Attempt(context.Background(), validInput())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrAlreadyMarked)
}

func TestSubmissionService_ExpectedSeminarRowProceeds(t *testing.T) {
	// A pre-seeded 'expected' roster row is the normal seminar case, not a
	// duplicate.
	event := NewTestEvent("event-1", models.EventKindSeminar)
	g := newGuardMocks(event, NewTestStudent("student-1", "s12345"))
	g.attendance.GetFunc = func(ctx context.Context, eventID, studentID string) (*models.AttendanceRecord, error) {
		return &models.AttendanceRecord{EventID: eventID, StudentID: studentID, Status: models.StatusExpected}, nil
	}

	result, err := g.service().Attempt(context.Background(), validInput())

	assert.NoError(t, err)
	assert.NotNil(t, result)
}

func TestSubmissionService_InsertRace_FingerprintConflict(t *testing.T) {
	// Concurrent submissions that both pass the pre-checks: the loser hits
	// the partial unique index and must still be told DuplicateDevice.
	event := NewTestEvent("event-1", models.EventKindLecture)
	g := newGuardMocks(event, NewTestStudent("student-1", "s12345"))
	g.fingerprints.InsertFunc = func(ctx context.Context, tx pgx.Tx, eventID string, identity *models.DeviceIdentity) error {
		return &pgconn.PgError{Code: "23505", ConstraintName: "submission_fingerprints_event_device_key_key"}
	}

	result, err := g.service().Attempt(context.Background(), validInput())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrDuplicateDevice)
}

func TestSubmissionService_InsertRace_AttendanceConflict(t *testing.T) {
	event := NewTestEvent("event-1", models.EventKindLecture)
	g := newGuardMocks(event, NewTestStudent("student-1", "s12345"))
	g.attendance.MarkPresentFunc = func(ctx context.Context, tx pgx.Tx, eventID, studentID string) error {
		return models.ErrAlreadyMarked
	}

	result, err := g.service().Attempt(context.Background(), validInput())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrAlreadyMarked)
}

func TestSubmissionService_UnrelatedTxErrorSurfaces(t *testing.T) {
	event := NewTestEvent("event-1", models.EventKindLecture)
	g := newGuardMocks(event, NewTestStudent("student-1", "s12345"))
	g.fingerprints.InsertFunc = func(ctx context.Context, tx pgx.Tx, eventID string, identity *models.DeviceIdentity) error {
		return models.ErrInternalServer
	}

	result, err := g.service().Attempt(context.Background(), validInput())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrInternalServer)
	assert.NotErrorIs(t, err, models.ErrDuplicateDevice)
}
