package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rollcall-app/rollcall/internal/models"
)

// MockEventStore implements EventStore for testing
type MockEventStore struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.AttendanceEvent, error)
	DeactivateFunc func(ctx context.Context, id string) error
}

func (m *MockEventStore) GetByID(ctx context.Context, id string) (*models.AttendanceEvent, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockEventStore) Deactivate(ctx context.Context, id string) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, id)
	}
	return nil
}

// MockTokenStore implements TokenStore for testing
type MockTokenStore struct {
	ReplaceFunc    func(ctx context.Context, eventID, value string) (*models.EventToken, error)
	GetByValueFunc func(ctx context.Context, value string) (*models.EventToken, error)
}

func (m *MockTokenStore) Replace(ctx context.Context, eventID, value string) (*models.EventToken, error) {
	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, eventID, value)
	}
	return &models.EventToken{EventID: eventID, Value: value, IssuedAt: time.Now()}, nil
}

func (m *MockTokenStore) GetByValue(ctx context.Context, value string) (*models.EventToken, error) {
	if m.GetByValueFunc != nil {
		return m.GetByValueFunc(ctx, value)
	}
	return nil, models.ErrNotFound
}

// MockSessionStore implements SessionStore for testing
type MockSessionStore struct {
	CreateFunc       func(ctx context.Context, id, eventID string, expiresAt time.Time) (*models.ClaimSession, error)
	GetByIDFunc      func(ctx context.Context, id string) (*models.ClaimSession, error)
	ExtendExpiryFunc func(ctx context.Context, id string, expiresAt time.Time) error
}

func (m *MockSessionStore) Create(ctx context.Context, id, eventID string, expiresAt time.Time) (*models.ClaimSession, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, id, eventID, expiresAt)
	}
	return &models.ClaimSession{ID: id, EventID: eventID, ExpiresAt: expiresAt, CreatedAt: time.Now()}, nil
}

func (m *MockSessionStore) GetByID(ctx context.Context, id string) (*models.ClaimSession, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionStore) ExtendExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	if m.ExtendExpiryFunc != nil {
		return m.ExtendExpiryFunc(ctx, id, expiresAt)
	}
	return nil
}

// MockClaimResolver implements ClaimResolver for testing
type MockClaimResolver struct {
	ClaimFunc func(ctx context.Context, tokenValue, sessionID string) (*models.ClaimSession, error)
}

func (m *MockClaimResolver) Claim(ctx context.Context, tokenValue, sessionID string) (*models.ClaimSession, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, tokenValue, sessionID)
	}
	return nil, models.ErrInvalidOrExpired
}

// MockFingerprintStore implements FingerprintStore for testing
type MockFingerprintStore struct {
	LayerExistsFunc func(ctx context.Context, eventID string, layer models.IdentityLayer, value string) (bool, error)
	InsertFunc      func(ctx context.Context, tx pgx.Tx, eventID string, identity *models.DeviceIdentity) error
}

func (m *MockFingerprintStore) LayerExists(ctx context.Context, eventID string, layer models.IdentityLayer, value string) (bool, error) {
	if m.LayerExistsFunc != nil {
		return m.LayerExistsFunc(ctx, eventID, layer, value)
	}
	return false, nil
}

func (m *MockFingerprintStore) Insert(ctx context.Context, tx pgx.Tx, eventID string, identity *models.DeviceIdentity) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, eventID, identity)
	}
	return nil
}

// MockAttendanceStore implements AttendanceStore for testing
type MockAttendanceStore struct {
	GetFunc         func(ctx context.Context, eventID, studentID string) (*models.AttendanceRecord, error)
	MarkPresentFunc func(ctx context.Context, tx pgx.Tx, eventID, studentID string) error
}

func (m *MockAttendanceStore) Get(ctx context.Context, eventID, studentID string) (*models.AttendanceRecord, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, eventID, studentID)
	}
	return nil, models.ErrNotFound
}

func (m *MockAttendanceStore) MarkPresent(ctx context.Context, tx pgx.Tx, eventID, studentID string) error {
	if m.MarkPresentFunc != nil {
		return m.MarkPresentFunc(ctx, tx, eventID, studentID)
	}
	return nil
}

// MockCredentialVerifier implements CredentialVerifier for testing
type MockCredentialVerifier struct {
	VerifyFunc func(ctx context.Context, regNo, secret string) (*models.Student, error)
}

func (m *MockCredentialVerifier) Verify(ctx context.Context, regNo, secret string) (*models.Student, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, regNo, secret)
	}
	return nil, models.ErrInvalidCredentials
}

// MockEligibilityChecker implements EligibilityChecker for testing
type MockEligibilityChecker struct {
	IsEligibleFunc func(ctx context.Context, studentID string, event *models.AttendanceEvent) (bool, error)
}

func (m *MockEligibilityChecker) IsEligible(ctx context.Context, studentID string, event *models.AttendanceEvent) (bool, error) {
	if m.IsEligibleFunc != nil {
		return m.IsEligibleFunc(ctx, studentID, event)
	}
	return false, nil
}

// MockTxRunner implements TxRunner for testing; the callback runs with a nil
// transaction, which the store mocks ignore
type MockTxRunner struct {
	WithTransactionFunc func(ctx context.Context, fn func(pgx.Tx) error) error
}

func (m *MockTxRunner) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(nil)
}

// NewTestEvent builds an active event for tests
func NewTestEvent(id string, kind models.EventKind) *models.AttendanceEvent {
	return &models.AttendanceEvent{
		ID:        id,
		CourseID:  "course-1",
		Semester:  3,
		Kind:      kind,
		Title:     "Test Event",
		Active:    true,
		CreatedAt: time.Now(),
	}
}

// NewTestStudent builds a student identity for tests
func NewTestStudent(id, regNo string) *models.Student {
	return &models.Student{ID: id, RegNo: regNo, Name: "Test Student"}
}
