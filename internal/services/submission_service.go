package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rollcall-app/rollcall/internal/database"
	"github.com/rollcall-app/rollcall/internal/models"
)

// ClaimResolver resolves a token/session pair to a valid claim session
type ClaimResolver interface {
	Claim(ctx context.Context, tokenValue, sessionID string) (*models.ClaimSession, error)
}

// FingerprintStore defines the dedup ledger operations the guard needs
type FingerprintStore interface {
	LayerExists(ctx context.Context, eventID string, layer models.IdentityLayer, value string) (bool, error)
	Insert(ctx context.Context, tx pgx.Tx, eventID string, identity *models.DeviceIdentity) error
}

// AttendanceStore defines the attendance record operations the guard needs
type AttendanceStore interface {
	Get(ctx context.Context, eventID, studentID string) (*models.AttendanceRecord, error)
	MarkPresent(ctx context.Context, tx pgx.Tx, eventID, studentID string) error
}

// TxRunner runs a function inside one database transaction
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error
}

// SubmissionInput is one attendance submission attempt
type SubmissionInput struct {
	TokenValue string
	SessionID  string
	RegNo      string
	Secret     string
	Identity   models.DeviceIdentity
}

// SubmissionResult is returned for an accepted submission
type SubmissionResult struct {
	Student *models.Student
	Session *models.ClaimSession
}

// SubmissionService is the submission guard: it runs every precondition in
// order, fails fast with a specific reason, and commits the attendance
// record together with the dedup ledger row in one transaction.
type SubmissionService struct {
	tx           TxRunner
	events       EventStore
	claims       ClaimResolver
	fingerprints FingerprintStore
	attendance   AttendanceStore
	verifier     CredentialVerifier
	eligibility  EligibilityChecker
	logger       *slog.Logger
}

// NewSubmissionService creates a new SubmissionService
func NewSubmissionService(
	tx TxRunner,
	events EventStore,
	claims ClaimResolver,
	fingerprints FingerprintStore,
	attendance AttendanceStore,
	verifier CredentialVerifier,
	eligibility EligibilityChecker,
	logger *slog.Logger,
) *SubmissionService {
	return &SubmissionService{
		tx:           tx,
		events:       events,
		claims:       claims,
		fingerprints: fingerprints,
		attendance:   attendance,
		verifier:     verifier,
		eligibility:  eligibility,
		logger:       logger,
	}
}

// Attempt processes one submission. Check order: event open, token/session
// valid, no identity layer already used for this event, credentials valid,
// student eligible, student not already marked. Only then are the two writes
// committed. The per-layer pre-checks buy a fast specific failure; the
// partial unique indexes and the attendance primary key are the authoritative
// guards, and an insert-time conflict is downgraded to the matching domain
// error rather than surfacing as a storage failure.
func (s *SubmissionService) Attempt(ctx context.Context, input SubmissionInput) (*SubmissionResult, error) {
	// Steps 1-2: event active, token fresh or session unexpired.
	session, err := s.claims.Claim(ctx, input.TokenValue, input.SessionID)
	if err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, session.EventID)
	if err != nil {
		return nil, err
	}

	// Step 3: each non-empty identity layer is an independent uniqueness
	// check against all prior accepted submissions for this event. Absent
	// layers are skipped; which layer matches only decides what gets logged.
	identity := NormalizeIdentity(input.Identity)
	for _, lv := range identity.Layers() {
		if lv.Value == "" {
			continue
		}
		exists, err := s.fingerprints.LayerExists(ctx, event.ID, lv.Layer, lv.Value)
		if err != nil {
			return nil, err
		}
		if exists {
			s.logger.Warn("duplicate device rejected",
				slog.String("event_id", event.ID),
				slog.String("layer", string(lv.Layer)),
			)
			return nil, models.ErrDuplicateDevice
		}
	}

	// Step 4: authenticate.
	student, err := s.verifier.Verify(ctx, input.RegNo, input.Secret)
	if err != nil {
		return nil, err
	}

	// Step 5: eligibility for this specific event.
	eligible, err := s.eligibility.IsEligible(ctx, student.ID, event)
	if err != nil {
		return nil, err
	}
	if !eligible {
		s.logger.Warn("ineligible submission rejected",
			slog.String("event_id", event.ID),
			slog.String("student_id", student.ID),
		)
		return nil, models.ErrNotEligible
	}

	// Step 6: defense in depth beyond the device checks; a device-check
	// bypass must not let the same student be marked twice.
	record, err := s.attendance.Get(ctx, event.ID, student.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if record != nil && record.Status == models.StatusPresent {
		return nil, models.ErrAlreadyMarked
	}

	// Step 7: both writes or neither.
	err = s.tx.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.attendance.MarkPresent(ctx, tx, event.ID, student.ID); err != nil {
			return err
		}
		return s.fingerprints.Insert(ctx, tx, event.ID, &identity)
	})
	if err != nil {
		return nil, s.mapCommitError(err, event.ID)
	}

	s.logger.Info("attendance recorded",
		slog.String("event_id", event.ID),
		slog.String("student_id", student.ID),
		slog.String("kind", string(event.Kind)),
	)

	return &SubmissionResult{Student: student, Session: session}, nil
}

// mapCommitError downgrades insert-time uniqueness conflicts from concurrent
// submissions that raced past the pre-checks. The loser gets the same answer
// it would have gotten from the pre-check, never a generic 500.
func (s *SubmissionService) mapCommitError(err error, eventID string) error {
	if errors.Is(err, models.ErrAlreadyMarked) {
		return models.ErrAlreadyMarked
	}

	if constraint, ok := database.IsUniqueViolation(err); ok {
		s.logger.Warn("submission lost insert race",
			slog.String("event_id", eventID),
			slog.String("constraint", constraint),
		)
		if strings.HasPrefix(constraint, "submission_fingerprints") {
			return models.ErrDuplicateDevice
		}
		if strings.HasPrefix(constraint, "attendance_records") {
			return models.ErrAlreadyMarked
		}
	}

	return err
}
