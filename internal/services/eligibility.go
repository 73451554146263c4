package services

import (
	"context"
	"errors"

	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/repositories"
)

// EligibilityChecker decides whether a student may attend a given event.
// Consumed as an opaque collaborator by the submission guard.
type EligibilityChecker interface {
	IsEligible(ctx context.Context, studentID string, event *models.AttendanceEvent) (bool, error)
}

// EnrollmentEligibility is the per-kind eligibility rule: lectures accept any
// student enrolled in the event's course and semester, seminars only those
// pre-listed on the roster. This is the only place the two event kinds
// diverge besides wording; the token/session/identity machinery is shared.
type EnrollmentEligibility struct {
	enrollments *repositories.EnrollmentRepository
	attendance  *repositories.AttendanceRepository
}

// NewEnrollmentEligibility creates a new EnrollmentEligibility
func NewEnrollmentEligibility(enrollments *repositories.EnrollmentRepository, attendance *repositories.AttendanceRepository) *EnrollmentEligibility {
	return &EnrollmentEligibility{
		enrollments: enrollments,
		attendance:  attendance,
	}
}

// IsEligible applies the event kind's rule
func (e *EnrollmentEligibility) IsEligible(ctx context.Context, studentID string, event *models.AttendanceEvent) (bool, error) {
	switch event.Kind {
	case models.EventKindLecture:
		return e.enrollments.IsEnrolled(ctx, studentID, event.CourseID, event.Semester)
	case models.EventKindSeminar:
		_, err := e.attendance.Get(ctx, event.ID, studentID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	default:
		return false, nil
	}
}
