package integration

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/pkg/auth"
)

var regNoCounter atomic.Int64

// TestRegNo generates a unique registration number per call
func TestRegNo() string {
	return fmt.Sprintf("r%06d", regNoCounter.Add(1))
}

// TestSecret is the plaintext credential used for seeded students
const TestSecret = "CorrectHorse9!"

// SeedStudent inserts a student with a hashed secret and returns the model
func SeedStudent(ctx context.Context, repos *Repositories) (*models.Student, error) {
	hash, err := auth.HashSecret(TestSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to hash secret: %w", err)
	}
	return repos.Students.Create(ctx, TestRegNo(), "Integration Student", hash)
}

// SeedEvent inserts an active event of the given kind on a fresh course
func SeedEvent(ctx context.Context, repos *Repositories, kind models.EventKind) (*models.AttendanceEvent, error) {
	return repos.Events.Create(ctx, &models.AttendanceEvent{
		CourseID: uuid.New().String(),
		Semester: 3,
		Kind:     kind,
		Title:    "Integration " + string(kind),
		Active:   true,
	})
}

// SeedEnrolledStudent seeds a student enrolled in the event's course
func SeedEnrolledStudent(ctx context.Context, repos *Repositories, event *models.AttendanceEvent) (*models.Student, error) {
	student, err := SeedStudent(ctx, repos)
	if err != nil {
		return nil, err
	}
	if err := repos.Enrollments.Enroll(ctx, student.ID, event.CourseID, event.Semester); err != nil {
		return nil, fmt.Errorf("failed to enroll student: %w", err)
	}
	return student, nil
}

// SeedRosterStudent seeds a student pre-listed as expected on a seminar event
func SeedRosterStudent(ctx context.Context, repos *Repositories, event *models.AttendanceEvent) (*models.Student, error) {
	student, err := SeedStudent(ctx, repos)
	if err != nil {
		return nil, err
	}
	if err := repos.Attendance.SeedExpected(ctx, event.ID, student.ID); err != nil {
		return nil, fmt.Errorf("failed to seed roster row: %w", err)
	}
	return student, nil
}

// TestIdentity builds a distinct device identity; the seed disambiguates every
// layer so two identities from different seeds never collide
func TestIdentity(seed string) models.DeviceIdentity {
	return models.DeviceIdentity{
		DeviceID:    "device-" + seed,
		DeviceKey:   "key-" + seed,
		Fingerprint: "fp-" + seed,
		DeviceGroup: "grp-" + seed,
		IPAddress:   "203.0.113." + seed,
	}
}
