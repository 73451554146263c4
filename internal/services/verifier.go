package services

import (
	"context"
	"errors"

	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/repositories"
	pkgauth "github.com/rollcall-app/rollcall/pkg/auth"
)

// CredentialVerifier resolves submitted credentials to a student identity.
// Consumed as an opaque collaborator by the submission guard.
type CredentialVerifier interface {
	Verify(ctx context.Context, regNo, secret string) (*models.Student, error)
}

// StudentCredentialVerifier verifies credentials against the students table
// with a bcrypt comparison.
type StudentCredentialVerifier struct {
	students *repositories.StudentRepository
}

// NewStudentCredentialVerifier creates a new StudentCredentialVerifier
func NewStudentCredentialVerifier(students *repositories.StudentRepository) *StudentCredentialVerifier {
	return &StudentCredentialVerifier{students: students}
}

// Verify returns the student identity for correct credentials and
// ErrInvalidCredentials otherwise. An unknown registration number still pays
// the bcrypt cost so the two failures are not distinguishable by timing.
func (v *StudentCredentialVerifier) Verify(ctx context.Context, regNo, secret string) (*models.Student, error) {
	student, secretHash, err := v.students.GetByRegNo(ctx, regNo)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkgauth.CompareDummySecret(secret)
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := pkgauth.CompareSecret(secretHash, secret); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	return student, nil
}
