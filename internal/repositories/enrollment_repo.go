package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollcall-app/rollcall/internal/database"
)

// EnrollmentRepository handles course enrollment lookups
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates a new EnrollmentRepository
func NewEnrollmentRepository(db *database.DB) *EnrollmentRepository {
	return &EnrollmentRepository{pool: db.Pool}
}

// Enroll records a student's enrollment in a course for a semester. Idempotent.
func (r *EnrollmentRepository) Enroll(ctx context.Context, studentID, courseID string, semester int) error {
	query := `
		INSERT INTO enrollments (student_id, course_id, semester)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_id, course_id, semester) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, studentID, courseID, semester)
	if err != nil {
		return fmt.Errorf("failed to enroll student: %w", database.MapPostgresError(err))
	}

	return nil
}

// IsEnrolled reports whether a student is enrolled in the course for the semester
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, studentID, courseID string, semester int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM enrollments
			WHERE student_id = $1 AND course_id = $2 AND semester = $3
		)
	`

	var enrolled bool
	if err := r.pool.QueryRow(ctx, query, studentID, courseID, semester).Scan(&enrolled); err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}

	return enrolled, nil
}
