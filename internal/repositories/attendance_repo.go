package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollcall-app/rollcall/internal/database"
	"github.com/rollcall-app/rollcall/internal/models"
)

// AttendanceRepository handles the durable attendance record per
// (event, student) pair
type AttendanceRepository struct {
	pool *pgxpool.Pool
}

// NewAttendanceRepository creates a new AttendanceRepository
func NewAttendanceRepository(db *database.DB) *AttendanceRepository {
	return &AttendanceRepository{pool: db.Pool}
}

// Get retrieves the record for (event, student), if any
func (r *AttendanceRepository) Get(ctx context.Context, eventID, studentID string) (*models.AttendanceRecord, error) {
	query := `
		SELECT event_id, student_id, status, marked_at
		FROM attendance_records
		WHERE event_id = $1 AND student_id = $2
	`

	var record models.AttendanceRecord
	err := r.pool.QueryRow(ctx, query, eventID, studentID).Scan(
		&record.EventID, &record.StudentID, &record.Status, &record.MarkedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &record, nil
}

// MarkPresent upserts (event, student) to present inside the caller's
// transaction. One code path covers both event kinds: a lecture inserts a
// fresh row, a seminar promotes the pre-seeded 'expected' row. Returns
// ErrAlreadyMarked when the record is already present; a present row is
// never written again.
func (r *AttendanceRepository) MarkPresent(ctx context.Context, tx pgx.Tx, eventID, studentID string) error {
	query := `
		INSERT INTO attendance_records (event_id, student_id, status, marked_at)
		VALUES ($1, $2, 'present', NOW())
		ON CONFLICT (event_id, student_id)
		DO UPDATE SET status = 'present', marked_at = NOW()
		WHERE attendance_records.status <> 'present'
	`

	result, err := tx.Exec(ctx, query, eventID, studentID)
	if err != nil {
		return fmt.Errorf("failed to mark attendance: %w", database.MapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return models.ErrAlreadyMarked
	}

	return nil
}

// SeedExpected pre-lists a student on a seminar roster as expected. Idempotent;
// an existing row (expected or present) is left alone.
func (r *AttendanceRepository) SeedExpected(ctx context.Context, eventID, studentID string) error {
	query := `
		INSERT INTO attendance_records (event_id, student_id, status)
		VALUES ($1, $2, 'expected')
		ON CONFLICT (event_id, student_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, eventID, studentID)
	if err != nil {
		return fmt.Errorf("failed to seed expected attendee: %w", database.MapPostgresError(err))
	}

	return nil
}

// ListByEvent returns the roster for an event ordered by student registration number
func (r *AttendanceRepository) ListByEvent(ctx context.Context, eventID string) ([]*models.AttendanceRecord, error) {
	query := `
		SELECT ar.event_id, ar.student_id, ar.status, ar.marked_at
		FROM attendance_records ar
		JOIN students s ON s.id = ar.student_id
		WHERE ar.event_id = $1
		ORDER BY s.reg_no
	`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.AttendanceRecord, 0)
	for rows.Next() {
		var record models.AttendanceRecord
		if err := rows.Scan(&record.EventID, &record.StudentID, &record.Status, &record.MarkedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance rows: %w", err)
	}

	return records, nil
}
