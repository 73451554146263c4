package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollcall-app/rollcall/internal/database"
	"github.com/rollcall-app/rollcall/internal/models"
)

// EventRepository handles attendance event data access
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{pool: db.Pool}
}

// Create inserts a new attendance event. Events are normally created by the
// scheduling system; this exists for seeding and tests.
func (r *EventRepository) Create(ctx context.Context, event *models.AttendanceEvent) (*models.AttendanceEvent, error) {
	query := `
		INSERT INTO attendance_events (course_id, semester, kind, title)
		VALUES ($1, $2, $3, $4)
		RETURNING id, course_id, semester, kind, title, active, created_at
	`

	var created models.AttendanceEvent
	err := r.pool.QueryRow(ctx, query, event.CourseID, event.Semester, event.Kind, event.Title).Scan(
		&created.ID, &created.CourseID, &created.Semester, &created.Kind,
		&created.Title, &created.Active, &created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attendance event: %w", database.MapPostgresError(err))
	}

	return &created, nil
}

// GetByID retrieves an event by id
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.AttendanceEvent, error) {
	query := `
		SELECT id, course_id, semester, kind, title, active, created_at
		FROM attendance_events
		WHERE id = $1
	`

	var event models.AttendanceEvent
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&event.ID, &event.CourseID, &event.Semester, &event.Kind,
		&event.Title, &event.Active, &event.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &event, nil
}

// Deactivate closes attendance for an event. Terminal: every token and
// session for the event is rejected from here on, regardless of freshness.
func (r *EventRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE attendance_events SET active = FALSE WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate event: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
