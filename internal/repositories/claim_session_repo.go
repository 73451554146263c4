package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollcall-app/rollcall/internal/database"
	"github.com/rollcall-app/rollcall/internal/models"
)

// ClaimSessionRepository handles claim session data access
type ClaimSessionRepository struct {
	pool *pgxpool.Pool
}

// NewClaimSessionRepository creates a new ClaimSessionRepository
func NewClaimSessionRepository(db *database.DB) *ClaimSessionRepository {
	return &ClaimSessionRepository{pool: db.Pool}
}

// Create inserts a new claim session with the given expiry
func (r *ClaimSessionRepository) Create(ctx context.Context, id, eventID string, expiresAt time.Time) (*models.ClaimSession, error) {
	query := `
		INSERT INTO claim_sessions (id, event_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, event_id, expires_at, created_at
	`

	var session models.ClaimSession
	err := r.pool.QueryRow(ctx, query, id, eventID, expiresAt).Scan(
		&session.ID, &session.EventID, &session.ExpiresAt, &session.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create claim session: %w", database.MapPostgresError(err))
	}

	return &session, nil
}

// GetByID retrieves a claim session by id. Expiry is not filtered here; the
// caller compares against its own clock so expiry semantics stay in one place.
func (r *ClaimSessionRepository) GetByID(ctx context.Context, id string) (*models.ClaimSession, error) {
	query := `
		SELECT id, event_id, expires_at, created_at
		FROM claim_sessions
		WHERE id = $1
	`

	var session models.ClaimSession
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.ID, &session.EventID, &session.ExpiresAt, &session.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &session, nil
}

// ExtendExpiry pushes a session's expiry forward. Called on every successful
// re-claim so an open credential form keeps its session alive through token
// rotation.
func (r *ClaimSessionRepository) ExtendExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	query := `UPDATE claim_sessions SET expires_at = $2 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to extend claim session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// DeleteExpired removes sessions whose expiry is older than the grace cutoff.
// The grace keeps the sweep well clear of the functional expiry check.
func (r *ClaimSessionRepository) DeleteExpired(ctx context.Context, grace time.Duration) (int64, error) {
	query := `DELETE FROM claim_sessions WHERE expires_at < NOW() - ($1 * interval '1 second')`

	result, err := r.pool.Exec(ctx, query, grace.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired claim sessions: %w", err)
	}

	return result.RowsAffected(), nil
}
