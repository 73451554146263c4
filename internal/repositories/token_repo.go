package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollcall-app/rollcall/internal/database"
	"github.com/rollcall-app/rollcall/internal/models"
)

// TokenRepository handles the single live token per event
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(db *database.DB) *TokenRepository {
	return &TokenRepository{pool: db.Pool}
}

// Replace upserts the event's token row with a new value and a fresh
// issuance time. The previous token is gone after this, not merely expired;
// the table never accumulates rows.
func (r *TokenRepository) Replace(ctx context.Context, eventID, value string) (*models.EventToken, error) {
	query := `
		INSERT INTO event_tokens (event_id, value, issued_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (event_id)
		DO UPDATE SET value = EXCLUDED.value, issued_at = EXCLUDED.issued_at
		RETURNING event_id, value, issued_at
	`

	var token models.EventToken
	err := r.pool.QueryRow(ctx, query, eventID, value).Scan(&token.EventID, &token.Value, &token.IssuedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to replace event token: %w", database.MapPostgresError(err))
	}

	return &token, nil
}

// GetByValue retrieves the token row carrying the given value
func (r *TokenRepository) GetByValue(ctx context.Context, value string) (*models.EventToken, error) {
	query := `
		SELECT event_id, value, issued_at
		FROM event_tokens
		WHERE value = $1
	`

	var token models.EventToken
	err := r.pool.QueryRow(ctx, query, value).Scan(&token.EventID, &token.Value, &token.IssuedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &token, nil
}
