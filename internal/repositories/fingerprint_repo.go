package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollcall-app/rollcall/internal/database"
	"github.com/rollcall-app/rollcall/internal/models"
)

// FingerprintRepository handles the per-event dedup ledger of accepted
// submission identity tuples
type FingerprintRepository struct {
	pool *pgxpool.Pool
}

// NewFingerprintRepository creates a new FingerprintRepository
func NewFingerprintRepository(db *database.DB) *FingerprintRepository {
	return &FingerprintRepository{pool: db.Pool}
}

// layerColumns maps identity layers to ledger columns. Values pass through
// as bind parameters only; the column name is never taken from input.
var layerColumns = map[models.IdentityLayer]string{
	models.LayerDeviceGroup: "device_group",
	models.LayerDeviceKey:   "device_key",
	models.LayerFingerprint: "fingerprint",
	models.LayerDeviceID:    "device_id",
	models.LayerIPAddress:   "ip_address",
}

// LayerExists reports whether any accepted submission for the event already
// carries this exact value in the given layer. Advisory fast path: the
// partial unique indexes are the authoritative guard at insert time.
func (r *FingerprintRepository) LayerExists(ctx context.Context, eventID string, layer models.IdentityLayer, value string) (bool, error) {
	column, ok := layerColumns[layer]
	if !ok {
		return false, fmt.Errorf("unknown identity layer %q", layer)
	}

	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM submission_fingerprints
			WHERE event_id = $1 AND %s = $2
		)
	`, column)

	var exists bool
	if err := r.pool.QueryRow(ctx, query, eventID, value).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check identity layer: %w", err)
	}

	return exists, nil
}

// Insert appends the accepted submission's identity tuple to the ledger
// inside the caller's transaction. Absent signals are stored as NULL so the
// per-layer unique indexes skip them.
func (r *FingerprintRepository) Insert(ctx context.Context, tx pgx.Tx, eventID string, identity *models.DeviceIdentity) error {
	query := `
		INSERT INTO submission_fingerprints (id, event_id, device_id, device_key, fingerprint, device_group, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.Exec(ctx, query,
		uuid.New().String(),
		eventID,
		nullIfEmpty(identity.DeviceID),
		nullIfEmpty(identity.DeviceKey),
		nullIfEmpty(identity.Fingerprint),
		nullIfEmpty(identity.DeviceGroup),
		nullIfEmpty(identity.IPAddress),
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission fingerprint: %w", err)
	}

	return nil
}

// CountByEvent returns the number of accepted submissions logged for an event
func (r *FingerprintRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	query := `SELECT COUNT(*) FROM submission_fingerprints WHERE event_id = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, eventID).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}

	return count, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
