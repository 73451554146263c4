package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/rollcall-app/rollcall/internal/metrics"
)

// ExpiredSessionDeleter deletes claim sessions past their expiry plus grace
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, grace time.Duration) (int64, error)
}

// SweepManager periodically removes long-expired claim sessions. Expiry
// itself is enforced by timestamp comparison on every read; the sweep only
// keeps the table from accumulating dead rows.
type SweepManager struct {
	sessions ExpiredSessionDeleter
	metrics  *metrics.Metrics
	logger   *slog.Logger
	interval time.Duration
	grace    time.Duration
	stopCh   chan struct{}
}

// NewSweepManager creates a new sweep manager
func NewSweepManager(sessions ExpiredSessionDeleter, m *metrics.Metrics, logger *slog.Logger, interval, grace time.Duration) *SweepManager {
	return &SweepManager{
		sessions: sessions,
		metrics:  m,
		logger:   logger,
		interval: interval,
		grace:    grace,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep task
func (sm *SweepManager) Start(ctx context.Context) {
	ticker := time.NewTicker(sm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	sm.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			sm.runSweep(ctx)
		case <-sm.stopCh:
			sm.logger.Info("session sweeper stopped")
			return
		case <-ctx.Done():
			sm.logger.Info("session sweeper context cancelled")
			return
		}
	}
}

// runSweep deletes expired claim sessions
func (sm *SweepManager) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := sm.sessions.DeleteExpired(sweepCtx, sm.grace)
	if err != nil {
		sm.logger.Error("failed to sweep expired claim sessions", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		sm.metrics.SessionsSwept.Add(float64(rowsDeleted))
		sm.logger.Info("expired claim sessions swept", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the sweep manager to stop
func (sm *SweepManager) Stop() {
	close(sm.stopCh)
}
