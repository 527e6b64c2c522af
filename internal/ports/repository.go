package ports

import (
	"context"
	"time"

	"positionsMonitor/internal/domain"
)

// PositionRepository defines the store contract for tracked leaderboard
// positions. The fetcher is the sole writer; the scanner only reads and must
// tolerate concurrent writes (it sees recent-enough snapshots, not a frozen
// point-in-time view).
type PositionRepository interface {
	// FindOpenByUID retrieves the trader's currently open positions.
	FindOpenByUID(ctx context.Context, uid string) ([]*domain.TraderPosition, error)
	// FindByPositionID retrieves a position by its deterministic identity.
	// Returns nil, nil if no such record exists.
	FindByPositionID(ctx context.Context, positionID string) (*domain.TraderPosition, error)
	// FindActiveSince retrieves positions that opened or closed at or after
	// the cutoff, ordered by opened_at descending.
	FindActiveSince(ctx context.Context, cutoff time.Time) ([]*domain.TraderPosition, error)
	// ApplyReconciliation applies a per-UID diff as a single transaction.
	// Either every create, update and close lands, or none do.
	ApplyReconciliation(ctx context.Context, uid string, rec *domain.Reconciliation) error
}
