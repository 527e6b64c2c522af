package ports

import (
	"context"

	"positionsMonitor/internal/domain"
)

// TraderSnapshot is one trader's currently open positions as reported by the
// leaderboard endpoint, split by contract type as the feed returns them.
type TraderSnapshot struct {
	UID       string
	Perpetual []*domain.ObservedPosition
	Delivery  []*domain.ObservedPosition
}

// IsEmpty reports whether the snapshot carries no positions at all.
// An empty snapshot means "no new information", not "all positions closed".
func (s *TraderSnapshot) IsEmpty() bool {
	return len(s.Perpetual) == 0 && len(s.Delivery) == 0
}

// All returns the snapshot's positions as one slice, perpetual first.
func (s *TraderSnapshot) All() []*domain.ObservedPosition {
	out := make([]*domain.ObservedPosition, 0, len(s.Perpetual)+len(s.Delivery))
	out = append(out, s.Perpetual...)
	out = append(out, s.Delivery...)
	return out
}

// LeaderboardClient fetches a trader's open positions from the external
// leaderboard API.
type LeaderboardClient interface {
	// GetTraderPositions returns the trader's current position snapshot.
	GetTraderPositions(ctx context.Context, uid string) (*TraderSnapshot, error)
}
