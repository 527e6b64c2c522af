package domain

import "time"

// Reconciliation is the per-UID diff between a fresh leaderboard snapshot and
// the stored open positions. The fetcher computes it; the store applies it as
// a single transaction so a failure partway never leaves a trader's position
// set half reconciled.
type Reconciliation struct {
	Creates  []*TraderPosition // first sighting (or reopen of a closed record)
	Updates  []*TraderPosition // still present, mutable fields refreshed
	CloseIDs []string          // open records absent from the snapshot
	ClosedAt time.Time         // close timestamp for every entry in CloseIDs
}

// IsEmpty reports whether applying the reconciliation would be a no-op.
func (r *Reconciliation) IsEmpty() bool {
	return len(r.Creates) == 0 && len(r.Updates) == 0 && len(r.CloseIDs) == 0
}
