package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"positionsMonitor/internal/domain"
	"positionsMonitor/internal/ports"
)

const (
	defaultBatchSize  = 5
	defaultBatchPause = time.Second
)

// Fetcher polls the leaderboard for each configured trader UID and reconciles
// the fetched positions against the store: new positions are created, still
// present ones refreshed, and open positions absent from the snapshot closed.
type Fetcher struct {
	uids       []string
	batchSize  int
	batchPause time.Duration
	logger     ports.Logger
	client     ports.LeaderboardClient
	repo       ports.PositionRepository
	now        func() time.Time
}

// Config holds configuration for the fetcher.
type Config struct {
	UIDs       []string      // roster of trader UIDs to track
	BatchSize  int           // UIDs fetched concurrently per batch
	BatchPause time.Duration // pause between batches, respects the API rate limit
}

// New creates a new fetcher instance.
func New(cfg Config, logger ports.Logger, client ports.LeaderboardClient, repo ports.PositionRepository) (*Fetcher, error) {
	if logger == nil || client == nil || repo == nil {
		return nil, fmt.Errorf("missing required dependencies for Fetcher")
	}
	if len(cfg.UIDs) == 0 {
		return nil, fmt.Errorf("at least one trader UID is required: %w", ports.ErrConfigurationError)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	batchPause := cfg.BatchPause
	if batchPause <= 0 {
		batchPause = defaultBatchPause
	}

	return &Fetcher{
		uids:       cfg.UIDs,
		batchSize:  batchSize,
		batchPause: batchPause,
		logger:     logger,
		client:     client,
		repo:       repo,
		now:        time.Now,
	}, nil
}

// RunCycle walks the UID roster in fixed-size batches, fetching and
// reconciling each UID in its own goroutine. One UID's failure is logged and
// does not block or fail the others; there is no retry within a cycle.
func (f *Fetcher) RunCycle(ctx context.Context) {
	f.logger.Info(ctx, "Starting fetch cycle", map[string]interface{}{"uids": len(f.uids), "batchSize": f.batchSize})

	for start := 0; start < len(f.uids); start += f.batchSize {
		end := start + f.batchSize
		if end > len(f.uids) {
			end = len(f.uids)
		}

		var wg sync.WaitGroup
		for _, uid := range f.uids[start:end] {
			wg.Add(1)
			go func(uid string) {
				defer wg.Done()
				if err := f.FetchAndReconcile(ctx, uid); err != nil {
					f.logger.Error(ctx, err, "Fetch and reconcile failed, skipping UID for this cycle", map[string]interface{}{"uid": uid})
				}
			}(uid)
		}
		wg.Wait()

		if end < len(f.uids) {
			select {
			case <-ctx.Done():
				f.logger.Warn(ctx, "Fetch cycle interrupted", map[string]interface{}{"processed": end})
				return
			case <-time.After(f.batchPause):
			}
		}
	}

	f.logger.Info(ctx, "Fetch cycle completed")
}

// FetchAndReconcile fetches the trader's current perpetual and delivery
// positions and reconciles them against the store as one transactional unit.
func (f *Fetcher) FetchAndReconcile(ctx context.Context, uid string) error {
	snapshot, err := f.client.GetTraderPositions(ctx, uid)
	if err != nil {
		return fmt.Errorf("failed to fetch positions for UID %s: %w", uid, err)
	}

	// An empty snapshot is "no new information", not "everything closed":
	// closing on it would mass-close open positions on a transient glitch.
	if snapshot == nil || snapshot.IsEmpty() {
		f.logger.Info(ctx, "Positions data empty, skipping reconciliation", map[string]interface{}{"uid": uid})
		return nil
	}

	stored, err := f.repo.FindOpenByUID(ctx, uid)
	if err != nil {
		return fmt.Errorf("failed to load open positions for UID %s: %w", uid, err)
	}

	rec := f.reconcile(uid, snapshot.All(), stored)
	if rec.IsEmpty() {
		return nil
	}
	if err := f.repo.ApplyReconciliation(ctx, uid, rec); err != nil {
		return fmt.Errorf("failed to apply reconciliation for UID %s: %w", uid, err)
	}

	f.logger.Info(ctx, "Reconciliation finished", map[string]interface{}{
		"uid":     uid,
		"creates": len(rec.Creates),
		"updates": len(rec.Updates),
		"closes":  len(rec.CloseIDs),
	})
	return nil
}

// reconcile computes the per-UID diff between a snapshot and the stored open
// set. Creates and updates are decided first; the close pass then covers
// every stored open record whose identity was not seen in the snapshot.
func (f *Fetcher) reconcile(uid string, observed []*domain.ObservedPosition, stored []*domain.TraderPosition) *domain.Reconciliation {
	now := f.now().UTC()

	openByID := make(map[string]*domain.TraderPosition, len(stored))
	for _, pos := range stored {
		openByID[pos.PositionID] = pos
	}

	rec := &domain.Reconciliation{ClosedAt: now}
	seen := make(map[string]bool, len(observed))

	for _, obs := range observed {
		id := domain.PositionID(uid, obs.Symbol, obs.Direction())
		if seen[id] {
			// The perpetual and delivery lists can in principle both carry
			// the same (symbol, direction); the first occurrence wins.
			continue
		}
		seen[id] = true

		if existing, ok := openByID[id]; ok {
			applyObservation(existing, obs)
			rec.Updates = append(rec.Updates, existing)
			continue
		}

		created := &domain.TraderPosition{
			PositionID: id,
			UID:        uid,
			Symbol:     obs.Symbol,
			Direction:  obs.Direction(),
			OpenedAt:   now,
		}
		applyObservation(created, obs)
		rec.Creates = append(rec.Creates, created)
	}

	for id := range openByID {
		if !seen[id] {
			rec.CloseIDs = append(rec.CloseIDs, id)
		}
	}
	return rec
}

// applyObservation refreshes the mutable fields from a feed observation.
func applyObservation(pos *domain.TraderPosition, obs *domain.ObservedPosition) {
	pos.ContractType = obs.ContractType
	pos.EntryPrice = obs.EntryPrice
	pos.MarkPrice = obs.MarkPrice
	pos.PNL = obs.PNL
	pos.ROE = obs.ROE
	pos.Amount = obs.Amount
	pos.UpdateTimestamp = obs.UpdateTimestamp
	pos.TradeBefore = obs.TradeBefore
	pos.Leverage = obs.Leverage
}
