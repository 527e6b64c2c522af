package fetcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"positionsMonitor/internal/domain"
	"positionsMonitor/internal/ports"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockLeaderboardClient struct {
	mu        sync.Mutex
	snapshots map[string]*ports.TraderSnapshot
	errs      map[string]error
	calls     int
}

func (m *mockLeaderboardClient) GetTraderPositions(ctx context.Context, uid string) (*ports.TraderSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err, ok := m.errs[uid]; ok {
		return nil, err
	}
	if snap, ok := m.snapshots[uid]; ok {
		return snap, nil
	}
	return &ports.TraderSnapshot{UID: uid}, nil
}

// mockPositionRepo keeps positions in a map keyed by position ID and applies
// reconciliations the way the real store does, minus the SQL.
type mockPositionRepo struct {
	mu        sync.Mutex
	positions map[string]*domain.TraderPosition
	applyErr  error
	findErr   error
}

func newMockPositionRepo() *mockPositionRepo {
	return &mockPositionRepo{positions: make(map[string]*domain.TraderPosition)}
}

func (m *mockPositionRepo) FindOpenByUID(ctx context.Context, uid string) ([]*domain.TraderPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var open []*domain.TraderPosition
	for _, pos := range m.positions {
		if pos.UID == uid && pos.IsOpen() {
			cp := *pos
			open = append(open, &cp)
		}
	}
	return open, nil
}

func (m *mockPositionRepo) FindByPositionID(ctx context.Context, positionID string) (*domain.TraderPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[positionID]
	if !ok {
		return nil, nil
	}
	cp := *pos
	return &cp, nil
}

func (m *mockPositionRepo) FindActiveSince(ctx context.Context, cutoff time.Time) ([]*domain.TraderPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []*domain.TraderPosition
	for _, pos := range m.positions {
		if !pos.OpenedAt.Before(cutoff) || (pos.ClosedAt != nil && !pos.ClosedAt.Before(cutoff)) {
			cp := *pos
			active = append(active, &cp)
		}
	}
	return active, nil
}

func (m *mockPositionRepo) ApplyReconciliation(ctx context.Context, uid string, rec *domain.Reconciliation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return m.applyErr
	}
	for _, pos := range rec.Creates {
		cp := *pos
		cp.ClosedAt = nil
		m.positions[pos.PositionID] = &cp
	}
	for _, pos := range rec.Updates {
		existing, ok := m.positions[pos.PositionID]
		if !ok {
			return ports.ErrNotFound
		}
		cp := *pos
		cp.OpenedAt = existing.OpenedAt
		cp.ClosedAt = existing.ClosedAt
		m.positions[pos.PositionID] = &cp
	}
	for _, id := range rec.CloseIDs {
		if existing, ok := m.positions[id]; ok && existing.IsOpen() {
			closedAt := rec.ClosedAt
			existing.ClosedAt = &closedAt
		}
	}
	return nil
}

func observed(symbol string, long bool, entryPrice float64, amount float64, leverage int) *domain.ObservedPosition {
	return &domain.ObservedPosition{
		Symbol:       symbol,
		ContractType: domain.Perpetual,
		EntryPrice:   decimal.NewFromFloat(entryPrice),
		MarkPrice:    decimal.NewFromFloat(entryPrice),
		Amount:       decimal.NewFromFloat(amount),
		Long:         long,
		Short:        !long,
		Leverage:     leverage,
	}
}

func newTestFetcher(t *testing.T, uids []string, client ports.LeaderboardClient, repo ports.PositionRepository) *Fetcher {
	t.Helper()
	f, err := New(Config{UIDs: uids}, &mockLogger{}, client, repo)
	require.NoError(t, err)
	return f
}

func TestNew_Validation(t *testing.T) {
	client := &mockLeaderboardClient{}
	repo := newMockPositionRepo()

	_, err := New(Config{UIDs: nil}, &mockLogger{}, client, repo)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	_, err = New(Config{UIDs: []string{"uid-1"}}, nil, client, repo)
	assert.Error(t, err)
}

func TestFetchAndReconcile_CreatesNewPositions(t *testing.T) {
	ctx := context.Background()
	uid := "uid-1"
	client := &mockLeaderboardClient{snapshots: map[string]*ports.TraderSnapshot{
		uid: {
			UID:       uid,
			Perpetual: []*domain.ObservedPosition{observed("BTCUSDT", true, 30000, 1, 10)},
			Delivery:  []*domain.ObservedPosition{observed("ETHUSDT", false, 2000, -5, 20)},
		},
	}}
	repo := newMockPositionRepo()
	f := newTestFetcher(t, []string{uid}, client, repo)

	require.NoError(t, f.FetchAndReconcile(ctx, uid))

	open, err := repo.FindOpenByUID(ctx, uid)
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, pos := range open {
		assert.Equal(t, domain.PositionID(uid, pos.Symbol, pos.Direction), pos.PositionID)
		assert.False(t, pos.OpenedAt.IsZero())
		assert.True(t, pos.IsOpen())
	}
}

func TestFetchAndReconcile_ClosesMissingPositions(t *testing.T) {
	ctx := context.Background()
	uid := "uid-1"
	repo := newMockPositionRepo()
	client := &mockLeaderboardClient{snapshots: map[string]*ports.TraderSnapshot{
		uid: {
			UID: uid,
			Perpetual: []*domain.ObservedPosition{
				observed("BTCUSDT", true, 30000, 1, 10),
				observed("ETHUSDT", true, 2000, 5, 10),
				observed("SOLUSDT", false, 150, -100, 10),
			},
		},
	}}
	f := newTestFetcher(t, []string{uid}, client, repo)
	require.NoError(t, f.FetchAndReconcile(ctx, uid))

	// Next snapshot only carries BTCUSDT; the other two must be closed.
	client.mu.Lock()
	client.snapshots[uid] = &ports.TraderSnapshot{
		UID:       uid,
		Perpetual: []*domain.ObservedPosition{observed("BTCUSDT", true, 30100, 1, 10)},
	}
	client.mu.Unlock()
	require.NoError(t, f.FetchAndReconcile(ctx, uid))

	open, err := repo.FindOpenByUID(ctx, uid)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "BTCUSDT", open[0].Symbol)
	assert.True(t, open[0].EntryPrice.Equal(decimal.NewFromInt(30100)), "surviving position must be refreshed")

	closedID := domain.PositionID(uid, "ETHUSDT", domain.Long)
	closed, err := repo.FindByPositionID(ctx, closedID)
	require.NoError(t, err)
	require.NotNil(t, closed)
	require.NotNil(t, closed.ClosedAt)
}

func TestFetchAndReconcile_EmptySnapshotLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	uid := "uid-1"
	repo := newMockPositionRepo()
	client := &mockLeaderboardClient{snapshots: map[string]*ports.TraderSnapshot{
		uid: {
			UID:       uid,
			Perpetual: []*domain.ObservedPosition{observed("BTCUSDT", true, 30000, 1, 10)},
		},
	}}
	f := newTestFetcher(t, []string{uid}, client, repo)
	require.NoError(t, f.FetchAndReconcile(ctx, uid))

	// An empty snapshot is treated as missing data, not as mass closure.
	client.mu.Lock()
	client.snapshots[uid] = &ports.TraderSnapshot{UID: uid}
	client.mu.Unlock()
	require.NoError(t, f.FetchAndReconcile(ctx, uid))

	open, err := repo.FindOpenByUID(ctx, uid)
	require.NoError(t, err)
	assert.Len(t, open, 1, "open positions must survive an empty snapshot")
}

func TestFetchAndReconcile_Idempotent(t *testing.T) {
	ctx := context.Background()
	uid := "uid-1"
	repo := newMockPositionRepo()
	client := &mockLeaderboardClient{snapshots: map[string]*ports.TraderSnapshot{
		uid: {
			UID:       uid,
			Perpetual: []*domain.ObservedPosition{observed("BTCUSDT", true, 30000, 1, 10)},
		},
	}}
	f := newTestFetcher(t, []string{uid}, client, repo)

	require.NoError(t, f.FetchAndReconcile(ctx, uid))
	first, err := repo.FindOpenByUID(ctx, uid)
	require.NoError(t, err)
	require.Len(t, first, 1)
	openedAt := first[0].OpenedAt

	// A second pass over the same snapshot updates in place; it never
	// duplicates the record or resets its open time.
	require.NoError(t, f.FetchAndReconcile(ctx, uid))
	second, err := repo.FindOpenByUID(ctx, uid)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].PositionID, second[0].PositionID)
	assert.Equal(t, openedAt, second[0].OpenedAt)
}

func TestFetchAndReconcile_LongAndShortAreDistinct(t *testing.T) {
	ctx := context.Background()
	uid := "uid-1"
	repo := newMockPositionRepo()
	client := &mockLeaderboardClient{snapshots: map[string]*ports.TraderSnapshot{
		uid: {
			UID: uid,
			Perpetual: []*domain.ObservedPosition{
				observed("BTCUSDT", true, 30000, 1, 10),
				observed("BTCUSDT", false, 30000, -1, 10),
			},
		},
	}}
	f := newTestFetcher(t, []string{uid}, client, repo)
	require.NoError(t, f.FetchAndReconcile(ctx, uid))

	open, err := repo.FindOpenByUID(ctx, uid)
	require.NoError(t, err)
	assert.Len(t, open, 2, "hedged long and short on one symbol are separate positions")
}

func TestFetchAndReconcile_FetchErrorPropagates(t *testing.T) {
	uid := "uid-1"
	wantErr := errors.New("boom")
	client := &mockLeaderboardClient{errs: map[string]error{uid: wantErr}}
	f := newTestFetcher(t, []string{uid}, client, newMockPositionRepo())

	err := f.FetchAndReconcile(context.Background(), uid)
	assert.ErrorIs(t, err, wantErr)
}

func TestRunCycle_FailureIsolation(t *testing.T) {
	ctx := context.Background()
	uids := []string{"uid-1", "uid-2", "uid-3"}
	repo := newMockPositionRepo()
	client := &mockLeaderboardClient{
		snapshots: map[string]*ports.TraderSnapshot{
			"uid-1": {UID: "uid-1", Perpetual: []*domain.ObservedPosition{observed("BTCUSDT", true, 30000, 1, 10)}},
			"uid-3": {UID: "uid-3", Perpetual: []*domain.ObservedPosition{observed("ETHUSDT", false, 2000, -2, 10)}},
		},
		errs: map[string]error{"uid-2": ports.ErrUnavailable},
	}
	log := &mockLogger{}
	f, err := New(Config{UIDs: uids}, log, client, repo)
	require.NoError(t, err)

	f.RunCycle(ctx)

	assert.Equal(t, 3, client.calls, "every UID must be attempted")
	openA, err := repo.FindOpenByUID(ctx, "uid-1")
	require.NoError(t, err)
	assert.Len(t, openA, 1)
	openC, err := repo.FindOpenByUID(ctx, "uid-3")
	require.NoError(t, err)
	assert.Len(t, openC, 1)
	assert.NotEmpty(t, log.errorMsgs, "the failed UID must be logged")
}

func TestRunCycle_StopsBetweenBatchesOnCancel(t *testing.T) {
	uids := []string{"uid-1", "uid-2", "uid-3"}
	client := &mockLeaderboardClient{}
	f, err := New(Config{UIDs: uids, BatchSize: 1, BatchPause: time.Minute}, &mockLogger{}, client, newMockPositionRepo())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		f.RunCycle(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunCycle did not stop after context cancellation")
	}
	assert.Equal(t, 1, client.calls, "only the first batch runs before the canceled pause")
}
