package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock implementations
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func noopCycle(ctx context.Context) {}

func TestNewMonitorService_Validation(t *testing.T) {
	_, err := NewMonitorService(nil, noopCycle, noopCycle, time.Minute, time.Minute)
	assert.Error(t, err)

	_, err = NewMonitorService(&mockLogger{}, nil, noopCycle, time.Minute, time.Minute)
	assert.Error(t, err)

	_, err = NewMonitorService(&mockLogger{}, noopCycle, nil, time.Minute, time.Minute)
	assert.Error(t, err)

	_, err = NewMonitorService(&mockLogger{}, noopCycle, noopCycle, 0, time.Minute)
	assert.Error(t, err)

	_, err = NewMonitorService(&mockLogger{}, noopCycle, noopCycle, time.Minute, -time.Second)
	assert.Error(t, err)

	svc, err := NewMonitorService(&mockLogger{}, noopCycle, noopCycle, time.Minute, time.Minute)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestStart_RunsBothLoopsAndStopsOnCancel(t *testing.T) {
	var fetchRuns, scanRuns atomic.Int32
	fetch := func(ctx context.Context) { fetchRuns.Add(1) }
	scan := func(ctx context.Context) { scanRuns.Add(1) }

	svc, err := NewMonitorService(&mockLogger{}, fetch, scan, 10*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	// Both loops run one cycle immediately and then keep ticking.
	require.Eventually(t, func() bool {
		return fetchRuns.Load() >= 2 && scanRuns.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}
