package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"positionsMonitor/internal/ports"
)

// MonitorService owns the two long-running periodic loops: leaderboard
// polling (fetcher) and position scanning (scanner). The loops are decoupled
// in time and share nothing in-process; they communicate only through the
// position store.
type MonitorService struct {
	logger        ports.Logger
	fetchCycle    func(context.Context)
	scanCycle     func(context.Context)
	fetchInterval time.Duration
	scanInterval  time.Duration
}

// NewMonitorService creates a new application service instance.
func NewMonitorService(
	logger ports.Logger,
	fetchCycle func(context.Context),
	scanCycle func(context.Context),
	fetchInterval time.Duration,
	scanInterval time.Duration,
) (*MonitorService, error) {
	if logger == nil || fetchCycle == nil || scanCycle == nil {
		return nil, fmt.Errorf("missing required dependencies for MonitorService")
	}
	if fetchInterval <= 0 || scanInterval <= 0 {
		return nil, fmt.Errorf("fetch and scan intervals must be positive")
	}
	return &MonitorService{
		logger:        logger,
		fetchCycle:    fetchCycle,
		scanCycle:     scanCycle,
		fetchInterval: fetchInterval,
		scanInterval:  scanInterval,
	}, nil
}

// Start runs both loops until the context is canceled or a shutdown signal
// arrives. Each loop runs one cycle immediately and then on its interval;
// cycle failures are handled inside the cycles themselves and never stop the
// loops.
func (m *MonitorService) Start(ctx context.Context) error {
	m.logger.Info(ctx, "Starting positions monitor", map[string]interface{}{
		"fetchInterval": m.fetchInterval.String(),
		"scanInterval":  m.scanInterval.String(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			m.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go m.runLoop(ctx, &wg, "fetcher", m.fetchInterval, m.fetchCycle)
	go m.runLoop(ctx, &wg, "scanner", m.scanInterval, m.scanCycle)
	wg.Wait()

	m.logger.Info(ctx, "Positions monitor stopped")
	return nil
}

// runLoop drives one periodic cycle function until the context is canceled.
func (m *MonitorService) runLoop(ctx context.Context, wg *sync.WaitGroup, name string, interval time.Duration, cycle func(context.Context)) {
	defer wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info(ctx, "Loop stopped", map[string]interface{}{"loop": name})
			return
		case <-ticker.C:
			cycle(ctx)
		}
	}
}
