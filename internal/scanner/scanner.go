package scanner

import (
	"context"
	"fmt"
	"time"

	"positionsMonitor/internal/domain"
	"positionsMonitor/internal/ports"

	"github.com/shopspring/decimal"
)

// Default thresholds, overridable through Config.
var (
	defaultWhaleThreshold  = decimal.NewFromInt(1_000_000)
	defaultPriceBandPct    = decimal.NewFromFloat(1.5)
	defaultAmountTolerance = decimal.NewFromFloat(1.5)
)

const (
	defaultWindow            = 30 * time.Minute
	defaultLeverageTolerance = 5
	defaultOpenTimeTolerance = 30 * time.Second

	moderateConcentrationPct = 30.0
	highConcentrationPct     = 70.0
)

// Scanner periodically examines positions that opened or closed within a
// trailing window and flags whale positions, similarity clusters across
// traders, and an aggregate directional risk score. It only reads the store;
// findings go to the notifier as plain text.
type Scanner struct {
	cfg      Config
	logger   ports.Logger
	repo     ports.PositionRepository
	notifier ports.Notifier          // optional; findings are logged either way
	prices   ports.MarkPriceProvider // optional live mark-price annotation
	now      func() time.Time
}

// Config holds configuration for the scanner.
type Config struct {
	Window            time.Duration   // trailing window on opened_at/closed_at
	WhaleThreshold    decimal.Decimal // notional cost above which a position is a whale
	PriceBandPct      decimal.Decimal // entry-price proximity band, in percent
	LeverageTolerance int             // max leverage difference within a cluster
	AmountTolerance   decimal.Decimal // max amount difference within a cluster
	OpenTimeTolerance time.Duration   // max opened_at distance within a cluster
	Destination       string          // notifier destination identifier
}

// New creates a new scanner instance. The notifier and mark-price provider
// may be nil; the scanner then only logs its findings.
func New(cfg Config, logger ports.Logger, repo ports.PositionRepository, notifier ports.Notifier, prices ports.MarkPriceProvider) (*Scanner, error) {
	if logger == nil || repo == nil {
		return nil, fmt.Errorf("missing required dependencies for Scanner")
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.WhaleThreshold.IsZero() {
		cfg.WhaleThreshold = defaultWhaleThreshold
	}
	if cfg.PriceBandPct.IsZero() {
		cfg.PriceBandPct = defaultPriceBandPct
	}
	if cfg.LeverageTolerance <= 0 {
		cfg.LeverageTolerance = defaultLeverageTolerance
	}
	if cfg.AmountTolerance.IsZero() {
		cfg.AmountTolerance = defaultAmountTolerance
	}
	if cfg.OpenTimeTolerance <= 0 {
		cfg.OpenTimeTolerance = defaultOpenTimeTolerance
	}

	return &Scanner{
		cfg:      cfg,
		logger:   logger,
		repo:     repo,
		notifier: notifier,
		prices:   prices,
		now:      time.Now,
	}, nil
}

// RunCycle executes one scan and swallows any error: a failed cycle is
// logged and abandoned, the next scheduled cycle proceeds normally.
func (s *Scanner) RunCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, fmt.Errorf("panic: %v", r), "Scan cycle aborted")
		}
	}()

	result, err := s.Scan(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Scan cycle failed")
		return
	}
	s.logger.Info(ctx, "Scan cycle completed", map[string]interface{}{
		"windowed": result.Total,
		"whales":   len(result.Whales),
		"clusters": len(result.Clusters),
	})
}

// Scan examines positions active within the trailing window and produces the
// whale list, the significant similarity clusters and the risk summary.
func (s *Scanner) Scan(ctx context.Context) (*domain.ScanResult, error) {
	cutoff := s.now().UTC().Add(-s.cfg.Window)
	positions, err := s.repo.FindActiveSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to load windowed positions: %w", err)
	}

	result := &domain.ScanResult{Total: len(positions)}
	if len(positions) == 0 {
		return result, nil
	}

	result.Whales = s.findWhales(positions)
	result.Clusters = s.gradeClusters(s.clusterSimilar(positions), len(positions))
	result.Risk = s.riskSummary(ctx, positions)

	s.notify(ctx, result)
	return result, nil
}

// findWhales returns the windowed positions whose notional cost strictly
// exceeds the whale threshold. The window predicate is already satisfied by
// the store query.
func (s *Scanner) findWhales(positions []*domain.TraderPosition) []*domain.TraderPosition {
	var whales []*domain.TraderPosition
	for _, pos := range positions {
		if pos.NotionalCost().GreaterThan(s.cfg.WhaleThreshold) {
			whales = append(whales, pos)
		}
	}
	return whales
}

// clusterSimilar groups the windowed positions with a greedy single pass:
// each unclustered position seeds a cluster and absorbs every later position
// passing the pairwise test against the seed. The result depends on the
// iteration order; that first-seed-wins behavior is deliberate. Candidates
// are pre-bucketed by (symbol, direction) to shrink the O(n^2) inner loop.
func (s *Scanner) clusterSimilar(positions []*domain.TraderPosition) [][]*domain.TraderPosition {
	type bucketKey struct {
		symbol    string
		direction domain.Direction
	}
	buckets := make(map[bucketKey][]*domain.TraderPosition)
	var order []bucketKey
	for _, pos := range positions {
		key := bucketKey{symbol: pos.Symbol, direction: pos.Direction}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], pos)
	}

	var clusters [][]*domain.TraderPosition
	for _, key := range order {
		bucket := buckets[key]
		clustered := make([]bool, len(bucket))
		for i, seed := range bucket {
			if clustered[i] {
				continue
			}
			cluster := []*domain.TraderPosition{seed}
			clustered[i] = true
			for j := i + 1; j < len(bucket); j++ {
				if clustered[j] {
					continue
				}
				if s.similar(seed, bucket[j]) {
					cluster = append(cluster, bucket[j])
					clustered[j] = true
				}
			}
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}

// similar is the pairwise similarity test: entry price within the band
// around the seed's, leverage and amount within tolerance, and open times
// close together. Symbol and direction already match within a bucket.
func (s *Scanner) similar(seed, candidate *domain.TraderPosition) bool {
	band := seed.EntryPrice.Mul(s.cfg.PriceBandPct).Div(decimal.NewFromInt(100))
	lower := seed.EntryPrice.Sub(band)
	upper := seed.EntryPrice.Add(band)
	if candidate.EntryPrice.LessThan(lower) || candidate.EntryPrice.GreaterThan(upper) {
		return false
	}

	leverageDiff := seed.Leverage - candidate.Leverage
	if leverageDiff < 0 {
		leverageDiff = -leverageDiff
	}
	if leverageDiff > s.cfg.LeverageTolerance {
		return false
	}

	if seed.Amount.Sub(candidate.Amount).Abs().GreaterThan(s.cfg.AmountTolerance) {
		return false
	}

	openDelta := seed.OpenedAt.Sub(candidate.OpenedAt)
	if openDelta < 0 {
		openDelta = -openDelta
	}
	return openDelta <= s.cfg.OpenTimeTolerance
}

// gradeClusters keeps the clusters covering enough of the window to matter
// and grades their concentration. The representative position is the member
// with the highest notional cost.
func (s *Scanner) gradeClusters(clusters [][]*domain.TraderPosition, total int) []domain.ClusterReport {
	if total == 0 {
		return nil
	}

	var reports []domain.ClusterReport
	for _, cluster := range clusters {
		pct := float64(len(cluster)) / float64(total) * 100
		if pct <= moderateConcentrationPct {
			continue
		}
		concentration := domain.ConcentrationModerate
		if pct > highConcentrationPct {
			concentration = domain.ConcentrationHigh
		}
		reports = append(reports, domain.ClusterReport{
			Positions:      cluster,
			Representative: biggestByCost(cluster),
			SimilarityPct:  pct,
			Concentration:  concentration,
		})
	}
	return reports
}

// riskSummary partitions the currently open windowed positions by side and
// derives the aggregate exposure, averages and the directional verdict.
// Returns nil when the window holds no open positions.
func (s *Scanner) riskSummary(ctx context.Context, positions []*domain.TraderPosition) *domain.RiskSummary {
	var open []*domain.TraderPosition
	for _, pos := range positions {
		if pos.IsOpen() {
			open = append(open, pos)
		}
	}
	if len(open) == 0 {
		return nil
	}

	summary := &domain.RiskSummary{
		LongCost:  decimal.Zero,
		ShortCost: decimal.Zero,
	}
	var (
		sumPNL, sumROE, sumLeverage, sumCost decimal.Decimal
		longPNL, shortPNL                    decimal.Decimal
	)
	for _, pos := range open {
		cost := pos.NotionalCost()
		sumPNL = sumPNL.Add(pos.PNL)
		sumROE = sumROE.Add(pos.ROE)
		sumLeverage = sumLeverage.Add(decimal.NewFromInt(int64(pos.Leverage)))
		sumCost = sumCost.Add(cost)
		if pos.Direction == domain.Long {
			summary.LongCount++
			summary.LongCost = summary.LongCost.Add(cost)
			longPNL = longPNL.Add(pos.PNL)
		} else {
			summary.ShortCount++
			summary.ShortCost = summary.ShortCost.Add(cost)
			shortPNL = shortPNL.Add(pos.PNL)
		}
	}

	count := decimal.NewFromInt(int64(len(open)))
	summary.AvgPNL = sumPNL.Div(count)
	summary.AvgROE = sumROE.Div(count)
	summary.AvgLeverage = sumLeverage.Div(count)
	summary.AvgCost = sumCost.Div(count)
	summary.TotalCost = sumCost
	summary.TotalPNL = sumPNL
	summary.RiskValue = summary.LongCost.Sub(summary.ShortCost).Abs().
		Mul(decimal.NewFromInt(1).Sub(summary.AvgPNL))
	summary.Direction = riskDirection(summary.LongCount, summary.ShortCount, longPNL, shortPNL)
	summary.Biggest = biggestByCost(open)

	if s.prices != nil && summary.Biggest != nil {
		mark, err := s.prices.GetMarkPrice(ctx, summary.Biggest.Symbol)
		if err != nil {
			s.logger.Warn(ctx, "Could not fetch live mark price for risk summary", map[string]interface{}{
				"symbol": summary.Biggest.Symbol,
				"error":  err.Error(),
			})
		} else {
			summary.BiggestMarkPrice = mark
		}
	}
	return summary
}

// riskDirection derives the qualitative verdict: the dominant side combined
// with the sign of that side's aggregate PnL. Crowded and losing means the
// unwinding move is violent; crowded but winning still leaves squeeze room.
func riskDirection(longCount, shortCount int, longPNL, shortPNL decimal.Decimal) domain.RiskDirection {
	switch {
	case longCount > shortCount:
		if longPNL.IsNegative() {
			return domain.RiskHighDownside
		}
		return domain.RiskMediumDownside
	case shortCount > longCount:
		if shortPNL.IsNegative() {
			return domain.RiskHighUpside
		}
		return domain.RiskMediumUpside
	default:
		return domain.RiskNeutral
	}
}

// biggestByCost returns the position with the highest notional cost.
func biggestByCost(positions []*domain.TraderPosition) *domain.TraderPosition {
	var biggest *domain.TraderPosition
	for _, pos := range positions {
		if biggest == nil || pos.NotionalCost().GreaterThan(biggest.NotionalCost()) {
			biggest = pos
		}
	}
	return biggest
}

// notify renders the findings and hands them to the notifier. Delivery
// failures are logged; nothing downstream depends on them.
func (s *Scanner) notify(ctx context.Context, result *domain.ScanResult) {
	if !result.HasFindings() {
		return
	}
	message := RenderReport(result)
	if message == "" {
		return
	}
	if s.notifier == nil {
		s.logger.Debug(ctx, "No notifier configured, findings logged only")
		return
	}
	if err := s.notifier.Send(ctx, s.cfg.Destination, message); err != nil {
		s.logger.Error(ctx, err, "Failed to deliver scan findings", map[string]interface{}{"destination": s.cfg.Destination})
	}
}
