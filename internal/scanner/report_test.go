package scanner

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"positionsMonitor/internal/domain"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "0", want: "0.00$"},
		{in: "999", want: "999.00$"},
		{in: "1000", want: "1,000.00$"},
		{in: "1234567.891", want: "1,234,567.89$"},
		{in: "-45000.5", want: "-45,000.50$"},
	}
	for _, tt := range tests {
		got := formatMoney(decimal.RequireFromString(tt.in))
		assert.Equal(t, tt.want, got)
	}
}

func TestBaseAsset(t *testing.T) {
	assert.Equal(t, "BTC", baseAsset("BTCUSDT"))
	assert.Equal(t, "ETHUSD_PERP", baseAsset("ETHUSD_PERP"))
}

func TestRenderReport(t *testing.T) {
	now := time.Now().UTC()
	whale := position("uid-1", "BTCUSDT", domain.Long, 2_000_000, 1.5, 1000, 10, now)

	t.Run("empty result renders nothing", func(t *testing.T) {
		assert.Empty(t, RenderReport(&domain.ScanResult{}))
	})

	t.Run("whale section", func(t *testing.T) {
		report := RenderReport(&domain.ScanResult{Total: 1, Whales: []*domain.TraderPosition{whale}})
		assert.Contains(t, report, "Whale Positions:")
		assert.Contains(t, report, "Symbol: BTCUSDT")
		assert.Contains(t, report, "Direction: Long")
		assert.Contains(t, report, "Amount: 1.5000/BTC")
		assert.Contains(t, report, "Entry Price: 2,000,000.00$")
		assert.Contains(t, report, "Position Cost: 3,000,000.00$")
		assert.Contains(t, report, "Leverage: 10x")
	})

	t.Run("cluster commentary scales with concentration", func(t *testing.T) {
		cluster := domain.ClusterReport{
			Positions:      []*domain.TraderPosition{whale},
			Representative: whale,
			SimilarityPct:  80.0,
			Concentration:  domain.ConcentrationHigh,
		}
		report := RenderReport(&domain.ScanResult{Total: 1, Clusters: []domain.ClusterReport{cluster}})
		assert.Contains(t, report, "High concentration of similar positions (80.0%)")
		assert.Contains(t, report, "Retail traders may be getting trapped")

		cluster.SimilarityPct = 40.0
		cluster.Concentration = domain.ConcentrationModerate
		report = RenderReport(&domain.ScanResult{Total: 1, Clusters: []domain.ClusterReport{cluster}})
		assert.Contains(t, report, "Moderate concentration of similar positions (40.0%)")
		assert.Contains(t, report, "Traders are showing interest in the symbol.")
	})

	t.Run("risk section", func(t *testing.T) {
		risk := &domain.RiskSummary{
			LongCount:   2,
			ShortCount:  1,
			LongCost:    decimal.NewFromInt(500_000),
			ShortCost:   decimal.NewFromInt(100_000),
			AvgPNL:      decimal.NewFromInt(-250),
			AvgROE:      decimal.NewFromFloat(-3.5),
			AvgLeverage: decimal.NewFromInt(12),
			AvgCost:     decimal.NewFromInt(200_000),
			RiskValue:   decimal.NewFromInt(100_400_000),
			Direction:   domain.RiskHighDownside,
			Biggest:     whale,
		}
		report := RenderReport(&domain.ScanResult{Total: 3, Risk: risk})
		assert.Contains(t, report, "Risk Analysis:")
		assert.Contains(t, report, "High risk for downside")
		assert.Contains(t, report, "Risk Value: 100,400,000.00$")
		assert.Contains(t, report, "Biggest Open Position: BTCUSDT")
		assert.Contains(t, report, "Total Long Position Cost: 500,000.00$")
		assert.NotContains(t, report, "Mark Price:", "no live mark price available")

		risk.BiggestMarkPrice = decimal.NewFromFloat(2_050_000)
		report = RenderReport(&domain.ScanResult{Total: 3, Risk: risk})
		assert.Contains(t, report, "Mark Price: 2,050,000.00$")
	})
}
