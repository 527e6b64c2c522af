package domain

import "github.com/shopspring/decimal"

// Concentration grades how much of the recent window a similarity cluster
// covers. Clusters below the moderate threshold are not reported at all.
type Concentration string

const (
	ConcentrationModerate Concentration = "moderate"
	ConcentrationHigh     Concentration = "high"
)

// ClusterReport describes one significant similarity cluster: a group of
// positions, potentially from different traders, judged to represent the same
// market thesis.
type ClusterReport struct {
	Positions      []*TraderPosition
	Representative *TraderPosition // member with the highest notional cost
	SimilarityPct  float64         // cluster size / windowed total * 100
	Concentration  Concentration
}

// RiskDirection is the qualitative verdict of the aggregate risk scoring.
type RiskDirection string

const (
	RiskHighDownside   RiskDirection = "high risk for downside"
	RiskMediumDownside RiskDirection = "medium risk for downside"
	RiskHighUpside     RiskDirection = "high risk for upside"
	RiskMediumUpside   RiskDirection = "medium risk for upside"
	RiskNeutral        RiskDirection = "neutral"
)

// RiskSummary aggregates directional exposure across the open positions in
// the scan window. Averages are taken across all open positions regardless
// of side.
type RiskSummary struct {
	LongCount        int
	ShortCount       int
	LongCost         decimal.Decimal // total notional cost of open longs
	ShortCost        decimal.Decimal // total notional cost of open shorts
	AvgPNL           decimal.Decimal
	AvgROE           decimal.Decimal
	AvgLeverage      decimal.Decimal
	AvgCost          decimal.Decimal
	TotalCost        decimal.Decimal
	TotalPNL         decimal.Decimal
	RiskValue        decimal.Decimal // |longCost - shortCost| * (1 - avgPNL)
	Direction        RiskDirection
	Biggest          *TraderPosition // open position with the highest notional cost
	BiggestMarkPrice decimal.Decimal // live mark price, zero when unavailable
}

// ScanResult is the structured output of one scanner cycle.
type ScanResult struct {
	Total    int // positions that opened or closed inside the window
	Whales   []*TraderPosition
	Clusters []ClusterReport
	Risk     *RiskSummary // nil when the window holds no open positions
}

// HasFindings reports whether the result carries anything worth notifying.
func (r *ScanResult) HasFindings() bool {
	return len(r.Whales) > 0 || len(r.Clusters) > 0 || r.Risk != nil
}
