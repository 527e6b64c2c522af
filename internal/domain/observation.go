package domain

import "github.com/shopspring/decimal"

// ObservedPosition is one position object exactly as reported by the
// leaderboard endpoint for a trader, tagged with the list it came from.
type ObservedPosition struct {
	Symbol          string
	ContractType    ContractType
	EntryPrice      decimal.Decimal
	MarkPrice       decimal.Decimal
	PNL             decimal.Decimal
	ROE             decimal.Decimal
	Amount          decimal.Decimal
	UpdateTimestamp int64
	TradeBefore     bool
	Long            bool
	Short           bool
	Leverage        int
}

// Direction collapses the feed's long/short flags onto the Direction enum.
// Long wins if the feed ever sets both.
func (o *ObservedPosition) Direction() Direction {
	if o.Long {
		return Long
	}
	return Short
}
