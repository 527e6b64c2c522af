package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"
)

// TraderPosition is one derivative position currently or formerly open for a
// tracked trader. Identity is derived from (uid, symbol, direction), so the
// store holds at most the latest position per that triple: a reopen after a
// close reuses the same record rather than creating a second one.
type TraderPosition struct {
	PositionID      string          // deterministic, see PositionID()
	UID             string          // opaque trader identifier from the roster
	Symbol          string          // e.g. "BTCUSDT"
	Direction       Direction       // long or short
	ContractType    ContractType    // perpetual or delivery
	EntryPrice      decimal.Decimal // refreshed on every observation
	MarkPrice       decimal.Decimal
	PNL             decimal.Decimal
	ROE             decimal.Decimal
	Amount          decimal.Decimal // negative for shorts in the feed
	UpdateTimestamp int64           // exchange-supplied epoch millis of last change
	TradeBefore     bool
	Leverage        int
	OpenedAt        time.Time  // set once, at first sighting
	ClosedAt        *time.Time // set when the position vanishes from a fetch
}

// PositionID returns the deterministic identity for a position observation:
// the hex SHA-256 of uid, symbol and the direction literal concatenated.
// Ephemeral broker-side position records carry no natural primary key, so
// this triple is the closest stable identity the feed allows.
func PositionID(uid, symbol string, direction Direction) string {
	sum := sha256.Sum256([]byte(uid + symbol + string(direction)))
	return hex.EncodeToString(sum[:])
}

// IsOpen reports whether the position has not been closed yet.
func (p *TraderPosition) IsOpen() bool {
	return p.ClosedAt == nil
}

// NotionalCost is the dollar-equivalent size of the position:
// |amount * entry price|.
func (p *TraderPosition) NotionalCost() decimal.Decimal {
	return p.Amount.Mul(p.EntryPrice).Abs()
}
