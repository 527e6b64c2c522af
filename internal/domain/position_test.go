package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPositionID(t *testing.T) {
	tests := []struct {
		name      string
		uid       string
		symbol    string
		direction Direction
	}{
		{name: "long position", uid: "3AFFCB67ED4F1D1D8437BA17F4E8E5ED", symbol: "BTCUSDT", direction: Long},
		{name: "short position", uid: "3AFFCB67ED4F1D1D8437BA17F4E8E5ED", symbol: "BTCUSDT", direction: Short},
		{name: "other symbol", uid: "3AFFCB67ED4F1D1D8437BA17F4E8E5ED", symbol: "ETHUSDT", direction: Long},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := PositionID(tt.uid, tt.symbol, tt.direction)
			assert.Len(t, id, 64, "expected hex SHA-256 digest")
			// Pure function: same inputs, same output.
			assert.Equal(t, id, PositionID(tt.uid, tt.symbol, tt.direction))
		})
	}

	// Any change in uid, symbol or direction yields a different identity.
	base := PositionID("uid-1", "BTCUSDT", Long)
	assert.NotEqual(t, base, PositionID("uid-2", "BTCUSDT", Long))
	assert.NotEqual(t, base, PositionID("uid-1", "ETHUSDT", Long))
	assert.NotEqual(t, base, PositionID("uid-1", "BTCUSDT", Short))
}

func TestTraderPosition_NotionalCost(t *testing.T) {
	pos := &TraderPosition{
		Amount:     decimal.NewFromFloat(-2.5), // shorts carry negative amounts
		EntryPrice: decimal.NewFromInt(30000),
	}
	assert.True(t, pos.NotionalCost().Equal(decimal.NewFromInt(75000)))
}

func TestTraderPosition_IsOpen(t *testing.T) {
	pos := &TraderPosition{OpenedAt: time.Now()}
	assert.True(t, pos.IsOpen())

	closedAt := time.Now()
	pos.ClosedAt = &closedAt
	assert.False(t, pos.IsOpen())
}

func TestObservedPosition_Direction(t *testing.T) {
	assert.Equal(t, Long, (&ObservedPosition{Long: true}).Direction())
	assert.Equal(t, Short, (&ObservedPosition{Short: true}).Direction())
}
