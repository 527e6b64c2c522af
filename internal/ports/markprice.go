package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// MarkPriceProvider exposes the live mark price for a futures symbol.
// Used by the scanner to annotate findings; failures are never fatal.
type MarkPriceProvider interface {
	GetMarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}
