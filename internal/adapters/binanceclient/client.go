package binanceclient

import (
	"context"
	"errors"
	"fmt"

	"positionsMonitor/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

// Client implements the ports.MarkPriceProvider interface using the
// go-binance library. The premium index endpoint is public, so API keys are
// optional.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey    string
	SecretKey string
	Logger    ports.Logger
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	return &Client{
		futuresClient: futures.NewClient(cfg.APIKey, cfg.SecretKey),
		logger:        cfg.Logger,
	}, nil
}

// GetMarkPrice retrieves the current mark price for a given symbol.
func (c *Client) GetMarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	op := "GetMarkPrice"
	tickers, err := c.futuresClient.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, c.handleError(ctx, err, op)
	}
	if len(tickers) == 0 {
		err := fmt.Errorf("no price data returned for symbol %s", symbol)
		return decimal.Zero, c.handleError(ctx, err, op)
	}

	price, err := decimal.NewFromString(tickers[0].MarkPrice)
	if err != nil {
		parseErr := fmt.Errorf("could not parse price '%s': %w", tickers[0].MarkPrice, err)
		return decimal.Zero, c.handleError(ctx, parseErr, op)
	}
	return price, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1121: // Invalid symbol
			mappedErr = ports.ErrNotFound
		default:
			mappedErr = ports.ErrUnavailable
		}
		c.logger.Warn(ctx, "Binance API error", fields)
		return fmt.Errorf("%s: %w: %v", operation, mappedErr, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		c.logger.Warn(ctx, "Binance request timed out", fields)
		return fmt.Errorf("%s: %w", operation, ports.ErrTimeout)
	}

	c.logger.Warn(ctx, "Binance request failed", fields)
	return fmt.Errorf("%s: %w", operation, err)
}
