package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"positionsMonitor/internal/domain"
	"positionsMonitor/internal/ports"

	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL = "https://binance-futures-leaderboard1.p.rapidapi.com"
	defaultAPIHost = "binance-futures-leaderboard1.p.rapidapi.com"
	positionsPath  = "/v2/getTraderPositions"

	defaultTimeout = 15 * time.Second
)

// Client implements the ports.LeaderboardClient interface against the
// RapidAPI Binance futures leaderboard endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiHost    string
	logger     ports.Logger
	cache      *snapshotCache
}

// Config holds configuration specific to the leaderboard client adapter.
type Config struct {
	APIKey   string
	APIHost  string        // RapidAPI host header; defaults to the public host
	BaseURL  string        // overridable for tests
	Timeout  time.Duration // per-request timeout
	CacheTTL time.Duration // snapshot cache TTL; zero disables caching
	Logger   ports.Logger
}

// New creates a new leaderboard client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for leaderboard client")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for leaderboard client: %w", ports.ErrConfigurationError)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	apiHost := cfg.APIHost
	if apiHost == "" {
		apiHost = defaultAPIHost
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		apiHost:    apiHost,
		logger:     cfg.Logger,
		cache:      newSnapshotCache(cfg.CacheTTL),
	}, nil
}

// Wire DTOs matching the endpoint's JSON shape. decimal.Decimal unmarshals
// both JSON numbers and numeric strings, which the endpoint mixes freely.
type positionJSON struct {
	Symbol          string          `json:"symbol"`
	EntryPrice      decimal.Decimal `json:"entryPrice"`
	MarkPrice       decimal.Decimal `json:"markPrice"`
	PNL             decimal.Decimal `json:"pnl"`
	ROE             decimal.Decimal `json:"roe"`
	Amount          decimal.Decimal `json:"amount"`
	UpdateTimeStamp int64           `json:"updateTimeStamp"`
	TradeBefore     bool            `json:"tradeBefore"`
	Long            bool            `json:"long"`
	Short           bool            `json:"short"`
	Leverage        int             `json:"leverage"`
}

type positionListsJSON struct {
	Perpetual []positionJSON `json:"perpetual"`
	Delivery  []positionJSON `json:"delivery"`
}

type traderJSON struct {
	Positions positionListsJSON `json:"positions"`
}

type responseJSON struct {
	Data []traderJSON `json:"data"`
}

// GetTraderPositions fetches the trader's current position snapshot.
// A fresh cached snapshot is served without a network call.
func (c *Client) GetTraderPositions(ctx context.Context, uid string) (*ports.TraderSnapshot, error) {
	op := "GetTraderPositions"

	if snap, ok := c.cache.Get(uid); ok {
		c.logger.Debug(ctx, op+": serving cached snapshot", map[string]interface{}{"uid": uid})
		return snap, nil
	}

	reqURL := fmt.Sprintf("%s%s?encryptedUid=%s", c.baseURL, positionsPath, url.QueryEscape(uid))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request for UID %s: %w", op, uid, err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.apiHost)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.mapTransportError(err, op, uid)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, op, uid); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response for UID %s: %w", op, uid, err)
	}

	var parsed responseJSON
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response for UID %s: %w: %v", op, uid, ports.ErrInvalidResponse, err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("%s: response carries no data entry for UID %s: %w", op, uid, ports.ErrInvalidResponse)
	}

	snapshot := &ports.TraderSnapshot{
		UID:       uid,
		Perpetual: convertPositions(parsed.Data[0].Positions.Perpetual, domain.Perpetual),
		Delivery:  convertPositions(parsed.Data[0].Positions.Delivery, domain.Delivery),
	}

	c.cache.Put(uid, snapshot)
	c.logger.Debug(ctx, op+": snapshot fetched", map[string]interface{}{
		"uid":       uid,
		"perpetual": len(snapshot.Perpetual),
		"delivery":  len(snapshot.Delivery),
	})
	return snapshot, nil
}

// mapTransportError translates HTTP client failures into standardized ports errors.
func (c *Client) mapTransportError(err error, op, uid string) error {
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &urlErr) && urlErr.Timeout()) {
		return fmt.Errorf("%s: request for UID %s timed out: %w", op, uid, ports.ErrTimeout)
	}
	return fmt.Errorf("%s: request for UID %s failed: %w: %v", op, uid, ports.ErrUnavailable, err)
}

// checkStatus maps non-2xx responses onto standardized ports errors.
func (c *Client) checkStatus(resp *http.Response, op, uid string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: UID %s: status %d: %w", op, uid, resp.StatusCode, ports.ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: UID %s: status %d: %w", op, uid, resp.StatusCode, ports.ErrNotFound)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s: UID %s: status %d: %w", op, uid, resp.StatusCode, ports.ErrUnavailable)
	default:
		return fmt.Errorf("%s: UID %s: unexpected status %d: %w", op, uid, resp.StatusCode, ports.ErrInvalidResponse)
	}
}

// convertPositions maps wire DTOs onto domain observations, tagging each with
// the list it came from.
func convertPositions(raw []positionJSON, ct domain.ContractType) []*domain.ObservedPosition {
	out := make([]*domain.ObservedPosition, 0, len(raw))
	for _, p := range raw {
		out = append(out, &domain.ObservedPosition{
			Symbol:          p.Symbol,
			ContractType:    ct,
			EntryPrice:      p.EntryPrice,
			MarkPrice:       p.MarkPrice,
			PNL:             p.PNL,
			ROE:             p.ROE,
			Amount:          p.Amount,
			UpdateTimestamp: p.UpdateTimeStamp,
			TradeBefore:     p.TradeBefore,
			Long:            p.Long,
			Short:           p.Short,
			Leverage:        p.Leverage,
		})
	}
	return out
}
