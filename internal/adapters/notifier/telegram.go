package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"positionsMonitor/internal/ports"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	defaultTimeout = 10 * time.Second
)

// Telegram implements the ports.Notifier interface using the Telegram Bot
// API sendMessage call. Messages are delivered as plain text; the destination
// is the target chat id.
type Telegram struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     ports.Logger
}

// Config holds configuration specific to the Telegram notifier adapter.
type Config struct {
	Token   string
	BaseURL string // overridable for tests
	Timeout time.Duration
	Logger  ports.Logger
}

// NewTelegram creates a new Telegram notifier adapter.
func NewTelegram(cfg Config) (*Telegram, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Telegram notifier")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("bot token is required for Telegram notifier: %w", ports.ErrConfigurationError)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Telegram{
		token:      cfg.Token,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}, nil
}

// Send posts a plain-text message to the destination chat.
func (t *Telegram) Send(ctx context.Context, destination, message string) error {
	sendURL := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)

	payload := map[string]string{
		"chat_id": destination,
		"text":    message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	t.logger.Debug(ctx, "Notification delivered", map[string]interface{}{"destination": destination, "bytes": len(message)})
	return nil
}
