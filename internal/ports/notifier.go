package ports

import "context"

// Notifier delivers a plain-text message to a destination identifier
// (e.g. a chat id). Delivery is best-effort: callers log failures and move
// on, nothing downstream depends on delivery succeeding.
type Notifier interface {
	Send(ctx context.Context, destination, message string) error
}
