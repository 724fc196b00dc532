// Package sender contains the per-channel delivery implementations. Each
// sender knows how to push one alert to one recipient over one mechanism;
// the dispatcher treats them uniformly and isolates their failures.
package sender

import (
	"context"
	"net/http"
	"time"

	"github.com/hazardwatch/alerting/internal/model"
)

// Sender attempts to deliver one alert to one recipient. Implementations
// must be safe for concurrent use and are expected to perform I/O.
type Sender interface {
	// Name returns the sender identifier for logging.
	Name() string

	// Send delivers the alert. Implementations should respect context
	// cancellation.
	Send(ctx context.Context, alert *model.Alert, recipient *model.Recipient) error
}

// Registry maps a channel to its sender implementation. A channel with no
// entry is skipped by the dispatcher with a warning.
type Registry map[model.Channel]Sender

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
