// Package webhook triggers downstream guide refreshes when the lineup
// changes. Delivery is best-effort: failures are logged, never retried.
package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Notifier struct {
	URL    string
	Client *http.Client
	Logger *slog.Logger
}

func New(url string, logger *slog.Logger) *Notifier {
	return &Notifier{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
		Logger: logger,
	}
}

// Notify fires the configured webhook. A Notifier with no URL is a no-op.
func (n *Notifier) Notify(ctx context.Context) {
	if n.URL == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, strings.NewReader(""))
	if err != nil {
		n.Logger.Warn("webhook request build failed", "url", n.URL, "error", err)
		return
	}
	resp, err := n.Client.Do(req)
	if err != nil {
		n.Logger.Warn("webhook delivery failed", "url", n.URL, "error", err)
		return
	}
	_ = resp.Body.Close()
	n.Logger.Debug("webhook delivered", "url", n.URL, "status", resp.StatusCode)
}
