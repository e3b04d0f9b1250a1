package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Provider returns the current status of the configured channels.
// Implementations must not retain the returned slice.
type Provider interface {
	Fetch(ctx context.Context) ([]Record, error)
}

// HTTPProvider queries an upstream status endpoint that accepts the channel
// logins as a query parameter and responds with a JSON array of records.
type HTTPProvider struct {
	URL    string
	Logins []string
	Client *http.Client
}

func NewHTTPProvider(rawURL string, logins []string) *HTTPProvider {
	return &HTTPProvider{
		URL:    rawURL,
		Logins: logins,
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *HTTPProvider) Fetch(ctx context.Context) ([]Record, error) {
	u, err := url.Parse(p.URL)
	if err != nil {
		return nil, fmt.Errorf("provider url: %w", err)
	}
	q := u.Query()
	q.Set("logins", strings.Join(p.Logins, ","))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider fetch: unexpected status %d", resp.StatusCode)
	}
	var recs []Record
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		return nil, fmt.Errorf("provider decode: %w", err)
	}
	return recs, nil
}
