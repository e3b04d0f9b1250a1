package channel

import (
	"context"
	"log/slog"
	"time"
)

// Invalidator drops a cached stream URL for a channel login.
type Invalidator interface {
	Invalidate(login string)
}

// Notifier is told when the visible lineup changed (a channel went live or
// offline), typically to trigger a downstream guide refresh.
type Notifier interface {
	Notify(ctx context.Context)
}

// Refresher polls the Provider on a fixed interval and publishes each
// result to the Store. On every refresh it invalidates cached URLs of
// channels that dropped offline and notifies when the live set changed.
type Refresher struct {
	Provider Provider
	Store    *Store
	Interval time.Duration
	Cache    Invalidator // optional
	Notifier Notifier    // optional
	Logger   *slog.Logger

	// RecordFlags overlays the locally configured record-enabled flag onto
	// provider records, keyed by login. The provider only knows liveness.
	RecordFlags map[string]bool
}

// Run polls until ctx is done. The first poll happens immediately so the
// snapshot is populated before the HTTP surface serves its first request.
func (r *Refresher) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	r.refreshOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.refreshOnce(ctx)
		}
	}
}

func (r *Refresher) refreshOnce(ctx context.Context) {
	recs, err := r.Provider.Fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.Logger.Warn("channel status refresh failed", "error", err)
		}
		return
	}
	for i := range recs {
		recs[i].Record = r.RecordFlags[recs[i].Login]
	}
	prev := r.Store.Replace(recs)

	wasLive := make(map[string]bool, len(prev))
	for _, p := range prev {
		wasLive[p.Login] = p.Live
	}
	changed := len(prev) != len(recs)
	for _, rec := range recs {
		if rec.Live != wasLive[rec.Login] {
			changed = true
		}
		if !rec.Live && wasLive[rec.Login] && r.Cache != nil {
			// Channel went offline; its discovered URL is dead.
			r.Cache.Invalidate(rec.Login)
		}
	}
	if changed && r.Notifier != nil {
		r.Notifier.Notify(ctx)
	}
	r.Logger.Debug("channel snapshot refreshed", "channels", len(recs))
}
