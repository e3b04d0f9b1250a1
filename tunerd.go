// Package tunerd exposes a set of live internet video channels as a
// fixed-channel cable tuner and records selected channels to disk.
package tunerd

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tunerd/tunerd/internal/channel"
	"github.com/tunerd/tunerd/internal/config"
	"github.com/tunerd/tunerd/internal/logger"
	"github.com/tunerd/tunerd/internal/metrics"
	"github.com/tunerd/tunerd/internal/recorder"
	"github.com/tunerd/tunerd/internal/server"
	"github.com/tunerd/tunerd/internal/stream"
	"github.com/tunerd/tunerd/internal/tuner"
	"github.com/tunerd/tunerd/internal/urlcache"
	"github.com/tunerd/tunerd/internal/webhook"
)

// Re-export core types for external consumers.

type Config = config.Config

type ChannelRecord = channel.Record

// LoadConfig reads and validates a TOML config file.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// App wires the daemon: snapshot refresher, recording supervisor, and the
// HTTP tuner surface.
type App struct {
	cfg        *Config
	store      *channel.Store
	cache      *urlcache.Cache
	streamer   *stream.Streamer
	supervisor *recorder.Supervisor
	refresher  *channel.Refresher
	srv        *http.Server
}

// New assembles an App from cfg. Metrics are registered on the default
// Prometheus registry.
func New(cfg *Config) (*App, error) {
	log := logger.New(cfg.Log)
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, err
	}

	store := channel.NewStore()
	cache := urlcache.New(cfg.Stream.URLTTL)
	streamer := stream.New(cfg.Stream, cache, log.With("component", "stream"))
	supervisor := recorder.New(cfg.Recording, cfg.Stream, store, log.With("component", "recorder"))

	recordFlags := make(map[string]bool, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		recordFlags[ch.Name] = ch.Record
	}
	refresher := &channel.Refresher{
		Provider:    channel.NewHTTPProvider(cfg.Provider.URL, cfg.Logins()),
		Store:       store,
		Interval:    cfg.Provider.PollInterval,
		Cache:       cache,
		Notifier:    webhook.New(cfg.Webhook.URL, log.With("component", "webhook")),
		Logger:      log.With("component", "refresher"),
		RecordFlags: recordFlags,
	}

	router := server.NewRouter(store, streamer, supervisor, tuner.NewRenderer(cfg.Tuner), log.With("component", "http"))
	srv := server.NewServer(cfg.Listen, router.Handler())

	return &App{
		cfg:        cfg,
		store:      store,
		cache:      cache,
		streamer:   streamer,
		supervisor: supervisor,
		refresher:  refresher,
		srv:        srv,
	}, nil
}

// Run starts every component and blocks until ctx is done, then shuts the
// HTTP server down and drains all recording jobs before returning.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.refresher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		a.supervisor.Run(ctx)
	}()

	errc := make(chan error, 1)
	go func() {
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.srv.Shutdown(shutCtx)
	wg.Wait()
	return nil
}
