package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tunerd",
			Subsystem: "stream",
			Name:      "sessions_active",
			Help:      "Viewer sessions currently streaming.",
		},
	)
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunerd",
			Subsystem: "stream",
			Name:      "sessions_total",
			Help:      "Viewer sessions served, by extraction mode and outcome.",
		}, []string{"mode", "outcome"},
	)
	sessionBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tunerd",
			Subsystem: "stream",
			Name:      "bytes_total",
			Help:      "Bytes relayed to viewers.",
		},
	)
	recorderStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunerd",
			Subsystem: "recorder",
			Name:      "starts_total",
			Help:      "Recorder pipelines started.",
		}, []string{"channel"},
	)
	recorderStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunerd",
			Subsystem: "recorder",
			Name:      "stops_total",
			Help:      "Recorder pipelines stopped on purpose.",
		}, []string{"channel"},
	)
	recorderCrashes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunerd",
			Subsystem: "recorder",
			Name:      "crashes_total",
			Help:      "Recorder pipelines that exited unexpectedly.",
		}, []string{"channel"},
	)
	recordingsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tunerd",
			Subsystem: "recorder",
			Name:      "recordings_active",
			Help:      "Recording jobs currently running.",
		},
	)
	retentionDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tunerd",
			Subsystem: "recorder",
			Name:      "retention_deleted_total",
			Help:      "Recorded files deleted by retention cleanup.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		sessionsActive, sessionsTotal, sessionBytes,
		recorderStarts, recorderStops, recorderCrashes,
		recordingsActive, retentionDeleted,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns the /metrics HTTP handler for the default registry.
func Handler() http.Handler { return promhttp.Handler() }

func SessionStarted() { sessionsActive.Inc() }

func SessionEnded(mode, outcome string) {
	sessionsActive.Dec()
	sessionsTotal.WithLabelValues(mode, outcome).Inc()
}

func AddSessionBytes(n int64) { sessionBytes.Add(float64(n)) }
func IncRecorderStart(channel string) {
	recorderStarts.WithLabelValues(channel).Inc()
	recordingsActive.Inc()
}

func IncRecorderStop(channel string) {
	recorderStops.WithLabelValues(channel).Inc()
	recordingsActive.Dec()
}

func IncRecorderCrash(channel string) {
	recorderCrashes.WithLabelValues(channel).Inc()
	recordingsActive.Dec()
}

func AddRetentionDeleted(n int) { retentionDeleted.Add(float64(n)) }
