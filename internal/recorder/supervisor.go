// Package recorder keeps a set of per-channel recorder pipelines in sync
// with which channels are live and enabled for recording. A single
// reconciliation loop owns all job state; nothing else mutates it.
package recorder

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/tunerd/tunerd/internal/channel"
	"github.com/tunerd/tunerd/internal/config"
	"github.com/tunerd/tunerd/internal/metrics"
)

// cleanupEvery is how often retention cleanup runs, tracked by a last-run
// timestamp inside the reconcile loop rather than a separate timer.
const cleanupEvery = time.Hour

// Supervisor reconciles recording jobs against the channel snapshot.
type Supervisor struct {
	cfg    config.RecordingConfig
	stream config.StreamConfig
	store  *channel.Store
	logger *slog.Logger

	// jobs is owned exclusively by the Run goroutine.
	jobs        map[string]*Job
	lastCleanup time.Time
	now         func() time.Time

	status atomic.Pointer[[]JobStatus]
}

func New(cfg config.RecordingConfig, stream config.StreamConfig, store *channel.Store, logger *slog.Logger) *Supervisor {
	s := &Supervisor{
		cfg:    cfg,
		stream: stream,
		store:  store,
		logger: logger,
		jobs:   make(map[string]*Job),
		now:    time.Now,
	}
	empty := make([]JobStatus, 0)
	s.status.Store(&empty)
	return s
}

// Run reconciles until ctx is done, waking on snapshot refreshes with the
// configured interval as a fallback in case a signal is ever missed. On
// shutdown every still-active job is torn down before returning.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		s.Reconcile()
		select {
		case <-ctx.Done():
			s.drain()
			return
		case <-s.store.Wake():
		case <-time.After(s.cfg.Interval):
		}
	}
}

// Reconcile performs one tick: start missing jobs, drop crashed ones, stop
// jobs whose channel left the desired set, then run retention cleanup at
// most once per cleanupEvery. A failure on one channel never affects the
// others.
func (s *Supervisor) Reconcile() {
	desired := make(map[string]channel.Record)
	for _, rec := range s.store.Snapshot() {
		if rec.Live && rec.Record {
			desired[rec.Login] = rec
		}
	}

	// Start recorders for desired channels without a job. A crashed job
	// dropped below restarts here on the next tick, which naturally rate
	// limits restarts to one per tick.
	for login, rec := range desired {
		if _, ok := s.jobs[login]; ok {
			continue
		}
		job, err := s.startJob(rec)
		if err != nil {
			s.logger.Error("recorder start failed", "channel", login, "error", err)
			continue
		}
		s.jobs[login] = job
		metrics.IncRecorderStart(login)
		s.logger.Info("recording started", "channel", login, "path", job.Path, "title", job.Title)
	}

	// Drop jobs whose recorder exited unexpectedly while still desired.
	for login, job := range s.jobs {
		if _, want := desired[login]; !want || !job.Handle.Exited() {
			continue
		}
		s.logger.Warn("recorder exited unexpectedly",
			"channel", login, "exit_code", exitCode(job.Handle.ExitErr()), "stderr", job.Handle.Diagnostics())
		job.close()
		delete(s.jobs, login)
		metrics.IncRecorderCrash(login)
	}

	// Stop jobs whose channel went offline, had recording disabled, or
	// disappeared from the snapshot.
	for login, job := range s.jobs {
		if _, want := desired[login]; want {
			continue
		}
		job.Handle.Teardown()
		job.close()
		delete(s.jobs, login)
		metrics.IncRecorderStop(login)
		s.logger.Info("recording stopped", "channel", login, "path", job.Path)
	}

	if s.cfg.Root != "" && s.now().Sub(s.lastCleanup) >= cleanupEvery {
		s.lastCleanup = s.now()
		s.cleanupRetention()
	}

	s.publishStatus()
}

func (s *Supervisor) drain() {
	for login, job := range s.jobs {
		job.Handle.Teardown()
		job.close()
		delete(s.jobs, login)
		metrics.IncRecorderStop(login)
		s.logger.Info("recording stopped on shutdown", "channel", login, "path", job.Path)
	}
	s.publishStatus()
}

// publishStatus snapshots the job table for readers outside the loop.
func (s *Supervisor) publishStatus() {
	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, JobStatus{Login: j.Login, Path: j.Path, StartedAt: j.StartedAt, Title: j.Title})
	}
	s.status.Store(&out)
}

// Status returns the jobs as of the last reconcile tick.
func (s *Supervisor) Status() []JobStatus {
	return *s.status.Load()
}

func exitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	if err == nil {
		return 0
	}
	return -1
}
