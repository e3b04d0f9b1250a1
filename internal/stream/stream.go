// Package stream serves one live channel to one viewer: it builds a child
// process pipeline for the configured extraction mode, relays the byte
// stream to the client, and tears the pipeline down on every exit path.
package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tunerd/tunerd/internal/config"
	"github.com/tunerd/tunerd/internal/metrics"
	"github.com/tunerd/tunerd/internal/pipeline"
	"github.com/tunerd/tunerd/internal/urlcache"
)

// Extraction modes. Direct runs a single extractor stage that writes the
// media container to stdout; Discover first resolves a direct URL (cached),
// then fetches it with a second tool.
const (
	ModeDirect   = "direct"
	ModeDiscover = "discover"
)

// copyChunk is the relay buffer size; each chunk is flushed so playback can
// start as soon as a usable amount of data exists.
const copyChunk = 32 * 1024

// Streamer builds and serves per-viewer live pipelines.
type Streamer struct {
	cfg    config.StreamConfig
	cache  *urlcache.Cache
	logger *slog.Logger
}

func New(cfg config.StreamConfig, cache *urlcache.Cache, logger *slog.Logger) *Streamer {
	return &Streamer{cfg: cfg, cache: cache, logger: logger}
}

// Serve streams the channel to w until EOF, client cancellation, or an I/O
// error. Response headers are written optimistically once the pipeline has
// launched, before any payload byte. When the pipeline cannot be launched
// the returned error wraps pipeline.ErrLaunchFailed and no headers have
// been written, so the caller may still respond with a server error. No
// retry is attempted on any path; the upstream may legitimately be offline.
func (s *Streamer) Serve(ctx context.Context, login string, w http.ResponseWriter) error {
	sid := uuid.NewString()
	log := s.logger.With("session", sid, "channel", login, "mode", s.cfg.Mode)

	spec, err := s.buildSpec(ctx, login)
	if err != nil {
		return err
	}
	h, err := pipeline.Start(spec)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, h.Teardown)
	defer func() {
		stop()
		h.Teardown()
		if s.cfg.Mode == ModeDiscover {
			// The cached URL may expire mid-segment; force the next viewer
			// to re-discover.
			s.cache.Invalidate(login)
		}
	}()

	w.Header().Set("Content-Type", "video/mpeg-ts")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	fl, _ := w.(http.Flusher)
	if fl != nil {
		fl.Flush()
	}

	metrics.SessionStarted()
	log.Info("stream session started")

	var total int64
	outcome := s.copyLoop(ctx, h, w, fl, &total)
	metrics.SessionEnded(s.cfg.Mode, outcomeLabel(outcome))

	switch {
	case outcome == nil:
		log.Info("stream session ended", "reason", "upstream ended", "bytes", total)
		return ErrUpstreamEnded
	case outcome == ErrClientCancelled:
		log.Info("stream session ended", "reason", "client cancelled", "bytes", total)
		return ErrClientCancelled
	default:
		log.Error("stream session failed", "error", outcome, "bytes", total, "stderr", h.Diagnostics())
		return outcome
	}
}

// copyLoop relays pipeline output to the client in fixed-size chunks.
// It returns nil on upstream EOF, ErrClientCancelled on disconnect, or the
// underlying I/O error.
func (s *Streamer) copyLoop(ctx context.Context, h *pipeline.Handle, w io.Writer, fl http.Flusher, total *int64) error {
	buf := make([]byte, copyChunk)
	out := h.Output()
	for {
		n, rerr := out.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return ErrClientCancelled
			}
			*total += int64(n)
			metrics.AddSessionBytes(int64(n))
			if fl != nil {
				fl.Flush()
			}
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return ErrClientCancelled
			}
			if rerr == io.EOF {
				return nil
			}
			if h.Exited() {
				// Read failed because teardown closed the pipe after the
				// extractor finished.
				return nil
			}
			return fmt.Errorf("read pipeline output: %w", rerr)
		}
	}
}

// buildSpec selects the extraction mode and assembles the stage chain.
func (s *Streamer) buildSpec(ctx context.Context, login string) (pipeline.Spec, error) {
	var stages []pipeline.Stage
	switch s.cfg.Mode {
	case ModeDiscover:
		url, err := s.resolveURL(ctx, login)
		if err != nil {
			return pipeline.Spec{}, err
		}
		stages = []pipeline.Stage{s.fetchStage(url)}
	default:
		stages = []pipeline.Stage{s.extractStage(login)}
		if len(s.cfg.TranscodeArgs) > 0 {
			stages = append(stages, s.transcodeStage())
		}
	}
	return pipeline.Spec{Stages: stages, Grace: s.cfg.GracePeriod}, nil
}

// resolveURL returns the direct media URL for login, consulting the cache
// first and otherwise running a one-shot discovery stage.
func (s *Streamer) resolveURL(ctx context.Context, login string) (string, error) {
	if url, ok := s.cache.Get(login); ok {
		return url, nil
	}
	spec := pipeline.Spec{
		Stages: []pipeline.Stage{{
			Command: s.cfg.Extractor,
			Args:    []string{"--stream-url", s.channelURL(login), s.cfg.Quality},
		}},
		Grace: s.cfg.GracePeriod,
	}
	h, err := pipeline.Start(spec)
	if err != nil {
		return "", err
	}
	stop := context.AfterFunc(ctx, h.Teardown)
	defer func() {
		stop()
		h.Teardown()
	}()
	b, err := io.ReadAll(h.Output())
	if err != nil && ctx.Err() != nil {
		return "", ErrClientCancelled
	}
	// EOF only means stdout closed; wait for the exit so Diagnostics is
	// complete before it can end up in an error.
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
	}
	url := lastLine(string(b))
	if url == "" {
		return "", fmt.Errorf("%w: no stream URL for %q: %s", pipeline.ErrLaunchFailed, login, strings.TrimSpace(h.Diagnostics()))
	}
	s.cache.Put(login, url)
	return url, nil
}

func (s *Streamer) extractStage(login string) pipeline.Stage {
	return pipeline.Stage{
		Command: s.cfg.Extractor,
		Args:    []string{"--stdout", s.channelURL(login), s.cfg.Quality},
	}
}

func (s *Streamer) fetchStage(url string) pipeline.Stage {
	args := []string{"-hide_banner", "-loglevel", "warning", "-i", url}
	if len(s.cfg.TranscodeArgs) > 0 {
		args = append(args, s.cfg.TranscodeArgs...)
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args, "-f", "mpegts", "pipe:1")
	return pipeline.Stage{Command: s.cfg.Fetcher, Args: args}
}

func (s *Streamer) transcodeStage() pipeline.Stage {
	args := []string{"-hide_banner", "-loglevel", "warning", "-i", "pipe:0"}
	args = append(args, s.cfg.TranscodeArgs...)
	args = append(args, "-f", "mpegts", "pipe:1")
	return pipeline.Stage{Command: s.cfg.Fetcher, Args: args}
}

func (s *Streamer) channelURL(login string) string {
	return strings.ReplaceAll(s.cfg.URLTemplate, "{channel}", login)
}

func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

func outcomeLabel(err error) string {
	switch err {
	case nil:
		return "upstream_ended"
	case ErrClientCancelled:
		return "client_cancelled"
	default:
		return "io_error"
	}
}
