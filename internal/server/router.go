// Package server exposes the tuner HTTP surface: the live stream route,
// the HDHomeRun documents, the playlist and guide, and operational status.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tunerd/tunerd/internal/channel"
	"github.com/tunerd/tunerd/internal/metrics"
	"github.com/tunerd/tunerd/internal/pipeline"
	"github.com/tunerd/tunerd/internal/recorder"
	"github.com/tunerd/tunerd/internal/stream"
	"github.com/tunerd/tunerd/internal/tuner"
)

// Router wires the HTTP handlers around the core components.
type Router struct {
	store      *channel.Store
	streamer   *stream.Streamer
	supervisor *recorder.Supervisor
	renderer   *tuner.Renderer
	logger     *slog.Logger
}

func NewRouter(store *channel.Store, st *stream.Streamer, sup *recorder.Supervisor, rend *tuner.Renderer, logger *slog.Logger) *Router {
	return &Router{store: store, streamer: st, supervisor: sup, renderer: rend, logger: logger}
}

// Handler returns an http.Handler powered by gin.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/stream/:channel", r.handleStream)
	g.GET("/discover.json", r.handleDiscover)
	g.GET("/lineup.json", r.handleLineup)
	g.GET("/lineup_status.json", r.handleLineupStatus)
	g.GET("/playlist.m3u", r.handlePlaylist)
	g.GET("/epg.xml", r.handleGuide)
	g.GET("/status", r.handleStatus)
	g.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer builds the http.Server for addr. WriteTimeout stays zero:
// stream responses are open-ended by design.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (r *Router) handleStream(c *gin.Context) {
	login := c.Param("channel")
	if !isSafeName(login) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid channel name"})
		return
	}
	if _, ok := r.store.Lookup(login); !ok {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "unknown channel: " + login})
		return
	}
	err := r.streamer.Serve(c.Request.Context(), login, c.Writer)
	switch {
	case err == nil, errors.Is(err, stream.ErrUpstreamEnded), errors.Is(err, stream.ErrClientCancelled):
		// Expected ends of a live session; the response is already
		// committed (or the client is gone), nothing more to write.
	case errors.Is(err, pipeline.ErrLaunchFailed):
		// Headers were never sent on this path, a real status is possible.
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
	default:
		// Headers already committed; the connection just ends.
		r.logger.Error("stream request failed", "channel", login, "error", err)
	}
}

func (r *Router) handleDiscover(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.renderer.Discover())
}

func (r *Router) handleLineup(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.renderer.Lineup(r.store.Snapshot()))
}

func (r *Router) handleLineupStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.renderer.LineupStatus())
}

func (r *Router) handlePlaylist(c *gin.Context) {
	c.Data(http.StatusOK, "audio/x-mpegurl", []byte(r.renderer.Playlist(r.store.Snapshot())))
}

func (r *Router) handleGuide(c *gin.Context) {
	out, err := r.renderer.Guide(r.store.Snapshot(), time.Now())
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/xml", out)
}

type statusResp struct {
	Channels   []channel.Record     `json:"channels"`
	Recordings []recorder.JobStatus `json:"recordings"`
}

func (r *Router) handleStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, statusResp{
		Channels:   r.store.Snapshot(),
		Recordings: r.supervisor.Status(),
	})
}
