package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/tunerd/tunerd/internal/channel"
	"github.com/tunerd/tunerd/internal/config"
	"github.com/tunerd/tunerd/internal/recorder"
	"github.com/tunerd/tunerd/internal/stream"
	"github.com/tunerd/tunerd/internal/tuner"
	"github.com/tunerd/tunerd/internal/urlcache"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests require sh on Unix-like systems")
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extractor")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func newTestServer(t *testing.T, extractor string) (*httptest.Server, *channel.Store) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := channel.NewStore()
	streamCfg := config.StreamConfig{
		Mode:        stream.ModeDirect,
		URLTemplate: "https://example.test/{channel}",
		Extractor:   extractor,
		Quality:     "best",
		GracePeriod: time.Second,
	}
	st := stream.New(streamCfg, urlcache.New(time.Minute), log)
	sup := recorder.New(config.RecordingConfig{Root: t.TempDir(), RetentionDays: 1, Interval: time.Minute}, streamCfg, store, log)
	rend := tuner.NewRenderer(config.TunerConfig{FriendlyName: "tunerd", DeviceID: "X", BaseURL: "http://base", TunerCount: 2})
	srv := httptest.NewServer(NewRouter(store, st, sup, rend, log).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func TestStreamRouteRelaysBytes(t *testing.T) {
	requireUnix(t)
	srv, store := newTestServer(t, writeScript(t, "printf MEDIA\n"))
	store.Replace([]channel.Record{{Login: "alice", DisplayName: "Alice", Live: true}})

	resp, err := http.Get(srv.URL + "/stream/alice")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "video/mpeg-ts" {
		t.Fatalf("Content-Type = %q", ct)
	}
	b, _ := io.ReadAll(resp.Body)
	if string(b) != "MEDIA" {
		t.Fatalf("body = %q", b)
	}
}

func TestStreamRouteUnknownChannel(t *testing.T) {
	requireUnix(t)
	srv, _ := newTestServer(t, writeScript(t, "printf MEDIA\n"))
	resp, err := http.Get(srv.URL + "/stream/ghost")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestStreamRouteLaunchFailureIs500(t *testing.T) {
	requireUnix(t)
	srv, store := newTestServer(t, "/nonexistent/extractor")
	store.Replace([]channel.Record{{Login: "alice", DisplayName: "Alice", Live: true}})

	resp, err := http.Get(srv.URL + "/stream/alice")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestLineupAndDiscoverRoutes(t *testing.T) {
	requireUnix(t)
	srv, store := newTestServer(t, writeScript(t, "printf MEDIA\n"))
	store.Replace([]channel.Record{{Login: "alice", DisplayName: "Alice", Live: true}})

	resp, err := http.Get(srv.URL + "/lineup.json")
	if err != nil {
		t.Fatalf("GET lineup: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var items []tuner.LineupItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("decode lineup: %v", err)
	}
	if len(items) != 1 || items[0].GuideName != "Alice" {
		t.Fatalf("lineup = %+v", items)
	}

	resp2, err := http.Get(srv.URL + "/discover.json")
	if err != nil {
		t.Fatalf("GET discover: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	var d tuner.Discover
	if err := json.NewDecoder(resp2.Body).Decode(&d); err != nil {
		t.Fatalf("decode discover: %v", err)
	}
	if d.TunerCount != 2 || d.LineupURL != "http://base/lineup.json" {
		t.Fatalf("discover = %+v", d)
	}
}

func TestPlaylistAndGuideRoutes(t *testing.T) {
	requireUnix(t)
	srv, store := newTestServer(t, writeScript(t, "printf MEDIA\n"))
	store.Replace([]channel.Record{{Login: "alice", DisplayName: "Alice", Live: true, Title: "run"}})

	resp, err := http.Get(srv.URL + "/playlist.m3u")
	if err != nil {
		t.Fatalf("GET playlist: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(b), "#EXTM3U") {
		t.Fatalf("playlist = %q", b)
	}

	resp2, err := http.Get(srv.URL + "/epg.xml")
	if err != nil {
		t.Fatalf("GET guide: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	g, _ := io.ReadAll(resp2.Body)
	if !strings.Contains(string(g), "<title>run</title>") {
		t.Fatalf("guide = %q", g)
	}
}

func TestStatusRoute(t *testing.T) {
	requireUnix(t)
	srv, store := newTestServer(t, writeScript(t, "printf MEDIA\n"))
	store.Replace([]channel.Record{{Login: "alice", DisplayName: "Alice", Live: true}})

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var body struct {
		Channels   []channel.Record     `json:"channels"`
		Recordings []recorder.JobStatus `json:"recordings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(body.Channels) != 1 || len(body.Recordings) != 0 {
		t.Fatalf("status = %+v", body)
	}
}

func TestIsSafeName(t *testing.T) {
	for _, ok := range []string{"alice", "a_b-c.d", "X9"} {
		if !isSafeName(ok) {
			t.Fatalf("isSafeName(%q) = false", ok)
		}
	}
	for _, bad := range []string{"", "../etc", "a/b", "a b", "a\\b", "na..me"} {
		if isSafeName(bad) {
			t.Fatalf("isSafeName(%q) = true", bad)
		}
	}
}
