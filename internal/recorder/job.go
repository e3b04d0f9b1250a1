package recorder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tunerd/tunerd/internal/channel"
	"github.com/tunerd/tunerd/internal/pipeline"
)

// maxTitleLen bounds the stream title inside a filename so long titles
// cannot push the path over filesystem limits.
const maxTitleLen = 80

// Job is one active recording: a long-lived recorder pipeline writing a
// single channel to one file. At most one Job exists per channel.
type Job struct {
	Login     string
	Handle    *pipeline.Handle
	Path      string
	StartedAt time.Time
	Title     string

	file   io.Closer
	stderr io.Closer // rotated diagnostic log, may be nil
}

// JobStatus is the read-only view published for the HTTP surface.
type JobStatus struct {
	Login     string    `json:"login"`
	Path      string    `json:"path"`
	StartedAt time.Time `json:"started_at"`
	Title     string    `json:"title"`
}

func (j *Job) close() {
	if j.file != nil {
		_ = j.file.Close()
	}
	if j.stderr != nil {
		_ = j.stderr.Close()
	}
}

// startJob creates the output file and launches the recorder pipeline for
// rec, writing media bytes straight to the file and stderr to the rotated
// diagnostic log.
func (s *Supervisor) startJob(rec channel.Record) (*Job, error) {
	dir := filepath.Join(s.cfg.Root, sanitizeName(rec.DisplayName))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create channel dir: %w", err)
	}
	path := filepath.Join(dir, recordingFilename(rec, s.now()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640) // #nosec G304 -- path is built from sanitized components under Root
	if err != nil {
		return nil, fmt.Errorf("create recording file: %w", err)
	}

	var stderr io.WriteCloser
	if w := s.cfg.Log.StderrWriter(rec.Login); w != nil {
		stderr = w
	}
	spec := pipeline.Spec{
		Stages: []pipeline.Stage{{
			Command: s.stream.Extractor,
			Args:    []string{"--stdout", s.channelURL(rec.Login), s.cfg.Quality},
		}},
		Stdout: f,
		Grace:  s.stream.GracePeriod,
	}
	if stderr != nil {
		spec.Stderr = stderr
	}
	h, err := pipeline.Start(spec)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		if stderr != nil {
			_ = stderr.Close()
		}
		return nil, err
	}
	return &Job{
		Login:     rec.Login,
		Handle:    h,
		Path:      path,
		StartedAt: s.now(),
		Title:     rec.Title,
		file:      f,
		stderr:    stderr,
	}, nil
}

func (s *Supervisor) channelURL(login string) string {
	return strings.ReplaceAll(s.stream.URLTemplate, "{channel}", login)
}

// recordingFilename builds "<name> - <timestamp> - <title>.ts" from
// sanitized components.
func recordingFilename(rec channel.Record, now time.Time) string {
	title := truncate(sanitizeName(rec.Title), maxTitleLen)
	if title == "" {
		title = "live"
	}
	return fmt.Sprintf("%s - %s - %s.ts",
		sanitizeName(rec.DisplayName), now.Format("2006-01-02 15-04-05"), title)
}

// sanitizeName replaces characters that are invalid in file names on common
// filesystems and trims leading/trailing dots and spaces.
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < 0x20, strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), ". ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
