// Package pipeline starts a short chain of child processes, wires each
// stage's stdout to the next stage's stdin through OS pipes, and exposes
// the final stage's output as a byte stream with guaranteed teardown.
package pipeline

import (
	"errors"
	"io"
	"time"
)

// DefaultGrace is the wait between SIGTERM and SIGKILL during teardown.
const DefaultGrace = 5 * time.Second

// ErrLaunchFailed wraps any failure to start a stage (tool missing,
// permission denied). Stages already started are torn down before Start
// returns it.
var ErrLaunchFailed = errors.New("pipeline launch failed")

// Stage describes one child process of a pipeline.
type Stage struct {
	Command string
	Args    []string
}

// Spec describes a pipeline of one or more stages. Stage i's stdout feeds
// stage i+1's stdin; the last stage's stdout is the pipeline output.
type Spec struct {
	Stages []Stage

	// Stdout, when set, receives the final stage's output directly and
	// Handle.Output returns nil (recordings write straight to file).
	Stdout io.Writer

	// Stderr, when set, additionally receives every stage's stderr
	// (e.g. a rotated diagnostic log). Stderr is always drained into an
	// in-memory tail buffer regardless.
	Stderr io.Writer

	// Grace overrides DefaultGrace for teardown.
	Grace time.Duration
}

func (s Spec) grace() time.Duration {
	if s.Grace > 0 {
		return s.Grace
	}
	return DefaultGrace
}

func (s Spec) validate() error {
	if len(s.Stages) == 0 {
		return errors.New("pipeline: no stages")
	}
	for _, st := range s.Stages {
		if st.Command == "" {
			return errors.New("pipeline: stage with empty command")
		}
	}
	return nil
}
