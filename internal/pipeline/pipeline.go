package pipeline

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

const diagTailBytes = 4096

// Handle is a running pipeline. It is created by Start and must be released
// with Teardown, which is idempotent and safe on all exit paths.
type Handle struct {
	cmds  []*exec.Cmd
	out   *os.File // read end of the final stage's stdout, nil when a sink was set
	diag  *tailBuffer
	grace time.Duration

	mu      sync.Mutex
	exitErr error
	done    chan struct{}
	pending int

	tearOnce sync.Once
}

// Start launches every stage of spec in order. On any stage failure the
// already-started stages are torn down and an error wrapping ErrLaunchFailed
// is returned. Inter-stage bytes flow through OS pipes, so back-pressure
// from a slow consumer propagates to the extractor without buffering the
// stream in memory.
func Start(spec Spec) (*Handle, error) {
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	h := &Handle{
		diag:  newTailBuffer(diagTailBytes),
		grace: spec.grace(),
		done:  make(chan struct{}),
	}

	var stderr io.Writer = h.diag
	if spec.Stderr != nil {
		stderr = io.MultiWriter(h.diag, spec.Stderr)
	}

	// parentFiles are our copies of pipe fds; the children hold their own
	// after Start, so these must be closed for EOF to propagate.
	var parentFiles []*os.File
	closeParentFiles := func() {
		for _, f := range parentFiles {
			_ = f.Close()
		}
		parentFiles = nil
	}

	var prevRead *os.File
	for i, st := range spec.Stages {
		// ok: commands come from operator configuration, not request input
		// #nosec G204
		cmd := exec.Command(st.Command, st.Args...)
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		cmd.Stderr = stderr
		if prevRead != nil {
			cmd.Stdin = prevRead
		}

		last := i == len(spec.Stages)-1
		switch {
		case last && spec.Stdout != nil:
			cmd.Stdout = spec.Stdout
		default:
			pr, pw, err := os.Pipe()
			if err != nil {
				h.killStarted()
				closeParentFiles()
				return nil, fmt.Errorf("%w: pipe: %v", ErrLaunchFailed, err)
			}
			cmd.Stdout = pw
			parentFiles = append(parentFiles, pw)
			if last {
				h.out = pr
			} else {
				parentFiles = append(parentFiles, pr)
				prevRead = pr
			}
		}

		if err := cmd.Start(); err != nil {
			h.killStarted()
			closeParentFiles()
			if h.out != nil {
				_ = h.out.Close()
			}
			return nil, fmt.Errorf("%w: stage %q: %v", ErrLaunchFailed, st.Command, err)
		}
		h.cmds = append(h.cmds, cmd)
	}
	closeParentFiles()

	h.pending = len(h.cmds)
	for _, cmd := range h.cmds {
		go h.reap(cmd)
	}
	return h, nil
}

// reap waits one stage and closes done once every stage has exited.
func (h *Handle) reap(cmd *exec.Cmd) {
	err := cmd.Wait()
	h.mu.Lock()
	if err != nil && h.exitErr == nil {
		h.exitErr = err
	}
	h.pending--
	if h.pending == 0 {
		close(h.done)
	}
	h.mu.Unlock()
}

// killStarted is the launch-failure path: no reapers exist yet, so signal
// and wait inline.
func (h *Handle) killStarted() {
	for _, cmd := range h.cmds {
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
	}
	for _, cmd := range h.cmds {
		_ = cmd.Wait()
	}
	h.cmds = nil
}

// Output is the final stage's stdout. It returns nil when Spec.Stdout was
// provided. Reading past the end of the stream returns io.EOF after the
// stage exits.
func (h *Handle) Output() io.Reader {
	if h.out == nil {
		return nil
	}
	return h.out
}

// Diagnostics returns the most recent stderr output across all stages.
func (h *Handle) Diagnostics() string { return h.diag.String() }

// Done is closed once every stage has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Exited reports whether every stage has exited.
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// ExitErr returns the first stage exit error observed, once Done is closed.
func (h *Handle) ExitErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitErr
}

// PIDs returns the process id of every stage, in stage order.
func (h *Handle) PIDs() []int {
	out := make([]int, 0, len(h.cmds))
	for _, cmd := range h.cmds {
		if cmd.Process != nil {
			out = append(out, cmd.Process.Pid)
		}
	}
	return out
}

// Teardown terminates every stage regardless of which are still alive:
// SIGTERM to each process group, then SIGKILL after the grace period. It is
// idempotent and safe to call after the stages already exited naturally.
func (h *Handle) Teardown() {
	h.tearOnce.Do(func() {
		h.signalAll(syscall.SIGTERM)
		select {
		case <-h.done:
		case <-time.After(h.grace):
			h.signalAll(syscall.SIGKILL)
			select {
			case <-h.done:
			case <-time.After(2 * time.Second):
				// best-effort; reapers will finish on their own
			}
		}
		if h.out != nil {
			_ = h.out.Close()
		}
	})
}

func (h *Handle) signalAll(sig syscall.Signal) {
	for _, cmd := range h.cmds {
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, sig)
		}
	}
}
