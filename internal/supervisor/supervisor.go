// Package supervisor implements the Supervisor (spec §4.B): owns the
// lifecycle of a single CoreInstance at a time, launching it as a direct
// child process, escalating a graceful stop to a forced kill on timeout,
// and reaping orphans left behind by a prior control-plane crash.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/stelliberty/stelliberty/internal/ctlerr"
)

// GracefulStopTimeout is how long Stop waits for the Core to exit after
// a graceful stop signal before escalating to a forced kill.
const GracefulStopTimeout = 10 * time.Second

// Supervisor owns at most one running CoreInstance.
type Supervisor struct {
	executablePath string
	args           []string
	dataDir        string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// New constructs a Supervisor for the given Core binary.
func New(executablePath string, args []string, dataDir string) *Supervisor {
	return &Supervisor{executablePath: executablePath, args: args, dataDir: dataDir}
}

// Start launches the Core as a direct child process. Returns
// AlreadyRunningError if a CoreInstance already exists (spec §4.B: start
// is a fast-fail state violation, never an implicit restart).
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return &ctlerr.AlreadyRunningError{PID: s.cmd.Process.Pid}
	}

	cmd := exec.CommandContext(ctx, s.executablePath, s.args...)
	if s.dataDir != "" {
		cmd.Dir = s.dataDir
	}
	cmd.Stderr = os.Stderr
	cmd.Stdout = os.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start core: %w", err)
	}
	s.cmd = cmd
	return nil
}

// Status reports whether a CoreInstance is running and, if so, its PID.
func (s *Supervisor) Status() (running bool, pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return false, 0
	}
	if !processIsAlive(s.cmd.Process) {
		return false, 0
	}
	return true, s.cmd.Process.Pid
}

// Stop requests a graceful stop, escalating to a forced kill if the Core
// has not exited within GracefulStopTimeout.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return &ctlerr.NotRunningError{Op: "stop"}
	}

	if err := sendGracefulStop(cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("send graceful stop: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(GracefulStopTimeout):
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("force kill: %w", err)
		}
		<-done
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	s.cmd = nil
	s.mu.Unlock()
	return nil
}

// Cleanup reaps an orphaned Core process left behind by a prior
// control-plane crash, identified by pid (persisted separately by the
// caller, e.g. a PID file in the Core's DataDir). It is a best-effort
// operation: a pid that no longer exists is not an error.
func (s *Supervisor) Cleanup(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if !processIsAlive(proc) {
		return nil
	}
	if err := sendGracefulStop(proc); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("cleanup orphan pid=%d: %w", pid, err)
	}
	return nil
}
