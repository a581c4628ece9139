// Package runner spawns external scanning binaries with no shell, in their
// own process group, under a wall-clock deadline, with bounded output
// capture. It is the only place in the Recon Engine that calls exec.Command.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"reconforge/pkg/models"
)

// defaultCaptureLimit bounds how much of a tool's stdout/stderr is kept in
// memory; past this the stream is still drained (so the process doesn't
// block on a full pipe) but discarded.
const defaultCaptureLimit = 8 << 20 // 8 MiB

// Runner invokes ToolInvocations and returns InvocationResults.
type Runner struct {
	captureLimit  int64
	allowedEnv    []string
	groupKillWait time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithCaptureLimit overrides the default per-stream capture bound.
func WithCaptureLimit(n int64) Option {
	return func(r *Runner) { r.captureLimit = n }
}

// WithAllowedEnv sets the environment variable allowlist passed to every
// spawned process, instead of inheriting the engine's full environment.
func WithAllowedEnv(names []string) Option {
	return func(r *Runner) { r.allowedEnv = names }
}

// New builds a Runner with the given options applied over sane defaults.
func New(opts ...Option) *Runner {
	r := &Runner{
		captureLimit:  defaultCaptureLimit,
		allowedEnv:    []string{"PATH", "HOME"},
		groupKillWait: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Invoke runs inv to completion or until ctx/inv.Deadline expires, whichever
// comes first. It never returns a Go error for a failing child process —
// that is reported through InvocationResult — only for invocation setup
// failures (bad argv, pipe creation, exec failure).
func (r *Runner) Invoke(ctx context.Context, inv models.ToolInvocation) (models.InvocationResult, error) {
	if len(inv.Argv) == 0 || !strings.HasPrefix(inv.Argv[0], "/") {
		return models.InvocationResult{}, models.ErrInvalidInvocation
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if !inv.Deadline.IsZero() {
		runCtx, cancel = context.WithDeadline(ctx, inv.Deadline)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = inv.Cwd
	cmd.Env = r.filteredEnv()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: 0}
	if len(inv.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(inv.Stdin)
	}

	// On deadline/cancellation, CommandContext's default Cancel would SIGKILL
	// only the leader; send SIGTERM to the whole group instead and give it
	// groupKillWait to exit before Wait escalates to SIGKILL itself.
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = r.groupKillWait

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return models.InvocationResult{}, fmt.Errorf("runner: stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return models.InvocationResult{}, fmt.Errorf("runner: stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return models.InvocationResult{StartErr: err}, nil
	}

	var stdoutBuf, stderrBuf boundedBuffer
	stdoutBuf.limit = r.captureLimit
	stderrBuf.limit = r.captureLimit

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); io.Copy(&stdoutBuf, stdoutPipe) }()
	go func() { defer wg.Done(); io.Copy(&stderrBuf, stderrPipe) }()

	waitErr := cmd.Wait()
	wg.Wait()
	duration := time.Since(start)

	res := models.InvocationResult{
		Stdout:    stdoutBuf.buf.Bytes(),
		Stderr:    stderrBuf.buf.Bytes(),
		Duration:  duration,
		Truncated: stdoutBuf.truncated || stderrBuf.truncated,
	}

	timedOut := runCtx.Err() == context.DeadlineExceeded
	res.Timeout = timedOut

	r.killResidualGroup(cmd)

	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
				res.KillReason = status.Signal().String()
			}
		} else {
			res.ExitCode = -1
		}
	}
	if timedOut {
		res.KillReason = "deadline exceeded"
	}

	return res, nil
}

// killResidualGroup kills anything still alive in the child's process group
// after Wait returns — a tool that forks helpers (e.g. a headless browser
// launched by gowitness) can leave orphans behind otherwise.
func (r *Runner) killResidualGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid := cmd.Process.Pid
	if pids := residualPIDs(pgid); len(pids) > 0 {
		syscall.Kill(-pgid, syscall.SIGTERM)
		time.Sleep(r.groupKillWait)
		if pids := residualPIDs(pgid); len(pids) > 0 {
			syscall.Kill(-pgid, syscall.SIGKILL)
		}
	}
}

func residualPIDs(pgid int) []int {
	procs, err := process.Processes()
	if err != nil {
		return nil
	}
	var pids []int
	for _, p := range procs {
		if ppid, err := p.Ppid(); err == nil && int(ppid) == pgid {
			pids = append(pids, int(p.Pid))
		}
	}
	return pids
}

func (r *Runner) filteredEnv() []string {
	env := make([]string, 0, len(r.allowedEnv))
	for _, name := range r.allowedEnv {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	return env
}

// boundedBuffer caps how many bytes it retains, discarding the remainder
// while still reading it off the pipe so the child process never blocks.
type boundedBuffer struct {
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - int64(b.buf.Len())
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}
