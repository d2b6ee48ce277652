// Package proc runs external helper binaries with bounded output
// capture and a SIGTERM-then-SIGKILL shutdown sequence.
package proc

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// DefaultMaxCapture bounds how much of each output stream is kept.
const DefaultMaxCapture = 64 * 1024

// Command configures a subprocess to execute.
type Command struct {
	// Binary is the executable path or name (resolved via PATH).
	Binary string
	// Args are the command-line arguments.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// MaxCapture caps the bytes kept per output stream.
	// Defaults to DefaultMaxCapture.
	MaxCapture int
	// GracePeriod is how long to wait after SIGTERM before SIGKILL.
	// Defaults to 5 seconds.
	GracePeriod time.Duration
}

// Result holds the output and status of a completed subprocess.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Run executes a subprocess and waits for it to complete. When the
// context is canceled the whole process group receives SIGTERM first,
// then SIGKILL after the grace period.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("proc: binary is required")
	}

	gracePeriod := cmd.GracePeriod
	if gracePeriod == 0 {
		gracePeriod = 5 * time.Second
	}
	maxCapture := cmd.MaxCapture
	if maxCapture <= 0 {
		maxCapture = DefaultMaxCapture
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...)
	c.Dir = cmd.Dir

	stdout := newCapWriter(maxCapture)
	stderr := newCapWriter(maxCapture)
	c.Stdout = stdout
	c.Stderr = stderr

	// Process group so the entire tree can be signaled.
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = gracePeriod

	start := time.Now()
	err := c.Run()
	duration := time.Since(start)

	exitCode := -1
	if c.ProcessState != nil {
		exitCode = c.ProcessState.ExitCode()
	}

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
		Duration: duration,
	}

	if err != nil {
		if ctx.Err() != nil {
			return result, fmt.Errorf("proc: killed by context: %w", ctx.Err())
		}
		return result, fmt.Errorf("proc: exit code %d: %w", result.ExitCode, err)
	}

	return result, nil
}

// capWriter keeps at most max bytes and silently drops the rest, so a
// runaway child cannot grow captured output without bound.
type capWriter struct {
	buf       []byte
	max       int
	truncated bool
}

func newCapWriter(max int) *capWriter {
	return &capWriter{max: max}
}

func (w *capWriter) Write(p []byte) (int, error) {
	remaining := w.max - len(w.buf)
	if remaining > 0 {
		if len(p) > remaining {
			w.buf = append(w.buf, p[:remaining]...)
		} else {
			w.buf = append(w.buf, p...)
		}
	}
	if len(p) > remaining {
		w.truncated = true
	}
	return len(p), nil
}

func (w *capWriter) Bytes() []byte {
	if !w.truncated {
		return w.buf
	}
	out := make([]byte, 0, len(w.buf)+24)
	out = append(out, w.buf...)
	return append(out, "\n... (output truncated)"...)
}
