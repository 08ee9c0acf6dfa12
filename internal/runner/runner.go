// Package runner executes external tools (yt-dlp, ffmpeg) as child
// processes with timeouts, stderr capture, and structured logging.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// stderrTailLines is how many trailing stderr lines are retained for
// error reporting.
const stderrTailLines = 20

// waitDelay bounds how long Wait blocks on pipe drain after the context
// cancels the process.
const waitDelay = 5 * time.Second

// Result holds the output of a completed command.
type Result struct {
	Stdout     string
	StderrTail []string
	Duration   time.Duration

	// Stats holds best-effort resource usage of the child process.
	Stats ProcessStats
}

// ExitError indicates the command ran but exited non-zero.
type ExitError struct {
	Binary     string
	ExitCode   int
	StderrTail []string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Binary, e.ExitCode)
	if len(e.StderrTail) > 0 {
		msg += ": " + e.StderrTail[len(e.StderrTail)-1]
	}
	return msg
}

// TimeoutError indicates the command was killed after exceeding its timeout.
type TimeoutError struct {
	Binary  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Binary, e.Timeout)
}

// Options controls command execution.
type Options struct {
	// Timeout kills the process when exceeded. Zero means no timeout
	// beyond the caller's context.
	Timeout time.Duration

	// Dir is the working directory for the process.
	Dir string

	// OnStderrLine, when set, receives each stderr line as it arrives.
	OnStderrLine func(line string)
}

// Runner executes external commands.
type Runner struct {
	logger *slog.Logger
}

// New creates a Runner.
func New(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// Run executes binary with args and waits for completion. Stdout is
// buffered in full; stderr is streamed line by line to the debug log and
// a bounded tail is kept for error messages.
func (r *Runner) Run(ctx context.Context, binary string, args []string, opts Options) (*Result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = opts.Dir
	cmd.WaitDelay = waitDelay

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	log := r.logger.With(slog.String("binary", binary))
	log.Debug("running command", slog.String("args", strings.Join(args, " ")))

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", binary, err)
	}

	monitor := newProcessMonitor(cmd.Process.Pid)

	tail := newTailBuffer(stderrTailLines)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			tail.Add(line)
			log.Debug("stderr", slog.String("line", line))
			if opts.OnStderrLine != nil {
				opts.OnStderrLine(line)
			}
		}
	}()

	waitErr := cmd.Wait()
	wg.Wait()
	elapsed := time.Since(start)

	result := &Result{
		Stdout:     stdout.String(),
		StderrTail: tail.Lines(),
		Duration:   elapsed,
	}
	if monitor != nil {
		result.Stats = monitor.Stop()
		if result.Stats.PeakRSSMB > 0 {
			log.Debug("child process stats",
				slog.Float64("peak_rss_mb", result.Stats.PeakRSSMB),
				slog.Float64("cpu_percent", result.Stats.CPUPercent))
		}
	}

	if waitErr != nil {
		if opts.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn("command timed out",
				slog.Duration("timeout", opts.Timeout),
				slog.Duration("elapsed", elapsed))
			return result, &TimeoutError{Binary: binary, Timeout: opts.Timeout}
		}

		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			log.Warn("command failed",
				slog.Int("exit_code", exitErr.ExitCode()),
				slog.Duration("elapsed", elapsed))
			return result, &ExitError{
				Binary:     binary,
				ExitCode:   exitErr.ExitCode(),
				StderrTail: tail.Lines(),
			}
		}
		return result, fmt.Errorf("waiting for %s: %w", binary, waitErr)
	}

	log.Debug("command completed", slog.Duration("elapsed", elapsed))
	return result, nil
}

// tailBuffer keeps the last n lines added to it.
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tailBuffer) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}
