package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Config contains configuration for the script runner
type Config struct {
	// Timeout applied when the caller's context has no deadline
	Timeout time.Duration `json:"timeout"`

	// MaxOutput caps captured stdout/stderr, in bytes per stream
	MaxOutput int `json:"max_output"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout:   30 * time.Second,
		MaxOutput: 256 * 1024,
	}
}

// Result captures one finished subprocess.
type Result struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	Duration int64  `json:"duration_ms"`
	TimedOut bool   `json:"timed_out"`
}

// Runner executes short-lived subprocesses with a timeout and bounded
// output capture. It backs the git tools, generated analysis scripts,
// and the backtest bridge.
type Runner struct {
	config *Config
}

// NewRunner creates a new runner
func NewRunner(config *Config) *Runner {
	if config == nil {
		config = DefaultConfig()
	}
	return &Runner{config: config}
}

// Run executes argv[0] with the remaining arguments inside dir. A
// non-zero exit is reported through Result.ExitCode, not an error;
// the error return is reserved for failures to launch at all.
func (r *Runner) Run(ctx context.Context, dir string, argv ...string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("no command given")
	}

	if _, ok := ctx.Deadline(); !ok && r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	startTime := time.Now()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &Result{
		Stdout:   truncate(stdout.String(), r.config.MaxOutput),
		Stderr:   truncate(stderr.String(), r.config.MaxOutput),
		Duration: time.Since(startTime).Milliseconds(),
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		return result, nil
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("failed to run %s: %w", argv[0], err)
	}

	return result, nil
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "\n... [output truncated]"
}
