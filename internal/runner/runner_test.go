package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesStdout(t *testing.T) {
	r := NewRunner(nil)

	res, err := r.Run(context.Background(), t.TempDir(), "sh", "-c", "echo hello")
	require.NoError(t, err)

	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.TimedOut)
}

func TestRunCapturesStderrAndExitCode(t *testing.T) {
	r := NewRunner(nil)

	res, err := r.Run(context.Background(), t.TempDir(), "sh", "-c", "echo oops >&2; exit 3")
	require.NoError(t, err)

	assert.Equal(t, "oops\n", res.Stderr)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRunUsesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0644))
	r := NewRunner(nil)

	res, err := r.Run(context.Background(), dir, "ls")
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "marker.txt")
}

func TestRunTimeout(t *testing.T) {
	r := NewRunner(&Config{Timeout: 50 * time.Millisecond, MaxOutput: 1024})

	res, err := r.Run(context.Background(), t.TempDir(), "sleep", "5")
	require.NoError(t, err)

	assert.True(t, res.TimedOut)
	assert.Equal(t, -1, res.ExitCode)
}

func TestRunCallerDeadlineWins(t *testing.T) {
	r := NewRunner(&Config{Timeout: time.Hour, MaxOutput: 1024})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := r.Run(ctx, t.TempDir(), "sleep", "5")
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
}

func TestRunTruncatesOutput(t *testing.T) {
	r := NewRunner(&Config{Timeout: 10 * time.Second, MaxOutput: 10})

	res, err := r.Run(context.Background(), t.TempDir(), "sh", "-c", "printf 'aaaaaaaaaaaaaaaaaaaa'")
	require.NoError(t, err)

	assert.Equal(t, "aaaaaaaaaa\n... [output truncated]", res.Stdout)
}

func TestRunMissingBinary(t *testing.T) {
	r := NewRunner(nil)

	_, err := r.Run(context.Background(), t.TempDir(), "definitely-not-a-real-binary-xyz")
	assert.ErrorContains(t, err, "failed to run")
}

func TestRunNoCommand(t *testing.T) {
	r := NewRunner(nil)

	_, err := r.Run(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "no command given")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 256*1024, cfg.MaxOutput)
}
