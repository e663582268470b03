package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmoray/symposium/internal/runner"
)

func TestBacktestNotConfigured(t *testing.T) {
	fr := &fakeRunner{}
	ws := newTestWorkspace(t)
	tool := NewRunBacktestTool(fr, "", time.Minute)

	_, err := tool.Execute(context.Background(), ws, map[string]interface{}{})
	assert.ErrorContains(t, err, "backtest engine not configured")
	assert.Empty(t, fr.calls)
}

func TestBacktestRunsConfiguredCommand(t *testing.T) {
	fr := &fakeRunner{results: []*runner.Result{
		{Stdout: "sharpe: 1.4\nmax drawdown: 12%\n"},
	}}
	ws := newTestWorkspace(t)
	tool := NewRunBacktestTool(fr, "python3 engine.py", time.Minute)

	out, err := tool.Execute(context.Background(), ws, map[string]interface{}{})
	require.NoError(t, err)

	assert.Equal(t, "sharpe: 1.4\nmax drawdown: 12%", out)
	require.Len(t, fr.calls, 1)
	assert.Equal(t, []string{"python3", "engine.py"}, fr.calls[0])
	assert.Equal(t, ws.Root, fr.dirs[0])
}

func TestBacktestAppendsScriptAndArgs(t *testing.T) {
	fr := &fakeRunner{results: []*runner.Result{{Stdout: "ok\n"}}}
	ws := newTestWorkspace(t)
	_, err := ws.WriteFile("strategies/mean.py", "")
	require.NoError(t, err)
	tool := NewRunBacktestTool(fr, "./backtest", time.Minute)

	_, err = tool.Execute(context.Background(), ws, map[string]interface{}{
		"script": "strategies/mean.py",
		"args":   []interface{}{"--fast", "--period", "30d"},
	})
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"./backtest", "strategies/mean.py", "--fast", "--period", "30d"},
		fr.calls[0])
}

func TestBacktestRejectsEscapeScript(t *testing.T) {
	fr := &fakeRunner{}
	ws := newTestWorkspace(t)
	tool := NewRunBacktestTool(fr, "./backtest", time.Minute)

	_, err := tool.Execute(context.Background(), ws, map[string]interface{}{
		"script": "../../etc/passwd",
	})
	assert.Error(t, err)
	assert.Empty(t, fr.calls)
}

func TestBacktestRejectsNonStringArgs(t *testing.T) {
	fr := &fakeRunner{}
	ws := newTestWorkspace(t)
	tool := NewRunBacktestTool(fr, "./backtest", time.Minute)

	_, err := tool.Execute(context.Background(), ws, map[string]interface{}{
		"args": []interface{}{"ok", 42},
	})
	assert.ErrorContains(t, err, "args must be an array of strings")
}

func TestBacktestNonZeroExitIncludesStreams(t *testing.T) {
	fr := &fakeRunner{results: []*runner.Result{
		{ExitCode: 1, Stdout: "partial report", Stderr: "KeyError: 'close'"},
	}}
	ws := newTestWorkspace(t)
	tool := NewRunBacktestTool(fr, "./backtest", time.Minute)

	out, err := tool.Execute(context.Background(), ws, map[string]interface{}{})
	require.NoError(t, err)

	assert.Contains(t, out, "backtest exited with code 1")
	assert.Contains(t, out, "partial report")
	assert.Contains(t, out, "--- stderr ---")
	assert.Contains(t, out, "KeyError: 'close'")
}

func TestBacktestTimeout(t *testing.T) {
	fr := &fakeRunner{results: []*runner.Result{{TimedOut: true, Duration: 300000}}}
	ws := newTestWorkspace(t)
	tool := NewRunBacktestTool(fr, "./backtest", 5*time.Minute)

	_, err := tool.Execute(context.Background(), ws, map[string]interface{}{})
	assert.ErrorContains(t, err, "backtest timed out")
}

func TestBacktestNoOutput(t *testing.T) {
	fr := &fakeRunner{results: []*runner.Result{{}}}
	ws := newTestWorkspace(t)
	tool := NewRunBacktestTool(fr, "./backtest", time.Minute)

	out, err := tool.Execute(context.Background(), ws, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "backtest produced no output", out)
}
