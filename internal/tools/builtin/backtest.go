package builtin

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoray/symposium/internal/llm"
	"github.com/jmoray/symposium/internal/workspace"
)

// RunBacktestTool bridges to a configured backtest engine. The engine
// is a black box: whatever command the operator configured is executed
// inside the workspace root and its report is returned verbatim.
type RunBacktestTool struct {
	runner  CommandRunner
	command string
	timeout time.Duration
}

// NewRunBacktestTool creates a new backtest tool. command is the
// configured engine invocation ("python3 engine.py", "./backtest");
// empty means no engine is installed.
func NewRunBacktestTool(r CommandRunner, command string, timeout time.Duration) *RunBacktestTool {
	return &RunBacktestTool{
		runner:  r,
		command: command,
		timeout: timeout,
	}
}

func (t *RunBacktestTool) Name() string {
	return "run_backtest"
}

func (t *RunBacktestTool) Description() string {
	return "Run the configured backtest engine inside the workspace, optionally against a strategy script, and return its report."
}

func (t *RunBacktestTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONProperty{
			"script": {
				Type:        "string",
				Description: "Relative path to the strategy script to hand to the engine (optional)",
			},
			"args": {
				Type:        "array",
				Description: "Extra arguments passed to the engine verbatim (optional)",
				Items:       &llm.JSONProperty{Type: "string"},
			},
		},
		Required: []string{},
	}
}

func (t *RunBacktestTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	if t.command == "" {
		return "", fmt.Errorf("backtest engine not configured (set BACKTEST_COMMAND)")
	}

	argv := strings.Fields(t.command)

	if script, ok := params["script"].(string); ok && script != "" {
		resolved, err := ws.Resolve(script)
		if err != nil {
			return "", err
		}
		rel, err := filepath.Rel(ws.Root, resolved)
		if err != nil {
			return "", fmt.Errorf("failed to resolve script path: %w", err)
		}
		argv = append(argv, rel)
	}

	if raw, ok := params["args"].([]interface{}); ok {
		for _, a := range raw {
			s, ok := a.(string)
			if !ok {
				return "", fmt.Errorf("args must be an array of strings")
			}
			argv = append(argv, s)
		}
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	res, err := t.runner.Run(ctx, ws.Root, argv...)
	if err != nil {
		return "", err
	}
	if res.TimedOut {
		return "", fmt.Errorf("backtest timed out after %dms", res.Duration)
	}

	var sb strings.Builder
	if res.ExitCode != 0 {
		fmt.Fprintf(&sb, "backtest exited with code %d\n", res.ExitCode)
	}
	if out := strings.TrimSpace(res.Stdout); out != "" {
		sb.WriteString(out)
		sb.WriteString("\n")
	}
	if errOut := strings.TrimSpace(res.Stderr); errOut != "" {
		sb.WriteString("--- stderr ---\n")
		sb.WriteString(errOut)
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return "backtest produced no output", nil
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
