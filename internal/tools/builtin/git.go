package builtin

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jmoray/symposium/internal/llm"
	"github.com/jmoray/symposium/internal/runner"
	"github.com/jmoray/symposium/internal/workspace"
)

// CommandRunner executes one subprocess; satisfied by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, dir string, argv ...string) (*runner.Result, error)
}

// gitOutput normalizes one finished git invocation into tool text.
func gitOutput(res *runner.Result) (string, error) {
	if res.TimedOut {
		return "", fmt.Errorf("git timed out after %dms", res.Duration)
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(res.Stdout)
		}
		return "", fmt.Errorf("git exited %d: %s", res.ExitCode, msg)
	}
	return strings.TrimRight(res.Stdout, "\n"), nil
}

// GitStatusTool reports the working tree status
type GitStatusTool struct {
	runner CommandRunner
}

// NewGitStatusTool creates a new git status tool
func NewGitStatusTool(r CommandRunner) *GitStatusTool {
	return &GitStatusTool{runner: r}
}

func (t *GitStatusTool) Name() string {
	return "git_status"
}

func (t *GitStatusTool) Description() string {
	return "Show the git working tree status of the workspace: current branch plus changed, staged, and untracked files."
}

func (t *GitStatusTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type:       "object",
		Properties: map[string]llm.JSONProperty{},
		Required:   []string{},
	}
}

func (t *GitStatusTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	res, err := t.runner.Run(ctx, ws.Root, "git", "status", "--porcelain=v1", "-b")
	if err != nil {
		return "", err
	}

	out, err := gitOutput(res)
	if err != nil {
		return "", err
	}

	lines := strings.Split(out, "\n")
	if len(lines) == 1 {
		return out + "\nworking tree clean", nil
	}
	return out, nil
}

// GitDiffTool shows pending changes
type GitDiffTool struct {
	runner CommandRunner
}

// NewGitDiffTool creates a new git diff tool
func NewGitDiffTool(r CommandRunner) *GitDiffTool {
	return &GitDiffTool{runner: r}
}

func (t *GitDiffTool) Name() string {
	return "git_diff"
}

func (t *GitDiffTool) Description() string {
	return "Show the git diff of the workspace. Optionally restricted to one path, optionally of the staged index instead of the working tree."
}

func (t *GitDiffTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONProperty{
			"path": {
				Type:        "string",
				Description: "Restrict the diff to this relative path (optional)",
			},
			"staged": {
				Type:        "boolean",
				Description: "Diff the staged index instead of the working tree (default false)",
			},
		},
		Required: []string{},
	}
}

func (t *GitDiffTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	argv := []string{"git", "diff"}
	if staged, _ := params["staged"].(bool); staged {
		argv = append(argv, "--staged")
	}

	if path, ok := params["path"].(string); ok && path != "" {
		resolved, err := ws.Resolve(path)
		if err != nil {
			return "", err
		}
		rel, err := filepath.Rel(ws.Root, resolved)
		if err != nil {
			return "", fmt.Errorf("failed to resolve path: %w", err)
		}
		argv = append(argv, "--", rel)
	}

	res, err := t.runner.Run(ctx, ws.Root, argv...)
	if err != nil {
		return "", err
	}

	out, err := gitOutput(res)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "no changes", nil
	}
	return out, nil
}

// GitLogTool shows recent commits
type GitLogTool struct {
	runner CommandRunner
}

// NewGitLogTool creates a new git log tool
func NewGitLogTool(r CommandRunner) *GitLogTool {
	return &GitLogTool{runner: r}
}

func (t *GitLogTool) Name() string {
	return "git_log"
}

func (t *GitLogTool) Description() string {
	return "Show recent commits in the workspace repository, one line per commit."
}

func (t *GitLogTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONProperty{
			"limit": {
				Type:        "number",
				Description: "Maximum number of commits to show (default 10)",
			},
		},
		Required: []string{},
	}
}

func (t *GitLogTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	limit := 10
	if l, ok := params["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	res, err := t.runner.Run(ctx, ws.Root, "git", "log", "--oneline", "-n", fmt.Sprintf("%d", limit))
	if err != nil {
		return "", err
	}

	return gitOutput(res)
}

// GitCommitTool stages and commits workspace changes
type GitCommitTool struct {
	runner CommandRunner
}

// NewGitCommitTool creates a new git commit tool
func NewGitCommitTool(r CommandRunner) *GitCommitTool {
	return &GitCommitTool{runner: r}
}

func (t *GitCommitTool) Name() string {
	return "git_commit"
}

func (t *GitCommitTool) Description() string {
	return "Commit workspace changes with a message. By default all pending changes are staged first."
}

func (t *GitCommitTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONProperty{
			"message": {
				Type:        "string",
				Description: "The commit message",
			},
			"add_all": {
				Type:        "boolean",
				Description: "Stage all pending changes before committing (default true)",
			},
		},
		Required: []string{"message"},
	}
}

func (t *GitCommitTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	message, ok := params["message"].(string)
	if !ok || message == "" {
		return "", fmt.Errorf("message parameter is required")
	}

	addAll := true
	if v, ok := params["add_all"].(bool); ok {
		addAll = v
	}

	if addAll {
		res, err := t.runner.Run(ctx, ws.Root, "git", "add", "-A")
		if err != nil {
			return "", err
		}
		if _, err := gitOutput(res); err != nil {
			return "", err
		}
	}

	res, err := t.runner.Run(ctx, ws.Root, "git", "commit", "-m", message)
	if err != nil {
		return "", err
	}

	return gitOutput(res)
}

func (t *GitCommitTool) AuditEntry(params map[string]interface{}) (string, string) {
	return "git_commit", "."
}
