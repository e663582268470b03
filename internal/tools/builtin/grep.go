package builtin

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jmoray/symposium/internal/llm"
	"github.com/jmoray/symposium/internal/workspace"
)

const grepDefaultMaxResults = 100

// GrepTool searches file contents with a regular expression
type GrepTool struct{}

// NewGrepTool creates a new grep tool
func NewGrepTool() *GrepTool { return &GrepTool{} }

func (t *GrepTool) Name() string {
	return "grep"
}

func (t *GrepTool) Description() string {
	return "Search file contents with a regular expression. Returns matching lines as 'path:line: text'. Binary files and common dependency directories are skipped."
}

func (t *GrepTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONProperty{
			"pattern": {
				Type:        "string",
				Description: "The regular expression to search for",
			},
			"path": {
				Type:        "string",
				Description: "The directory or file to search in (optional, defaults to workspace root)",
			},
			"include": {
				Type:        "string",
				Description: "Glob pattern filtering which files are searched (e.g., '*.py', '**/*.go')",
			},
			"max_results": {
				Type:        "number",
				Description: "Maximum number of matching lines to return (default 100)",
			},
		},
		Required: []string{"pattern"},
	}
}

func (t *GrepTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	pattern, ok := params["pattern"].(string)
	if !ok || pattern == "" {
		return "", fmt.Errorf("pattern parameter is required")
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	maxResults := grepDefaultMaxResults
	if m, ok := params["max_results"].(float64); ok && m > 0 {
		maxResults = int(m)
	}

	include, _ := params["include"].(string)

	searchDir := ws.Root
	if pathParam, ok := params["path"].(string); ok && pathParam != "" {
		resolved, err := ws.Resolve(pathParam)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(resolved); err != nil {
			return "", fmt.Errorf("path does not exist: %s", pathParam)
		}
		searchDir = resolved
	}

	var b strings.Builder
	matched := 0
	truncated := false

	err = filepath.WalkDir(searchDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if matched >= maxResults {
			truncated = true
			return filepath.SkipAll
		}

		if d.IsDir() {
			name := d.Name()
			if path != searchDir && (strings.HasPrefix(name, ".") || defaultSkipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, relErr := filepath.Rel(ws.Root, path)
		if relErr != nil {
			return nil
		}

		if include != "" {
			ok, _ := doublestar.Match(include, relPath)
			if !ok {
				ok, _ = doublestar.Match(include, d.Name())
			}
			if !ok {
				return nil
			}
		}

		matched += grepFile(&b, re, path, relPath, maxResults-matched)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to search: %w", err)
	}

	if matched == 0 {
		return fmt.Sprintf("No matches for %s", pattern), nil
	}

	out := fmt.Sprintf("Found %d matches\n%s", matched, strings.TrimRight(b.String(), "\n"))
	if truncated {
		out += fmt.Sprintf("\n... [capped at %d matches]", maxResults)
	}
	return out, nil
}

// grepFile scans one file and appends up to limit matching lines,
// returning how many it found. Binary files are skipped.
func grepFile(b *strings.Builder, re *regexp.Regexp, path, relPath string, limit int) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	if bytes.IndexByte(head[:n], 0) >= 0 {
		return 0
	}
	if _, err := f.Seek(0, 0); err != nil {
		return 0
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	found := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if re.MatchString(line) {
			fmt.Fprintf(b, "%s:%d: %s\n", relPath, lineNo, strings.TrimSpace(line))
			found++
			if found >= limit {
				break
			}
		}
	}
	return found
}
