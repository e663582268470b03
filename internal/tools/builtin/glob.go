package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jmoray/symposium/internal/llm"
	"github.com/jmoray/symposium/internal/workspace"
)

// Default directories to skip during tree walks
var defaultSkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"__pycache__":  true,
	".cache":       true,
	"dist":         true,
	"build":        true,
	".next":        true,
}

// GlobTool finds files matching glob patterns
type GlobTool struct{}

// NewGlobTool creates a new glob tool
func NewGlobTool() *GlobTool { return &GlobTool{} }

func (t *GlobTool) Name() string {
	return "glob"
}

func (t *GlobTool) Description() string {
	return "Fast file pattern matching tool that finds files by name patterns. Supports glob patterns like '**/*.py', 'src/**/*.go', '*.md'. Returns matching file paths sorted by modification time (newest first)."
}

func (t *GlobTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONProperty{
			"pattern": {
				Type:        "string",
				Description: "The glob pattern to match files against (e.g., '**/*.py', 'strategies/**/*.yaml', '*.md')",
			},
			"path": {
				Type:        "string",
				Description: "The directory to search in (optional, defaults to workspace root). Must be a relative path.",
			},
		},
		Required: []string{"pattern"},
	}
}

// fileMatch is one matched file with metadata
type fileMatch struct {
	path     string
	size     int64
	modified int64
}

func (t *GlobTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	pattern, ok := params["pattern"].(string)
	if !ok || pattern == "" {
		return "", fmt.Errorf("pattern parameter is required")
	}

	searchDir := ws.Root
	if pathParam, ok := params["path"].(string); ok && pathParam != "" {
		resolved, err := ws.Resolve(pathParam)
		if err != nil {
			return "", err
		}
		info, err := os.Stat(resolved)
		if err != nil {
			return "", fmt.Errorf("path does not exist: %s", pathParam)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("path is not a directory: %s", pathParam)
		}
		searchDir = resolved
	}

	matches, err := findMatches(searchDir, ws.Root, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to search for files: %w", err)
	}

	// Sort by modification time (newest first)
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].modified > matches[j].modified
	})

	// Limit results
	const maxResults = 10000
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}

	if len(matches) == 0 {
		return fmt.Sprintf("No files match %s", pattern), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d files\n", len(matches))
	for _, m := range matches {
		fmt.Fprintf(&b, "%s (%d bytes)\n", m.path, m.size)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func findMatches(searchDir, root, pattern string) ([]fileMatch, error) {
	var matches []fileMatch

	// Use doublestar for ** pattern support
	err := filepath.WalkDir(searchDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors and continue
		}

		// Skip hidden directories and common large directories
		if d.IsDir() {
			name := d.Name()
			if path != searchDir && (strings.HasPrefix(name, ".") || defaultSkipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}

		// Get relative path from search directory
		relPath, err := filepath.Rel(searchDir, path)
		if err != nil {
			return nil
		}

		// Check if file matches pattern
		matched, err := doublestar.Match(pattern, relPath)
		if err != nil {
			return nil
		}

		// Also try matching just the filename for simple patterns
		if !matched {
			matched, _ = doublestar.Match(pattern, d.Name())
		}

		if matched {
			info, err := d.Info()
			if err != nil {
				return nil
			}

			// Get path relative to workspace root
			rootRelPath, _ := filepath.Rel(root, path)

			matches = append(matches, fileMatch{
				path:     rootRelPath,
				size:     info.Size(),
				modified: info.ModTime().Unix(),
			})
		}

		return nil
	})

	return matches, err
}
