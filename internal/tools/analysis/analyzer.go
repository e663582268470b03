package analysis

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoray/symposium/internal/runner"
)

// Runner abstracts subprocess execution for the Python bridge.
type Runner interface {
	Run(ctx context.Context, dir string, argv ...string) (*runner.Result, error)
}

// skipDirs are never descended into during analysis walks.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"__pycache__":  true,
	".cache":       true,
	"dist":         true,
	"build":        true,
	".next":        true,
	".trash":       true,
	".backups":     true,
}

// Analyzer parses the source tree of a workspace. Go files are parsed
// in-process; Python files go through a generated script executed by
// the runner.
type Analyzer struct {
	runner    Runner
	pythonBin string
}

// NewAnalyzer creates a new analyzer. pythonBin defaults to "python3".
func NewAnalyzer(r Runner, pythonBin string) *Analyzer {
	if pythonBin == "" {
		pythonBin = "python3"
	}
	return &Analyzer{
		runner:    r,
		pythonBin: pythonBin,
	}
}

// Analyze parses every recognized source file under root and returns
// one FileAnalysis per parsable file, sorted by path. Unparsable files
// are skipped, never fatal.
func (a *Analyzer) Analyze(ctx context.Context, root string) ([]*FileAnalysis, error) {
	var files []*FileAnalysis

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".go") {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		fa, parseErr := analyzeGoFile(path, rel)
		if parseErr != nil {
			return nil // unparsable, skip
		}
		files = append(files, fa)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	files = append(files, a.analyzePython(ctx, root)...)

	sort.Slice(files, func(i, j int) bool {
		return files[i].File < files[j].File
	})
	return files, nil
}
