package builtin

import (
	"time"

	"github.com/jmoray/symposium/internal/tools"
	"github.com/jmoray/symposium/internal/tools/analysis"
)

// Deps carries the shared services the built-in tools depend on.
type Deps struct {
	Runner          CommandRunner
	Analyzer        *analysis.Analyzer
	BacktestCommand string
	BacktestTimeout time.Duration
}

// RegisterAll registers the full tool catalog in its canonical order.
// The catalog is static: it is assembled once at process start and
// never changes afterwards.
func RegisterAll(reg *tools.Registry, deps Deps) error {
	catalog := []tools.Tool{
		// file
		NewReadFileTool(),
		NewWriteFileTool(),
		NewAppendFileTool(),
		NewEditFileTool(),
		NewDeleteFileTool(),
		NewRenameFileTool(),
		NewCopyFileTool(),
		NewListDirTool(),
		NewCreateDirTool(),

		// search
		NewGlobTool(),
		NewGrepTool(),

		// version control
		NewGitStatusTool(deps.Runner),
		NewGitDiffTool(deps.Runner),
		NewGitLogTool(deps.Runner),
		NewGitCommitTool(deps.Runner),

		// code analysis
		analysis.NewFindFunctionTool(deps.Analyzer),
		analysis.NewFindClassTool(deps.Analyzer),
		analysis.NewFindUsagesTool(deps.Analyzer),
		analysis.NewCallGraphTool(deps.Analyzer),
		analysis.NewImportTreeTool(deps.Analyzer),
		analysis.NewDeadCodeTool(deps.Analyzer),
		analysis.NewComplexityTool(deps.Analyzer),
		analysis.NewCodeStatsTool(deps.Analyzer),

		// research
		NewWebFetchTool(),

		// backtest
		NewRunBacktestTool(deps.Runner, deps.BacktestCommand, deps.BacktestTimeout),
	}

	for _, t := range catalog {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}
