package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
)

// pythonAnalyzerScript is written to a temporary file and executed with
// the configured interpreter. It walks the tree itself and emits one
// JSON array of FileAnalysis objects on stdout. Files that fail to
// parse are skipped inside the script.
const pythonAnalyzerScript = `import ast
import json
import os
import sys

SKIP_DIRS = {".git", "node_modules", "vendor", ".venv", "__pycache__",
             ".cache", "dist", "build", ".next", ".trash", ".backups"}


def call_name(func):
    if isinstance(func, ast.Name):
        return func.id
    if isinstance(func, ast.Attribute):
        base = call_name(func.value)
        if base:
            return base + "." + func.attr
        return func.attr
    return None


def collect_calls(node):
    calls = []
    for child in ast.walk(node):
        if isinstance(child, ast.Call):
            name = call_name(child.func)
            if name and name not in calls:
                calls.append(name)
    return calls


def complexity(node):
    score = 1
    for child in ast.walk(node):
        if isinstance(child, (ast.If, ast.For, ast.AsyncFor, ast.While,
                              ast.ExceptHandler, ast.IfExp)):
            score += 1
        elif isinstance(child, ast.BoolOp):
            score += len(child.values) - 1
    return score


def param_names(args):
    names = [a.arg for a in args.posonlyargs + args.args + args.kwonlyargs]
    if args.vararg:
        names.append("*" + args.vararg.arg)
    if args.kwarg:
        names.append("**" + args.kwarg.arg)
    return names


def function_info(node, receiver=""):
    return {
        "name": node.name,
        "line": node.lineno,
        "end_line": getattr(node, "end_lineno", node.lineno),
        "receiver": receiver,
        "params": param_names(node.args),
        "calls": collect_calls(node),
        "complexity": complexity(node),
    }


def analyze_file(path, rel):
    try:
        with open(path, "r", encoding="utf-8", errors="replace") as f:
            source = f.read()
        tree = ast.parse(source)
    except (SyntaxError, ValueError):
        return None

    imports = []
    functions = []
    classes = []

    for node in tree.body:
        if isinstance(node, ast.Import):
            imports.extend(a.name for a in node.names)
        elif isinstance(node, ast.ImportFrom):
            imports.append(node.module or ".")
        elif isinstance(node, (ast.FunctionDef, ast.AsyncFunctionDef)):
            functions.append(function_info(node))
        elif isinstance(node, ast.ClassDef):
            methods = []
            for item in node.body:
                if isinstance(item, (ast.FunctionDef, ast.AsyncFunctionDef)):
                    methods.append(item.name)
                    functions.append(function_info(item, receiver=node.name))
            classes.append({
                "name": node.name,
                "line": node.lineno,
                "bases": [b for b in (call_name(x) for x in node.bases) if b],
                "methods": methods,
            })

    return {
        "file": rel,
        "language": "python",
        "lines": source.count("\n") + 1,
        "imports": imports,
        "functions": functions,
        "classes": classes,
    }


def main():
    root = sys.argv[1]
    out = []
    for dirpath, dirnames, filenames in os.walk(root):
        dirnames[:] = sorted(d for d in dirnames
                             if d not in SKIP_DIRS and not d.startswith("."))
        for fn in sorted(filenames):
            if not fn.endswith(".py"):
                continue
            full = os.path.join(dirpath, fn)
            info = analyze_file(full, os.path.relpath(full, root))
            if info is not None:
                out.append(info)
    json.dump(out, sys.stdout)


main()
`

// analyzePython generates the analyzer script into a temp file and
// runs it once against root. A missing or broken interpreter is not
// fatal: Python files are simply absent from the result.
func (a *Analyzer) analyzePython(ctx context.Context, root string) []*FileAnalysis {
	script, err := os.CreateTemp("", "symposium-pyast-*.py")
	if err != nil {
		log.Printf("python analysis skipped: %v", err)
		return nil
	}
	defer os.Remove(script.Name())

	if _, err := script.WriteString(pythonAnalyzerScript); err != nil {
		script.Close()
		log.Printf("python analysis skipped: %v", err)
		return nil
	}
	if err := script.Close(); err != nil {
		log.Printf("python analysis skipped: %v", err)
		return nil
	}

	res, err := a.runner.Run(ctx, root, a.pythonBin, script.Name(), root)
	if err != nil {
		log.Printf("python analysis skipped: %v", err)
		return nil
	}
	if res.TimedOut {
		log.Printf("python analysis skipped: interpreter timed out")
		return nil
	}
	if res.ExitCode != 0 {
		log.Printf("python analysis skipped: interpreter exited %d: %s",
			res.ExitCode, strings.TrimSpace(res.Stderr))
		return nil
	}

	var files []*FileAnalysis
	if err := json.Unmarshal([]byte(res.Stdout), &files); err != nil {
		log.Printf("python analysis skipped: %v", fmt.Errorf("failed to parse analyzer output: %w", err))
		return nil
	}
	return files
}
