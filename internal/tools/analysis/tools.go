package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoray/symposium/internal/llm"
	"github.com/jmoray/symposium/internal/workspace"
)

// Result caps keep tool output bounded on large trees.
const (
	findCap       = 50
	usagesCap     = 50
	graphEdgeCap  = 200
	deadCodeCap   = 50
	complexityCap = 20
)

func languageParam() map[string]llm.JSONProperty {
	return map[string]llm.JSONProperty{
		"language": {
			Type:        "string",
			Description: "Restrict analysis to one language (optional)",
			Enum:        []string{"go", "python"},
		},
	}
}

func filterLanguage(files []*FileAnalysis, params map[string]interface{}) []*FileAnalysis {
	lang, _ := params["language"].(string)
	if lang == "" {
		return files
	}
	var out []*FileAnalysis
	for _, f := range files {
		if f.Language == lang {
			out = append(out, f)
		}
	}
	return out
}

// nameMatches reports whether a function matches a queried name, which
// may be bare ("parse") or receiver-qualified ("Parser.parse").
func nameMatches(f *FunctionInfo, name string) bool {
	return f.Name == name || f.QualifiedName() == name
}

// callTargets reports whether a recorded call site refers to name;
// dotted calls match on their final segment ("s.parse" matches
// "parse").
func callTargets(call, name string) bool {
	return call == name || strings.HasSuffix(call, "."+name)
}

func signature(f *FunctionInfo) string {
	return fmt.Sprintf("%s(%s)", f.QualifiedName(), strings.Join(f.Params, ", "))
}

// FindFunctionTool locates function definitions by name
type FindFunctionTool struct {
	analyzer *Analyzer
}

func NewFindFunctionTool(a *Analyzer) *FindFunctionTool {
	return &FindFunctionTool{analyzer: a}
}

func (t *FindFunctionTool) Name() string {
	return "find_function"
}

func (t *FindFunctionTool) Description() string {
	return "Find where a function or method is defined in the workspace source tree. Accepts a bare name or Receiver.Name."
}

func (t *FindFunctionTool) Parameters() llm.JSONSchema {
	props := languageParam()
	props["name"] = llm.JSONProperty{
		Type:        "string",
		Description: "The function or method name to find",
	}
	return llm.JSONSchema{
		Type:       "object",
		Properties: props,
		Required:   []string{"name"},
	}
}

func (t *FindFunctionTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	name, ok := params["name"].(string)
	if !ok || name == "" {
		return "", fmt.Errorf("name parameter is required")
	}

	files, err := t.analyzer.Analyze(ctx, ws.Root)
	if err != nil {
		return "", err
	}
	files = filterLanguage(files, params)

	var lines []string
	for _, fa := range files {
		for i := range fa.Functions {
			f := &fa.Functions[i]
			if !nameMatches(f, name) {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s:%d  %s  complexity %d",
				fa.File, f.Line, signature(f), f.Complexity))
			if len(lines) >= findCap {
				lines = append(lines, fmt.Sprintf("... [capped at %d definitions]", findCap))
				return strings.Join(lines, "\n"), nil
			}
		}
	}
	if len(lines) == 0 {
		return fmt.Sprintf("No function named %s", name), nil
	}
	return strings.Join(lines, "\n"), nil
}

// FindClassTool locates class and type definitions by name
type FindClassTool struct {
	analyzer *Analyzer
}

func NewFindClassTool(a *Analyzer) *FindClassTool {
	return &FindClassTool{analyzer: a}
}

func (t *FindClassTool) Name() string {
	return "find_class"
}

func (t *FindClassTool) Description() string {
	return "Find where a class (Python) or named type (Go) is defined, with its bases and methods."
}

func (t *FindClassTool) Parameters() llm.JSONSchema {
	props := languageParam()
	props["name"] = llm.JSONProperty{
		Type:        "string",
		Description: "The class or type name to find",
	}
	return llm.JSONSchema{
		Type:       "object",
		Properties: props,
		Required:   []string{"name"},
	}
}

func (t *FindClassTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	name, ok := params["name"].(string)
	if !ok || name == "" {
		return "", fmt.Errorf("name parameter is required")
	}

	files, err := t.analyzer.Analyze(ctx, ws.Root)
	if err != nil {
		return "", err
	}
	files = filterLanguage(files, params)

	var lines []string
	for _, fa := range files {
		for _, c := range fa.Classes {
			if c.Name != name {
				continue
			}
			head := fmt.Sprintf("%s:%d  %s", fa.File, c.Line, c.Name)
			if len(c.Bases) > 0 {
				head += fmt.Sprintf(" (%s)", strings.Join(c.Bases, ", "))
			}
			lines = append(lines, head)
			if len(c.Methods) > 0 {
				lines = append(lines, "  methods: "+strings.Join(c.Methods, ", "))
			}
			if len(lines) >= findCap {
				lines = append(lines, fmt.Sprintf("... [capped at %d definitions]", findCap))
				return strings.Join(lines, "\n"), nil
			}
		}
	}
	if len(lines) == 0 {
		return fmt.Sprintf("No class named %s", name), nil
	}
	return strings.Join(lines, "\n"), nil
}

// FindUsagesTool locates call sites of a function
type FindUsagesTool struct {
	analyzer *Analyzer
}

func NewFindUsagesTool(a *Analyzer) *FindUsagesTool {
	return &FindUsagesTool{analyzer: a}
}

func (t *FindUsagesTool) Name() string {
	return "find_usages"
}

func (t *FindUsagesTool) Description() string {
	return "Find functions that call the named function or method anywhere in the workspace source tree."
}

func (t *FindUsagesTool) Parameters() llm.JSONSchema {
	props := languageParam()
	props["name"] = llm.JSONProperty{
		Type:        "string",
		Description: "The called function or method name",
	}
	return llm.JSONSchema{
		Type:       "object",
		Properties: props,
		Required:   []string{"name"},
	}
}

func (t *FindUsagesTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	name, ok := params["name"].(string)
	if !ok || name == "" {
		return "", fmt.Errorf("name parameter is required")
	}

	files, err := t.analyzer.Analyze(ctx, ws.Root)
	if err != nil {
		return "", err
	}
	files = filterLanguage(files, params)

	var lines []string
	capped := false
	for _, fa := range files {
		for i := range fa.Functions {
			f := &fa.Functions[i]
			for _, call := range f.Calls {
				if !callTargets(call, name) {
					continue
				}
				lines = append(lines, fmt.Sprintf("%s:%d  %s calls %s",
					fa.File, f.Line, f.QualifiedName(), call))
				if len(lines) >= usagesCap {
					capped = true
				}
				break
			}
			if capped {
				break
			}
		}
		if capped {
			break
		}
	}
	if len(lines) == 0 {
		return fmt.Sprintf("No usages of %s", name), nil
	}
	out := fmt.Sprintf("Found %d callers of %s\n%s", len(lines), name, strings.Join(lines, "\n"))
	if capped {
		out += fmt.Sprintf("\n... [capped at %d usages]", usagesCap)
	}
	return out, nil
}

// CallGraphTool renders caller -> callee edges
type CallGraphTool struct {
	analyzer *Analyzer
}

func NewCallGraphTool(a *Analyzer) *CallGraphTool {
	return &CallGraphTool{analyzer: a}
}

func (t *CallGraphTool) Name() string {
	return "call_graph"
}

func (t *CallGraphTool) Description() string {
	return "Show caller -> callee edges between functions defined in the workspace. Optionally rooted at one function."
}

func (t *CallGraphTool) Parameters() llm.JSONSchema {
	props := languageParam()
	props["function"] = llm.JSONProperty{
		Type:        "string",
		Description: "Root the graph at this function and show only edges reachable from it (optional)",
	}
	return llm.JSONSchema{
		Type:       "object",
		Properties: props,
		Required:   []string{},
	}
}

func (t *CallGraphTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	files, err := t.analyzer.Analyze(ctx, ws.Root)
	if err != nil {
		return "", err
	}
	files = filterLanguage(files, params)

	// Index every defined function by bare name so call sites can be
	// resolved back to in-tree definitions.
	defined := map[string][]*FunctionInfo{}
	for _, fa := range files {
		for i := range fa.Functions {
			f := &fa.Functions[i]
			defined[f.Name] = append(defined[f.Name], f)
		}
	}

	edgesFrom := map[string][]string{}
	var order []string
	seen := map[string]bool{}
	addEdge := func(caller, callee string) {
		key := caller + " -> " + callee
		if seen[key] {
			return
		}
		seen[key] = true
		edgesFrom[caller] = append(edgesFrom[caller], callee)
		order = append(order, key)
	}

	for _, fa := range files {
		for i := range fa.Functions {
			f := &fa.Functions[i]
			for _, call := range f.Calls {
				base := call
				if idx := strings.LastIndexByte(call, '.'); idx >= 0 {
					base = call[idx+1:]
				}
				for _, target := range defined[base] {
					addEdge(f.QualifiedName(), target.QualifiedName())
				}
			}
		}
	}

	root, _ := params["function"].(string)
	var lines []string
	if root == "" {
		lines = order
	} else {
		// BFS over resolved edges from the requested root.
		queue := []string{}
		visited := map[string]bool{}
		for _, fa := range files {
			for i := range fa.Functions {
				f := &fa.Functions[i]
				if nameMatches(f, root) && !visited[f.QualifiedName()] {
					visited[f.QualifiedName()] = true
					queue = append(queue, f.QualifiedName())
				}
			}
		}
		if len(queue) == 0 {
			return fmt.Sprintf("No function named %s", root), nil
		}
		for len(queue) > 0 {
			caller := queue[0]
			queue = queue[1:]
			for _, callee := range edgesFrom[caller] {
				lines = append(lines, caller+" -> "+callee)
				if !visited[callee] {
					visited[callee] = true
					queue = append(queue, callee)
				}
			}
		}
	}

	if len(lines) == 0 {
		return "No call edges found", nil
	}
	if len(lines) > graphEdgeCap {
		lines = append(lines[:graphEdgeCap], fmt.Sprintf("... [capped at %d edges]", graphEdgeCap))
	}
	return strings.Join(lines, "\n"), nil
}

// ImportTreeTool lists imports per file
type ImportTreeTool struct {
	analyzer *Analyzer
}

func NewImportTreeTool(a *Analyzer) *ImportTreeTool {
	return &ImportTreeTool{analyzer: a}
}

func (t *ImportTreeTool) Name() string {
	return "import_tree"
}

func (t *ImportTreeTool) Description() string {
	return "Show the imports of every source file in the workspace, plus the most frequently imported modules."
}

func (t *ImportTreeTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type:       "object",
		Properties: languageParam(),
		Required:   []string{},
	}
}

func (t *ImportTreeTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	files, err := t.analyzer.Analyze(ctx, ws.Root)
	if err != nil {
		return "", err
	}
	files = filterLanguage(files, params)
	if len(files) == 0 {
		return "No source files found", nil
	}

	counts := map[string]int{}
	var sb strings.Builder
	for _, fa := range files {
		if len(fa.Imports) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s:\n", fa.File)
		for _, imp := range fa.Imports {
			fmt.Fprintf(&sb, "  %s\n", imp)
			counts[imp]++
		}
	}

	type freq struct {
		name string
		n    int
	}
	var freqs []freq
	for name, n := range counts {
		if n > 1 {
			freqs = append(freqs, freq{name, n})
		}
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].n != freqs[j].n {
			return freqs[i].n > freqs[j].n
		}
		return freqs[i].name < freqs[j].name
	})
	if len(freqs) > 0 {
		sb.WriteString("\nmost imported:\n")
		if len(freqs) > 10 {
			freqs = freqs[:10]
		}
		for _, f := range freqs {
			fmt.Fprintf(&sb, "  %s (%d files)\n", f.name, f.n)
		}
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}

// DeadCodeTool reports functions with no in-tree callers
type DeadCodeTool struct {
	analyzer *Analyzer
}

func NewDeadCodeTool(a *Analyzer) *DeadCodeTool {
	return &DeadCodeTool{analyzer: a}
}

func (t *DeadCodeTool) Name() string {
	return "dead_code"
}

func (t *DeadCodeTool) Description() string {
	return "List functions that are never called anywhere in the workspace source tree. Entry points, test functions, and dunder methods are excluded. Static analysis only: dynamic dispatch and external callers are invisible, so treat results as candidates."
}

func (t *DeadCodeTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type:       "object",
		Properties: languageParam(),
		Required:   []string{},
	}
}

// neverDead are entry points and lifecycle names with out-of-tree callers.
var neverDead = []string{"main", "init", "TestMain"}

var deadCodeExemptPrefixes = []string{"Test", "Benchmark", "Example", "Fuzz"}

func exemptFromDeadCode(f *FunctionInfo) bool {
	for _, n := range neverDead {
		if f.Name == n {
			return true
		}
	}
	for _, p := range deadCodeExemptPrefixes {
		if strings.HasPrefix(f.Name, p) {
			return true
		}
	}
	// Python dunders are invoked by the runtime.
	if strings.HasPrefix(f.Name, "__") && strings.HasSuffix(f.Name, "__") {
		return true
	}
	return false
}

func (t *DeadCodeTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	files, err := t.analyzer.Analyze(ctx, ws.Root)
	if err != nil {
		return "", err
	}
	files = filterLanguage(files, params)

	// Every name that appears as a call target, bare or as the final
	// segment of a dotted call.
	called := map[string]bool{}
	for _, fa := range files {
		for i := range fa.Functions {
			for _, call := range fa.Functions[i].Calls {
				called[call] = true
				if idx := strings.LastIndexByte(call, '.'); idx >= 0 {
					called[call[idx+1:]] = true
				}
			}
		}
	}

	var lines []string
	capped := false
	for _, fa := range files {
		for i := range fa.Functions {
			f := &fa.Functions[i]
			if exemptFromDeadCode(f) || called[f.Name] || called[f.QualifiedName()] {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s:%d  %s", fa.File, f.Line, signature(f)))
			if len(lines) >= deadCodeCap {
				capped = true
				break
			}
		}
		if capped {
			break
		}
	}

	if len(lines) == 0 {
		return "No uncalled functions found", nil
	}
	out := fmt.Sprintf("Found %d uncalled functions\n%s", len(lines), strings.Join(lines, "\n"))
	if capped {
		out += fmt.Sprintf("\n... [capped at %d functions]", deadCodeCap)
	}
	return out, nil
}

// ComplexityTool ranks functions by cyclomatic complexity
type ComplexityTool struct {
	analyzer *Analyzer
}

func NewComplexityTool(a *Analyzer) *ComplexityTool {
	return &ComplexityTool{analyzer: a}
}

func (t *ComplexityTool) Name() string {
	return "complexity"
}

func (t *ComplexityTool) Description() string {
	return "Rank workspace functions by cyclomatic complexity, most complex first."
}

func (t *ComplexityTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type:       "object",
		Properties: languageParam(),
		Required:   []string{},
	}
}

func (t *ComplexityTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	files, err := t.analyzer.Analyze(ctx, ws.Root)
	if err != nil {
		return "", err
	}
	files = filterLanguage(files, params)

	type ranked struct {
		file string
		fn   *FunctionInfo
	}
	var all []ranked
	for _, fa := range files {
		for i := range fa.Functions {
			all = append(all, ranked{fa.File, &fa.Functions[i]})
		}
	}
	if len(all) == 0 {
		return "No functions found", nil
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].fn.Complexity != all[j].fn.Complexity {
			return all[i].fn.Complexity > all[j].fn.Complexity
		}
		if all[i].file != all[j].file {
			return all[i].file < all[j].file
		}
		return all[i].fn.Line < all[j].fn.Line
	})
	if len(all) > complexityCap {
		all = all[:complexityCap]
	}

	var lines []string
	for _, r := range all {
		lines = append(lines, fmt.Sprintf("%3d  %s:%d  %s",
			r.fn.Complexity, r.file, r.fn.Line, r.fn.QualifiedName()))
	}
	return strings.Join(lines, "\n"), nil
}

// CodeStatsTool summarizes the workspace source tree
type CodeStatsTool struct {
	analyzer *Analyzer
}

func NewCodeStatsTool(a *Analyzer) *CodeStatsTool {
	return &CodeStatsTool{analyzer: a}
}

func (t *CodeStatsTool) Name() string {
	return "code_stats"
}

func (t *CodeStatsTool) Description() string {
	return "Summarize the workspace source tree: files, lines, functions, classes, and complexity per language."
}

func (t *CodeStatsTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type:       "object",
		Properties: languageParam(),
		Required:   []string{},
	}
}

func (t *CodeStatsTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	files, err := t.analyzer.Analyze(ctx, ws.Root)
	if err != nil {
		return "", err
	}
	files = filterLanguage(files, params)
	if len(files) == 0 {
		return "No source files found", nil
	}

	type langStats struct {
		files, lines, functions, classes int
	}
	byLang := map[string]*langStats{}
	imports := map[string]bool{}
	totalComplexity := 0
	totalFunctions := 0
	maxComplexity := 0
	maxName := ""

	for _, fa := range files {
		ls := byLang[fa.Language]
		if ls == nil {
			ls = &langStats{}
			byLang[fa.Language] = ls
		}
		ls.files++
		ls.lines += fa.Lines
		ls.functions += len(fa.Functions)
		ls.classes += len(fa.Classes)
		for _, imp := range fa.Imports {
			imports[imp] = true
		}
		for i := range fa.Functions {
			f := &fa.Functions[i]
			totalComplexity += f.Complexity
			totalFunctions++
			if f.Complexity > maxComplexity {
				maxComplexity = f.Complexity
				maxName = fmt.Sprintf("%s (%s:%d)", f.QualifiedName(), fa.File, f.Line)
			}
		}
	}

	langs := make([]string, 0, len(byLang))
	for l := range byLang {
		langs = append(langs, l)
	}
	sort.Strings(langs)

	var sb strings.Builder
	for _, l := range langs {
		ls := byLang[l]
		fmt.Fprintf(&sb, "%s: %d files, %d lines, %d functions, %d classes\n",
			l, ls.files, ls.lines, ls.functions, ls.classes)
	}
	fmt.Fprintf(&sb, "distinct imports: %d\n", len(imports))
	if totalFunctions > 0 {
		fmt.Fprintf(&sb, "average complexity: %.1f\n", float64(totalComplexity)/float64(totalFunctions))
		fmt.Fprintf(&sb, "most complex: %s at %d\n", maxName, maxComplexity)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
