package analysis

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strconv"
	"strings"
)

// analyzeGoFile parses one Go source file in-process. A file that does
// not parse returns an error; callers skip it rather than failing the
// whole analysis.
func analyzeGoFile(path, rel string) (*FileAnalysis, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return nil, err
	}

	fa := &FileAnalysis{
		File:      rel,
		Language:  "go",
		Lines:     fset.Position(file.End()).Line,
		Imports:   []string{},
		Functions: []FunctionInfo{},
		Classes:   []ClassInfo{},
	}

	for _, imp := range file.Imports {
		if p, err := strconv.Unquote(imp.Path.Value); err == nil {
			fa.Imports = append(fa.Imports, p)
		}
	}

	// Named types first, so methods can attach to them below.
	classIndex := map[string]int{}
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			ci := ClassInfo{
				Name:    ts.Name.Name,
				Line:    fset.Position(ts.Pos()).Line,
				Methods: []string{},
			}
			switch t := ts.Type.(type) {
			case *ast.StructType:
				ci.Bases = embeddedNames(t.Fields)
			case *ast.InterfaceType:
				ci.Bases = embeddedNames(t.Methods)
			default:
				continue
			}
			classIndex[ci.Name] = len(fa.Classes)
			fa.Classes = append(fa.Classes, ci)
		}
	}

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		info := FunctionInfo{
			Name:       fn.Name.Name,
			Line:       fset.Position(fn.Pos()).Line,
			EndLine:    fset.Position(fn.End()).Line,
			Params:     paramNames(fn.Type.Params),
			Calls:      callNames(fn.Body),
			Complexity: goComplexity(fn.Body),
		}
		if fn.Recv != nil && len(fn.Recv.List) > 0 {
			info.Receiver = receiverName(fn.Recv.List[0].Type)
			if idx, ok := classIndex[info.Receiver]; ok {
				fa.Classes[idx].Methods = append(fa.Classes[idx].Methods, fn.Name.Name)
			}
		}
		fa.Functions = append(fa.Functions, info)
	}

	return fa, nil
}

// embeddedNames collects embedded field/interface names as base types.
func embeddedNames(fields *ast.FieldList) []string {
	if fields == nil {
		return nil
	}
	var bases []string
	for _, f := range fields.List {
		if len(f.Names) != 0 {
			continue
		}
		bases = append(bases, strings.TrimPrefix(types.ExprString(f.Type), "*"))
	}
	return bases
}

func paramNames(fields *ast.FieldList) []string {
	if fields == nil {
		return []string{}
	}
	params := []string{}
	for _, f := range fields.List {
		typ := types.ExprString(f.Type)
		if len(f.Names) == 0 {
			params = append(params, typ)
			continue
		}
		for _, n := range f.Names {
			params = append(params, n.Name+" "+typ)
		}
	}
	return params
}

func receiverName(expr ast.Expr) string {
	name := types.ExprString(expr)
	name = strings.TrimPrefix(name, "*")
	// Drop type parameters from generic receivers: Foo[T] -> Foo
	if i := strings.IndexByte(name, '['); i > 0 {
		name = name[:i]
	}
	return name
}

// callNames lists the distinct call targets in a function body, in
// order of first appearance. Targets are rendered as written
// ("helper", "pkg.Fn", "s.method"); anonymous calls are skipped.
func callNames(body *ast.BlockStmt) []string {
	calls := []string{}
	if body == nil {
		return calls
	}
	seen := map[string]bool{}
	ast.Inspect(body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		var name string
		switch fun := call.Fun.(type) {
		case *ast.Ident:
			name = fun.Name
		case *ast.SelectorExpr:
			name = types.ExprString(fun)
		default:
			return true
		}
		if !seen[name] {
			seen[name] = true
			calls = append(calls, name)
		}
		return true
	})
	return calls
}

// goComplexity is the cyclomatic complexity: one plus each branch
// point (if, for, range, switch/select case, && and ||).
func goComplexity(body *ast.BlockStmt) int {
	if body == nil {
		return 1
	}
	score := 1
	ast.Inspect(body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt:
			score++
		case *ast.CaseClause:
			if n.List != nil { // default adds no branch
				score++
			}
		case *ast.CommClause:
			if n.Comm != nil {
				score++
			}
		case *ast.BinaryExpr:
			if n.Op == token.LAND || n.Op == token.LOR {
				score++
			}
		}
		return true
	})
	return score
}
