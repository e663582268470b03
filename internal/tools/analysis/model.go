package analysis

// FunctionInfo describes one function or method found in a source file.
// Field names and JSON tags are shared with the generated Python
// analyzer script, which emits the same shape.
type FunctionInfo struct {
	Name       string   `json:"name"`
	Line       int      `json:"line"`
	EndLine    int      `json:"end_line"`
	Receiver   string   `json:"receiver,omitempty"`
	Params     []string `json:"params"`
	Calls      []string `json:"calls"`
	Complexity int      `json:"complexity"`
}

// QualifiedName returns Receiver.Name for methods, Name otherwise.
func (f *FunctionInfo) QualifiedName() string {
	if f.Receiver != "" {
		return f.Receiver + "." + f.Name
	}
	return f.Name
}

// ClassInfo describes one class (Python) or named type with methods (Go).
type ClassInfo struct {
	Name    string   `json:"name"`
	Line    int      `json:"line"`
	Bases   []string `json:"bases,omitempty"`
	Methods []string `json:"methods"`
}

// FileAnalysis is the parsed structure of one source file.
type FileAnalysis struct {
	File      string         `json:"file"` // workspace-relative path
	Language  string         `json:"language"`
	Lines     int            `json:"lines"`
	Imports   []string       `json:"imports"`
	Functions []FunctionInfo `json:"functions"`
	Classes   []ClassInfo    `json:"classes"`
}
