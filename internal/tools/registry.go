package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jmoray/symposium/internal/llm"
	"github.com/jmoray/symposium/internal/workspace"
)

// ErrUnknownTool is reported when dispatch is asked for a name not in
// the catalog. It only ever surfaces inside an IsError result, never
// as an out-of-band error.
var ErrUnknownTool = errors.New("unknown tool")

// Tool defines the interface for all tools that can be called by the LLM
type Tool interface {
	// Name returns the unique identifier for this tool
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// Parameters returns the JSON Schema for the tool's parameters
	Parameters() llm.JSONSchema

	// Execute runs the tool against a workspace and returns its text payload
	Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error)
}

// MutatingTool marks tools that change workspace state. AuditEntry
// names the operation and primary path recorded on success.
type MutatingTool interface {
	Tool
	AuditEntry(params map[string]interface{}) (operation, path string)
}

// Auditor receives one append-only record per successful mutation.
type Auditor interface {
	Record(workspaceID, operation, path, detail string) error
}

// Result is the normalized outcome of one dispatch. Dispatch never
// fails out of band: unknown names, handler errors, and panics all
// surface here with IsError set.
type Result struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error"`
}

// Registry holds the static tool catalog and dispatches invocations.
type Registry struct {
	tools     map[string]Tool
	names     []string
	auditor   Auditor
	maxOutput int
	mu        sync.RWMutex
}

// NewRegistry creates a new tool registry. The auditor may be nil;
// maxOutput caps result text in bytes (0 disables the cap).
func NewRegistry(auditor Auditor, maxOutput int) *Registry {
	return &Registry{
		tools:     make(map[string]Tool),
		auditor:   auditor,
		maxOutput: maxOutput,
	}
}

// Register adds a tool to the registry
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name())
	}

	r.tools[tool.Name()] = tool
	r.names = append(r.names, tool.Name())
	return nil
}

// Get returns a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools in registration order
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.names))
	for _, name := range r.names {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// ToolDefinitions converts the catalog to provider tool definitions,
// in registration order.
func (r *Registry) ToolDefinitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]llm.ToolDefinition, 0, len(r.names))
	for _, name := range r.names {
		tool := r.tools[name]
		defs = append(defs, llm.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	return defs
}

// Dispatch executes one tool by name against a workspace. The caller
// always receives a well-formed Result: an unrecognized name, a
// handler error, or a handler panic all become IsError results, and
// successful mutations are recorded in the audit log before returning.
func (r *Registry) Dispatch(ctx context.Context, name string, params map[string]interface{}, ws *workspace.Workspace) (result *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = &Result{
				Text:    fmt.Sprintf("tool %s panicked: %v", name, rec),
				IsError: true,
			}
		}
	}()

	tool, ok := r.Get(name)
	if !ok {
		return &Result{
			Text:    fmt.Sprintf("%s: %s", ErrUnknownTool, name),
			IsError: true,
		}
	}

	text, err := tool.Execute(ctx, ws, params)
	if err != nil {
		return &Result{
			Text:    err.Error(),
			IsError: true,
		}
	}

	if mt, ok := tool.(MutatingTool); ok && r.auditor != nil {
		operation, path := mt.AuditEntry(params)
		if err := r.auditor.Record(ws.ID, operation, path, ""); err != nil {
			log.Printf("failed to record audit entry for %s: %v", name, err)
		}
	}

	return &Result{Text: truncate(text, r.maxOutput)}
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "\n... [output truncated]"
}
