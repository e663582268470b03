package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmoray/symposium/internal/llm"
	"github.com/jmoray/symposium/internal/workspace"
)

type fakeTool struct {
	name    string
	execute func(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error)
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake tool " + f.name }
func (f *fakeTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{Type: "object"}
}
func (f *fakeTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	return f.execute(ctx, ws, params)
}

type fakeMutatingTool struct {
	fakeTool
	operation string
	path      string
}

func (f *fakeMutatingTool) AuditEntry(params map[string]interface{}) (string, string) {
	return f.operation, f.path
}

type recordingAuditor struct {
	records []string
	err     error
}

func (a *recordingAuditor) Record(workspaceID, operation, path, detail string) error {
	a.records = append(a.records, fmt.Sprintf("%s:%s:%s", workspaceID, operation, path))
	return a.err
}

func newTestRegistryWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New("test", t.TempDir(), 0)
	require.NoError(t, err)
	return ws
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry(nil, 0)

	require.NoError(t, reg.Register(&fakeTool{name: "dup"}))
	err := reg.Register(&fakeTool{name: "dup"})
	assert.ErrorContains(t, err, "already registered")
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	reg := NewRegistry(nil, 0)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.Register(&fakeTool{name: name}))
	}

	var names []string
	for _, tool := range reg.List() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestToolDefinitionsMirrorCatalog(t *testing.T) {
	reg := NewRegistry(nil, 0)
	require.NoError(t, reg.Register(&fakeTool{name: "one"}))
	require.NoError(t, reg.Register(&fakeTool{name: "two"}))

	defs := reg.ToolDefinitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "one", defs[0].Name)
	assert.Equal(t, "fake tool one", defs[0].Description)
	assert.Equal(t, "object", defs[0].Parameters.Type)
	assert.Equal(t, "two", defs[1].Name)
}

func TestDispatchSuccess(t *testing.T) {
	reg := NewRegistry(nil, 0)
	require.NoError(t, reg.Register(&fakeTool{
		name: "echo",
		execute: func(_ context.Context, _ *workspace.Workspace, params map[string]interface{}) (string, error) {
			return params["msg"].(string), nil
		},
	}))
	ws := newTestRegistryWorkspace(t)

	result := reg.Dispatch(context.Background(), "echo", map[string]interface{}{"msg": "hi"}, ws)
	require.NotNil(t, result)
	assert.False(t, result.IsError)
	assert.Equal(t, "hi", result.Text)
}

func TestDispatchUnknownTool(t *testing.T) {
	reg := NewRegistry(nil, 0)
	ws := newTestRegistryWorkspace(t)

	result := reg.Dispatch(context.Background(), "nonexistent", nil, ws)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Equal(t, "unknown tool: nonexistent", result.Text)
}

func TestDispatchHandlerError(t *testing.T) {
	reg := NewRegistry(nil, 0)
	require.NoError(t, reg.Register(&fakeTool{
		name: "broken",
		execute: func(context.Context, *workspace.Workspace, map[string]interface{}) (string, error) {
			return "", errors.New("file not found: x.txt")
		},
	}))
	ws := newTestRegistryWorkspace(t)

	result := reg.Dispatch(context.Background(), "broken", nil, ws)
	assert.True(t, result.IsError)
	assert.Equal(t, "file not found: x.txt", result.Text)
}

func TestDispatchRecoversPanic(t *testing.T) {
	reg := NewRegistry(nil, 0)
	require.NoError(t, reg.Register(&fakeTool{
		name: "bomb",
		execute: func(context.Context, *workspace.Workspace, map[string]interface{}) (string, error) {
			panic("boom")
		},
	}))
	ws := newTestRegistryWorkspace(t)

	result := reg.Dispatch(context.Background(), "bomb", nil, ws)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text, "tool bomb panicked")
	assert.Contains(t, result.Text, "boom")
}

func TestDispatchRecordsMutations(t *testing.T) {
	auditor := &recordingAuditor{}
	reg := NewRegistry(auditor, 0)
	mt := &fakeMutatingTool{
		fakeTool: fakeTool{
			name: "write",
			execute: func(context.Context, *workspace.Workspace, map[string]interface{}) (string, error) {
				return "ok", nil
			},
		},
		operation: "write_file",
		path:      "a/b.txt",
	}
	require.NoError(t, reg.Register(mt))
	ws := newTestRegistryWorkspace(t)

	result := reg.Dispatch(context.Background(), "write", nil, ws)
	assert.False(t, result.IsError)
	require.Len(t, auditor.records, 1)
	assert.Equal(t, "test:write_file:a/b.txt", auditor.records[0])
}

func TestDispatchSkipsAuditOnFailure(t *testing.T) {
	auditor := &recordingAuditor{}
	reg := NewRegistry(auditor, 0)
	mt := &fakeMutatingTool{
		fakeTool: fakeTool{
			name: "write",
			execute: func(context.Context, *workspace.Workspace, map[string]interface{}) (string, error) {
				return "", errors.New("disk full")
			},
		},
		operation: "write_file",
	}
	require.NoError(t, reg.Register(mt))
	ws := newTestRegistryWorkspace(t)

	result := reg.Dispatch(context.Background(), "write", nil, ws)
	assert.True(t, result.IsError)
	assert.Empty(t, auditor.records, "failed mutations must not be audited")
}

func TestDispatchAuditFailureDoesNotFailDispatch(t *testing.T) {
	auditor := &recordingAuditor{err: errors.New("db locked")}
	reg := NewRegistry(auditor, 0)
	mt := &fakeMutatingTool{
		fakeTool: fakeTool{
			name: "write",
			execute: func(context.Context, *workspace.Workspace, map[string]interface{}) (string, error) {
				return "done", nil
			},
		},
		operation: "write_file",
	}
	require.NoError(t, reg.Register(mt))
	ws := newTestRegistryWorkspace(t)

	result := reg.Dispatch(context.Background(), "write", nil, ws)
	assert.False(t, result.IsError)
	assert.Equal(t, "done", result.Text)
}

func TestDispatchReadOnlyToolsNotAudited(t *testing.T) {
	auditor := &recordingAuditor{}
	reg := NewRegistry(auditor, 0)
	require.NoError(t, reg.Register(&fakeTool{
		name: "read",
		execute: func(context.Context, *workspace.Workspace, map[string]interface{}) (string, error) {
			return "content", nil
		},
	}))
	ws := newTestRegistryWorkspace(t)

	reg.Dispatch(context.Background(), "read", nil, ws)
	assert.Empty(t, auditor.records)
}

func TestDispatchTruncatesLongOutput(t *testing.T) {
	reg := NewRegistry(nil, 10)
	require.NoError(t, reg.Register(&fakeTool{
		name: "verbose",
		execute: func(context.Context, *workspace.Workspace, map[string]interface{}) (string, error) {
			return strings.Repeat("x", 100), nil
		},
	}))
	ws := newTestRegistryWorkspace(t)

	result := reg.Dispatch(context.Background(), "verbose", nil, ws)
	assert.False(t, result.IsError)
	assert.Equal(t, strings.Repeat("x", 10)+"\n... [output truncated]", result.Text)
}

func TestDispatchNoTruncationWhenDisabled(t *testing.T) {
	reg := NewRegistry(nil, 0)
	long := strings.Repeat("y", 100000)
	require.NoError(t, reg.Register(&fakeTool{
		name: "verbose",
		execute: func(context.Context, *workspace.Workspace, map[string]interface{}) (string, error) {
			return long, nil
		},
	}))
	ws := newTestRegistryWorkspace(t)

	result := reg.Dispatch(context.Background(), "verbose", nil, ws)
	assert.Equal(t, long, result.Text)
}
