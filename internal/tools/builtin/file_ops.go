package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoray/symposium/internal/llm"
	"github.com/jmoray/symposium/internal/workspace"
)

// ReadFileTool reads file content from the workspace
type ReadFileTool struct{}

func NewReadFileTool() *ReadFileTool { return &ReadFileTool{} }

func (t *ReadFileTool) Name() string {
	return "read_file"
}

func (t *ReadFileTool) Description() string {
	return "Read the contents of a file from the workspace. Returns the file content as a string."
}

func (t *ReadFileTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONProperty{
			"path": {
				Type:        "string",
				Description: "The relative path to the file to read (e.g., 'src/main.py' or 'strategies/momentum.py')",
			},
		},
		Required: []string{"path"},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("path parameter is required")
	}

	return ws.ReadFile(path)
}

// WriteFileTool writes content to a file in the workspace
type WriteFileTool struct{}

func NewWriteFileTool() *WriteFileTool { return &WriteFileTool{} }

func (t *WriteFileTool) Name() string {
	return "write_file"
}

func (t *WriteFileTool) Description() string {
	return "Write content to a file in the workspace. Creates the file if it doesn't exist, or overwrites if it does. An overwrite captures a timestamped backup of the prior content first. Parent directories are created automatically."
}

func (t *WriteFileTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONProperty{
			"path": {
				Type:        "string",
				Description: "The relative path to the file to write",
			},
			"content": {
				Type:        "string",
				Description: "The content to write to the file",
			},
		},
		Required: []string{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("path parameter is required")
	}

	content, ok := params["content"].(string)
	if !ok {
		return "", fmt.Errorf("content parameter is required")
	}

	backup, err := ws.WriteFile(path, content)
	if err != nil {
		return "", err
	}

	if backup != "" {
		return fmt.Sprintf("Wrote %d bytes to %s (previous version backed up to %s)", len(content), path, backup), nil
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(content), path), nil
}

func (t *WriteFileTool) AuditEntry(params map[string]interface{}) (string, string) {
	path, _ := params["path"].(string)
	return "write", path
}

// AppendFileTool appends content to a file in the workspace
type AppendFileTool struct{}

func NewAppendFileTool() *AppendFileTool { return &AppendFileTool{} }

func (t *AppendFileTool) Name() string {
	return "append_file"
}

func (t *AppendFileTool) Description() string {
	return "Append content to the end of a file in the workspace. Creates the file if it doesn't exist."
}

func (t *AppendFileTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONProperty{
			"path": {
				Type:        "string",
				Description: "The relative path to the file to append to",
			},
			"content": {
				Type:        "string",
				Description: "The content to append",
			},
		},
		Required: []string{"path", "content"},
	}
}

func (t *AppendFileTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("path parameter is required")
	}

	content, ok := params["content"].(string)
	if !ok {
		return "", fmt.Errorf("content parameter is required")
	}

	if err := ws.AppendFile(path, content); err != nil {
		return "", err
	}

	return fmt.Sprintf("Appended %d bytes to %s", len(content), path), nil
}

func (t *AppendFileTool) AuditEntry(params map[string]interface{}) (string, string) {
	path, _ := params["path"].(string)
	return "append", path
}

// EditFileTool replaces an exact text fragment within a file
type EditFileTool struct{}

func NewEditFileTool() *EditFileTool { return &EditFileTool{} }

func (t *EditFileTool) Name() string {
	return "edit_file"
}

func (t *EditFileTool) Description() string {
	return "Replace an exact text fragment in a file. The old_text must match exactly once unless replace_all is set. The prior content is backed up before the edit is applied."
}

func (t *EditFileTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONProperty{
			"path": {
				Type:        "string",
				Description: "The relative path to the file to edit",
			},
			"old_text": {
				Type:        "string",
				Description: "The exact text to replace",
			},
			"new_text": {
				Type:        "string",
				Description: "The replacement text",
			},
			"replace_all": {
				Type:        "boolean",
				Description: "Replace every occurrence instead of requiring a unique match (default false)",
			},
		},
		Required: []string{"path", "old_text", "new_text"},
	}
}

func (t *EditFileTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("path parameter is required")
	}

	oldText, ok := params["old_text"].(string)
	if !ok || oldText == "" {
		return "", fmt.Errorf("old_text parameter is required")
	}

	newText, ok := params["new_text"].(string)
	if !ok {
		return "", fmt.Errorf("new_text parameter is required")
	}

	replaceAll, _ := params["replace_all"].(bool)

	content, err := ws.ReadFile(path)
	if err != nil {
		return "", err
	}

	count := strings.Count(content, oldText)
	if count == 0 {
		return "", fmt.Errorf("old_text not found in %s", path)
	}
	if count > 1 && !replaceAll {
		return "", fmt.Errorf("old_text appears %d times in %s; provide a longer unique fragment or set replace_all", count, path)
	}

	updated := strings.Replace(content, oldText, newText, 1)
	if replaceAll {
		updated = strings.ReplaceAll(content, oldText, newText)
	}

	if _, err := ws.WriteFile(path, updated); err != nil {
		return "", err
	}

	if replaceAll {
		return fmt.Sprintf("Replaced %d occurrences in %s", count, path), nil
	}
	return fmt.Sprintf("Edited %s", path), nil
}

func (t *EditFileTool) AuditEntry(params map[string]interface{}) (string, string) {
	path, _ := params["path"].(string)
	return "edit", path
}

// DeleteFileTool moves a file or directory into the workspace trash
type DeleteFileTool struct{}

func NewDeleteFileTool() *DeleteFileTool { return &DeleteFileTool{} }

func (t *DeleteFileTool) Name() string {
	return "delete_file"
}

func (t *DeleteFileTool) Description() string {
	return "Delete a file or directory from the workspace. The target is moved into a retained trash area rather than erased."
}

func (t *DeleteFileTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONProperty{
			"path": {
				Type:        "string",
				Description: "The relative path to the file or directory to delete",
			},
		},
		Required: []string{"path"},
	}
}

func (t *DeleteFileTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("path parameter is required")
	}

	trash, err := ws.DeleteFile(path)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Moved %s to trash (%s)", path, trash), nil
}

func (t *DeleteFileTool) AuditEntry(params map[string]interface{}) (string, string) {
	path, _ := params["path"].(string)
	return "delete", path
}

// RenameFileTool renames or moves a file within the workspace
type RenameFileTool struct{}

func NewRenameFileTool() *RenameFileTool { return &RenameFileTool{} }

func (t *RenameFileTool) Name() string {
	return "rename_file"
}

func (t *RenameFileTool) Description() string {
	return "Rename or move a file or directory within the workspace."
}

func (t *RenameFileTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONProperty{
			"source_path": {
				Type:        "string",
				Description: "The current path of the file or directory",
			},
			"dest_path": {
				Type:        "string",
				Description: "The new path for the file or directory",
			},
		},
		Required: []string{"source_path", "dest_path"},
	}
}

func (t *RenameFileTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	sourcePath, ok := params["source_path"].(string)
	if !ok || sourcePath == "" {
		return "", fmt.Errorf("source_path parameter is required")
	}

	destPath, ok := params["dest_path"].(string)
	if !ok || destPath == "" {
		return "", fmt.Errorf("dest_path parameter is required")
	}

	if err := ws.RenameFile(sourcePath, destPath); err != nil {
		return "", err
	}

	return fmt.Sprintf("Renamed %s to %s", sourcePath, destPath), nil
}

func (t *RenameFileTool) AuditEntry(params map[string]interface{}) (string, string) {
	path, _ := params["source_path"].(string)
	return "rename", path
}

// CopyFileTool copies a file within the workspace
type CopyFileTool struct{}

func NewCopyFileTool() *CopyFileTool { return &CopyFileTool{} }

func (t *CopyFileTool) Name() string {
	return "copy_file"
}

func (t *CopyFileTool) Description() string {
	return "Copy a file to a new path within the workspace."
}

func (t *CopyFileTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONProperty{
			"source_path": {
				Type:        "string",
				Description: "The path of the file to copy",
			},
			"dest_path": {
				Type:        "string",
				Description: "The path for the copy",
			},
		},
		Required: []string{"source_path", "dest_path"},
	}
}

func (t *CopyFileTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	sourcePath, ok := params["source_path"].(string)
	if !ok || sourcePath == "" {
		return "", fmt.Errorf("source_path parameter is required")
	}

	destPath, ok := params["dest_path"].(string)
	if !ok || destPath == "" {
		return "", fmt.Errorf("dest_path parameter is required")
	}

	if err := ws.CopyFile(sourcePath, destPath); err != nil {
		return "", err
	}

	return fmt.Sprintf("Copied %s to %s", sourcePath, destPath), nil
}

func (t *CopyFileTool) AuditEntry(params map[string]interface{}) (string, string) {
	path, _ := params["dest_path"].(string)
	return "copy", path
}

// ListDirTool lists one directory level in the workspace
type ListDirTool struct{}

func NewListDirTool() *ListDirTool { return &ListDirTool{} }

func (t *ListDirTool) Name() string {
	return "list_dir"
}

func (t *ListDirTool) Description() string {
	return "List the files and directories at a path in the workspace. Directories are listed first."
}

func (t *ListDirTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONProperty{
			"path": {
				Type:        "string",
				Description: "The relative path to list (defaults to the workspace root)",
			},
		},
		Required: []string{},
	}
}

func (t *ListDirTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	path, _ := params["path"].(string)
	if path == "" {
		path = "."
	}

	files, err := ws.ListDir(path)
	if err != nil {
		return "", err
	}

	if len(files) == 0 {
		return fmt.Sprintf("%s is empty", path), nil
	}

	var b strings.Builder
	for _, f := range files {
		if f.IsDirectory {
			fmt.Fprintf(&b, "%s/\n", f.Name)
		} else {
			fmt.Fprintf(&b, "%s (%d bytes)\n", f.Name, f.Size)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// CreateDirTool creates a directory in the workspace
type CreateDirTool struct{}

func NewCreateDirTool() *CreateDirTool { return &CreateDirTool{} }

func (t *CreateDirTool) Name() string {
	return "create_dir"
}

func (t *CreateDirTool) Description() string {
	return "Create a directory in the workspace. Parent directories are created automatically."
}

func (t *CreateDirTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONProperty{
			"path": {
				Type:        "string",
				Description: "The relative path of the directory to create",
			},
		},
		Required: []string{"path"},
	}
}

func (t *CreateDirTool) Execute(ctx context.Context, ws *workspace.Workspace, params map[string]interface{}) (string, error) {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("path parameter is required")
	}

	if err := ws.CreateDir(path); err != nil {
		return "", err
	}

	return fmt.Sprintf("Created directory %s", path), nil
}

func (t *CreateDirTool) AuditEntry(params map[string]interface{}) (string, string) {
	path, _ := params["path"].(string)
	return "create_dir", path
}
