package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrPathOutsideRoot is returned for any path that would land outside
// the workspace root. Offending paths are rejected, never clamped.
var ErrPathOutsideRoot = errors.New("path outside workspace root")

const (
	trashDir  = ".trash"
	backupDir = ".backups"
)

// FileInfo describes one directory entry.
type FileInfo struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDirectory bool   `json:"is_directory"`
	Size        int64  `json:"size,omitempty"`
	Modified    int64  `json:"modified,omitempty"`
}

// Workspace is one rooted directory tree that filesystem tools operate
// on. Every path handed to it is interpreted relative to Root.
type Workspace struct {
	ID          string
	Root        string
	MaxFileSize int64
}

// New creates the root directory if needed and returns the workspace.
func New(id, root string, maxFileSize int64) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}
	return &Workspace{ID: id, Root: abs, MaxFileSize: maxFileSize}, nil
}

// Resolve validates a tool-supplied path and composes it with the root.
// Absolute paths and any parent-directory segment are rejected before
// any filesystem access; nothing is ever silently clamped into the
// root. Existing paths additionally have their symlinks resolved and
// re-checked for containment.
func (w *Workspace) Resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRoot, path)
	}
	trimmed := strings.TrimPrefix(path, "/")
	if filepath.IsAbs(trimmed) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRoot, path)
	}

	clean := filepath.Clean(trimmed)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRoot, path)
	}
	for _, segment := range strings.Split(clean, string(os.PathSeparator)) {
		if segment == ".." {
			return "", fmt.Errorf("%w: %s", ErrPathOutsideRoot, path)
		}
	}

	full := filepath.Join(w.Root, clean)

	// If the target already exists, resolve symlinks and verify the
	// real location is still inside the root.
	if _, err := os.Lstat(full); err == nil {
		resolvedRoot, err := filepath.EvalSymlinks(w.Root)
		if err != nil {
			return "", fmt.Errorf("failed to resolve workspace root: %w", err)
		}
		resolved, err := filepath.EvalSymlinks(full)
		if err != nil {
			return "", fmt.Errorf("failed to resolve path: %w", err)
		}
		if resolved != resolvedRoot && !strings.HasPrefix(resolved, resolvedRoot+string(os.PathSeparator)) {
			return "", fmt.Errorf("%w: %s", ErrPathOutsideRoot, path)
		}
		return resolved, nil
	}

	return full, nil
}

// ReadFile returns the file's content, enforcing the size cap.
func (w *Workspace) ReadFile(path string) (string, error) {
	full, err := w.Resolve(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(full)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory: %s", path)
	}
	if w.MaxFileSize > 0 && info.Size() > w.MaxFileSize {
		return "", fmt.Errorf("file too large: %d bytes (limit %d)", info.Size(), w.MaxFileSize)
	}

	content, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(content), nil
}

// WriteFile writes content to a file, creating parent directories as
// needed. If the file already exists its prior content is captured as
// a timestamped backup first; the backup's workspace-relative path is
// returned, or "" for a fresh create.
func (w *Workspace) WriteFile(path, content string) (string, error) {
	full, err := w.Resolve(path)
	if err != nil {
		return "", err
	}

	backup := ""
	if info, statErr := os.Stat(full); statErr == nil {
		if info.IsDir() {
			return "", fmt.Errorf("path is a directory: %s", path)
		}
		backup, err = w.snapshot(full, backupDir)
		if err != nil {
			return "", fmt.Errorf("failed to back up existing file: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return backup, nil
}

// AppendFile appends content to a file, creating it (and parent
// directories) if it does not exist yet.
func (w *Workspace) AppendFile(path, content string) error {
	full, err := w.Resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(full, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to append to file: %w", err)
	}
	return nil
}

// DeleteFile moves the target into the workspace trash instead of
// erasing it, and returns the trash entry's workspace-relative path.
func (w *Workspace) DeleteFile(path string) (string, error) {
	full, err := w.Resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("failed to delete: %w", err)
	}
	trash, err := w.snapshotMove(full, trashDir)
	if err != nil {
		return "", fmt.Errorf("failed to move to trash: %w", err)
	}
	return trash, nil
}

// RenameFile renames or moves a file or directory within the workspace.
func (w *Workspace) RenameFile(oldPath, newPath string) error {
	oldFull, err := w.Resolve(oldPath)
	if err != nil {
		return err
	}
	newFull, err := w.Resolve(newPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(newFull), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.Rename(oldFull, newFull); err != nil {
		return fmt.Errorf("failed to rename: %w", err)
	}
	return nil
}

// CopyFile copies a single file to a new path within the workspace.
func (w *Workspace) CopyFile(srcPath, dstPath string) error {
	srcFull, err := w.Resolve(srcPath)
	if err != nil {
		return err
	}
	dstFull, err := w.Resolve(dstPath)
	if err != nil {
		return err
	}

	info, err := os.Stat(srcFull)
	if err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory: %s", srcPath)
	}

	if err := os.MkdirAll(filepath.Dir(dstFull), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	src, err := os.Open(srcFull)
	if err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dstFull, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}
	return nil
}

// CreateDir creates a directory (and any missing parents).
func (w *Workspace) CreateDir(path string) error {
	full, err := w.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(full, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// ListDir lists one directory level, sorted directories-first then by
// name. Dotfiles (including the trash and backup stores) are skipped.
func (w *Workspace) ListDir(path string) ([]FileInfo, error) {
	full, err := w.Resolve(path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		rel := filepath.Join(filepath.Clean(strings.TrimPrefix(path, "/")), entry.Name())
		if path == "" || path == "." {
			rel = entry.Name()
		}
		files = append(files, FileInfo{
			Name:        entry.Name(),
			Path:        rel,
			IsDirectory: entry.IsDir(),
			Size:        info.Size(),
			Modified:    info.ModTime().Unix(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].IsDirectory != files[j].IsDirectory {
			return files[i].IsDirectory
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// snapshot copies a file into the named store directory under a
// timestamped name and returns the store entry's relative path.
func (w *Workspace) snapshot(full, store string) (string, error) {
	rel, err := w.storePath(full, store)
	if err != nil {
		return "", err
	}
	target := filepath.Join(w.Root, rel)

	src, err := os.Open(full)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return rel, nil
}

// snapshotMove moves a file or directory into the named store
// directory under a timestamped name.
func (w *Workspace) snapshotMove(full, store string) (string, error) {
	rel, err := w.storePath(full, store)
	if err != nil {
		return "", err
	}
	if err := os.Rename(full, filepath.Join(w.Root, rel)); err != nil {
		return "", err
	}
	return rel, nil
}

func (w *Workspace) storePath(full, store string) (string, error) {
	dir := filepath.Join(w.Root, store)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(full))
	return filepath.Join(store, name), nil
}
