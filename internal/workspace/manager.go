package workspace

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
)

// DefaultWorkspaceID is used when a request names no workspace.
const DefaultWorkspaceID = "default"

var validWorkspaceID = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Manager maps workspace ids onto rooted directories under one base
// directory, creating them on demand.
type Manager struct {
	baseDir     string
	maxFileSize int64
	workspaces  map[string]*Workspace
	mu          sync.RWMutex
}

// NewManager creates a new workspace manager rooted at baseDir.
func NewManager(baseDir string, maxFileSize int64) (*Manager, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace base directory: %w", err)
	}
	return &Manager{
		baseDir:     abs,
		maxFileSize: maxFileSize,
		workspaces:  make(map[string]*Workspace),
	}, nil
}

// Get returns the workspace for an id, creating its directory on first
// use. An empty id selects the default workspace.
func (m *Manager) Get(id string) (*Workspace, error) {
	if id == "" {
		id = DefaultWorkspaceID
	}
	if !validWorkspaceID.MatchString(id) {
		return nil, fmt.Errorf("invalid workspace id: %s", id)
	}

	m.mu.RLock()
	ws, ok := m.workspaces[id]
	m.mu.RUnlock()
	if ok {
		return ws, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ws, ok := m.workspaces[id]; ok {
		return ws, nil
	}

	ws, err := New(id, filepath.Join(m.baseDir, id), m.maxFileSize)
	if err != nil {
		return nil, err
	}
	m.workspaces[id] = ws
	return ws, nil
}

// List returns the ids of all workspaces opened so far.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.workspaces))
	for id := range m.workspaces {
		ids = append(ids, id)
	}
	return ids
}
