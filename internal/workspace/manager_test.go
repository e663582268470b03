package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerGetCreatesOnDemand(t *testing.T) {
	base := t.TempDir()
	m, err := NewManager(base, 0)
	require.NoError(t, err)

	ws, err := m.Get("proj1")
	require.NoError(t, err)
	assert.Equal(t, "proj1", ws.ID)

	info, err := os.Stat(filepath.Join(base, "proj1"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestManagerGetReturnsSameInstance(t *testing.T) {
	m, err := NewManager(t.TempDir(), 0)
	require.NoError(t, err)

	a, err := m.Get("proj")
	require.NoError(t, err)
	b, err := m.Get("proj")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestManagerEmptyIDSelectsDefault(t *testing.T) {
	m, err := NewManager(t.TempDir(), 0)
	require.NoError(t, err)

	ws, err := m.Get("")
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkspaceID, ws.ID)
}

func TestManagerRejectsInvalidIDs(t *testing.T) {
	m, err := NewManager(t.TempDir(), 0)
	require.NoError(t, err)

	for _, id := range []string{"../escape", "has space", "a/b", ".dotfirst", "-dashfirst"} {
		_, err := m.Get(id)
		assert.ErrorContains(t, err, "invalid workspace id", "id %q", id)
	}
}

func TestManagerAcceptsDotsAndDashesAfterFirst(t *testing.T) {
	m, err := NewManager(t.TempDir(), 0)
	require.NoError(t, err)

	for _, id := range []string{"my-project", "v1.2", "a_b", "X9"} {
		_, err := m.Get(id)
		assert.NoError(t, err, "id %q", id)
	}
}

func TestManagerList(t *testing.T) {
	m, err := NewManager(t.TempDir(), 0)
	require.NoError(t, err)

	assert.Empty(t, m.List())

	_, err = m.Get("one")
	require.NoError(t, err)
	_, err = m.Get("two")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"one", "two"}, m.List())
}

func TestManagerPropagatesFileSizeLimit(t *testing.T) {
	m, err := NewManager(t.TempDir(), 42)
	require.NoError(t, err)

	ws, err := m.Get("limited")
	require.NoError(t, err)
	assert.Equal(t, int64(42), ws.MaxFileSize)
}
