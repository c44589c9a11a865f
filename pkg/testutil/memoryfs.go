package testutil

import (
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/arthur-debert/npkg/pkg/filesystem"
	"github.com/arthur-debert/npkg/pkg/types"
	"github.com/spf13/afero"
)

// MemoryFS implements types.FS in memory. Writes to denied paths fail
// with fs.ErrPermission, the way a root-owned file does.
type MemoryFS struct {
	mu     sync.RWMutex
	base   types.FS
	denied map[string]bool

	// Statistics
	writeCount int
}

var _ types.FS = (*MemoryFS)(nil)

// NewMemoryFS creates an empty in-memory filesystem
func NewMemoryFS() *MemoryFS {
	return &MemoryFS{
		base:   filesystem.NewAferoFS(afero.NewMemMapFs()),
		denied: make(map[string]bool),
	}
}

// Deny makes every write to path fail with a permission error
func (m *MemoryFS) Deny(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied[filepath.Clean(path)] = true
}

// Privileged returns a view that ignores denials, standing in for what the
// elevation helper can do.
func (m *MemoryFS) Privileged() types.FS {
	return m.base
}

// WriteCount returns how many writes were attempted
func (m *MemoryFS) WriteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writeCount
}

func (m *MemoryFS) Stat(name string) (fs.FileInfo, error) {
	return m.base.Stat(name)
}

func (m *MemoryFS) ReadFile(name string) ([]byte, error) {
	return m.base.ReadFile(name)
}

func (m *MemoryFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	m.writeCount++
	denied := m.denied[filepath.Clean(name)]
	m.mu.Unlock()

	if denied {
		return &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return m.base.WriteFile(name, data, perm)
}

func (m *MemoryFS) MkdirAll(path string, perm fs.FileMode) error {
	return m.base.MkdirAll(path, perm)
}

func (m *MemoryFS) Remove(name string) error {
	m.mu.RLock()
	denied := m.denied[filepath.Clean(name)]
	m.mu.RUnlock()

	if denied {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrPermission}
	}
	return m.base.Remove(name)
}
