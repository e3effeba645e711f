package provider

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"horus-go/internal/horus"
)

type memoryFile struct {
	data    []byte
	modTime time.Time
}

// MemoryProvider keeps a project tree in memory. It backs tests and the
// "memory" provider type. Safe for concurrent use.
type MemoryProvider struct {
	mu       sync.RWMutex
	files    map[string]memoryFile
	dirs     map[string]bool
	readOnly bool
	probeErr error
	now      func() time.Time
}

// NewMemoryProvider creates an empty tree.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		files: make(map[string]memoryFile),
		dirs:  map[string]bool{"": true},
		now:   time.Now,
	}
}

// Mkdir creates a directory and its parents.
func (m *MemoryProvider) Mkdir(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirAll(cleanPath(p))
}

func (m *MemoryProvider) mkdirAll(p string) {
	for p != "" && p != "." {
		m.dirs[p] = true
		p = path.Dir(p)
		if p == "." {
			p = ""
		}
	}
	m.dirs[""] = true
}

// SetReadOnly makes every later write fail with ErrPermission.
func (m *MemoryProvider) SetReadOnly(readOnly bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readOnly = readOnly
}

// SetProbeError makes Probe fail with err; nil restores it.
func (m *MemoryProvider) SetProbeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeErr = err
}

func (m *MemoryProvider) ListDirectory(p string) ([]horus.DirEntry, error) {
	dir := cleanPath(p)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.dirs[dir] {
		return nil, fmt.Errorf("%w: directory %s", horus.ErrNotFound, p)
	}

	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}
	var entries []horus.DirEntry
	for d := range m.dirs {
		if d != "" && strings.HasPrefix(d, prefix) && !strings.Contains(d[len(prefix):], "/") {
			entries = append(entries, horus.DirEntry{Name: d[len(prefix):], IsDir: true})
		}
	}
	for f := range m.files {
		if strings.HasPrefix(f, prefix) && !strings.Contains(f[len(prefix):], "/") {
			entries = append(entries, horus.DirEntry{Name: f[len(prefix):]})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (m *MemoryProvider) FileExists(p string) (bool, error) {
	key := cleanPath(p)
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, isFile := m.files[key]
	return isFile || m.dirs[key], nil
}

func (m *MemoryProvider) ReadFile(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[cleanPath(p)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", horus.ErrNotFound, p)
	}
	return append([]byte(nil), f.data...), nil
}

func (m *MemoryProvider) WriteFile(p string, data []byte) error {
	key := cleanPath(p)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readOnly {
		return fmt.Errorf("%w: %s", horus.ErrPermission, p)
	}
	if key == "" || m.dirs[key] {
		return fmt.Errorf("%w: %s is a directory", horus.ErrPermission, p)
	}
	m.mkdirAll(path.Dir(key))
	m.files[key] = memoryFile{data: append([]byte(nil), data...), modTime: m.now()}
	return nil
}

func (m *MemoryProvider) GetFileInfo(p string) (*horus.FileInfo, error) {
	key := cleanPath(p)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.files[key]; ok {
		return &horus.FileInfo{Size: int64(len(f.data)), ModTime: f.modTime}, nil
	}
	if m.dirs[key] {
		return &horus.FileInfo{IsDir: true}, nil
	}
	return nil, fmt.Errorf("%w: %s", horus.ErrNotFound, p)
}

func (m *MemoryProvider) AbsolutePath(p string) string {
	return "/" + cleanPath(p)
}

func (m *MemoryProvider) Probe() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.probeErr != nil {
		return fmt.Errorf("%w: %v", horus.ErrConnection, m.probeErr)
	}
	return nil
}

func (m *MemoryProvider) Close() error { return nil }

// Compile-time check that MemoryProvider implements horus.Provider
var _ horus.Provider = (*MemoryProvider)(nil)
