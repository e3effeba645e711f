package testutil

import (
	"testing"

	"horus-go/internal/horus"
	"horus-go/internal/provider"
)

// Project bundles a memory-backed project tree with the stores that read
// and write it.
type Project struct {
	Provider  *provider.MemoryProvider
	Resolver  *horus.Resolver
	FS        *horus.FileSystem
	Clock     *StubClock
	Statuses  *horus.StatusStore
	Comments  *horus.CommentStore
	Playlists *horus.PlaylistStore
}

// NewProject creates an empty project on a fresh MemoryProvider.
func NewProject(t *testing.T) *Project {
	t.Helper()
	return NewProjectOn(t, provider.NewMemoryProvider())
}

// NewProjectOn creates a project view over an existing MemoryProvider.
// Two projects sharing one provider behave like two reviewers' processes
// working against the same server: each has its own cache.
func NewProjectOn(t *testing.T, mp *provider.MemoryProvider) *Project {
	t.Helper()

	logger := horus.NewNopLogger()
	resolver := horus.NewResolver([]horus.Candidate{{
		Mode: "memory",
		Open: func() (horus.Provider, error) { return mp, nil },
	}}, logger)
	fs := horus.NewFileSystem(resolver, horus.NewCache(), logger, horus.Options{})
	clock := FixedClock()

	statuses := horus.NewStatusStore(fs, clock, logger)
	comments := horus.NewCommentStore(fs, clock, NewPrefixedIDGenerator("c"), logger)
	playlists := horus.NewPlaylistStore(fs, statuses, comments, clock, NewPrefixedIDGenerator("p"), logger)

	return &Project{
		Provider:  mp,
		Resolver:  resolver,
		FS:        fs,
		Clock:     clock,
		Statuses:  statuses,
		Comments:  comments,
		Playlists: playlists,
	}
}

// WriteFile stores content in the project tree, failing the test on error.
func (p *Project) WriteFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := p.Provider.WriteFile(path, []byte(content)); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}

// ReadFile returns the stored content of path, failing the test on error.
func (p *Project) ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := p.Provider.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	return string(data)
}

// Mkdir creates an empty directory.
func (p *Project) Mkdir(path string) {
	p.Provider.Mkdir(path)
}
