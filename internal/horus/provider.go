package horus

import "time"

// Provider is the storage backend underneath the review data layer. Every
// path is logical: slash-separated and relative to the project root, so the
// same call means the same file whether it is served over SSH, from a local
// mount, or from an object store.
//
// Implementations map their native failures onto ErrConnection, ErrNotFound
// and ErrPermission.
type Provider interface {
	// ListDirectory returns the entries of a directory sorted by name.
	ListDirectory(path string) ([]DirEntry, error)

	FileExists(path string) (bool, error)

	// ReadFile returns the full contents of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces the file at path, creating parent directories.
	WriteFile(path string, data []byte) error

	GetFileInfo(path string) (*FileInfo, error)

	// AbsolutePath returns the location of path as the backend sees it, for
	// handing to an external media player.
	AbsolutePath(path string) string

	// Probe performs a bounded-time connectivity check.
	Probe() error

	Close() error
}

// DirEntry is one item of a directory listing.
type DirEntry struct {
	Name  string
	IsDir bool
}

// FileInfo holds the metadata returned by Provider.GetFileInfo.
type FileInfo struct {
	Size    int64
	ModTime time.Time
	IsDir   bool
}
