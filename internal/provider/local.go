package provider

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"horus-go/internal/horus"
)

// LocalProvider serves the project tree from a mounted directory that
// mirrors the remote root.
type LocalProvider struct {
	root string
}

// NewLocalProvider creates a provider rooted at root. The directory is not
// checked until Probe.
func NewLocalProvider(root string) (*LocalProvider, error) {
	if root == "" {
		return nil, fmt.Errorf("local provider requires a root directory")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}
	return &LocalProvider{root: abs}, nil
}

func (l *LocalProvider) resolve(p string) string {
	return filepath.Join(l.root, filepath.FromSlash(cleanPath(p)))
}

// mapError translates os errors onto the provider error taxonomy.
func mapError(p string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", horus.ErrNotFound, p)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", horus.ErrPermission, p)
	default:
		return err
	}
}

func (l *LocalProvider) ListDirectory(p string) ([]horus.DirEntry, error) {
	des, err := os.ReadDir(l.resolve(p))
	if err != nil {
		return nil, mapError(p, err)
	}
	entries := make([]horus.DirEntry, 0, len(des))
	for _, de := range des {
		entries = append(entries, horus.DirEntry{Name: de.Name(), IsDir: de.IsDir()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (l *LocalProvider) FileExists(p string) (bool, error) {
	_, err := os.Stat(l.resolve(p))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, mapError(p, err)
}

func (l *LocalProvider) ReadFile(p string) ([]byte, error) {
	data, err := os.ReadFile(l.resolve(p))
	if err != nil {
		return nil, mapError(p, err)
	}
	return data, nil
}

// WriteFile writes through a temp file in the target directory and renames
// it into place, so readers never see a half-written document.
func (l *LocalProvider) WriteFile(p string, data []byte) error {
	destPath := l.resolve(p)
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return mapError(p, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return mapError(p, err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing %s: %w", p, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file for %s: %w", p, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return mapError(p, err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return mapError(p, err)
	}

	success = true
	return nil
}

func (l *LocalProvider) GetFileInfo(p string) (*horus.FileInfo, error) {
	info, err := os.Stat(l.resolve(p))
	if err != nil {
		return nil, mapError(p, err)
	}
	return &horus.FileInfo{Size: info.Size(), ModTime: info.ModTime(), IsDir: info.IsDir()}, nil
}

func (l *LocalProvider) AbsolutePath(p string) string {
	return l.resolve(p)
}

// Probe checks that the mount is present.
func (l *LocalProvider) Probe() error {
	info, err := os.Stat(l.root)
	if err != nil {
		return fmt.Errorf("%w: root %s: %v", horus.ErrConnection, l.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: root %s is not a directory", horus.ErrConnection, l.root)
	}
	return nil
}

func (l *LocalProvider) Close() error { return nil }

// Compile-time check that LocalProvider implements horus.Provider
var _ horus.Provider = (*LocalProvider)(nil)
