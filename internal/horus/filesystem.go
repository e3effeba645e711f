package horus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
)

// Options tunes a FileSystem. The zero value uses the default naming
// convention and the provider's own absolute paths for playback.
type Options struct {
	Patterns NamePatterns

	// PlaybackRoot, when set, is where the project root is mounted on the
	// machine running the media player. Playback paths are rebuilt under it.
	PlaybackRoot string
}

// FileSystem is the facade the stores and the CLI talk to. Discovery walks
// exactly one level of the project tree per call, never more.
type FileSystem struct {
	resolver *Resolver
	cache    *Cache
	logger   Logger
	patterns NamePatterns
	playback string
}

func NewFileSystem(resolver *Resolver, cache *Cache, logger Logger, opts Options) *FileSystem {
	patterns := opts.Patterns
	if len(patterns.Episodes) == 0 && len(patterns.Sequences) == 0 &&
		len(patterns.Shots) == 0 && len(patterns.Departments) == 0 {
		patterns = DefaultNamePatterns()
	}
	return &FileSystem{
		resolver: resolver,
		cache:    cache,
		logger:   logger,
		patterns: patterns,
		playback: opts.PlaybackRoot,
	}
}

// Mode reports the resolver mode for diagnostics.
func (fs *FileSystem) Mode() string { return fs.resolver.Mode() }

// Cache exposes the cache for explicit invalidation.
func (fs *FileSystem) Cache() *Cache { return fs.cache }

func (fs *FileSystem) provider() (Provider, error) {
	return fs.resolver.Provider()
}

// listDirs lists one directory and keeps matching subdirectory names.
// A missing directory is an empty level, not an error.
func (fs *FileSystem) listDirs(dir string, patterns []string) ([]string, error) {
	p, err := fs.provider()
	if err != nil {
		return nil, err
	}
	entries, err := p.ListDirectory(dir)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			fs.logger.Debug("directory missing, treating as empty", "path", dir)
			return []string{}, nil
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	return filterDirs(entries, patterns), nil
}

// ListEpisodes lists the episode directories at the project root.
func (fs *FileSystem) ListEpisodes() ([]string, error) {
	return fs.listDirs(".", fs.patterns.Episodes)
}

func (fs *FileSystem) ListSequences(episode string) ([]string, error) {
	return fs.listDirs(episode, fs.patterns.Sequences)
}

// Shot is a discovered shot directory plus its optional sidecar metadata.
type Shot struct {
	Episode  string
	Sequence string
	Name     string
	Metadata map[string]any
}

// ListShots lists the shots of one sequence and attaches each shot's sidecar
// metadata document when there is one. A missing or unreadable sidecar
// leaves the metadata empty.
func (fs *FileSystem) ListShots(episode, sequence string) ([]Shot, error) {
	names, err := fs.listDirs(path.Join(episode, sequence), fs.patterns.Shots)
	if err != nil {
		return nil, err
	}

	shots := make([]Shot, 0, len(names))
	for _, name := range names {
		shot := Shot{Episode: episode, Sequence: sequence, Name: name, Metadata: map[string]any{}}
		var meta map[string]any
		err := fs.ReadDocument(ShotMetadataFile(episode, sequence, name), &meta)
		switch {
		case err == nil:
			if meta != nil {
				shot.Metadata = meta
			}
		case errors.Is(err, ErrNotFound):
		case errors.Is(err, ErrMalformedDocument):
			fs.logger.Warn("ignoring shot metadata", "shot", name, "error", err)
		default:
			return nil, err
		}
		shots = append(shots, shot)
	}
	return shots, nil
}

func (fs *FileSystem) ListDepartments(episode, sequence, shot string) ([]string, error) {
	return fs.listDirs(path.Join(episode, sequence, shot), fs.patterns.Departments)
}

// ReadDocument reads the JSON document at p into v. A missing file yields
// ErrNotFound; content that does not parse yields ErrMalformedDocument.
func (fs *FileSystem) ReadDocument(p string, v any) error {
	prov, err := fs.provider()
	if err != nil {
		return err
	}
	data, err := prov.ReadFile(p)
	if err != nil {
		return fmt.Errorf("reading %s: %w", p, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrMalformedDocument, p)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedDocument, p, err)
	}
	return nil
}

// WriteDocument replaces the document at p with v, indented by two spaces.
// There is no locking: whatever was there is overwritten.
func (fs *FileSystem) WriteDocument(p string, v any) error {
	prov, err := fs.provider()
	if err != nil {
		return err
	}
	data, err := encodeDocument(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", p, err)
	}
	if err := prov.WriteFile(p, data); err != nil {
		return fmt.Errorf("writing %s: %w", p, err)
	}
	fs.logger.Debug("document written", "path", p, "bytes", len(data))
	return nil
}

func encodeDocument(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// LoadStatusDocument returns the status document of a sequence, from the
// cache when possible. A sequence without a status file gets a fresh empty
// document, which is not cached until it is first written.
func (fs *FileSystem) LoadStatusDocument(episode, sequence string) (*StatusDocument, error) {
	if doc, ok := fs.cache.status(episode, sequence); ok {
		return doc, nil
	}

	var doc StatusDocument
	err := fs.ReadDocument(StatusFile(episode, sequence), &doc)
	if errors.Is(err, ErrNotFound) {
		return newStatusDocument(episode, sequence), nil
	}
	if err != nil {
		return nil, err
	}
	if doc.Statuses == nil {
		doc.Statuses = map[string]*StatusRecord{}
	}
	fs.cache.putStatus(episode, sequence, &doc)
	return doc.clone(), nil
}

// SaveStatusDocument writes the whole status document and then caches
// exactly what was written.
func (fs *FileSystem) SaveStatusDocument(doc *StatusDocument) error {
	if err := fs.WriteDocument(StatusFile(doc.Episode, doc.Sequence), doc); err != nil {
		return err
	}
	fs.cache.putStatus(doc.Episode, doc.Sequence, doc)
	return nil
}

// Refresh clears every cached document and listing.
func (fs *FileSystem) Refresh() {
	fs.cache.Clear()
	fs.logger.Info("caches cleared")
}
