package horus

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
)

// FrameRange is the inclusive span of an image sequence.
type FrameRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// MediaRecord is one version of a department's output. A version may have a
// QuickTime movie, an image sequence, or both.
type MediaRecord struct {
	Episode    string `json:"episode"`
	Sequence   string `json:"sequence"`
	Shot       string `json:"shot"`
	Department string `json:"department"`

	FileName         string `json:"file_name"`
	Version          string `json:"version"`
	HasMovie         bool   `json:"has_movie"`
	HasImageSequence bool   `json:"has_image_sequence"`

	// Logical paths; ImageSequencePath uses '#' padding for the frame number.
	MoviePath         string      `json:"movie_path,omitempty"`
	ImageSequencePath string      `json:"image_sequence_path,omitempty"`
	FrameRange        *FrameRange `json:"frame_range,omitempty"`
}

// MediaType mirrors the labels the review UI shows.
func (r MediaRecord) MediaType() string {
	switch {
	case r.HasMovie && r.HasImageSequence:
		return "both"
	case r.HasMovie:
		return "mov_only"
	default:
		return "image_only"
	}
}

var imageExtensions = map[string]bool{
	".exr": true, ".png": true, ".jpg": true, ".jpeg": true, ".tiff": true,
	".tif": true, ".dpx": true, ".cin": true, ".sgi": true,
}

var versionDirPattern = regexp.MustCompile(`(?i)^v\d+$`)

// ListMedia parses the media of one department into media records, newest
// version first. Movies and loose frames come from the output directory;
// image sequences also come from the version directory, one folder per
// version. Listings are cached per department.
func (fs *FileSystem) ListMedia(episode, sequence, shot, department string) ([]MediaRecord, error) {
	if records, ok := fs.cache.mediaList(episode, sequence, shot, department); ok {
		return records, nil
	}

	p, err := fs.provider()
	if err != nil {
		return nil, err
	}

	b := newMediaBuilder(episode, sequence, shot, department)

	dir := MediaDir(episode, sequence, shot, department)
	entries, err := listIfExists(p, dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		switch {
		case e.IsDir && versionDirPattern.MatchString(e.Name):
			if err := scanVersionDir(p, b, path.Join(dir, e.Name), e.Name); err != nil {
				return nil, err
			}
		case !e.IsDir && strings.EqualFold(path.Ext(e.Name), ".mov"):
			b.addMovie(dir, e.Name)
		case !e.IsDir:
			b.addImage(dir, e.Name, "")
		}
	}

	versions := ImageVersionsDir(episode, sequence, shot, department)
	folders, err := listIfExists(p, versions)
	if err != nil {
		return nil, err
	}
	for _, e := range folders {
		if e.IsDir && versionDirPattern.MatchString(e.Name) {
			if err := scanVersionDir(p, b, path.Join(versions, e.Name), e.Name); err != nil {
				return nil, err
			}
		}
	}

	records := b.records()
	fs.cache.putMedia(episode, sequence, shot, department, records)
	fs.logger.Debug("media listed", "dir", dir, "records", len(records))
	return cloneMedia(records), nil
}

// listIfExists lists dir, treating a missing directory as empty.
func listIfExists(p Provider, dir string) ([]DirEntry, error) {
	entries, err := p.ListDirectory(dir)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	return entries, nil
}

// scanVersionDir adds the frames of one version folder.
func scanVersionDir(p Provider, b *mediaBuilder, dir, version string) error {
	files, err := listIfExists(p, dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		if !f.IsDir {
			b.addImage(dir, f.Name, strings.ToLower(version))
		}
	}
	return nil
}

type mediaBuilder struct {
	episode, sequence, shot, department string
	byVersion                           map[string]*MediaRecord
}

func newMediaBuilder(episode, sequence, shot, department string) *mediaBuilder {
	return &mediaBuilder{
		episode:    episode,
		sequence:   sequence,
		shot:       shot,
		department: department,
		byVersion:  make(map[string]*MediaRecord),
	}
}

func (b *mediaBuilder) record(version string) *MediaRecord {
	r, ok := b.byVersion[version]
	if !ok {
		r = &MediaRecord{
			Episode:    b.episode,
			Sequence:   b.sequence,
			Shot:       b.shot,
			Department: b.department,
			Version:    version,
		}
		b.byVersion[version] = r
	}
	return r
}

func (b *mediaBuilder) addMovie(dir, name string) {
	r := b.record(ParseVersion(name))
	if r.HasMovie {
		return
	}
	r.HasMovie = true
	r.MoviePath = path.Join(dir, name)
	r.FileName = name
}

// addImage records one frame of an image sequence. folderVersion is set when
// the frame lives in a version directory; it wins over the file name.
func (b *mediaBuilder) addImage(dir, name, folderVersion string) {
	ext := path.Ext(name)
	if !imageExtensions[strings.ToLower(ext)] {
		return
	}
	frame, ok := ParseFrame(name)
	if !ok {
		return
	}

	version := folderVersion
	if version == "" {
		version = ParseVersion(name)
	}
	r := b.record(version)

	stem := strings.TrimSuffix(name, ext)
	digits := stem[strings.LastIndex(stem, ".")+1:]
	base := stem[:len(stem)-len(digits)-1]
	pattern := fmt.Sprintf("%s.%s%s", base, strings.Repeat("#", len(digits)), ext)

	if !r.HasImageSequence {
		r.HasImageSequence = true
		r.ImageSequencePath = path.Join(dir, pattern)
		r.FrameRange = &FrameRange{Start: frame, End: frame}
		if r.FileName == "" {
			r.FileName = pattern
		}
		return
	}
	if frame < r.FrameRange.Start {
		r.FrameRange.Start = frame
	}
	if frame > r.FrameRange.End {
		r.FrameRange.End = frame
	}
}

func (b *mediaBuilder) records() []MediaRecord {
	out := make([]MediaRecord, 0, len(b.byVersion))
	for _, r := range b.byVersion {
		out = append(out, *r)
	}
	sortNewestFirst(out)
	return out
}

func sortNewestFirst(records []MediaRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		vi, vj := versionNumber(records[i].Version), versionNumber(records[j].Version)
		if vi != vj {
			return vi > vj
		}
		return records[i].Version > records[j].Version
	})
}

// LatestOnly keeps the newest version of each shot and department.
func LatestOnly(records []MediaRecord) []MediaRecord {
	type key struct{ episode, sequence, shot, department string }
	best := make(map[key]int)
	var order []key
	for i, r := range records {
		k := key{r.Episode, r.Sequence, r.Shot, r.Department}
		j, seen := best[k]
		if !seen {
			best[k] = i
			order = append(order, k)
			continue
		}
		if versionNumber(r.Version) > versionNumber(records[j].Version) {
			best[k] = i
		}
	}
	out := make([]MediaRecord, 0, len(order))
	for _, k := range order {
		out = append(out, records[best[k]])
	}
	return out
}

// PlaybackPath returns the path a media player should open for record and
// the frame range that goes with it. The movie is preferred unless
// preferImages is set and an image sequence exists.
func (fs *FileSystem) PlaybackPath(record MediaRecord, preferImages bool) (string, *FrameRange, error) {
	logical := record.MoviePath
	var frames *FrameRange
	if record.HasImageSequence && (preferImages || !record.HasMovie) {
		logical = record.ImageSequencePath
		frames = record.FrameRange
	}
	if logical == "" {
		return "", nil, fmt.Errorf("%w: %s has no playable media", ErrNotFound, record.FileName)
	}

	if fs.playback != "" {
		return path.Join(fs.playback, logical), frames, nil
	}
	p, err := fs.provider()
	if err != nil {
		return "", nil, err
	}
	return p.AbsolutePath(logical), frames, nil
}

func cloneMedia(records []MediaRecord) []MediaRecord {
	out := make([]MediaRecord, len(records))
	for i, r := range records {
		if r.FrameRange != nil {
			fr := *r.FrameRange
			r.FrameRange = &fr
		}
		out[i] = r
	}
	return out
}
