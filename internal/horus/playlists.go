package horus

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultClipDuration is the length in frames given to a clip when the
// caller does not know it.
const DefaultClipDuration = 120

// Track describes one lane of a playlist timeline.
type Track struct {
	ID     int    `json:"track_id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Locked bool   `json:"locked"`
	Muted  bool   `json:"muted"`
}

func defaultTracks() []Track {
	return []Track{{ID: 1, Name: "Video Track 1", Type: "video"}}
}

// Clip is one entry of a playlist. Status and CommentCount are snapshots
// taken when the clip was added; they do not follow later changes.
// Position is the clip's start frame on the timeline.
type Clip struct {
	ID           string    `json:"id"`
	Episode      string    `json:"episode"`
	Sequence     string    `json:"sequence"`
	Shot         string    `json:"shot"`
	Department   string    `json:"department"`
	Version      string    `json:"version"`
	FilePath     string    `json:"file_path"`
	Position     int       `json:"position"`
	Duration     int       `json:"duration"`
	Status       Status    `json:"status"`
	CommentCount int       `json:"comment_count"`
	AddedAt      Timestamp `json:"added_at"`
}

func (c *Clip) key() StatusKey {
	return StatusKey{Episode: c.Episode, Sequence: c.Sequence, Shot: c.Shot, Department: c.Department, Version: c.Version}
}

type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
	Clips       []*Clip   `json:"clips"`
	Tracks      []Track   `json:"tracks"`
}

// TotalDuration is the length of the timeline in frames.
func (p *Playlist) TotalDuration() int {
	total := 0
	for _, c := range p.Clips {
		total += c.Duration
	}
	return total
}

// layout lays the clips end to end in list order.
func (p *Playlist) layout() {
	pos := 0
	for _, c := range p.Clips {
		c.Position = pos
		pos += c.Duration
	}
}

func (p *Playlist) clipIndex(id string) int {
	for i, c := range p.Clips {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// PlaylistStore manages the single project-wide playlists document. Every
// operation reads the whole array and writes the whole array back.
type PlaylistStore struct {
	fs       *FileSystem
	statuses *StatusStore
	comments *CommentStore
	clock    Clock
	ids      IDGenerator
	logger   Logger
}

func NewPlaylistStore(fs *FileSystem, statuses *StatusStore, comments *CommentStore, clock Clock, ids IDGenerator, logger Logger) *PlaylistStore {
	return &PlaylistStore{
		fs:       fs,
		statuses: statuses,
		comments: comments,
		clock:    clock,
		ids:      ids,
		logger:   logger,
	}
}

func (s *PlaylistStore) load() ([]*Playlist, error) {
	var playlists []*Playlist
	err := s.fs.ReadDocument(PlaylistsFile(), &playlists)
	if errors.Is(err, ErrNotFound) {
		return []*Playlist{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading playlists: %w", err)
	}
	if playlists == nil {
		playlists = []*Playlist{}
	}
	for _, p := range playlists {
		if p == nil {
			return nil, fmt.Errorf("loading playlists: %w: null playlist entry", ErrMalformedDocument)
		}
		for _, c := range p.Clips {
			if c == nil {
				return nil, fmt.Errorf("loading playlists: %w: null clip in %s", ErrMalformedDocument, p.ID)
			}
		}
	}
	return playlists, nil
}

func (s *PlaylistStore) save(playlists []*Playlist) error {
	if err := s.fs.WriteDocument(PlaylistsFile(), playlists); err != nil {
		return fmt.Errorf("saving playlists: %w", err)
	}
	return nil
}

func findPlaylist(playlists []*Playlist, id string) (int, error) {
	for i, p := range playlists {
		if p != nil && p.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: playlist %s", ErrNotFound, id)
}

// mutate applies fn to one playlist, stamps it, and saves everything.
func (s *PlaylistStore) mutate(id string, fn func(p *Playlist) error) (*Playlist, error) {
	playlists, err := s.load()
	if err != nil {
		return nil, err
	}
	i, err := findPlaylist(playlists, id)
	if err != nil {
		return nil, err
	}
	p := playlists[i]
	if err := fn(p); err != nil {
		return nil, err
	}
	p.layout()
	p.UpdatedAt = NewTimestamp(s.clock.Now())
	if err := s.save(playlists); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns every playlist in document order.
func (s *PlaylistStore) List() ([]*Playlist, error) {
	return s.load()
}

func (s *PlaylistStore) Get(id string) (*Playlist, error) {
	playlists, err := s.load()
	if err != nil {
		return nil, err
	}
	i, err := findPlaylist(playlists, id)
	if err != nil {
		return nil, err
	}
	return playlists[i], nil
}

// Create adds an empty playlist with one video track.
func (s *PlaylistStore) Create(name, description, user string) (*Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" || user == "" {
		return nil, fmt.Errorf("%w: playlist needs a name and a creator", ErrInvalidArgument)
	}
	playlists, err := s.load()
	if err != nil {
		return nil, err
	}

	now := NewTimestamp(s.clock.Now())
	p := &Playlist{
		ID:          "playlist_" + s.ids.New(),
		Name:        name,
		Description: description,
		CreatedBy:   user,
		CreatedAt:   now,
		UpdatedAt:   now,
		Clips:       []*Clip{},
		Tracks:      defaultTracks(),
	}
	if err := s.save(append(playlists, p)); err != nil {
		return nil, err
	}
	s.logger.Info("playlist created", "id", p.ID, "name", p.Name)
	return p, nil
}

// PlaylistUpdate holds the editable playlist fields; nil means unchanged.
type PlaylistUpdate struct {
	Name        *string
	Description *string
}

func (s *PlaylistStore) Update(id string, upd PlaylistUpdate) (*Playlist, error) {
	return s.mutate(id, func(p *Playlist) error {
		if upd.Name != nil {
			name := strings.TrimSpace(*upd.Name)
			if name == "" {
				return fmt.Errorf("%w: empty playlist name", ErrInvalidArgument)
			}
			p.Name = name
		}
		if upd.Description != nil {
			p.Description = *upd.Description
		}
		return nil
	})
}

func (s *PlaylistStore) Delete(id string) error {
	playlists, err := s.load()
	if err != nil {
		return err
	}
	i, err := findPlaylist(playlists, id)
	if err != nil {
		return err
	}
	playlists = append(playlists[:i:i], playlists[i+1:]...)
	if err := s.save(playlists); err != nil {
		return err
	}
	s.logger.Info("playlist deleted", "id", id)
	return nil
}

// Duplicate copies a playlist, clips and tracks included, under a new name.
// Clips get fresh ids.
func (s *PlaylistStore) Duplicate(id, name, user string) (*Playlist, error) {
	playlists, err := s.load()
	if err != nil {
		return nil, err
	}
	i, err := findPlaylist(playlists, id)
	if err != nil {
		return nil, err
	}
	src := playlists[i]
	if strings.TrimSpace(name) == "" {
		name = src.Name + " (copy)"
	}

	now := NewTimestamp(s.clock.Now())
	dup := &Playlist{
		ID:          "playlist_" + s.ids.New(),
		Name:        strings.TrimSpace(name),
		Description: src.Description,
		CreatedBy:   user,
		CreatedAt:   now,
		UpdatedAt:   now,
		Clips:       make([]*Clip, 0, len(src.Clips)),
		Tracks:      append([]Track(nil), src.Tracks...),
	}
	for _, c := range src.Clips {
		cc := *c
		cc.ID = "clip_" + s.ids.New()
		dup.Clips = append(dup.Clips, &cc)
	}
	if dup.Tracks == nil {
		dup.Tracks = defaultTracks()
	}
	if err := s.save(append(playlists, dup)); err != nil {
		return nil, err
	}
	return dup, nil
}

// NewClip identifies the media to append to a playlist. Duration defaults
// to DefaultClipDuration.
type NewClip struct {
	Key      StatusKey
	FilePath string
	Duration int
}

// AddClip appends a clip to the end of the timeline, snapshotting the
// current review status and comment count of its shot.
func (s *PlaylistStore) AddClip(playlistID string, in NewClip) (*Clip, error) {
	if err := in.Key.validate(); err != nil {
		return nil, err
	}
	if in.Duration < 0 {
		return nil, fmt.Errorf("%w: negative duration %d", ErrInvalidArgument, in.Duration)
	}
	if in.Duration == 0 {
		in.Duration = DefaultClipDuration
	}

	status, err := s.statuses.Get(in.Key)
	if err != nil {
		return nil, fmt.Errorf("snapshotting status: %w", err)
	}
	count, err := s.comments.Count(shotOf(in.Key), "")
	if err != nil {
		return nil, fmt.Errorf("snapshotting comment count: %w", err)
	}

	clip := &Clip{
		ID:           "clip_" + s.ids.New(),
		Episode:      in.Key.Episode,
		Sequence:     in.Key.Sequence,
		Shot:         in.Key.Shot,
		Department:   in.Key.Department,
		Version:      in.Key.Version,
		FilePath:     in.FilePath,
		Duration:     in.Duration,
		Status:       status,
		CommentCount: count,
		AddedAt:      NewTimestamp(s.clock.Now()),
	}
	_, err = s.mutate(playlistID, func(p *Playlist) error {
		p.Clips = append(p.Clips, clip)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("clip added", "playlist", playlistID, "clip", clip.ID, "key", in.Key.String())
	return clip, nil
}

func (s *PlaylistStore) RemoveClip(playlistID, clipID string) error {
	_, err := s.mutate(playlistID, func(p *Playlist) error {
		i := p.clipIndex(clipID)
		if i < 0 {
			return fmt.Errorf("%w: clip %s", ErrNotFound, clipID)
		}
		p.Clips = append(p.Clips[:i:i], p.Clips[i+1:]...)
		return nil
	})
	return err
}

// ReorderClips puts the clips in the given order. clipIDs must name every
// clip of the playlist exactly once; otherwise nothing is written.
func (s *PlaylistStore) ReorderClips(playlistID string, clipIDs []string) error {
	_, err := s.mutate(playlistID, func(p *Playlist) error {
		if !sameIDs(p.Clips, clipIDs) {
			return fmt.Errorf("%w: reorder must list each of the %d clips exactly once", ErrInvalidArgument, len(p.Clips))
		}
		byID := make(map[string]*Clip, len(p.Clips))
		for _, c := range p.Clips {
			byID[c.ID] = c
		}
		ordered := make([]*Clip, 0, len(clipIDs))
		for _, id := range clipIDs {
			ordered = append(ordered, byID[id])
		}
		p.Clips = ordered
		return nil
	})
	return err
}

func sameIDs(clips []*Clip, ids []string) bool {
	if len(clips) != len(ids) {
		return false
	}
	have := make([]string, len(clips))
	for i, c := range clips {
		have[i] = c.ID
	}
	want := append([]string(nil), ids...)
	sort.Strings(have)
	sort.Strings(want)
	for i := range have {
		if have[i] != want[i] {
			return false
		}
	}
	return true
}

// ClipUpdate holds the editable clip fields; nil means unchanged.
type ClipUpdate struct {
	Duration *int
	FilePath *string
}

func (s *PlaylistStore) UpdateClip(playlistID, clipID string, upd ClipUpdate) (*Clip, error) {
	var out *Clip
	_, err := s.mutate(playlistID, func(p *Playlist) error {
		i := p.clipIndex(clipID)
		if i < 0 {
			return fmt.Errorf("%w: clip %s", ErrNotFound, clipID)
		}
		c := p.Clips[i]
		if upd.Duration != nil {
			if *upd.Duration <= 0 {
				return fmt.Errorf("%w: duration must be positive", ErrInvalidArgument)
			}
			c.Duration = *upd.Duration
		}
		if upd.FilePath != nil {
			c.FilePath = *upd.FilePath
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RefreshCommentCounts recomputes the comment count snapshot of every clip.
func (s *PlaylistStore) RefreshCommentCounts(playlistID string) (*Playlist, error) {
	return s.mutate(playlistID, func(p *Playlist) error {
		counts := make(map[ShotInfo]int)
		for _, c := range p.Clips {
			shot := shotOf(c.key())
			n, ok := counts[shot]
			if !ok {
				var err error
				n, err = s.comments.Count(shot, "")
				if err != nil {
					return err
				}
				counts[shot] = n
			}
			c.CommentCount = n
		}
		return nil
	})
}

func shotOf(k StatusKey) ShotInfo {
	return ShotInfo{Episode: k.Episode, Sequence: k.Sequence, Shot: k.Shot}
}
