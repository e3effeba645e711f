package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"horus-go/internal/config"
	"horus-go/internal/database"
	"horus-go/internal/horus"
	"horus-go/internal/provider"
)

// HorusApp is the application layer between the CLI and the horus stores.
// It constructs all dependencies from config, exposes high-level operations
// keyed by plain names, and manages the journal lifecycle on Close.
type HorusApp struct {
	cfg       *config.Config
	resolver  *horus.Resolver
	fs        *horus.FileSystem
	statuses  *horus.StatusStore
	comments  *horus.CommentStore
	playlists *horus.PlaylistStore
	journal   horus.Journal
	logger    horus.Logger
	op        *ReviewOperation
	logFile   io.Closer
}

// NewHorusApp creates a fully wired HorusApp from the given config.
// operation identifies the CLI command being run (e.g. "SetStatus", "AddClip").
// No provider is contacted until the first operation needs one.
// The caller must call Close when done.
func NewHorusApp(cfg *config.Config, operation string) (*HorusApp, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	patterns := namePatterns(cfg.Naming)
	if err := patterns.Validate(); err != nil {
		return nil, fmt.Errorf("naming config: %w", err)
	}

	sessionID := uuid.New().String()[:8]
	slogger, logFile, err := newLogger(cfg.LogDir, sessionID, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	journal, err := database.NewJournalFromConfig(cfg.Journal, horus.RealClock{})
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating journal: %w", err)
	}
	if err := journal.CheckMigrations(); err != nil {
		journal.Close()
		logFile.Close()
		return nil, fmt.Errorf("journal schema out of date: %w", err)
	}

	resolver := horus.NewResolver(provider.Candidates(cfg.Providers), logger)
	fs := horus.NewFileSystem(resolver, horus.NewCache(), logger, horus.Options{
		Patterns:     patterns,
		PlaybackRoot: cfg.Playback.Root,
	})
	clock := horus.RealClock{}
	statuses := horus.NewStatusStore(fs, clock, logger)
	comments := horus.NewCommentStore(fs, clock, horus.UUIDGenerator{}, logger)
	playlists := horus.NewPlaylistStore(fs, statuses, comments, clock, horus.NewULIDGenerator(), logger)

	logger.Debug("session started", "operation", operation, "user", cfg.User)

	return &HorusApp{
		cfg:       cfg,
		resolver:  resolver,
		fs:        fs,
		statuses:  statuses,
		comments:  comments,
		playlists: playlists,
		journal:   journal,
		logger:    logger,
		op:        NewReviewOperation(operation, ""),
		logFile:   logFile,
	}, nil
}

// namePatterns overlays the configured naming lists on the defaults.
func namePatterns(n config.NamingConfig) horus.NamePatterns {
	p := horus.DefaultNamePatterns()
	if len(n.Episodes) > 0 {
		p.Episodes = n.Episodes
	}
	if len(n.Sequences) > 0 {
		p.Sequences = n.Sequences
	}
	if len(n.Shots) > 0 {
		p.Shots = n.Shots
	}
	if len(n.Departments) > 0 {
		p.Departments = n.Departments
	}
	return p
}

// persistOperation saves the operation to the journal, giving it an auto-increment ID.
// This should only be called for commands that write to the project.
func (a *HorusApp) persistOperation() error {
	if a.op.Persisted() {
		return nil
	}
	rec, err := a.journal.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = rec.ID
	return nil
}

// mutate journals a write before running it and records its outcome.
func (a *HorusApp) mutate(params []string, fn func() error) error {
	a.op.Parameters = strings.Join(params, " ")
	if err := a.persistOperation(); err != nil {
		return err
	}
	return a.op.Fail(fn())
}

// Mode resolves the provider if needed and reports which one is in use.
func (a *HorusApp) Mode() string {
	if _, err := a.resolver.Provider(); err != nil {
		a.logger.Debug("resolving provider", "error", err)
	}
	return a.resolver.Mode()
}

func (a *HorusApp) Episodes() ([]string, error) {
	return a.fs.ListEpisodes()
}

func (a *HorusApp) Sequences(episode string) ([]string, error) {
	return a.fs.ListSequences(episode)
}

func (a *HorusApp) Shots(episode, sequence string) ([]horus.Shot, error) {
	return a.fs.ListShots(episode, sequence)
}

func (a *HorusApp) Departments(episode, sequence, shot string) ([]string, error) {
	return a.fs.ListDepartments(episode, sequence, shot)
}

// MediaView is a media record joined with its review status and the path a
// player should open.
type MediaView struct {
	Record   horus.MediaRecord
	Status   horus.Status
	Playback string
}

// Media lists the versions of a department's output, newest first. With
// latest set only the newest version of the shot and department is kept.
func (a *HorusApp) Media(episode, sequence, shot, department string, latest bool) ([]MediaView, error) {
	records, err := a.fs.ListMedia(episode, sequence, shot, department)
	if err != nil {
		return nil, err
	}
	if latest {
		records = horus.LatestOnly(records)
	}

	views := make([]MediaView, 0, len(records))
	for _, r := range records {
		status, err := a.statuses.Get(horus.StatusKey{
			Episode: r.Episode, Sequence: r.Sequence, Shot: r.Shot, Department: r.Department, Version: r.Version,
		})
		if err != nil {
			return nil, err
		}
		playback, _, err := a.fs.PlaybackPath(r, false)
		if err != nil {
			a.logger.Debug("no playback path", "file", r.FileName, "error", err)
		}
		views = append(views, MediaView{Record: r, Status: status, Playback: playback})
	}
	return views, nil
}

// findMedia returns the media record for one version.
func (a *HorusApp) findMedia(key horus.StatusKey) (horus.MediaRecord, error) {
	records, err := a.fs.ListMedia(key.Episode, key.Sequence, key.Shot, key.Department)
	if err != nil {
		return horus.MediaRecord{}, err
	}
	for _, r := range records {
		if strings.EqualFold(r.Version, key.Version) {
			return r, nil
		}
	}
	return horus.MediaRecord{}, fmt.Errorf("%w: media for %s", horus.ErrNotFound, key)
}

func (a *HorusApp) GetStatus(key horus.StatusKey) (*horus.StatusRecord, error) {
	return a.statuses.Record(key)
}

// SetStatus records a review decision as the configured user.
func (a *HorusApp) SetStatus(key horus.StatusKey, rawStatus string) (*horus.StatusRecord, error) {
	var rec *horus.StatusRecord
	err := a.mutate([]string{key.String(), rawStatus}, func() error {
		status, err := horus.ParseStatus(rawStatus)
		if err != nil {
			return err
		}
		rec, err = a.statuses.Set(key, status, a.cfg.User)
		return err
	})
	return rec, err
}

func (a *HorusApp) StatusHistory(key horus.StatusKey) ([]horus.StatusChange, error) {
	return a.statuses.History(key)
}

// SequenceStatuses returns every status recorded for a sequence.
func (a *HorusApp) SequenceStatuses(episode, sequence string) ([]horus.StatusEntry, error) {
	return a.statuses.Sequence(episode, sequence)
}

func (a *HorusApp) Comments(shot horus.ShotInfo) (*horus.CommentDocument, error) {
	return a.comments.Load(shot)
}

// AddComment starts a new thread on a media file. frame may be nil for a
// comment on the whole clip.
func (a *HorusApp) AddComment(shot horus.ShotInfo, mediaFile string, frame *int, content string) (*horus.Comment, error) {
	var c *horus.Comment
	err := a.mutate([]string{shotPath(shot), mediaFile}, func() error {
		var err error
		c, err = a.comments.Add(shot, horus.NewComment{
			MediaFile:   mediaFile,
			FrameNumber: frame,
			UserID:      a.cfg.User,
			Content:     content,
		})
		return err
	})
	return c, err
}

func (a *HorusApp) Reply(shot horus.ShotInfo, parentID, content string) (*horus.Comment, error) {
	var c *horus.Comment
	err := a.mutate([]string{shotPath(shot), parentID}, func() error {
		var err error
		c, err = a.comments.Add(shot, horus.NewComment{
			ParentID: parentID,
			UserID:   a.cfg.User,
			Content:  content,
		})
		return err
	})
	return c, err
}

// DeleteComment removes a comment and its replies, returning how many
// comments were removed.
func (a *HorusApp) DeleteComment(shot horus.ShotInfo, id string) (int, error) {
	var n int
	err := a.mutate([]string{shotPath(shot), id}, func() error {
		var err error
		n, err = a.comments.Delete(shot, id)
		return err
	})
	return n, err
}

// React toggles the configured user's reaction and reports whether it is now set.
func (a *HorusApp) React(shot horus.ShotInfo, id, kind string) (bool, error) {
	var on bool
	err := a.mutate([]string{shotPath(shot), id, kind}, func() error {
		var err error
		on, err = a.comments.ToggleReaction(shot, id, a.cfg.User, kind)
		return err
	})
	return on, err
}

func (a *HorusApp) ResolveComment(shot horus.ShotInfo, id string, resolved bool) (*horus.Comment, error) {
	var c *horus.Comment
	err := a.mutate([]string{shotPath(shot), id, fmt.Sprint(resolved)}, func() error {
		var err error
		c, err = a.comments.Resolve(shot, id, resolved)
		return err
	})
	return c, err
}

func (a *HorusApp) EditComment(shot horus.ShotInfo, id, content string) (*horus.Comment, error) {
	var c *horus.Comment
	err := a.mutate([]string{shotPath(shot), id}, func() error {
		var err error
		c, err = a.comments.Edit(shot, id, content)
		return err
	})
	return c, err
}

// Annotations returns the annotations of a shot. With commentID set only
// those linked to that comment are returned.
func (a *HorusApp) Annotations(shot horus.ShotInfo, commentID string) ([]*horus.Annotation, error) {
	if commentID != "" {
		return a.comments.AnnotationsFor(shot, commentID)
	}
	doc, err := a.comments.Load(shot)
	if err != nil {
		return nil, err
	}
	return doc.Annotations, nil
}

// AddAnnotationImage uploads a freehand drawing read from pngPath on the
// local disk and links it to commentID when one is given.
func (a *HorusApp) AddAnnotationImage(key horus.StatusKey, frame int, pngPath, commentID string) (*horus.Annotation, error) {
	png, err := os.ReadFile(pngPath)
	if err != nil {
		return nil, fmt.Errorf("reading annotation image: %w", err)
	}
	shot := horus.ShotInfo{Episode: key.Episode, Sequence: key.Sequence, Shot: key.Shot}

	var ann *horus.Annotation
	err = a.mutate([]string{key.String(), fmt.Sprint(frame)}, func() error {
		var err error
		ann, err = a.comments.SaveAnnotationImage(shot, key.Department, key.Version, frame, png, horus.NewAnnotation{
			LinkedCommentID: commentID,
			CreatedBy:       a.cfg.User,
		})
		return err
	})
	return ann, err
}

func (a *HorusApp) AnnotationImages(key horus.StatusKey) ([]horus.AnnotationImage, error) {
	shot := horus.ShotInfo{Episode: key.Episode, Sequence: key.Sequence, Shot: key.Shot}
	return a.comments.ListAnnotationImages(shot, key.Department, key.Version)
}

func (a *HorusApp) Playlists() ([]*horus.Playlist, error) {
	return a.playlists.List()
}

func (a *HorusApp) Playlist(id string) (*horus.Playlist, error) {
	return a.playlists.Get(id)
}

func (a *HorusApp) CreatePlaylist(name, description string) (*horus.Playlist, error) {
	var p *horus.Playlist
	err := a.mutate([]string{name}, func() error {
		var err error
		p, err = a.playlists.Create(name, description, a.cfg.User)
		return err
	})
	return p, err
}

func (a *HorusApp) RenamePlaylist(id, name string) (*horus.Playlist, error) {
	var p *horus.Playlist
	err := a.mutate([]string{id, name}, func() error {
		var err error
		p, err = a.playlists.Update(id, horus.PlaylistUpdate{Name: &name})
		return err
	})
	return p, err
}

func (a *HorusApp) DeletePlaylist(id string) error {
	return a.mutate([]string{id}, func() error {
		return a.playlists.Delete(id)
	})
}

func (a *HorusApp) DuplicatePlaylist(id, name string) (*horus.Playlist, error) {
	var p *horus.Playlist
	err := a.mutate([]string{id, name}, func() error {
		var err error
		p, err = a.playlists.Duplicate(id, name, a.cfg.User)
		return err
	})
	return p, err
}

// AddClip appends the given version to a playlist. The clip's file path is
// the version's playback path; duration 0 means the default length.
func (a *HorusApp) AddClip(playlistID string, key horus.StatusKey, duration int) (*horus.Clip, error) {
	var clip *horus.Clip
	err := a.mutate([]string{playlistID, key.String()}, func() error {
		record, err := a.findMedia(key)
		if err != nil {
			return err
		}
		filePath, _, err := a.fs.PlaybackPath(record, false)
		if err != nil {
			return err
		}
		clip, err = a.playlists.AddClip(playlistID, horus.NewClip{Key: key, FilePath: filePath, Duration: duration})
		return err
	})
	return clip, err
}

func (a *HorusApp) RemoveClip(playlistID, clipID string) error {
	return a.mutate([]string{playlistID, clipID}, func() error {
		return a.playlists.RemoveClip(playlistID, clipID)
	})
}

func (a *HorusApp) ReorderClips(playlistID string, clipIDs []string) error {
	return a.mutate(append([]string{playlistID}, clipIDs...), func() error {
		return a.playlists.ReorderClips(playlistID, clipIDs)
	})
}

func (a *HorusApp) SetClipDuration(playlistID, clipID string, frames int) (*horus.Clip, error) {
	var clip *horus.Clip
	err := a.mutate([]string{playlistID, clipID, fmt.Sprint(frames)}, func() error {
		var err error
		clip, err = a.playlists.UpdateClip(playlistID, clipID, horus.ClipUpdate{Duration: &frames})
		return err
	})
	return clip, err
}

// RefreshCounts re-reads the comment count of every clip in a playlist.
func (a *HorusApp) RefreshCounts(playlistID string) (*horus.Playlist, error) {
	var p *horus.Playlist
	err := a.mutate([]string{playlistID}, func() error {
		var err error
		p, err = a.playlists.RefreshCommentCounts(playlistID)
		return err
	})
	return p, err
}

// Refresh drops every cached status document and media listing.
func (a *HorusApp) Refresh() {
	a.fs.Refresh()
}

// History returns the most recent operations from the journal.
func (a *HorusApp) History(limit int) ([]*horus.Operation, error) {
	return a.journal.ListOperations(limit)
}

func shotPath(s horus.ShotInfo) string {
	return s.Episode + "/" + s.Sequence + "/" + s.Shot
}

// Close finalizes the operation and closes all resources.
func (a *HorusApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.journal.FinishOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}
	if err := a.journal.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing journal: %w", err)
	}
	if err := a.resolver.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing provider: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
