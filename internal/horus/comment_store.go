package horus

import (
	"errors"
	"fmt"
	"sort"
)

// CommentStore reads and writes per-shot comment documents. Every mutation
// loads the whole document, changes it, and writes the whole document back.
type CommentStore struct {
	fs     *FileSystem
	clock  Clock
	ids    IDGenerator
	logger Logger
}

func NewCommentStore(fs *FileSystem, clock Clock, ids IDGenerator, logger Logger) *CommentStore {
	return &CommentStore{fs: fs, clock: clock, ids: ids, logger: logger}
}

// Load returns the comment document of a shot. A shot nobody has commented
// on yet gets an empty document.
func (s *CommentStore) Load(shot ShotInfo) (*CommentDocument, error) {
	var doc CommentDocument
	err := s.fs.ReadDocument(CommentsFile(shot.Episode, shot.Sequence, shot.Shot), &doc)
	if errors.Is(err, ErrNotFound) {
		return newCommentDocument(shot), nil
	}
	if err == nil {
		err = checkDocument(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("loading comments for %s: %w", shot.Shot, err)
	}
	return &doc, nil
}

// Save replaces the comment document of a shot.
func (s *CommentStore) Save(shot ShotInfo, doc *CommentDocument) error {
	if err := s.fs.WriteDocument(CommentsFile(shot.Episode, shot.Sequence, shot.Shot), doc); err != nil {
		return fmt.Errorf("saving comments for %s: %w", shot.Shot, err)
	}
	return nil
}

// checkDocument rejects null comments and annotations.
func checkDocument(doc *CommentDocument) error {
	if err := checkForest(doc.Comments, 0); err != nil {
		return err
	}
	for _, a := range doc.Annotations {
		if a == nil {
			return fmt.Errorf("%w: null annotation entry", ErrMalformedDocument)
		}
	}
	return nil
}

// update runs fn against the loaded document and saves it if fn succeeds.
func (s *CommentStore) update(shot ShotInfo, fn func(doc *CommentDocument) error) error {
	doc, err := s.Load(shot)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.Save(shot, doc)
}

// NewComment carries the caller-supplied fields of a comment. An empty
// ParentID makes a top-level comment.
type NewComment struct {
	ParentID    string
	MediaFile   string
	FrameNumber *int
	UserID      string
	Content     string
	Mentions    []string
}

// Add appends a comment to the forest, or to the replies of ParentID.
func (s *CommentStore) Add(shot ShotInfo, in NewComment) (*Comment, error) {
	if in.UserID == "" || in.Content == "" {
		return nil, fmt.Errorf("%w: comment needs a user and content", ErrInvalidArgument)
	}

	now := NewTimestamp(s.clock.Now())
	c := &Comment{
		ID:           s.ids.New(),
		MediaFile:    in.MediaFile,
		FrameNumber:  in.FrameNumber,
		UserID:       in.UserID,
		Content:      in.Content,
		CreatedAt:    now,
		UpdatedAt:    now,
		MentionUsers: mentions(in.Content, in.Mentions),
		Reactions:    map[string][]string{},
		Replies:      []*Comment{},
		hasDepth:     true,
	}

	err := s.update(shot, func(doc *CommentDocument) error {
		if in.ParentID == "" {
			doc.Comments = append(doc.Comments, c)
			return nil
		}
		parent := FindComment(doc.Comments, in.ParentID)
		if parent == nil {
			return fmt.Errorf("%w: parent comment %s", ErrNotFound, in.ParentID)
		}
		pid := parent.ID
		c.ParentID = &pid
		c.ThreadDepth = parent.ThreadDepth + 1
		if c.MediaFile == "" {
			c.MediaFile = parent.MediaFile
		}
		parent.Replies = append(parent.Replies, c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("comment added", "shot", shot.Shot, "id", c.ID, "depth", c.ThreadDepth)
	return c, nil
}

// Delete removes a comment and all of its replies. It returns how many
// nodes were removed.
func (s *CommentStore) Delete(shot ShotInfo, id string) (int, error) {
	var removed int
	err := s.update(shot, func(doc *CommentDocument) error {
		forest, node := RemoveComment(doc.Comments, id)
		if node == nil {
			return fmt.Errorf("%w: comment %s", ErrNotFound, id)
		}
		removed = 1 + CountComments(node.Replies)
		doc.Comments = forest
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("comment deleted", "shot", shot.Shot, "id", id, "removed", removed)
	return removed, nil
}

// ToggleReaction adds user to the kind reaction of a comment, or removes
// them if present. It reports whether the user is now reacting.
func (s *CommentStore) ToggleReaction(shot ShotInfo, id, user, kind string) (bool, error) {
	if user == "" || kind == "" {
		return false, fmt.Errorf("%w: reaction needs a user and a kind", ErrInvalidArgument)
	}
	var active bool
	err := s.update(shot, func(doc *CommentDocument) error {
		c := FindComment(doc.Comments, id)
		if c == nil {
			return fmt.Errorf("%w: comment %s", ErrNotFound, id)
		}
		if c.Reactions == nil {
			c.Reactions = map[string][]string{}
		}
		users := c.Reactions[kind]
		for i, u := range users {
			if u == user {
				users = append(users[:i:i], users[i+1:]...)
				if len(users) == 0 {
					delete(c.Reactions, kind)
				} else {
					c.Reactions[kind] = users
				}
				return nil
			}
		}
		users = append(users, user)
		sort.Strings(users)
		c.Reactions[kind] = users
		active = true
		return nil
	})
	return active, err
}

// Edit replaces the content of a comment. Its mentions are recomputed from
// the new content plus any given explicitly, so names edited out are dropped.
func (s *CommentStore) Edit(shot ShotInfo, id, content string, explicit ...string) (*Comment, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: empty comment", ErrInvalidArgument)
	}
	return s.modify(shot, id, func(c *Comment) {
		c.Content = content
		c.MentionUsers = mentions(content, explicit)
	})
}

// Resolve marks a comment resolved or reopens it.
func (s *CommentStore) Resolve(shot ShotInfo, id string, resolved bool) (*Comment, error) {
	return s.modify(shot, id, func(c *Comment) {
		c.IsResolved = resolved
	})
}

func (s *CommentStore) modify(shot ShotInfo, id string, fn func(*Comment)) (*Comment, error) {
	var out *Comment
	err := s.update(shot, func(doc *CommentDocument) error {
		c := FindComment(doc.Comments, id)
		if c == nil {
			return fmt.Errorf("%w: comment %s", ErrNotFound, id)
		}
		fn(c)
		c.UpdatedAt = NewTimestamp(s.clock.Now())
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of comments on a shot, replies included. When
// mediaFile is set only top-level threads on that file are counted.
func (s *CommentStore) Count(shot ShotInfo, mediaFile string) (int, error) {
	doc, err := s.Load(shot)
	if err != nil {
		return 0, err
	}
	if mediaFile == "" {
		return CountComments(doc.Comments), nil
	}
	n := 0
	for _, c := range doc.Comments {
		if c.MediaFile == mediaFile {
			n += 1 + CountComments(c.Replies)
		}
	}
	return n, nil
}
