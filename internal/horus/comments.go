package horus

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
)

// ShotInfo names the shot a comment document belongs to.
type ShotInfo struct {
	Episode  string `json:"episode"`
	Sequence string `json:"sequence"`
	Shot     string `json:"shot"`
}

// Comment is a review note. Replies nest to any depth; a reply is owned by
// its parent and is deleted with it.
type Comment struct {
	ID           string              `json:"id"`
	ParentID     *string             `json:"parent_id"`
	MediaFile    string              `json:"media_file"`
	FrameNumber  *int                `json:"frame_number"`
	UserID       string              `json:"user_id"`
	Content      string              `json:"content"`
	CreatedAt    Timestamp           `json:"created_at,omitzero"`
	UpdatedAt    Timestamp           `json:"updated_at,omitzero"`
	IsResolved   bool                `json:"is_resolved"`
	MentionUsers []string            `json:"mention_users"`
	Reactions    map[string][]string `json:"reactions"`
	ThreadDepth  int                 `json:"thread_depth"`
	Replies      []*Comment          `json:"replies"`

	// hasDepth is false for comments read from documents that carry no
	// thread_depth; their depth is derived from the tree and not written.
	hasDepth bool
}

// commentFields is Comment without its JSON methods.
type commentFields Comment

func (c Comment) MarshalJSON() ([]byte, error) {
	w := struct {
		commentFields
		ThreadDepth *int `json:"thread_depth,omitempty"`
	}{commentFields: commentFields(c)}
	if c.hasDepth {
		depth := c.ThreadDepth
		w.ThreadDepth = &depth
	}
	return json.Marshal(w)
}

func (c *Comment) UnmarshalJSON(b []byte) error {
	var w struct {
		commentFields
		ThreadDepth *int `json:"thread_depth"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*c = Comment(w.commentFields)
	if w.ThreadDepth != nil {
		c.ThreadDepth = *w.ThreadDepth
		c.hasDepth = true
	}
	return nil
}

// checkForest rejects null entries and fills in the depth of comments that
// were stored without one.
func checkForest(forest []*Comment, depth int) error {
	for _, c := range forest {
		if c == nil {
			return fmt.Errorf("%w: null comment entry", ErrMalformedDocument)
		}
		if !c.hasDepth {
			c.ThreadDepth = depth
		}
		if err := checkForest(c.Replies, c.ThreadDepth+1); err != nil {
			return err
		}
	}
	return nil
}

// CommentDocumentVersion is written into every comment document.
const CommentDocumentVersion = "1.0"

// CommentDocument is the per-shot comment file: a forest of comments plus
// the annotations drawn on that shot's media.
type CommentDocument struct {
	Version     string        `json:"version"`
	ShotInfo    ShotInfo      `json:"shot_info"`
	Comments    []*Comment    `json:"comments"`
	Annotations []*Annotation `json:"annotations"`
}

func newCommentDocument(shot ShotInfo) *CommentDocument {
	return &CommentDocument{
		Version:     CommentDocumentVersion,
		ShotInfo:    shot,
		Comments:    []*Comment{},
		Annotations: []*Annotation{},
	}
}

// FindComment searches the forest depth-first for id.
func FindComment(forest []*Comment, id string) *Comment {
	for _, c := range forest {
		if c == nil {
			continue
		}
		if c.ID == id {
			return c
		}
		if found := FindComment(c.Replies, id); found != nil {
			return found
		}
	}
	return nil
}

// RemoveComment returns a forest without the node id and its replies, plus
// the removed node. The input forest is left untouched; subtrees off the
// path to the removed node are shared. The removed node is nil if id is
// not in the forest.
func RemoveComment(forest []*Comment, id string) ([]*Comment, *Comment) {
	for i, c := range forest {
		if c == nil {
			continue
		}
		if c.ID == id {
			out := make([]*Comment, 0, len(forest)-1)
			out = append(out, forest[:i]...)
			out = append(out, forest[i+1:]...)
			return out, c
		}
		replies, removed := RemoveComment(c.Replies, id)
		if removed != nil {
			parent := *c
			parent.Replies = replies
			out := append([]*Comment(nil), forest...)
			out[i] = &parent
			return out, removed
		}
	}
	return forest, nil
}

// CountComments returns the number of nodes in the forest, replies included.
func CountComments(forest []*Comment) int {
	n := 0
	for _, c := range forest {
		if c == nil {
			continue
		}
		n += 1 + CountComments(c.Replies)
	}
	return n
}

// WalkComments visits every node depth-first, parents before replies.
// It stops early when fn returns false.
func WalkComments(forest []*Comment, fn func(*Comment) bool) bool {
	for _, c := range forest {
		if c == nil {
			continue
		}
		if !fn(c) {
			return false
		}
		if !WalkComments(c.Replies, fn) {
			return false
		}
	}
	return true
}

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9][A-Za-z0-9._-]*)`)

// mentions merges explicit mentions with @names found in content into a
// sorted set.
func mentions(content string, explicit []string) []string {
	set := make(map[string]struct{})
	for _, u := range explicit {
		if u != "" {
			set[u] = struct{}{}
		}
	}
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		set[m[1]] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
