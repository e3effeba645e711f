package horus_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"horus-go/internal/horus"
	"horus-go/internal/testutil"
)

var sh0010 = horus.ShotInfo{Episode: "Ep01", Sequence: "sq0010", Shot: "SH0010"}

func addComment(t *testing.T, p *testutil.Project, parent, content string) *horus.Comment {
	t.Helper()
	c, err := p.Comments.Add(sh0010, horus.NewComment{
		ParentID:  parent,
		MediaFile: "SH0010_comp_v001.mov",
		UserID:    "alice",
		Content:   content,
	})
	if err != nil {
		t.Fatalf("Add(%q) error = %v", content, err)
	}
	return c
}

func TestCommentStore_ReplyDepth(t *testing.T) {
	p := testutil.NewProject(t)

	root := addComment(t, p, "", "edge flicker on frame 1012")
	reply := addComment(t, p, root.ID, "fixed in v002")
	nested := addComment(t, p, reply.ID, "confirmed")

	if root.ThreadDepth != 0 || root.ParentID != nil {
		t.Errorf("root = depth %d parent %v", root.ThreadDepth, root.ParentID)
	}
	if reply.ThreadDepth != 1 || reply.ParentID == nil || *reply.ParentID != root.ID {
		t.Errorf("reply = depth %d parent %v", reply.ThreadDepth, reply.ParentID)
	}
	if nested.ThreadDepth != 2 {
		t.Errorf("nested depth = %d, want 2", nested.ThreadDepth)
	}

	doc, err := p.Comments.Load(sh0010)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(doc.Comments) != 1 || horus.CountComments(doc.Comments) != 3 {
		t.Errorf("forest = %d roots, %d nodes; want 1, 3", len(doc.Comments), horus.CountComments(doc.Comments))
	}
	if got := horus.FindComment(doc.Comments, nested.ID); got == nil || got.Content != "confirmed" {
		t.Errorf("FindComment(nested) = %v", got)
	}
}

func TestCommentStore_ReplyInheritsMediaFile(t *testing.T) {
	p := testutil.NewProject(t)
	root := addComment(t, p, "", "root")

	reply, err := p.Comments.Add(sh0010, horus.NewComment{ParentID: root.ID, UserID: "bob", Content: "reply"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if reply.MediaFile != root.MediaFile {
		t.Errorf("reply MediaFile = %q, want %q", reply.MediaFile, root.MediaFile)
	}
}

func TestCommentStore_AddErrors(t *testing.T) {
	p := testutil.NewProject(t)

	tests := []struct {
		name    string
		in      horus.NewComment
		wantErr error
	}{
		{"unknown parent", horus.NewComment{ParentID: "nope", UserID: "alice", Content: "x"}, horus.ErrNotFound},
		{"no content", horus.NewComment{UserID: "alice"}, horus.ErrInvalidArgument},
		{"no user", horus.NewComment{Content: "x"}, horus.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Comments.Add(sh0010, tt.in); !errors.Is(err, tt.wantErr) {
				t.Errorf("Add() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if exists, _ := p.Provider.FileExists(horus.CommentsFile("Ep01", "sq0010", "SH0010")); exists {
		t.Error("rejected Add() wrote a comment document")
	}
}

func TestCommentStore_DeleteRemovesSubtree(t *testing.T) {
	p := testutil.NewProject(t)

	keep := addComment(t, p, "", "keep me")
	root := addComment(t, p, "", "delete me")
	r1 := addComment(t, p, root.ID, "r1")
	addComment(t, p, r1.ID, "r1a")
	addComment(t, p, root.ID, "r2")

	removed, err := p.Comments.Delete(sh0010, root.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if removed != 4 {
		t.Errorf("Delete() removed %d, want 4", removed)
	}

	doc, err := p.Comments.Load(sh0010)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if horus.CountComments(doc.Comments) != 1 || doc.Comments[0].ID != keep.ID {
		t.Errorf("remaining forest = %+v", doc.Comments)
	}

	if _, err := p.Comments.Delete(sh0010, root.ID); !errors.Is(err, horus.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestCommentStore_DeleteReply(t *testing.T) {
	p := testutil.NewProject(t)
	root := addComment(t, p, "", "root")
	reply := addComment(t, p, root.ID, "reply")

	removed, err := p.Comments.Delete(sh0010, reply.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Delete() removed %d, want 1", removed)
	}
	n, err := p.Comments.Count(sh0010, "")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestCommentStore_SaveLoadIsStable(t *testing.T) {
	p := testutil.NewProject(t)
	root := addComment(t, p, "", "check @bob and @carol")
	addComment(t, p, root.ID, "on it")
	if _, err := p.Comments.ToggleReaction(sh0010, root.ID, "bob", "thumbs_up"); err != nil {
		t.Fatalf("ToggleReaction() error = %v", err)
	}

	path := horus.CommentsFile("Ep01", "sq0010", "SH0010")
	before := p.ReadFile(t, path)

	doc, err := p.Comments.Load(sh0010)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := p.Comments.Save(sh0010, doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if after := p.ReadFile(t, path); after != before {
		t.Errorf("Save(Load()) changed the document:\nbefore: %s\nafter:  %s", before, after)
	}
}

// A document written by another tool: no updated_at, no thread_depth and
// naive timestamps with microseconds.
const foreignComments = `{
  "version": "1.0",
  "shot_info": {"episode": "Ep01", "sequence": "sq0010", "shot": "SH0010"},
  "comments": [
    {
      "id": "c1",
      "parent_id": null,
      "media_file": "SH0010_comp_v001.mov",
      "frame_number": 1012,
      "user_id": "alice",
      "content": "edge flicker",
      "created_at": "2024-01-01T10:00:00.123456",
      "is_resolved": false,
      "mention_users": [],
      "reactions": {},
      "replies": [
        {
          "id": "c2",
          "parent_id": "c1",
          "media_file": "SH0010_comp_v001.mov",
          "frame_number": null,
          "user_id": "bob",
          "content": "fixed in v002",
          "created_at": "2024-01-01T11:00:00.000001",
          "is_resolved": false,
          "mention_users": [],
          "reactions": {},
          "replies": []
        }
      ]
    }
  ],
  "annotations": []
}`

func TestCommentStore_ForeignDocumentRoundTrip(t *testing.T) {
	p := testutil.NewProject(t)
	path := horus.CommentsFile("Ep01", "sq0010", "SH0010")
	p.WriteFile(t, path, foreignComments)

	doc, err := p.Comments.Load(sh0010)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	reply := horus.FindComment(doc.Comments, "c2")
	if reply == nil || reply.ThreadDepth != 1 {
		t.Fatalf("FindComment(c2) = %+v, want depth 1", reply)
	}
	if err := p.Comments.Save(sh0010, doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var before, after any
	if err := json.Unmarshal([]byte(foreignComments), &before); err != nil {
		t.Fatalf("Unmarshal(before) error = %v", err)
	}
	saved := p.ReadFile(t, path)
	if err := json.Unmarshal([]byte(saved), &after); err != nil {
		t.Fatalf("Unmarshal(after) error = %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Errorf("Save(Load()) changed the document:\n%s", saved)
	}
}

func TestCommentStore_NullEntries(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"null comment", `{"version":"1.0","comments":[null],"annotations":[]}`},
		{"null reply", `{"version":"1.0","comments":[{"id":"c1","replies":[null]}],"annotations":[]}`},
		{"null annotation", `{"version":"1.0","comments":[],"annotations":[null]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testutil.NewProject(t)
			p.WriteFile(t, horus.CommentsFile("Ep01", "sq0010", "SH0010"), tt.doc)

			if _, err := p.Comments.Load(sh0010); !errors.Is(err, horus.ErrMalformedDocument) {
				t.Errorf("Load() error = %v, want ErrMalformedDocument", err)
			}
			if _, err := p.Comments.Count(sh0010, ""); !errors.Is(err, horus.ErrMalformedDocument) {
				t.Errorf("Count() error = %v, want ErrMalformedDocument", err)
			}
			_, err := p.Comments.Add(sh0010, horus.NewComment{UserID: "alice", Content: "hi"})
			if !errors.Is(err, horus.ErrMalformedDocument) {
				t.Errorf("Add() error = %v, want ErrMalformedDocument", err)
			}
		})
	}
}

func TestCommentStore_Mentions(t *testing.T) {
	p := testutil.NewProject(t)
	c, err := p.Comments.Add(sh0010, horus.NewComment{
		UserID:   "alice",
		Content:  "@carol please check, cc @bob",
		Mentions: []string{"dave", "bob"},
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if want := []string{"bob", "carol", "dave"}; !reflect.DeepEqual(c.MentionUsers, want) {
		t.Errorf("MentionUsers = %v, want %v", c.MentionUsers, want)
	}
}

func TestCommentStore_ToggleReaction(t *testing.T) {
	p := testutil.NewProject(t)
	c := addComment(t, p, "", "nice")

	steps := []struct {
		user       string
		wantActive bool
		wantUsers  []string
	}{
		{"bob", true, []string{"bob"}},
		{"alice", true, []string{"alice", "bob"}},
		{"bob", false, []string{"alice"}},
		{"alice", false, nil},
	}
	for i, step := range steps {
		active, err := p.Comments.ToggleReaction(sh0010, c.ID, step.user, "heart")
		if err != nil {
			t.Fatalf("ToggleReaction(%d) error = %v", i, err)
		}
		if active != step.wantActive {
			t.Errorf("step %d active = %v, want %v", i, active, step.wantActive)
		}
		doc, err := p.Comments.Load(sh0010)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		got := horus.FindComment(doc.Comments, c.ID).Reactions["heart"]
		if !reflect.DeepEqual(got, step.wantUsers) {
			t.Errorf("step %d users = %v, want %v", i, got, step.wantUsers)
		}
	}

	if _, err := p.Comments.ToggleReaction(sh0010, "nope", "bob", "heart"); !errors.Is(err, horus.ErrNotFound) {
		t.Errorf("ToggleReaction(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestCommentStore_EditAndResolve(t *testing.T) {
	p := testutil.NewProject(t)
	c := addComment(t, p, "", "first draft")
	p.Clock.Advance(time.Minute)

	edited, err := p.Comments.Edit(sh0010, c.ID, "second draft for @erin")
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if edited.Content != "second draft for @erin" || !edited.UpdatedAt.After(edited.CreatedAt.Time) {
		t.Errorf("Edit() = %+v", edited)
	}
	if want := []string{"erin"}; !reflect.DeepEqual(edited.MentionUsers, want) {
		t.Errorf("MentionUsers = %v, want %v", edited.MentionUsers, want)
	}

	edited, err = p.Comments.Edit(sh0010, c.ID, "second draft for @frank")
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if want := []string{"frank"}; !reflect.DeepEqual(edited.MentionUsers, want) {
		t.Errorf("MentionUsers after re-edit = %v, want %v", edited.MentionUsers, want)
	}

	resolved, err := p.Comments.Resolve(sh0010, c.ID, true)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !resolved.IsResolved {
		t.Error("IsResolved = false after Resolve(true)")
	}

	if _, err := p.Comments.Edit(sh0010, c.ID, ""); !errors.Is(err, horus.ErrInvalidArgument) {
		t.Errorf("Edit(empty) error = %v, want ErrInvalidArgument", err)
	}
}

func TestCommentStore_CountByMediaFile(t *testing.T) {
	p := testutil.NewProject(t)
	root := addComment(t, p, "", "on v001")
	addComment(t, p, root.ID, "reply")
	if _, err := p.Comments.Add(sh0010, horus.NewComment{MediaFile: "SH0010_comp_v002.mov", UserID: "bob", Content: "on v002"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	tests := []struct {
		mediaFile string
		want      int
	}{
		{"", 3},
		{"SH0010_comp_v001.mov", 2},
		{"SH0010_comp_v002.mov", 1},
		{"SH0010_comp_v009.mov", 0},
	}
	for _, tt := range tests {
		n, err := p.Comments.Count(sh0010, tt.mediaFile)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != tt.want {
			t.Errorf("Count(%q) = %d, want %d", tt.mediaFile, n, tt.want)
		}
	}
}

func TestRemoveComment_LeavesInputUntouched(t *testing.T) {
	leaf := &horus.Comment{ID: "c3"}
	mid := &horus.Comment{ID: "c2", Replies: []*horus.Comment{leaf}}
	other := &horus.Comment{ID: "c4"}
	forest := []*horus.Comment{{ID: "c1", Replies: []*horus.Comment{mid}}, other}

	out, removed := horus.RemoveComment(forest, "c3")
	if removed != leaf {
		t.Fatalf("RemoveComment() removed %v, want c3", removed)
	}
	if horus.CountComments(out) != 3 {
		t.Errorf("CountComments(out) = %d, want 3", horus.CountComments(out))
	}
	if horus.CountComments(forest) != 4 || len(mid.Replies) != 1 {
		t.Error("RemoveComment() mutated its input")
	}
	if out[1] != other {
		t.Error("untouched subtree was copied instead of shared")
	}

	same, removed := horus.RemoveComment(forest, "missing")
	if removed != nil || len(same) != len(forest) {
		t.Errorf("RemoveComment(missing) = %v, %v", same, removed)
	}
}

func TestWalkComments_StopsEarly(t *testing.T) {
	forest := []*horus.Comment{
		{ID: "a", Replies: []*horus.Comment{{ID: "a1"}, {ID: "a2"}}},
		{ID: "b"},
	}
	var seen []string
	horus.WalkComments(forest, func(c *horus.Comment) bool {
		seen = append(seen, c.ID)
		return c.ID != "a1"
	})
	if want := []string{"a", "a1"}; !reflect.DeepEqual(seen, want) {
		t.Errorf("visited %v, want %v", seen, want)
	}
}
