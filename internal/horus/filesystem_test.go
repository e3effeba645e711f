package horus_test

import (
	"errors"
	"reflect"
	"testing"

	"horus-go/internal/horus"
	"horus-go/internal/testutil"
)

func seedTree(t *testing.T, p *testutil.Project) {
	t.Helper()
	for _, dir := range []string{
		"Ep01/sq0010/SH0010/comp/output",
		"Ep01/sq0010/SH0010/anim",
		"Ep01/sq0010/SH0010/notes",
		"Ep01/sq0010/SH0020",
		"Ep01/sq0020",
		"Ep02/sq0099",
		"RD01",
		"assets",
		"Ep01/dailies",
	} {
		p.Mkdir(dir)
	}
	p.WriteFile(t, "Ep03.txt", "not a directory")
}

func TestFileSystem_Discovery(t *testing.T) {
	p := testutil.NewProject(t)
	seedTree(t, p)

	episodes, err := p.FS.ListEpisodes()
	if err != nil {
		t.Fatalf("ListEpisodes() error = %v", err)
	}
	if want := []string{"Ep01", "Ep02", "RD01"}; !reflect.DeepEqual(episodes, want) {
		t.Errorf("ListEpisodes() = %v, want %v", episodes, want)
	}

	sequences, err := p.FS.ListSequences("Ep01")
	if err != nil {
		t.Fatalf("ListSequences() error = %v", err)
	}
	if want := []string{"sq0010", "sq0020"}; !reflect.DeepEqual(sequences, want) {
		t.Errorf("ListSequences() = %v, want %v", sequences, want)
	}

	departments, err := p.FS.ListDepartments("Ep01", "sq0010", "SH0010")
	if err != nil {
		t.Fatalf("ListDepartments() error = %v", err)
	}
	if want := []string{"anim", "comp"}; !reflect.DeepEqual(departments, want) {
		t.Errorf("ListDepartments() = %v, want %v", departments, want)
	}
}

func TestFileSystem_EmptyLevels(t *testing.T) {
	p := testutil.NewProject(t)
	seedTree(t, p)

	tests := []struct {
		name string
		list func() (int, error)
	}{
		{"sequence without shots", func() (int, error) {
			shots, err := p.FS.ListShots("Ep02", "sq0099")
			return len(shots), err
		}},
		{"missing sequence", func() (int, error) {
			shots, err := p.FS.ListShots("Ep02", "sq0404")
			return len(shots), err
		}},
		{"missing episode", func() (int, error) {
			seqs, err := p.FS.ListSequences("Ep99")
			return len(seqs), err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := tt.list()
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if n != 0 {
				t.Errorf("len = %d, want 0", n)
			}
		})
	}
}

func TestFileSystem_ListShotsWithMetadata(t *testing.T) {
	p := testutil.NewProject(t)
	seedTree(t, p)
	p.WriteFile(t, horus.ShotMetadataFile("Ep01", "sq0010", "SH0010"), `{"frame_in": 1001, "frame_out": 1096}`)
	p.WriteFile(t, horus.ShotMetadataFile("Ep01", "sq0010", "SH0020"), `{"frame_in": `)

	shots, err := p.FS.ListShots("Ep01", "sq0010")
	if err != nil {
		t.Fatalf("ListShots() error = %v", err)
	}
	if len(shots) != 2 {
		t.Fatalf("len(ListShots()) = %d, want 2", len(shots))
	}
	if shots[0].Name != "SH0010" || shots[0].Metadata["frame_in"] != float64(1001) {
		t.Errorf("shots[0] = %+v, want SH0010 with frame_in 1001", shots[0])
	}
	if shots[1].Name != "SH0020" || len(shots[1].Metadata) != 0 {
		t.Errorf("shots[1] = %+v, want SH0020 with no metadata", shots[1])
	}
}

func TestFileSystem_CustomPatterns(t *testing.T) {
	p := testutil.NewProject(t)
	seedTree(t, p)

	fs := horus.NewFileSystem(p.Resolver, horus.NewCache(), horus.NewNopLogger(), horus.Options{
		Patterns: horus.NamePatterns{Episodes: []string{"RD*"}},
	})
	episodes, err := fs.ListEpisodes()
	if err != nil {
		t.Fatalf("ListEpisodes() error = %v", err)
	}
	if want := []string{"RD01"}; !reflect.DeepEqual(episodes, want) {
		t.Errorf("ListEpisodes() = %v, want %v", episodes, want)
	}
}

func TestNamePatterns_Validate(t *testing.T) {
	if err := horus.DefaultNamePatterns().Validate(); err != nil {
		t.Errorf("DefaultNamePatterns().Validate() error = %v", err)
	}

	bad := horus.DefaultNamePatterns()
	bad.Shots = []string{"SH[0-9"}
	if err := bad.Validate(); !errors.Is(err, horus.ErrInvalidArgument) {
		t.Errorf("Validate() error = %v, want ErrInvalidArgument", err)
	}

	empty := horus.DefaultNamePatterns()
	empty.Departments = nil
	if err := empty.Validate(); !errors.Is(err, horus.ErrInvalidArgument) {
		t.Errorf("Validate() error = %v, want ErrInvalidArgument", err)
	}
}

func TestFileSystem_Documents(t *testing.T) {
	p := testutil.NewProject(t)

	type doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	if err := p.FS.WriteDocument("x/doc.json", doc{Name: "a", Count: 2}); err != nil {
		t.Fatalf("WriteDocument() error = %v", err)
	}
	want := "{\n  \"name\": \"a\",\n  \"count\": 2\n}\n"
	if got := p.ReadFile(t, "x/doc.json"); got != want {
		t.Errorf("stored document = %q, want %q", got, want)
	}

	var got doc
	if err := p.FS.ReadDocument("x/doc.json", &got); err != nil {
		t.Fatalf("ReadDocument() error = %v", err)
	}
	if got.Name != "a" || got.Count != 2 {
		t.Errorf("ReadDocument() = %+v", got)
	}

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"truncated", `{"name": `, horus.ErrMalformedDocument},
		{"empty", "", horus.ErrMalformedDocument},
		{"whitespace", "  \n", horus.ErrMalformedDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.WriteFile(t, "bad.json", tt.content)
			var d doc
			if err := p.FS.ReadDocument("bad.json", &d); !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	var d doc
	if err := p.FS.ReadDocument("missing.json", &d); !errors.Is(err, horus.ErrNotFound) {
		t.Errorf("ReadDocument(missing) error = %v, want ErrNotFound", err)
	}
}

func TestFileSystem_WriteFailures(t *testing.T) {
	p := testutil.NewProject(t)
	p.Provider.SetReadOnly(true)

	if err := p.FS.WriteDocument("x.json", map[string]int{}); !errors.Is(err, horus.ErrPermission) {
		t.Errorf("WriteDocument() error = %v, want ErrPermission", err)
	}
}

func TestFileSystem_Unavailable(t *testing.T) {
	fs := horus.NewFileSystem(horus.NewResolver(nil, horus.NewNopLogger()), horus.NewCache(), horus.NewNopLogger(), horus.Options{})

	if _, err := fs.ListEpisodes(); !errors.Is(err, horus.ErrUnavailable) {
		t.Errorf("ListEpisodes() error = %v, want ErrUnavailable", err)
	}
	if err := fs.WriteDocument("x.json", 1); !errors.Is(err, horus.ErrUnavailable) {
		t.Errorf("WriteDocument() error = %v, want ErrUnavailable", err)
	}
	if fs.Mode() != horus.ModeUnavailable {
		t.Errorf("Mode() = %q, want %q", fs.Mode(), horus.ModeUnavailable)
	}
}

func TestFileSystem_StatusDocumentCache(t *testing.T) {
	p := testutil.NewProject(t)

	doc, err := p.FS.LoadStatusDocument("Ep01", "sq0010")
	if err != nil {
		t.Fatalf("LoadStatusDocument() error = %v", err)
	}
	if len(doc.Statuses) != 0 || doc.Version != horus.StatusDocumentVersion {
		t.Errorf("new document = %+v", doc)
	}
	if statuses, _ := p.FS.Cache().Len(); statuses != 0 {
		t.Errorf("cached statuses = %d, want 0 before first write", statuses)
	}

	if err := p.FS.SaveStatusDocument(doc); err != nil {
		t.Fatalf("SaveStatusDocument() error = %v", err)
	}
	if statuses, _ := p.FS.Cache().Len(); statuses != 1 {
		t.Errorf("cached statuses = %d, want 1", statuses)
	}

	// Edits behind the cache are not seen until the cache is refreshed.
	p.WriteFile(t, horus.StatusFile("Ep01", "sq0010"), `{"version":"1.0","episode":"Ep01","sequence":"sq0010","statuses":{"SH0010_comp_v001":{"current_status":"approved","history":[]}}}`)
	cached, err := p.FS.LoadStatusDocument("Ep01", "sq0010")
	if err != nil {
		t.Fatalf("LoadStatusDocument() error = %v", err)
	}
	if len(cached.Statuses) != 0 {
		t.Errorf("cached document changed before refresh: %+v", cached.Statuses)
	}

	p.FS.Refresh()
	fresh, err := p.FS.LoadStatusDocument("Ep01", "sq0010")
	if err != nil {
		t.Fatalf("LoadStatusDocument() error = %v", err)
	}
	if len(fresh.Statuses) != 1 {
		t.Errorf("len(Statuses) after refresh = %d, want 1", len(fresh.Statuses))
	}
}

func TestCache_CopiesValues(t *testing.T) {
	p := testutil.NewProject(t)
	doc, err := p.FS.LoadStatusDocument("Ep01", "sq0010")
	if err != nil {
		t.Fatalf("LoadStatusDocument() error = %v", err)
	}
	if err := p.FS.SaveStatusDocument(doc); err != nil {
		t.Fatalf("SaveStatusDocument() error = %v", err)
	}

	doc.Statuses["SH0010_comp_v001"] = &horus.StatusRecord{CurrentStatus: horus.StatusApproved}

	again, err := p.FS.LoadStatusDocument("Ep01", "sq0010")
	if err != nil {
		t.Fatalf("LoadStatusDocument() error = %v", err)
	}
	if len(again.Statuses) != 0 {
		t.Error("mutating a returned document changed the cache")
	}

	p.FS.Cache().InvalidateStatus("Ep01", "sq0010")
	if statuses, _ := p.FS.Cache().Len(); statuses != 0 {
		t.Errorf("cached statuses after invalidate = %d, want 0", statuses)
	}
}
