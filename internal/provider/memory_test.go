package provider

import (
	"errors"
	"testing"

	"horus-go/internal/horus"
)

func TestMemoryProvider_WriteAndRead(t *testing.T) {
	m := NewMemoryProvider()

	tests := []struct {
		name    string
		path    string
		content string
	}{
		{name: "root document", path: ".horus/playlists.json", content: "[]"},
		{name: "nested document", path: "Ep01/sq0010/SH0010/.horus/SH0010_comments.json", content: "{}"},
		{name: "empty file", path: "Ep01/empty.txt", content: ""},
		{name: "unclean path", path: "/Ep01/./sq0010/../sq0020/notes.txt", content: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.WriteFile(tt.path, []byte(tt.content)); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			got, err := m.ReadFile(tt.path)
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if string(got) != tt.content {
				t.Errorf("ReadFile() = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestMemoryProvider_ListDirectory(t *testing.T) {
	m := NewMemoryProvider()
	m.Mkdir("Ep01/sq0010/SH0020")
	m.Mkdir("Ep01/sq0010/SH0010")
	if err := m.WriteFile("Ep01/sq0010/readme.txt", []byte("hi")); err != nil {
		t.Fatal(err)
	}

	entries, err := m.ListDirectory("Ep01/sq0010")
	if err != nil {
		t.Fatalf("ListDirectory() error = %v", err)
	}
	want := []horus.DirEntry{
		{Name: "SH0010", IsDir: true},
		{Name: "SH0020", IsDir: true},
		{Name: "readme.txt"},
	}
	if len(entries) != len(want) {
		t.Fatalf("ListDirectory() = %v, want %v", entries, want)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entries[%d] = %+v, want %+v", i, entries[i], want[i])
		}
	}

	root, err := m.ListDirectory("")
	if err != nil {
		t.Fatalf("ListDirectory(root) error = %v", err)
	}
	if len(root) != 1 || root[0].Name != "Ep01" {
		t.Errorf("ListDirectory(root) = %v, want [Ep01]", root)
	}

	if _, err := m.ListDirectory("Ep09"); !errors.Is(err, horus.ErrNotFound) {
		t.Errorf("ListDirectory(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryProvider_Errors(t *testing.T) {
	m := NewMemoryProvider()

	if _, err := m.ReadFile("nope.json"); !errors.Is(err, horus.ErrNotFound) {
		t.Errorf("ReadFile(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := m.GetFileInfo("nope.json"); !errors.Is(err, horus.ErrNotFound) {
		t.Errorf("GetFileInfo(missing) error = %v, want ErrNotFound", err)
	}

	m.SetReadOnly(true)
	if err := m.WriteFile("a.json", []byte("{}")); !errors.Is(err, horus.ErrPermission) {
		t.Errorf("WriteFile(read-only) error = %v, want ErrPermission", err)
	}

	m.SetProbeError(errors.New("cable unplugged"))
	if err := m.Probe(); !errors.Is(err, horus.ErrConnection) {
		t.Errorf("Probe() error = %v, want ErrConnection", err)
	}
}

func TestMemoryProvider_FileInfoAndExists(t *testing.T) {
	m := NewMemoryProvider()
	if err := m.WriteFile("Ep01/a.json", []byte("12345")); err != nil {
		t.Fatal(err)
	}

	info, err := m.GetFileInfo("Ep01/a.json")
	if err != nil {
		t.Fatalf("GetFileInfo() error = %v", err)
	}
	if info.Size != 5 || info.IsDir {
		t.Errorf("GetFileInfo() = %+v, want size 5 file", info)
	}

	dirInfo, err := m.GetFileInfo("Ep01")
	if err != nil {
		t.Fatalf("GetFileInfo(dir) error = %v", err)
	}
	if !dirInfo.IsDir {
		t.Error("GetFileInfo(dir).IsDir = false, want true")
	}

	for path, want := range map[string]bool{"Ep01/a.json": true, "Ep01": true, "Ep02": false} {
		got, err := m.FileExists(path)
		if err != nil {
			t.Fatalf("FileExists(%q) error = %v", path, err)
		}
		if got != want {
			t.Errorf("FileExists(%q) = %v, want %v", path, got, want)
		}
	}
}
