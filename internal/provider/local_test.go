package provider

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"horus-go/internal/horus"
)

func TestLocalProvider_WriteReadList(t *testing.T) {
	root := t.TempDir()
	l, err := NewLocalProvider(root)
	if err != nil {
		t.Fatalf("NewLocalProvider() error = %v", err)
	}

	if err := l.WriteFile("Ep01/.horus/status/sq0010_status.json", []byte(`{"version":"1.0"}`)); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := l.ReadFile("Ep01/.horus/status/sq0010_status.json")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != `{"version":"1.0"}` {
		t.Errorf("ReadFile() = %q", got)
	}

	entries, err := l.ListDirectory("Ep01")
	if err != nil {
		t.Fatalf("ListDirectory() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name != ".horus" || !entries[0].IsDir {
		t.Errorf("ListDirectory() = %v, want [.horus/]", entries)
	}

	// No temp files are left behind.
	files, err := os.ReadDir(filepath.Join(root, "Ep01", ".horus", "status"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Errorf("status dir has %d entries, want 1", len(files))
	}
}

func TestLocalProvider_StaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	l, err := NewLocalProvider(root)
	if err != nil {
		t.Fatal(err)
	}

	if err := l.WriteFile("../../escape.txt", []byte("x")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escape.txt")); err != nil {
		t.Errorf("expected write to land inside root: %v", err)
	}
	if got := l.AbsolutePath("../x.mov"); got != filepath.Join(root, "x.mov") {
		t.Errorf("AbsolutePath() = %q, want %q", got, filepath.Join(root, "x.mov"))
	}
}

func TestLocalProvider_Errors(t *testing.T) {
	root := t.TempDir()
	l, err := NewLocalProvider(root)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := l.ReadFile("missing.json"); !errors.Is(err, horus.ErrNotFound) {
		t.Errorf("ReadFile(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := l.ListDirectory("Ep99"); !errors.Is(err, horus.ErrNotFound) {
		t.Errorf("ListDirectory(missing) error = %v, want ErrNotFound", err)
	}
	exists, err := l.FileExists("missing.json")
	if err != nil || exists {
		t.Errorf("FileExists(missing) = %v, %v; want false, nil", exists, err)
	}

	if runtime.GOOS != "windows" && os.Geteuid() != 0 {
		locked := filepath.Join(root, "locked")
		if err := os.Mkdir(locked, 0555); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { os.Chmod(locked, 0755) })
		if err := l.WriteFile("locked/a.json", []byte("{}")); !errors.Is(err, horus.ErrPermission) {
			t.Errorf("WriteFile(read-only dir) error = %v, want ErrPermission", err)
		}
	}
}

func TestLocalProvider_Probe(t *testing.T) {
	l, err := NewLocalProvider(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Probe(); err != nil {
		t.Errorf("Probe() error = %v", err)
	}

	missing, err := NewLocalProvider(filepath.Join(t.TempDir(), "not-mounted"))
	if err != nil {
		t.Fatal(err)
	}
	if err := missing.Probe(); !errors.Is(err, horus.ErrConnection) {
		t.Errorf("Probe(missing root) error = %v, want ErrConnection", err)
	}
}
