package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/adrlens/internal/apperr"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("# Use SQLite\nAccepted\n")
	if err := s.Write("adr_use_sqlite_20240101.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("adr_use_sqlite_20240101.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("read deleted file: err = %v, want ErrNotFound", err)
	}
	if err := s.Delete("del.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestExists(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("adr/adr_a.md", []byte("a"))

	ok, err := s.Exists("adr/adr_a.md")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true", ok, err)
	}
	ok, err = s.Exists("adr/adr_b.md")
	if err != nil || ok {
		t.Fatalf("Exists missing = %v, %v; want false", ok, err)
	}
	ok, err = s.Exists("adr")
	if err != nil || ok {
		t.Fatalf("Exists on directory = %v, %v; want false", ok, err)
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not md"))
	_ = s.Write(".git/c.md", []byte("hidden"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
	for _, it := range items {
		if it.Path == "sub/b.md" && it.Checksum == "" {
			t.Error("checksum not set")
		}
	}
}

func TestRecords(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("docs/adr/adr_one_20240101.md", []byte("1"))
	_ = s.Write("docs/adr/ADR_two_20240102.md", []byte("2"))
	_ = s.Write("docs/adr/notes.md", []byte("3"))
	_ = s.Write("docs/readme.md", []byte("4"))

	items, err := s.Records("docs", "adr_")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	if items[0].Path != "docs/adr/ADR_two_20240102.md" && items[1].Path != "docs/adr/ADR_two_20240102.md" {
		t.Errorf("case-insensitive match missing: %+v", items)
	}
}

func TestStatAndRel(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("adr/adr_x.md", []byte("x"))

	meta, err := s.Stat("adr/adr_x.md")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if meta.Path != "adr/adr_x.md" || meta.UpdatedAt.IsZero() {
		t.Errorf("meta = %+v", meta)
	}

	rel, ok := s.Rel(filepath.Join(s.Root(), "adr", "adr_x.md"))
	if !ok || rel != "adr/adr_x.md" {
		t.Errorf("Rel = %q, %v", rel, ok)
	}
	if _, ok := s.Rel(filepath.Dir(s.Root())); ok {
		t.Error("Rel outside the vault should fail")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
		"~/notes.md",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("write to %q: err = %v, want ErrInvalidPath", p, err)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	// Verify that if we read during a write the old content is intact
	// (the rename is atomic on POSIX).
	s := tempVault(t)
	original := []byte("original content")
	_ = s.Write("atomic.md", original)

	// Overwrite with new content.
	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(s.root, ".adrlens-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/adrlens-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "adrlens-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
