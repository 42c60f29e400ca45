package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempCatalog(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempCatalog(t)
	content := []byte("datasets:\n  - name: Steel\n")
	if err := s.Write("steel.yaml", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("steel.yaml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempCatalog(t)
	if err := s.Write("vendors/acme/metals.json", []byte("[]")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("vendors/acme/metals.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "[]" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempCatalog(t)
	_ = s.Write("del.yaml", []byte("[]"))
	if err := s.Delete("del.yaml"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.yaml"); err == nil {
		t.Error("expected error reading deleted file")
	}
	if err := s.Delete("del.yaml"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("second delete = %v, want ErrNotExist", err)
	}
}

func TestListFiltersAndSorts(t *testing.T) {
	s := tempCatalog(t)
	_ = s.Write("b.yml", []byte("[]"))
	_ = s.Write("sub/a.json", []byte("[]"))
	_ = s.Write("a.yaml", []byte("[]"))
	_ = s.Write("readme.md", []byte("not a catalog"))
	_ = s.Write(".hidden.yaml", []byte("[]"))
	_ = s.Write(".git/config.yaml", []byte("[]"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"a.yaml", "b.yml", "sub/a.json"}
	if len(items) != len(want) {
		t.Fatalf("len = %d, want %d (%+v)", len(items), len(want), items)
	}
	for i, it := range items {
		if it.Path != want[i] {
			t.Errorf("[%d] = %q, want %q", i, it.Path, want[i])
		}
		if it.Checksum == "" {
			t.Errorf("[%d] empty checksum", i)
		}
	}
}

func TestIsCatalogFile(t *testing.T) {
	cases := map[string]bool{
		"a.yaml":              true,
		"dir/b.YML":           true,
		"c.json":              true,
		"d.txt":               false,
		".pcfledger-tmp-1234": false,
		".e.yaml":             false,
		"yaml":                false,
	}
	for name, want := range cases {
		if got := IsCatalogFile(name); got != want {
			t.Errorf("IsCatalogFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempCatalog(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.yaml",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
	if _, err := s.Rel(filepath.Join(s.Root(), "..", "x.yaml")); err == nil {
		t.Error("Rel should reject paths outside root")
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempCatalog(t)
	_ = s.Write("atomic.yaml", []byte("original"))

	updated := []byte("updated")
	if err := s.Write("atomic.yaml", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.yaml")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".pcfledger-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "pcfledger-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
