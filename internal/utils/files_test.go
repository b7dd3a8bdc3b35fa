package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/raysh454/eddy/internal/utils"
)

func TestAtomicWriteFile_CreatesAndReplaces(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	if err := utils.AtomicWriteFile(path, []byte("one"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := utils.AtomicWriteFile(path, []byte("two"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "two" {
		t.Fatalf("content = %q", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestAtomicWriteFile_RejectsTraversal(t *testing.T) {
	t.Parallel()
	if err := utils.AtomicWriteFile("../escape.json", []byte("x"), 0o644); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
}

func TestSafeName(t *testing.T) {
	t.Parallel()
	for name, want := range map[string]bool{
		"eddy-1": true, "": false, "..": false, "a/b": false, `a\b`: false,
	} {
		if got := utils.SafeName(name); got != want {
			t.Errorf("SafeName(%q) = %v, want %v", name, got, want)
		}
	}
}
