package fileutil_test

// Notes:
// - WriteFileAtomic: the Chmod and Close error branches are not tested because
//   triggering them requires a failing filesystem.
// - Permission assertions are skipped on Windows, which ignores POSIX modes.

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/alnah/go-contentrender/internal/fileutil"
)

// ---------------------------------------------------------------------------
// TestFileExists - Regular file detection
// ---------------------------------------------------------------------------

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(file, []byte("# Doc"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"existing file", file, true},
		{"directory", dir, false},
		{"missing", filepath.Join(dir, "missing.md"), false},
		{"empty path", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := fileutil.FileExists(tt.path); got != tt.want {
				t.Errorf("FileExists(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestIsFilePath - Name vs path detection
// ---------------------------------------------------------------------------

func TestIsFilePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"github", false},
		{"dark-mode", false},
		{"work", false},
		{"./site.css", true},
		{"../shared/site.css", true},
		{"/etc/contentrender.yaml", true},
		{`C:\styles\site.css`, true},
		{"sub/dir", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := fileutil.IsFilePath(tt.input); got != tt.want {
				t.Errorf("IsFilePath(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestHasExtension - Case-insensitive extension matching
// ---------------------------------------------------------------------------

func TestHasExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		exts []string
		want bool
	}{
		{"match", "notes.md", []string{".md"}, true},
		{"upper case path", "NOTES.MD", []string{".md"}, true},
		{"one of many", "tree.json", []string{".md", ".json"}, true},
		{"no match", "notes.txt", []string{".md", ".json"}, false},
		{"no extension", "Makefile", []string{".md"}, false},
		{"only last extension counts", "doc.rendered.json", []string{".rendered"}, false},
		{"no candidates", "notes.md", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := fileutil.HasExtension(tt.path, tt.exts...); got != tt.want {
				t.Errorf("HasExtension(%q, %v) = %v, want %v", tt.path, tt.exts, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWriteFileAtomic - Replace-by-rename writes
// ---------------------------------------------------------------------------

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	t.Run("creates parent directories", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "a", "b", "out.html")
		if err := fileutil.WriteFileAtomic(path, []byte("<p>x</p>"), 0o750, 0o644); err != nil {
			t.Fatalf("WriteFileAtomic() error = %v", err)
		}
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if string(got) != "<p>x</p>" {
			t.Errorf("content = %q", got)
		}
	})

	t.Run("replaces existing file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out.json")
		if err := os.WriteFile(path, []byte("old content that is longer"), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if err := fileutil.WriteFileAtomic(path, []byte("new"), 0o750, 0o644); err != nil {
			t.Fatalf("WriteFileAtomic() error = %v", err)
		}
		got, _ := os.ReadFile(path)
		if string(got) != "new" {
			t.Errorf("content = %q, want %q", got, "new")
		}
	})

	t.Run("applies file permissions", func(t *testing.T) {
		t.Parallel()
		if runtime.GOOS == "windows" {
			t.Skip("POSIX permissions")
		}

		path := filepath.Join(t.TempDir(), "out.html")
		if err := fileutil.WriteFileAtomic(path, nil, 0o750, 0o640); err != nil {
			t.Fatalf("WriteFileAtomic() error = %v", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o640 {
			t.Errorf("perm = %o, want 640", perm)
		}
	})

	t.Run("leaves no temp files", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		for i := 0; i < 3; i++ {
			if err := fileutil.WriteFileAtomic(filepath.Join(dir, "out.html"), []byte("x"), 0o750, 0o644); err != nil {
				t.Fatalf("WriteFileAtomic() error = %v", err)
			}
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".tmp") {
				t.Errorf("temp file left behind: %s", e.Name())
			}
		}
		if len(entries) != 1 {
			t.Errorf("got %d entries, want 1", len(entries))
		}
	})

	t.Run("empty path", func(t *testing.T) {
		t.Parallel()

		if err := fileutil.WriteFileAtomic("", []byte("x"), 0o750, 0o644); !errors.Is(err, fileutil.ErrEmptyPath) {
			t.Errorf("error = %v, want ErrEmptyPath", err)
		}
	})

	t.Run("parent is a file", func(t *testing.T) {
		t.Parallel()

		parent := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(parent, []byte("x"), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if err := fileutil.WriteFileAtomic(filepath.Join(parent, "out.html"), []byte("x"), 0o750, 0o644); err == nil {
			t.Error("expected error when parent is a regular file")
		}
	})
}
