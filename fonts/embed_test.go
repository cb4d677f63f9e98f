package fonts

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBuiltinPrefixes(t *testing.T) {
	for _, src := range []string{"builtin:goregular", "built-in:gobold", "embed:lmroman", "GoMono"} {
		data, err := Load(src)
		if err != nil {
			t.Fatalf("Load(%q) error: %v", src, err)
		}
		if len(data) == 0 {
			t.Fatalf("Load(%q) returned no bytes", src)
		}
	}
}

func TestLoadUnknown(t *testing.T) {
	if _, err := Load("builtin:comic-sans"); err == nil {
		t.Fatalf("expected error for unknown font")
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	if len(names) != len(builtin) {
		t.Fatalf("expected %d names, got %d", len(builtin), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}

func TestReadFromPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "custom.ttf"), []byte("fake"), 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	data, err := Read("custom.ttf", dir)
	if err != nil || string(data) != "fake" {
		t.Fatalf("Read relative path: %q %v", data, err)
	}
	if _, err := Read("custom.ttf", ""); err == nil {
		t.Fatalf("relative path without base dir should be rejected")
	}
	if data, err := Read("lmsans", ""); err != nil || len(data) == 0 {
		t.Fatalf("bare builtin name should resolve: %v", err)
	}
}
