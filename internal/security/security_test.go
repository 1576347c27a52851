package security

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

func mustTempDir(t *testing.T) string {
	t.Helper()
	d := t.TempDir()
	// Ensure real path (EvalSymlinks on macOS can change /var -> /private/var)
	real, err := filepath.EvalSymlinks(d)
	if err != nil {
		t.Fatalf("eval symlinks: %v", err)
	}
	return real
}

func TestNewResolver_CreatesBase(t *testing.T) {
	root := mustTempDir(t)
	base := filepath.Join(root, "nested", "sheets")

	r, err := NewResolver(base)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	if r.Base() != base {
		t.Fatalf("base = %q, want %q", r.Base(), base)
	}
	if info, err := os.Stat(base); err != nil || !info.IsDir() {
		t.Fatalf("expected base directory to exist: %v", err)
	}
}

func TestNewResolver_RejectsFile(t *testing.T) {
	root := mustTempDir(t)
	fp := filepath.Join(root, "file")
	if err := os.WriteFile(fp, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := NewResolver(fp); err == nil {
		t.Fatalf("expected error for non-directory base")
	}
}

func TestResolve_AllowsWithinBase(t *testing.T) {
	root := mustTempDir(t)
	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	fpath := filepath.Join(sub, "ok.xlsx")
	if err := os.WriteFile(fpath, []byte("test"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	r, err := NewResolver(root)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	got, err := r.Resolve("sub/ok.xlsx", true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != fpath {
		t.Fatalf("resolve = %q, want %q", got, fpath)
	}

	// Non-existent targets are fine when existence is not required.
	got, err = r.Resolve("new.csv", false)
	if err != nil {
		t.Fatalf("resolve new: %v", err)
	}
	if got != filepath.Join(root, "new.csv") {
		t.Fatalf("resolve new = %q", got)
	}
}

func TestResolve_DeniesTraversal(t *testing.T) {
	root := mustTempDir(t)
	r, err := NewResolver(filepath.Join(root, "base"))
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	// Sibling that shares the base prefix must not pass a raw string check.
	if err := os.Mkdir(filepath.Join(root, "base2"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cases := []string{
		"../escape.xlsx",
		"a/../../escape.xlsx",
		"../base2/x.xlsx",
		"..",
		".",
		"sub/..",
		"sub/../a.xlsx",
		"./x/../in.xlsx",
		`sub\..\a.xlsx`,
		filepath.Join(root, "outside.xlsx"),
		"/etc/passwd",
	}
	for _, name := range cases {
		_, err := r.Resolve(name, false)
		if !errors.Is(err, mcperr.ErrPathTraversal) {
			t.Fatalf("%q: expected PATH_TRAVERSAL, got %v", name, err)
		}
	}
}

func TestResolve_AbsoluteInsideBaseAllowed(t *testing.T) {
	root := mustTempDir(t)
	r, err := NewResolver(root)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	got, err := r.Resolve(filepath.Join(root, "in.xlsx"), false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != filepath.Join(root, "in.xlsx") {
		t.Fatalf("resolve = %q", got)
	}
}

func TestResolve_NotFound(t *testing.T) {
	root := mustTempDir(t)
	r, err := NewResolver(root)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	_, err = r.Resolve("missing.xlsx", true)
	if !errors.Is(err, mcperr.ErrNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if err.Error() != "File not found: missing.xlsx" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestResolve_SymlinkEscapeDenied(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test skipped on Windows")
	}
	root := mustTempDir(t)
	outsideDir := mustTempDir(t)
	target := filepath.Join(outsideDir, "target.xlsx")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("write target: %v", err)
	}
	if err := os.Symlink(target, filepath.Join(root, "link.xlsx")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Symlink(outsideDir, filepath.Join(root, "dir")); err != nil {
		t.Fatalf("symlink dir: %v", err)
	}
	if err := os.Symlink(filepath.Join(outsideDir, "missing.xlsx"), filepath.Join(root, "dangling.xlsx")); err != nil {
		t.Fatalf("symlink dangling: %v", err)
	}

	r, err := NewResolver(root)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	for _, name := range []string{"link.xlsx", "dir/new.xlsx", "dangling.xlsx"} {
		if _, err := r.Resolve(name, false); !errors.Is(err, mcperr.ErrPathTraversal) {
			t.Fatalf("%q: expected PATH_TRAVERSAL, got %v", name, err)
		}
	}
}

func TestResolve_EmptyName(t *testing.T) {
	r, err := NewResolver(mustTempDir(t))
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	if _, err := r.Resolve("  ", false); !errors.Is(err, mcperr.ErrValidation) {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}
