package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

// Resolver enforces the base-directory sandbox. It stores the canonical
// absolute base path and maps user-supplied filenames onto it, refusing any
// name whose fully resolved form escapes the base.
type Resolver struct {
	base string
}

// NewResolver canonicalizes base (absolute + EvalSymlinks), creating it when
// missing.
func NewResolver(base string) (*Resolver, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil, errors.New("security: empty base directory")
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("security: resolve abs for %q: %w", base, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("security: create base %q: %w", abs, err)
	}
	// EvalSymlinks so that a symlinked root cannot be used to escape later.
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("security: eval symlinks for %q: %w", abs, err)
	}
	info, err := os.Stat(real)
	if err != nil {
		return nil, fmt.Errorf("security: stat %q: %w", real, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("security: base is not a directory: %q", real)
	}
	return &Resolver{base: filepath.Clean(real)}, nil
}

// Base returns the canonical base directory.
func (r *Resolver) Base() string {
	return r.base
}

// Resolve maps name to a canonical absolute path strictly inside the base.
// When mustExist is set, a missing target yields NOT_FOUND.
func (r *Resolver) Resolve(name string, mustExist bool) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", mcperr.New(mcperr.Validation, "filename is required")
	}
	// Parent segments are refused outright, even when they would clean back
	// inside the base.
	if hasParentSegment(name) {
		return "", mcperr.ErrPathTraversal
	}
	joined := filepath.Join(r.base, name)
	if filepath.IsAbs(name) {
		// Absolute names are taken as-is and must still land inside the base.
		joined = filepath.Clean(name)
	}

	real, err := evalExisting(joined)
	if err != nil {
		return "", fmt.Errorf("security: eval symlinks: %w", err)
	}
	if !r.contains(real) {
		return "", mcperr.ErrPathTraversal
	}

	if mustExist {
		if _, err := os.Stat(real); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", mcperr.Newf(mcperr.NotFound, "File not found: %s", name)
			}
			return "", fmt.Errorf("security: stat: %w", err)
		}
	}
	return real, nil
}

func hasParentSegment(name string) bool {
	for _, seg := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}

// Rel returns path relative to the base using forward slashes.
func (r *Resolver) Rel(path string) (string, error) {
	rel, err := filepath.Rel(r.base, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// contains reports whether real is a strict descendant of the base.
func (r *Resolver) contains(real string) bool {
	rel, err := filepath.Rel(r.base, real)
	if err != nil {
		return false
	}
	if rel == "." || rel == "" {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// evalExisting resolves symlinks on the deepest existing ancestor of path and
// re-attaches the missing tail, so targets that do not exist yet are still
// compared in fully resolved form.
func evalExisting(path string) (string, error) {
	path = filepath.Clean(path)
	var tail []string
	cur := path
	for hops := 0; ; {
		real, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				real = filepath.Join(real, tail[i])
			}
			return real, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		// A dangling symlink still decides where a write would land.
		if fi, lerr := os.Lstat(cur); lerr == nil && fi.Mode()&os.ModeSymlink != 0 {
			if hops++; hops > 40 {
				return "", fmt.Errorf("too many links resolving %q", path)
			}
			target, err := os.Readlink(cur)
			if err != nil {
				return "", err
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(cur), target)
			}
			cur = filepath.Clean(target)
			continue
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return path, nil
		}
		tail = append(tail, filepath.Base(cur))
		cur = parent
	}
}
