package safety

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// resolvePath cleans path against root (joining if relative) without
// enforcing containment; containment is judged separately by isInside so
// that a rejected path can still be named in a confirmation prompt.
func resolvePath(path, root string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	if root == "" {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(root, path))
}

// resolveExisting resolves symlinks for an existing path, or for its parent
// directory when the path itself does not exist yet (e.g. a file about to
// be created), so a symlink inside the project that points outside it is
// still caught.
func resolveExisting(path string) string {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real
	}
	if real, err := filepath.EvalSymlinks(filepath.Dir(path)); err == nil {
		return filepath.Join(real, filepath.Base(path))
	}
	return path
}

// isInside reports whether resolved is the project root or a descendant of
// it, resolving symlinks on both sides (§4.3's path-sandbox definition).
func (p *Policy) isInside(resolved string) bool {
	absRoot, err := filepath.Abs(p.root)
	if err != nil {
		return false
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		realRoot = absRoot
	}

	absResolved, err := filepath.Abs(resolved)
	if err != nil {
		return false
	}
	realResolved := resolveExisting(absResolved)

	if runtime.GOOS == "windows" {
		realRoot = strings.ToLower(realRoot)
		realResolved = strings.ToLower(realResolved)
	}

	return realResolved == realRoot || strings.HasPrefix(realResolved, realRoot+string(os.PathSeparator))
}

// CheckPath runs the path-sandbox policy (§4.3). It resolves path against
// the project root and returns the resolved path alongside a denial message
// when the path falls outside the root and the ConfirmationHandler refused
// to approve the escape.
func (p *Policy) CheckPath(path string) (resolved string, denied bool, message string) {
	resolved = resolvePath(path, p.root)
	if p.isInside(resolved) {
		return resolved, false, ""
	}

	prompt := fmt.Sprintf("Path %q resolves outside the project root %q. Proceed anyway?", resolved, p.root)
	if p.confirm(prompt) {
		return resolved, false, ""
	}
	return resolved, true, fmt.Sprintf("Denied: path %q is outside the project root %q", resolved, p.root)
}
