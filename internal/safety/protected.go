package safety

import (
	"fmt"
	"path/filepath"
	"strings"
)

// protectedRelPaths are project-root-relative paths the write tool may not
// blind-overwrite without confirmation (§4.3). Surgical edits of these paths
// are always permitted — only whole-file replacement is gated.
var protectedRelPaths = map[string]bool{
	"package.json":      true,
	"package-lock.json": true,
	"tsconfig.json":     true,
	".gitignore":        true,
	".env":              true,
	".env.example":      true,
}

const protectedDir = "node_modules"

// CheckProtectedOverwrite runs the protected-overwrite policy (§4.3).
func (p *Policy) CheckProtectedOverwrite(resolved string) (denied bool, message string) {
	rel, err := filepath.Rel(p.root, resolved)
	if err != nil {
		return false, ""
	}
	rel = filepath.ToSlash(rel)

	protected := protectedRelPaths[rel] || rel == protectedDir || strings.HasPrefix(rel, protectedDir+"/")
	if !protected {
		return false, ""
	}

	prompt := fmt.Sprintf("%q is a protected file; overwriting it wholesale may break the project. Proceed anyway?", rel)
	if p.confirm(prompt) {
		return false, ""
	}
	return true, fmt.Sprintf("Denied: %q is protected from whole-file overwrite; use edit_file for a surgical change instead", rel)
}
