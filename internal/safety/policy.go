package safety

// Policy bundles the three safety checks (§4.3) against one project root
// and one ConfirmationHandler. It is constructed once at startup and shared
// by pointer with every tool that needs it; there is no mutable global.
type Policy struct {
	root    string
	confirm ConfirmationHandler
}

// NewPolicy builds a Policy rooted at root. A nil confirm defaults to
// DenyAll.
func NewPolicy(root string, confirm ConfirmationHandler) *Policy {
	if confirm == nil {
		confirm = DenyAll
	}
	return &Policy{root: root, confirm: confirm}
}

// Root returns the project root this policy sandboxes against.
func (p *Policy) Root() string { return p.root }

// WriteSafety composes sandbox-then-protected-overwrite (§4.3's
// "Composition" rule) for the write_file tool. It returns the resolved path
// and a non-empty denial message if either check refuses.
func (p *Policy) WriteSafety(path string) (resolved string, denied bool, message string) {
	resolved, denied, message = p.CheckPath(path)
	if denied {
		return resolved, denied, message
	}
	denied, message = p.CheckProtectedOverwrite(resolved)
	return resolved, denied, message
}

// EditSafety runs sandbox-only (§4.3's "Composition" rule) for tools that
// perform a surgical, non-overwrite change: edit_file, insert_lines,
// delete_lines.
func (p *Policy) EditSafety(path string) (resolved string, denied bool, message string) {
	return p.CheckPath(path)
}

// ReadSafety runs sandbox-only for tools that only read: read_file,
// list_dir, grep_search.
func (p *Policy) ReadSafety(path string) (resolved string, denied bool, message string) {
	return p.CheckPath(path)
}
