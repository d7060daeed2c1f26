// Package safety implements the confirmation-gated checks a tool executor
// must pass before it mutates the filesystem or launches a subprocess:
// dangerous-command detection, project-root sandboxing, and protected-path
// overwrite guarding. Every check is a pure function of its inputs plus one
// injected collaborator, the ConfirmationHandler; none of them hard-deny.
package safety

// ConfirmationHandler asks the operator a yes/no question and returns their
// answer. It is a constructed, injected value, never a package-level mutable
// global (§9): production wires a stdin prompt, tests wire a stub that
// records prompts and returns a fixed answer.
type ConfirmationHandler func(prompt string) bool

// DenyAll is the default ConfirmationHandler: it answers every prompt "no"
// without asking anything. A Policy built with this handler permits nothing
// that requires confirmation, which is the safe default for code that
// forgets to wire a real handler.
func DenyAll(string) bool { return false }
