package safety

import (
	"fmt"
	"regexp"
)

// dangerousCommandPattern pairs a regex with the human label shown in a
// confirmation prompt and in the denial message.
type dangerousCommandPattern struct {
	pattern *regexp.Regexp
	label   string
}

// dangerousCommandPatterns is the canonical list (§4.3): word-boundary
// destructive commands, a /dev/null redirect, a redirect overwriting a .ts
// or .json target, and the git history-discarding trio. Every match here
// goes through the ConfirmationHandler instead of being refused outright.
var dangerousCommandPatterns = []dangerousCommandPattern{
	{regexp.MustCompile(`(?i)\brm\b`), "rm (file/directory removal)"},
	{regexp.MustCompile(`(?i)\bunlink\b`), "unlink (file removal)"},
	{regexp.MustCompile(`(?i)\brmdir\b`), "rmdir (directory removal)"},
	{regexp.MustCompile(`(?i)\bshred\b`), "shred (secure file deletion)"},
	{regexp.MustCompile(`(?i)\btruncate\b`), "truncate (file content erasure)"},
	{regexp.MustCompile(`>\s*/dev/null`), "redirect to /dev/null (discards output)"},
	{regexp.MustCompile(`(?i)>\s*\S+\.(ts|json)\b`), "redirect overwriting a .ts/.json file"},
	{regexp.MustCompile(`(?i)\bgit\s+clean\b`), "git clean (deletes untracked files)"},
	{regexp.MustCompile(`(?i)\bgit\s+checkout\s+--\s+\.`), "git checkout -- . (discards working-tree changes)"},
	{regexp.MustCompile(`(?i)\bgit\s+reset\s+--hard\b`), "git reset --hard (discards commits/changes)"},
}

// CheckCommand runs the command-safety policy (§4.3). It returns a non-empty
// denial message iff the command matched a dangerous pattern and the
// ConfirmationHandler refused to approve it; for a safe command the handler
// is never invoked.
func (p *Policy) CheckCommand(command string) (denied bool, message string) {
	for _, dp := range dangerousCommandPatterns {
		if !dp.pattern.MatchString(command) {
			continue
		}
		prompt := fmt.Sprintf("Command matches dangerous pattern %q:\n  %s\nRun it anyway?", dp.label, command)
		if p.confirm(prompt) {
			return false, ""
		}
		return true, fmt.Sprintf("Denied: command matches dangerous pattern %q", dp.label)
	}
	return false, ""
}
