// Package prompt implements a layered system-prompt loading system:
//
//   - L1: hardcoded constraints in Go source (format requirements, safety rules)
//   - L2: the base system-prompt template, embedded by default and
//     overridable by a project-local file of the same name
//   - L3: user custom rules in rules.md (runtime only, never committed)
//
// The PromptLoader is safe for concurrent use.
package prompt

import (
	"embed"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// defaultPrompts embeds the L2 prompt files shipped with the binary.
// The prompts/ directory must exist at compile time (relative to this file's package).
//
//go:embed prompts/*
var defaultPrompts embed.FS

// promptInjectionPatterns contains lowercased substrings that indicate prompt injection attempts.
// Lines matching any pattern are dropped from L3 user rules with a warning.
var promptInjectionPatterns = []string{
	"ignore previous",
	"ignore above",
	"ignore all previous",
	"disregard all",
	"disregard previous",
	"forget previous",
	"forget all previous",
	"override instructions",
	"override previous",
	"new instructions:",
	"from now on",
}

// PromptLoader reads L2 prompt files and the L3 user rules file.
// It caches file contents after the first read; call Reload to invalidate the cache.
type PromptLoader struct {
	promptsDir string // project-local override directory (may be empty)
	rulesPath  string // path to L3 rules.md
	cache      map[string]string
	patchHooks []patchEntry // recorded PatchFile calls, reapplied after Reload
	mu         sync.RWMutex
}

// patchEntry records a single PatchFile call for reapplication after Reload.
type patchEntry struct {
	Name, OldStr, NewStr string
}

// NewPromptLoader creates a PromptLoader that reads L2 files from promptsDir
// (falling back to embedded defaults) and L3 rules from rulesPath.
//
// Both paths may be empty strings — the loader degrades gracefully:
//   - empty promptsDir: only embedded defaults are used
//   - empty / non-existent rulesPath: LoadUserRules returns ""
func NewPromptLoader(promptsDir, rulesPath string) *PromptLoader {
	return &PromptLoader{
		promptsDir: promptsDir,
		rulesPath:  rulesPath,
		cache:      make(map[string]string),
	}
}

// Load returns the content of the named prompt file (e.g. "system_base.md").
//
// Priority:
//  1. Disk file at promptsDir/name (project-local override)
//  2. Embedded default at prompts/name
//  3. Empty string (silent, file simply absent)
//
// A disk read error (permission denied, etc.) logs a warning and falls back
// to the embedded default. Cache hit avoids repeated disk reads.
func (l *PromptLoader) Load(name string) string {
	cacheKey := "l2:" + name

	l.mu.RLock()
	if val, ok := l.cache[cacheKey]; ok {
		l.mu.RUnlock()
		return val
	}
	l.mu.RUnlock()

	content := l.loadUncached(name)

	l.mu.Lock()
	if val, ok := l.cache[cacheKey]; ok {
		l.mu.Unlock()
		return val
	}
	l.cache[cacheKey] = content
	l.mu.Unlock()

	return content
}

// loadUncached does the actual file read without touching the cache.
func (l *PromptLoader) loadUncached(name string) string {
	embedPath := "prompts/" + name

	if l.promptsDir != "" {
		diskPath := filepath.Join(l.promptsDir, name)
		data, err := os.ReadFile(diskPath)
		if err == nil {
			return string(data)
		}
		if !os.IsNotExist(err) {
			log.Printf("[Prompt] Warning: read %q failed: %v; falling back to embedded default", diskPath, err)
		}
	}

	data, err := fs.ReadFile(defaultPrompts, embedPath)
	if err == nil {
		return string(data)
	}

	return ""
}

// LoadUserRules reads the L3 rules.md file and filters dangerous injection patterns.
//
// Lines containing known jailbreak phrases (case-insensitive) are dropped and
// logged as warnings. The remaining content is returned as-is.
// Returns "" if the file does not exist or rulesPath is empty.
func (l *PromptLoader) LoadUserRules() string {
	cacheKey := "l3:rules"

	l.mu.RLock()
	if val, ok := l.cache[cacheKey]; ok {
		l.mu.RUnlock()
		return val
	}
	l.mu.RUnlock()

	content := l.loadUserRulesUncached()

	l.mu.Lock()
	if val, ok := l.cache[cacheKey]; ok {
		l.mu.Unlock()
		return val
	}
	l.cache[cacheKey] = content
	l.mu.Unlock()

	return content
}

func (l *PromptLoader) loadUserRulesUncached() string {
	if l.rulesPath == "" {
		return ""
	}

	data, err := os.ReadFile(l.rulesPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Prompt] Warning: read user rules %q failed: %v", l.rulesPath, err)
		}
		return ""
	}

	return filterDangerousLines(string(data))
}

// filterDangerousLines drops lines that match known prompt-injection patterns.
// Remaining lines are preserved including their original line endings.
func filterDangerousLines(content string) string {
	lines := strings.Split(content, "\n")
	safe := make([]string, 0, len(lines))
	for _, line := range lines {
		lower := strings.ToLower(line)
		dropped := false
		for _, pattern := range promptInjectionPatterns {
			if strings.Contains(lower, pattern) {
				log.Printf("[Prompt] Warning: user rules line dropped (injection pattern %q detected): %q", pattern, line)
				dropped = true
				break
			}
		}
		if !dropped {
			safe = append(safe, line)
		}
	}
	return strings.Join(safe, "\n")
}

// Reload clears the internal cache so that subsequent Load and LoadUserRules
// calls re-read files from disk. Safe for concurrent use.
func (l *PromptLoader) Reload() {
	l.mu.Lock()
	l.cache = make(map[string]string)
	l.mu.Unlock()

	for _, p := range l.patchHooks {
		l.reapplyPatch(p)
	}
}

// reapplyPatch re-patches a single file without recording another patchHooks
// entry (avoids infinite growth on repeated Reloads).
func (l *PromptLoader) reapplyPatch(p patchEntry) {
	cacheKey := "l2:" + p.Name
	l.mu.RLock()
	content, ok := l.cache[cacheKey]
	l.mu.RUnlock()
	if !ok {
		content = l.loadUncached(p.Name)
	}
	patched := strings.ReplaceAll(content, p.OldStr, p.NewStr)
	l.mu.Lock()
	l.cache[cacheKey] = patched
	l.mu.Unlock()
}

// PatchFile loads the named prompt file (via the normal priority chain), replaces
// oldStr with newStr, and stores the result in the cache so that subsequent Load
// calls return the patched version without re-reading the file.
//
// Used at startup to inject live environment data (e.g. the rendered tool
// catalog) into prompt templates containing placeholders like "{{TOOLS}}".
// If oldStr is not found the cache is still populated with the unmodified
// content (no-op replacement).
//
// Thread-safe. The patch is recorded and reapplied automatically by Reload().
func (l *PromptLoader) PatchFile(name, oldStr, newStr string) {
	content := l.Load(name)
	patched := strings.ReplaceAll(content, oldStr, newStr)

	cacheKey := "l2:" + name
	l.mu.Lock()
	l.cache[cacheKey] = patched
	l.mu.Unlock()

	l.patchHooks = append(l.patchHooks, patchEntry{Name: name, OldStr: oldStr, NewStr: newStr})
}
