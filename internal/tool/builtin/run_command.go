package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/loopsmith/loopsmith/internal/safety"
	"github.com/loopsmith/loopsmith/internal/tool"
)

const (
	runCommandDefaultTimeout = 120 * time.Second
	runCommandCaptureCap     = 100 << 10 // 100KB
	runCommandDisplayCap     = 50 << 10  // 50KB
)

// RunCommandTool implements the run_command tool: a shell command run via
// the host shell, gated by safety.Policy.CheckCommand, with
// separately-captured stdout/stderr and a two-tier truncation scheme.
type RunCommandTool struct {
	policy *safety.Policy
}

func NewRunCommandTool(policy *safety.Policy) *RunCommandTool {
	return &RunCommandTool{policy: policy}
}

func (t *RunCommandTool) Name() string { return "run_command" }
func (t *RunCommandTool) Description() string {
	return "Run a shell command in the project directory (or a given cwd) and return its combined output."
}

func (t *RunCommandTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "command", Type: "string", Description: "shell command to run", Required: true},
		tool.SchemaParam{Name: "cwd", Type: "string", Description: "working directory, relative to the project root or absolute (default: project root)"},
		tool.SchemaParam{Name: "timeout_ms", Type: "integer", Description: "timeout in milliseconds (default 120000)"},
	)
}

func (t *RunCommandTool) Init(_ context.Context) error { return nil }
func (t *RunCommandTool) Close() error                 { return nil }

type runCommandArgs struct {
	Command   string `json:"command"`
	Cwd       string `json:"cwd,omitempty"`
	TimeoutMs int    `json:"timeout_ms,omitempty"`
}

func (t *RunCommandTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a runCommandArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err("failed to parse arguments: %v", err), nil
	}
	if strings.TrimSpace(a.Command) == "" {
		return tool.Err("command must not be empty"), nil
	}

	if denied, msg := t.policy.CheckCommand(a.Command); denied {
		return tool.Err("%s", msg), nil
	}

	cwd := a.Cwd
	if cwd == "" {
		cwd = "."
	}
	resolvedCwd, denied, msg := t.policy.ReadSafety(cwd)
	if denied {
		return tool.Err("%s", msg), nil
	}

	timeout := runCommandDefaultTimeout
	if a.TimeoutMs > 0 {
		timeout = time.Duration(a.TimeoutMs) * time.Millisecond
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(runCtx, "cmd", "/c", a.Command)
	} else {
		cmd = exec.CommandContext(runCtx, "sh", "-c", a.Command)
	}
	cmd.Dir = resolvedCwd
	cmd.Env = append(filterEnv(os.Environ()), "PAGER=cat")

	var stdout, stderr limitedBuffer
	stdout.max = runCommandCaptureCap
	stderr.max = runCommandCaptureCap
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := stdout.String()
	if stderr.Len() > 0 {
		if output != "" {
			output += "\n"
		}
		output += "[stderr]\n" + stderr.String()
	}
	displayOutput := safeRuneTruncate(output, runCommandDisplayCap)

	if runCtx.Err() == context.DeadlineExceeded {
		return tool.Err("Command timed out after %v:\n%s\n(tip: retry with a larger timeout_ms)", timeout, displayOutput), nil
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return tool.Err("Command failed (exit code: %d):\n%s", exitErr.ExitCode(), displayOutput), nil
		}
		return tool.Err("Command failed: %v\n%s", err, displayOutput), nil
	}

	return tool.Ok(displayOutput), nil
}

// limitedBuffer is an io.Writer that silently stops accepting bytes past
// max, so a runaway subprocess cannot grow the capture buffer unbounded.
type limitedBuffer struct {
	buf bytes.Buffer
	max int
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	remaining := l.max - l.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		l.buf.Write(p[:remaining])
	} else {
		l.buf.Write(p)
	}
	return len(p), nil
}

func (l *limitedBuffer) String() string { return l.buf.String() }
func (l *limitedBuffer) Len() int       { return l.buf.Len() }

// safeRuneTruncate truncates s to maxRunes runes in a single pass,
// preserving valid UTF-8.
func safeRuneTruncate(s string, maxRunes int) string {
	count := 0
	for i := range s {
		count++
		if count > maxRunes {
			totalRunes := maxRunes + utf8.RuneCountInString(s[i:])
			return s[:i] + fmt.Sprintf("\n... (output truncated, %d characters total)", totalRunes)
		}
	}
	return s
}

// sensitiveEnvSuffixes are environment variable name suffixes indicating a
// secret that must not reach a subprocess.
var sensitiveEnvSuffixes = []string{
	"_KEY", "_SECRET", "_TOKEN", "_PASSWORD", "_PASSWD",
	"_PASSPHRASE", "_CREDENTIALS", "_AUTH", "_DSN",
}

// sensitiveEnvPrefixes are environment variable name prefixes indicating a
// secret.
var sensitiveEnvPrefixes = []string{"DATABASE_URL", "REDIS_URL", "MONGO_URL"}

// filterEnv returns a copy of env with sensitive variables removed.
func filterEnv(env []string) []string {
	filtered := make([]string, 0, len(env))
	for _, e := range env {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) < 2 {
			continue
		}
		nameUpper := strings.ToUpper(parts[0])

		sensitive := false
		for _, suffix := range sensitiveEnvSuffixes {
			if strings.HasSuffix(nameUpper, suffix) {
				sensitive = true
				break
			}
		}
		if !sensitive {
			for _, prefix := range sensitiveEnvPrefixes {
				if strings.HasPrefix(nameUpper, prefix) {
					sensitive = true
					break
				}
			}
		}
		if !sensitive {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
