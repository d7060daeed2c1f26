package agent

import (
	"fmt"
	"os"
	"sync/atomic"
)

// EventKind tags what a LogFunc call is reporting. Named after the
// well-defined points in §9's logging-callback design note: round start,
// tool call, tool result, compaction, repetition.
type EventKind string

const (
	EventRoundStart EventKind = "round_start"
	EventToolCall   EventKind = "tool_call"
	EventToolResult EventKind = "tool_result"
	EventCompaction EventKind = "compaction"
	EventRepetition EventKind = "repetition"
	EventTurnEnd    EventKind = "turn_end"
)

// Event is one record passed to a LogFunc.
type Event struct {
	Kind    EventKind
	Round   int
	Tool    string
	Message string
}

// LogFunc is the agent loop's sole logging hook (§9: "the loop calls a
// logging callback at well-defined points ... production wires coloured
// stdout, tests wire a capture buffer"). It is invoked unconditionally;
// callers that only want verbose output check Verbose themselves, which is
// what makes /verbose's live toggle work without reconstructing the agent.
type LogFunc func(Event)

// NopLog discards every event; used when no logging is configured.
func NopLog(Event) {}

// String renders an Event the way the default stdout logger formats it.
func (e Event) String() string {
	switch e.Kind {
	case EventRoundStart:
		return fmt.Sprintf("round %d: requesting completion", e.Round)
	case EventToolCall:
		return fmt.Sprintf("round %d: calling %s", e.Round, e.Tool)
	case EventToolResult:
		return fmt.Sprintf("round %d: %s returned: %s", e.Round, e.Tool, e.Message)
	case EventCompaction:
		return fmt.Sprintf("compaction: %s", e.Message)
	case EventRepetition:
		return fmt.Sprintf("round %d: repetition detected: %s", e.Round, e.Message)
	case EventTurnEnd:
		return fmt.Sprintf("turn ended: %s", e.Message)
	default:
		return e.Message
	}
}

// NewStdoutLogger returns a LogFunc that prints every event to stdout only
// while *verbose is true. The loop calls the LogFunc unconditionally; the
// verbose check lives here, in the sink, which is what makes /verbose a
// live toggle (§9: "flips a field read by the logging callback on every
// invocation, so the very next round reflects the new setting") rather
// than something requiring the Agent to be rebuilt.
func NewStdoutLogger(verbose *atomic.Bool) LogFunc {
	return func(e Event) {
		if verbose == nil || !verbose.Load() {
			return
		}
		fmt.Fprintln(os.Stdout, e.String())
	}
}
