package agent

import "time"

// Config holds the agent loop's frozen-after-construction parameters
// (§3 AgentConfig): maxToolRounds, verbose, maxRepetitions,
// historyWindowSize, plus the expansion fields env-overridable per §6
// (AGENT_MAX_TOOL_ROUNDS, AGENT_MAX_REPETITIONS, AGENT_HISTORY_WINDOW,
// AGENT_TURN_TIMEOUT_SECONDS).
type Config struct {
	MaxToolRounds     int
	Verbose           bool
	MaxRepetitions    int
	HistoryWindowSize int
	TurnTimeout       time.Duration

	// DebugPrompts, when true, dumps the full payload of every provider.Chat
	// call (transcript, tool definitions, system prompt) to stderr before
	// it is sent. Set from the DEBUG_PROMPTS environment variable.
	DebugPrompts bool
}

// DefaultConfig returns the out-of-the-box defaults before any environment
// override is applied.
func DefaultConfig() Config {
	return Config{
		MaxToolRounds:     25,
		Verbose:           false,
		MaxRepetitions:    2,
		HistoryWindowSize: 6,
		TurnTimeout:       5 * time.Minute,
		DebugPrompts:      false,
	}
}
