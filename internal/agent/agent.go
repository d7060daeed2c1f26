// Package agent implements the turn-taking agent loop: one user turn
// drives a bounded sequence of Provider completions and tool-call rounds,
// with repetition braking, history compaction, and a per-turn duration
// guard.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/loopsmith/loopsmith/internal/cost"
	"github.com/loopsmith/loopsmith/internal/provider"
	"github.com/loopsmith/loopsmith/internal/tool"
)

// exhaustionMessage is returned when the loop exits without ever producing
// a text response: maxToolRounds reached without a stop/empty-toolCalls
// completion (§4.6 step 4).
const exhaustionMessage = "Maximum tool rounds reached without a final answer."

// Agent drives one conversational session: a persisted transcript, a
// Provider, a tool Registry, and a cost Ledger, composed per §4.6's
// per-turn state machine.
type Agent struct {
	provider   provider.Provider
	registry   *tool.Registry
	ledger     *cost.Ledger
	config     Config
	systemPrmt string
	summarizer Summarizer
	logFunc    LogFunc

	transcript []provider.Message
}

// New constructs an Agent. Events are discarded (NopLog) until a logging
// callback is installed with SetLogFunc.
func New(p provider.Provider, registry *tool.Registry, ledger *cost.Ledger, config Config, systemPrompt string) *Agent {
	return &Agent{
		provider:   p,
		registry:   registry,
		ledger:     ledger,
		config:     config,
		systemPrmt: systemPrompt,
		logFunc:    NopLog,
	}
}

// SetSummarizer installs an optional Summarizer used by history
// compaction (§4.6.1). Passing nil reverts to the truncation fallback.
func (a *Agent) SetSummarizer(s Summarizer) { a.summarizer = s }

// SetLogFunc installs the logging callback invoked at each well-defined
// point in the loop (§9). Passing nil installs NopLog.
func (a *Agent) SetLogFunc(f LogFunc) {
	if f == nil {
		f = NopLog
	}
	a.logFunc = f
}

// Transcript returns the agent's current conversation transcript. The
// returned slice must be treated as read-only by callers other than
// Clear/Load.
func (a *Agent) Transcript() []provider.Message { return a.transcript }

// Clear resets the transcript to empty (the REPL's /clear command).
func (a *Agent) Clear() { a.transcript = nil }

// LoadTranscript replaces the transcript wholesale (the REPL's /load
// command, §6 Supplemented Features).
func (a *Agent) LoadTranscript(messages []provider.Message) { a.transcript = messages }

func (a *Agent) log(e Event) { a.logFunc(e) }

// dumpPrompt prints the exact payload about to be sent to the provider when
// DebugPrompts is set (DEBUG_PROMPTS=1). It writes to stderr so it never
// interleaves with the REPL's stdout output.
func (a *Agent) dumpPrompt(messages []provider.Message, tools []provider.ToolDefinition) {
	if !a.config.DebugPrompts {
		return
	}
	payload := struct {
		System   string                    `json:"system"`
		Messages []provider.Message        `json:"messages"`
		Tools    []provider.ToolDefinition `json:"tools,omitempty"`
	}{System: a.systemPrmt, Messages: messages, Tools: tools}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "[DEBUG_PROMPTS] marshal error: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "[DEBUG_PROMPTS]\n%s\n", out)
}

// ProcessMessage runs one turn on user input U (§4.6 steps 1-4).
func (a *Agent) ProcessMessage(ctx context.Context, input string) (string, error) {
	a.transcript = append(a.transcript, provider.NewUserMessage(input))

	guard := NewTurnGuard(a.config.TurnTimeout)
	toolRound := 0
	lastFingerprint := ""
	repetitionCount := 0

	for toolRound < a.config.MaxToolRounds {
		if exceeded, elapsed := guard.Exceeded(); exceeded {
			msg := guard.timeoutMessage(elapsed)
			a.transcript = append(a.transcript, provider.NewAssistantMessage(msg, nil))
			a.log(Event{Kind: EventTurnEnd, Message: msg})
			return msg, nil
		}

		a.log(Event{Kind: EventRoundStart, Round: toolRound})
		a.dumpPrompt(a.transcript, a.registry.Definitions())
		resp, err := a.provider.Chat(ctx, a.transcript, a.registry.Definitions(), a.systemPrmt)
		if err != nil {
			return "", fmt.Errorf("provider call failed: %w", err)
		}
		if resp.Usage != nil && a.ledger != nil {
			a.ledger.RecordUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)
		}

		if resp.FinishReason != provider.FinishToolCalls || len(resp.ToolCalls) == 0 {
			a.transcript = append(a.transcript, provider.NewAssistantMessage(resp.Text, nil))
			a.log(Event{Kind: EventTurnEnd, Message: resp.Text})
			return resp.Text, nil
		}

		toolRound++
		fingerprint := roundFingerprint(resp.ToolCalls)
		if fingerprint == lastFingerprint {
			repetitionCount++
			if repetitionCount >= a.config.MaxRepetitions {
				return a.breakRepetition(ctx)
			}
		} else {
			lastFingerprint = fingerprint
			repetitionCount = 0
		}

		a.transcript = append(a.transcript, provider.NewAssistantMessage(resp.Text, resp.ToolCalls))

		results := make([]provider.ToolResult, len(resp.ToolCalls))
		for i, call := range resp.ToolCalls {
			a.log(Event{Kind: EventToolCall, Round: toolRound, Tool: call.Name})
			res := a.registry.Execute(ctx, call.Name, call.Args)
			results[i] = provider.ToolResult{
				ToolCallID: call.ID,
				Name:       call.Name,
				Output:     res.Output,
				IsError:    res.IsError,
			}
			a.log(Event{Kind: EventToolResult, Round: toolRound, Tool: call.Name, Message: res.Output})
		}
		a.transcript = append(a.transcript, provider.NewToolResultBatch(results))

		a.transcript = a.compact(ctx, a.transcript)
	}

	a.transcript = append(a.transcript, provider.NewAssistantMessage(exhaustionMessage, nil))
	a.log(Event{Kind: EventTurnEnd, Message: exhaustionMessage})
	return exhaustionMessage, nil
}

// breakRepetition implements §4.6.e's repetition brake: append a synthetic
// steering message, force a tools-disabled completion, and return its
// text.
func (a *Agent) breakRepetition(ctx context.Context) (string, error) {
	a.log(Event{Kind: EventRepetition, Message: "forcing a final answer without tools"})
	steer := provider.NewUserMessage("Stop calling tools. Respond now with a summary of what you have found so far.")
	a.transcript = append(a.transcript, steer)

	a.dumpPrompt(a.transcript, nil)
	resp, err := a.provider.Chat(ctx, a.transcript, nil, a.systemPrmt)
	if err != nil {
		return "", fmt.Errorf("provider call failed: %w", err)
	}
	if resp.Usage != nil && a.ledger != nil {
		a.ledger.RecordUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}
	a.transcript = append(a.transcript, provider.NewAssistantMessage(resp.Text, nil))
	a.log(Event{Kind: EventTurnEnd, Message: resp.Text})
	return resp.Text, nil
}
