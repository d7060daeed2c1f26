package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/loopsmith/loopsmith/internal/provider"
)

// truncatedMarker is appended to a tool result output that history
// compaction has shortened (§4.6.1 truncation fallback).
const truncatedMarker = " …[truncated]"

// truncatedOutputLimit is the character cap applied to each ToolResult
// output during truncation-fallback compaction.
const truncatedOutputLimit = 200

// Summarizer is the optional capability an Agent may hold to compact
// history via a model call instead of truncation (§9: "a single-method
// capability suffices"). Summarize receives a plain-text rendering of the
// transcript prefix being dropped and returns a short factual summary.
type Summarizer interface {
	Summarize(ctx context.Context, renderedPrefix string) (string, error)
}

// renderTranscriptForSummary serializes a transcript prefix into the
// plain-text shape a Summarizer consumes: user lines, agent lines with
// "[called: name(args), ...]" annotations, and tool result previews.
func renderTranscriptForSummary(prefix []provider.Message) string {
	var sb strings.Builder
	for _, m := range prefix {
		switch m.Role {
		case provider.RoleUser:
			sb.WriteString("user: " + truncateForSummary(m.Text) + "\n")
		case provider.RoleAssistant:
			sb.WriteString("agent: " + truncateForSummary(m.Text))
			if len(m.ToolCalls) > 0 {
				sb.WriteString(" [called: ")
				for i, c := range m.ToolCalls {
					if i > 0 {
						sb.WriteString(", ")
					}
					sb.WriteString(c.Name + "(" + string(c.Args) + ")")
				}
				sb.WriteString("]")
			}
			sb.WriteString("\n")
		case provider.RoleTool:
			for _, r := range m.Results {
				sb.WriteString(fmt.Sprintf("tool result (%s): %s\n", r.Name, truncateForSummary(r.Output)))
			}
		}
	}
	return sb.String()
}

func truncateForSummary(s string) string {
	const limit = 500
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + truncatedMarker
}

// compact implements §4.6.1. It mutates transcript in place (by returning
// a replacement slice) only when excess > 0.
func (a *Agent) compact(ctx context.Context, transcript []provider.Message) []provider.Message {
	excess := countToolResultBatches(transcript) - a.config.HistoryWindowSize
	if excess <= 0 {
		return transcript
	}

	cutoff := cutoffAfterNthBatch(transcript, excess)
	prefix := transcript[:cutoff]
	tail := transcript[cutoff:]

	if a.summarizer != nil {
		summary, err := a.summarizer.Summarize(ctx, renderTranscriptForSummary(prefix))
		if err == nil {
			a.log(Event{Kind: EventCompaction, Message: fmt.Sprintf("summarized %d message(s)", len(prefix))})
			summaryMsg := provider.NewUserMessage(fmt.Sprintf("[Context from earlier in this conversation: %s]", summary))
			return append([]provider.Message{summaryMsg}, tail...)
		}
		a.log(Event{Kind: EventCompaction, Message: fmt.Sprintf("summarizer failed (%v), falling back to truncation", err)})
	}

	truncated := make([]provider.Message, len(prefix))
	copy(truncated, prefix)
	batchesSeen := 0
	for i := range truncated {
		if truncated[i].Role != provider.RoleTool {
			continue
		}
		batchesSeen++
		if batchesSeen > excess {
			break
		}
		results := make([]provider.ToolResult, len(truncated[i].Results))
		copy(results, truncated[i].Results)
		for j := range results {
			if len(results[j].Output) > truncatedOutputLimit {
				results[j].Output = results[j].Output[:truncatedOutputLimit] + truncatedMarker
			}
		}
		truncated[i].Results = results
	}
	a.log(Event{Kind: EventCompaction, Message: fmt.Sprintf("truncated %d tool result batch(es)", excess)})
	return append(truncated, tail...)
}

// countToolResultBatches counts RoleTool messages in transcript.
func countToolResultBatches(transcript []provider.Message) int {
	n := 0
	for _, m := range transcript {
		if m.Role == provider.RoleTool {
			n++
		}
	}
	return n
}

// cutoffAfterNthBatch returns one past the index of the n-th
// (1-indexed) ToolResultBatch message in transcript.
func cutoffAfterNthBatch(transcript []provider.Message, n int) int {
	seen := 0
	for i, m := range transcript {
		if m.Role != provider.RoleTool {
			continue
		}
		seen++
		if seen == n {
			return i + 1
		}
	}
	return len(transcript)
}
