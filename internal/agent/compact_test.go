package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/loopsmith/loopsmith/internal/provider"
)

func toolBatchWithLongOutput(n int) provider.Message {
	return provider.NewToolResultBatch([]provider.ToolResult{
		{Name: "t", Output: strings.Repeat("x", 500)},
	})
}

func TestCompact_NoOpBelowWindow(t *testing.T) {
	a := newTestAgent(&mockProvider{}, nil, Config{HistoryWindowSize: 6})
	transcript := []provider.Message{
		provider.NewUserMessage("hi"),
		toolBatchWithLongOutput(0),
	}
	out := a.compact(context.Background(), transcript)
	if len(out) != len(transcript) {
		t.Fatalf("expected no-op when below the window, got %d messages", len(out))
	}
	if len(out[1].Results[0].Output) != 500 {
		t.Fatal("expected untruncated output below the window")
	}
}

func TestCompact_TruncationFallbackShrinksOldestBatches(t *testing.T) {
	a := newTestAgent(&mockProvider{}, nil, Config{HistoryWindowSize: 1})
	var transcript []provider.Message
	for i := 0; i < 3; i++ {
		transcript = append(transcript, provider.NewUserMessage("turn"))
		transcript = append(transcript, toolBatchWithLongOutput(i))
	}

	out := a.compact(context.Background(), transcript)

	truncatedCount := 0
	for _, m := range out {
		if m.Role != provider.RoleTool {
			continue
		}
		if strings.HasSuffix(m.Results[0].Output, truncatedMarker) {
			truncatedCount++
		}
	}
	if truncatedCount != 2 {
		t.Fatalf("expected the oldest 2 of 3 batches truncated, got %d", truncatedCount)
	}

	lastBatch := out[len(out)-1]
	if lastBatch.Role != provider.RoleTool || len(lastBatch.Results[0].Output) != 500 {
		t.Fatal("expected the most recent batch (within the window) to be untouched")
	}
}

func TestCompact_SummarizerReplacesPrefix(t *testing.T) {
	a := newTestAgent(&mockProvider{}, nil, Config{HistoryWindowSize: 1})
	a.SetSummarizer(&fixedSummarizer{text: "summary text"})

	var transcript []provider.Message
	for i := 0; i < 3; i++ {
		transcript = append(transcript, provider.NewUserMessage("turn"))
		transcript = append(transcript, toolBatchWithLongOutput(i))
	}

	out := a.compact(context.Background(), transcript)
	if out[0].Role != provider.RoleUser || !strings.Contains(out[0].Text, "summary text") {
		t.Fatalf("expected the prefix replaced by a summary message, got %+v", out[0])
	}
}

func TestCompact_SummarizerFailureFallsBackToTruncation(t *testing.T) {
	a := newTestAgent(&mockProvider{}, nil, Config{HistoryWindowSize: 1})
	a.SetSummarizer(failingSummarizer{})

	var transcript []provider.Message
	for i := 0; i < 3; i++ {
		transcript = append(transcript, provider.NewUserMessage("turn"))
		transcript = append(transcript, toolBatchWithLongOutput(i))
	}

	out := a.compact(context.Background(), transcript)
	if len(out) != len(transcript) {
		t.Fatalf("truncation fallback must keep structural messages, got %d want %d", len(out), len(transcript))
	}
}

type failingSummarizer struct{}

func (failingSummarizer) Summarize(_ context.Context, _ string) (string, error) {
	return "", errors.New("summarizer unavailable")
}
