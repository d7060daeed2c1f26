package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/loopsmith/loopsmith/internal/cost"
	"github.com/loopsmith/loopsmith/internal/provider"
	"github.com/loopsmith/loopsmith/internal/tool"
)

// mockProvider replays a fixed sequence of CompletionResponses, one per
// Chat call; the last response repeats once the sequence is exhausted.
type mockProvider struct {
	responses []provider.CompletionResponse
	calls     int
}

func (m *mockProvider) Name() string  { return "mock" }
func (m *mockProvider) Model() string { return "mock-model" }
func (m *mockProvider) Chat(_ context.Context, _ []provider.Message, _ []provider.ToolDefinition, _ string) (provider.CompletionResponse, error) {
	idx := m.calls
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.calls++
	return m.responses[idx], nil
}

// echoTool returns "Echo: "+args.message.
type echoTool struct{}

func (echoTool) Name() string                    { return "echo" }
func (echoTool) Description() string             { return "echoes a message" }
func (echoTool) InputSchema() json.RawMessage    { return tool.BuildSchema(tool.SchemaParam{Name: "message", Type: "string", Required: true}) }
func (echoTool) Init(context.Context) error      { return nil }
func (echoTool) Close() error                    { return nil }
func (echoTool) Execute(_ context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err("bad args: %v", err), nil
	}
	return tool.Ok("Echo: " + a.Message), nil
}

func echoCall(id, message string) provider.ToolCall {
	args, _ := json.Marshal(map[string]string{"message": message})
	return provider.ToolCall{ID: id, Name: "echo", Args: args}
}

func newTestAgent(p provider.Provider, reg *tool.Registry, cfg Config) *Agent {
	if reg == nil {
		reg = tool.NewRegistry()
	}
	return New(p, reg, cost.NewLedgerWithProfile("mock-model", cost.PricingProfile{InputPerMillion: 1, OutputPerMillion: 2}), cfg, "you are a test agent")
}

// Scenario 1: simple echo turn.
func TestAgent_SimpleEchoTurn(t *testing.T) {
	mp := &mockProvider{responses: []provider.CompletionResponse{
		{Text: "hi", FinishReason: provider.FinishStop},
	}}
	a := newTestAgent(mp, nil, DefaultConfig())

	out, err := a.ProcessMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hi" {
		t.Fatalf("got %q, want %q", out, "hi")
	}
	if len(a.Transcript()) != 2 {
		t.Fatalf("expected a transcript of length 2, got %d", len(a.Transcript()))
	}
}

// Scenario 2: single tool call.
func TestAgent_SingleToolCall(t *testing.T) {
	mp := &mockProvider{responses: []provider.CompletionResponse{
		{ToolCalls: []provider.ToolCall{echoCall("1", "x")}, FinishReason: provider.FinishToolCalls},
		{Text: "got Echo: x", FinishReason: provider.FinishStop},
	}}
	reg := tool.NewRegistry()
	reg.Register(echoTool{})
	a := newTestAgent(mp, reg, DefaultConfig())

	out, err := a.ProcessMessage(context.Background(), "please echo x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "got Echo: x" {
		t.Fatalf("got %q, want %q", out, "got Echo: x")
	}
}

// Scenario 3: repetition brake.
func TestAgent_RepetitionBrake(t *testing.T) {
	loopResp := provider.CompletionResponse{
		ToolCalls:    []provider.ToolCall{echoCall("1", "loop")},
		FinishReason: provider.FinishToolCalls,
	}
	finalResp := provider.CompletionResponse{Text: "giving up, here is a summary", FinishReason: provider.FinishStop}

	mp := &brakeProvider{loop: loopResp, final: finalResp}
	reg := tool.NewRegistry()
	reg.Register(echoTool{})
	cfg := DefaultConfig()
	cfg.MaxRepetitions = 2
	a := newTestAgent(mp, reg, cfg)

	out, err := a.ProcessMessage(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != finalResp.Text {
		t.Fatalf("got %q, want the forced final text %q", out, finalResp.Text)
	}
	if mp.calls > 4 {
		t.Fatalf("expected the brake to trip quickly, got %d provider calls", mp.calls)
	}
}

// brakeProvider returns loop forever until a call arrives with tools=nil
// (the forced tools-disabled completion), then returns final.
type brakeProvider struct {
	loop  provider.CompletionResponse
	final provider.CompletionResponse
	calls int
}

func (b *brakeProvider) Name() string  { return "mock" }
func (b *brakeProvider) Model() string { return "mock-model" }
func (b *brakeProvider) Chat(_ context.Context, _ []provider.Message, tools []provider.ToolDefinition, _ string) (provider.CompletionResponse, error) {
	b.calls++
	if tools == nil {
		return b.final, nil
	}
	return b.loop, nil
}

// Scenario 4: history compaction with summarizer.
type fixedSummarizer struct {
	text  string
	calls int
}

func (s *fixedSummarizer) Summarize(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.text, nil
}

func TestAgent_HistoryCompactionWithSummarizer(t *testing.T) {
	var responses []provider.CompletionResponse
	for i := 0; i < 4; i++ {
		responses = append(responses, provider.CompletionResponse{
			ToolCalls:    []provider.ToolCall{echoCall(fmt.Sprintf("%d", i), fmt.Sprintf("msg%d", i))},
			FinishReason: provider.FinishToolCalls,
		})
	}
	responses = append(responses, provider.CompletionResponse{Text: "done", FinishReason: provider.FinishStop})

	mp := &mockProvider{responses: responses}
	reg := tool.NewRegistry()
	reg.Register(echoTool{})
	cfg := DefaultConfig()
	cfg.HistoryWindowSize = 2
	a := newTestAgent(mp, reg, cfg)
	summ := &fixedSummarizer{text: "S"}
	a.SetSummarizer(summ)

	out, err := a.ProcessMessage(context.Background(), "do several things")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "done" {
		t.Fatalf("got %q, want %q", out, "done")
	}
	if summ.calls < 1 {
		t.Fatal("expected the summarizer to be invoked at least once")
	}
	transcript := a.Transcript()
	if len(transcript) == 0 || transcript[0].Role != provider.RoleUser ||
		!strings.Contains(transcript[0].Text, "[Context from earlier in this conversation: S]") {
		t.Fatalf("expected the transcript to begin with the summary message, got %+v", transcript[0])
	}
}

// Scenario 5: safety denial, exercised through a stub tool that always
// returns a "Denied" error result rather than through run_command itself.
func TestAgent_SafetyDenialSurfacesAsToolError(t *testing.T) {
	// This agent-level test only checks that a denied ToolResult flows
	// through the loop as isError=true without aborting the turn; the
	// policy behavior itself is covered by internal/safety's own tests.
	reg := tool.NewRegistry()
	reg.Register(denyingTool{})
	mp := &mockProvider{responses: []provider.CompletionResponse{
		{ToolCalls: []provider.ToolCall{{ID: "1", Name: "deny_me", Args: json.RawMessage(`{}`)}}, FinishReason: provider.FinishToolCalls},
		{Text: "noted the denial", FinishReason: provider.FinishStop},
	}}
	a := newTestAgent(mp, reg, DefaultConfig())

	out, err := a.ProcessMessage(context.Background(), "run rm -rf src")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "noted the denial" {
		t.Fatalf("got %q", out)
	}
	transcript := a.Transcript()
	toolMsg := transcript[2]
	if toolMsg.Role != provider.RoleTool || !toolMsg.Results[0].IsError || !strings.Contains(toolMsg.Results[0].Output, "Denied") {
		t.Fatalf("expected a denied ToolResult, got %+v", toolMsg)
	}
}

type denyingTool struct{}

func (denyingTool) Name() string                 { return "deny_me" }
func (denyingTool) Description() string          { return "always denies" }
func (denyingTool) InputSchema() json.RawMessage { return tool.BuildSchema() }
func (denyingTool) Init(context.Context) error   { return nil }
func (denyingTool) Close() error                 { return nil }
func (denyingTool) Execute(context.Context, json.RawMessage) (tool.ToolResult, error) {
	return tool.Err("Denied: command matches dangerous pattern %q", "rm (file/directory removal)"), nil
}

// Scenario 6: cost tier crossing.
func TestAgent_CostTierCrossing(t *testing.T) {
	profile := cost.PricingProfile{
		InputPerMillion: 1.25, OutputPerMillion: 10.0,
		LongContextThreshold: 200_000, LongInputPerMillion: 2.5, LongOutputPerMillion: 15.0,
	}
	ledger := cost.NewLedgerWithProfile("test-model", profile)

	first := ledger.RecordUsage(150_000, 1_000)
	wantFirst := 150_000.0/1_000_000*1.25 + 1_000.0/1_000_000*10.0
	if first.Cost != wantFirst {
		t.Fatalf("first call cost = %v, want %v", first.Cost, wantFirst)
	}

	second := ledger.RecordUsage(100_000, 1_000)
	wantSecond := 100_000.0/1_000_000*2.5 + 1_000.0/1_000_000*15.0
	if second.Cost != wantSecond {
		t.Fatalf("second call cost = %v, want %v", second.Cost, wantSecond)
	}
}
