package cost

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/loopsmith/loopsmith/internal/provider"
)

// maxDetailedEntries bounds how many recent calls the detailed render lists.
const maxDetailedEntries = 5

// localePrinter formats token counts with locale-appropriate thousands
// separators for the human-facing cost renders.
var localePrinter = message.NewPrinter(language.English)

// Ledger is a per-session cost tracker keyed by a single model's pricing
// profile at construction. Tier selection is driven by the cumulative input
// total across the session: once it crosses the model's long-context
// threshold, the long-context rate applies for the rest of the session,
// even to calls that individually fall under the threshold.
type Ledger struct {
	mu       sync.Mutex
	model    string
	profile  PricingProfile
	entries  []provider.UsageEntry
	cumInput int64
	calls    int64
	totalIn  int64
	totalOut int64
	totalUSD float64
}

// NewLedger constructs a ledger for model, resolving its pricing profile
// from the embedded table (falling back to the table's designated default
// model.
func NewLedger(model string) *Ledger {
	return &Ledger{model: model, profile: ResolveProfile(model)}
}

// NewLedgerWithProfile constructs a ledger against an explicit profile,
// bypassing table resolution (used by tests and by callers with a
// user-supplied override).
func NewLedgerWithProfile(model string, profile PricingProfile) *Ledger {
	return &Ledger{model: model, profile: profile}
}

// RecordUsage prices one completion call and appends it to the ledger.
// Tier selection uses the cumulative input total as of this call, inclusive
// of the tokens just added: long-context pricing applies once the running
// session total crosses the threshold, not only within the single call that
// crosses it, and persists for the remainder of the session until Reset.
func (l *Ledger) RecordUsage(inputTokens, outputTokens int64) provider.UsageEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cumInput += inputTokens

	inRate, outRate := l.profile.InputPerMillion, l.profile.OutputPerMillion
	if l.profile.hasLongContextTier() && l.cumInput > l.profile.LongContextThreshold {
		inRate, outRate = l.profile.LongInputPerMillion, l.profile.LongOutputPerMillion
	}

	costVal := float64(inputTokens)/1_000_000*inRate + float64(outputTokens)/1_000_000*outRate

	entry := provider.UsageEntry{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         costVal,
		Timestamp:    time.Now(),
	}
	l.entries = append(l.entries, entry)
	l.calls++
	l.totalIn += inputTokens
	l.totalOut += outputTokens
	l.totalUSD += costVal
	return entry
}

// Summary is a read-only snapshot of the ledger's running totals.
type Summary struct {
	Model        string
	Calls        int64
	InputTokens  int64
	OutputTokens int64
	TotalCostUSD float64
	Recent       []provider.UsageEntry
}

// Summary returns the ledger's current totals and the last
// maxDetailedEntries call records, most recent last.
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.entries
	if len(recent) > maxDetailedEntries {
		recent = recent[len(recent)-maxDetailedEntries:]
	}
	out := make([]provider.UsageEntry, len(recent))
	copy(out, recent)

	return Summary{
		Model:        l.model,
		Calls:        l.calls,
		InputTokens:  l.totalIn,
		OutputTokens: l.totalOut,
		TotalCostUSD: l.totalUSD,
		Recent:       out,
	}
}

// Short renders the one-liner form: "<tokenTotal> tokens | $<4dp>", with the
// token total comma-grouped (e.g. "12,345 tokens | $0.0421").
func (l *Ledger) Short() string {
	s := l.Summary()
	tokens := localePrinter.Sprintf("%d", s.InputTokens+s.OutputTokens)
	return fmt.Sprintf("%s tokens | $%.4f", tokens, s.TotalCostUSD)
}

// Detailed renders the multi-line report: call count, input/output/total
// tokens, total cost, and the last five per-call entries.
func (l *Ledger) Detailed() string {
	s := l.Summary()
	var sb strings.Builder
	fmt.Fprintf(&sb, "model: %s\n", s.Model)
	fmt.Fprintf(&sb, "calls: %d\n", s.Calls)
	fmt.Fprintf(&sb, "input tokens: %d\n", s.InputTokens)
	fmt.Fprintf(&sb, "output tokens: %d\n", s.OutputTokens)
	fmt.Fprintf(&sb, "total tokens: %d\n", s.InputTokens+s.OutputTokens)
	fmt.Fprintf(&sb, "total cost: $%.4f\n", s.TotalCostUSD)
	if len(s.Recent) == 0 {
		return sb.String()
	}
	sb.WriteString("recent calls:\n")
	for _, e := range s.Recent {
		fmt.Fprintf(&sb, "  %s  in=%d out=%d cost=$%.4f\n",
			e.Timestamp.Format(time.RFC3339), e.InputTokens, e.OutputTokens, e.Cost)
	}
	return sb.String()
}

// Reset clears all ledger state, including the cumulative-input tier
// counter.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.cumInput = 0
	l.calls = 0
	l.totalIn = 0
	l.totalOut = 0
	l.totalUSD = 0
}
