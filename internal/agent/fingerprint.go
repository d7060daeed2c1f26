package agent

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/loopsmith/loopsmith/internal/provider"
)

// roundFingerprint computes §4.6.d's repetition signature:
// join("|", [name + "::" + canonicalJSON(args) for each call]).
func roundFingerprint(calls []provider.ToolCall) string {
	parts := make([]string, len(calls))
	for i, c := range calls {
		parts[i] = c.Name + "::" + canonicalJSON(c.Args)
	}
	return strings.Join(parts, "|")
}

// canonicalJSON re-serializes a JSON value with object keys sorted
// lexicographically, so two structurally identical tool-call argument sets
// fingerprint identically regardless of key order on the wire.
func canonicalJSON(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	var sb strings.Builder
	writeCanonical(&sb, v)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, v any) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			sb.Write(kb)
			sb.WriteByte(':')
			writeCanonical(sb, val[k])
		}
		sb.WriteByte('}')
	case []any:
		sb.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, e)
		}
		sb.WriteByte(']')
	default:
		b, _ := json.Marshal(val)
		sb.Write(b)
	}
}
