package jsonrpc2

import (
	"bytes"
	"encoding/json"

	"github.com/go-faster/jx"
)

// Helpers for JSON parsing

// kindOf returns the type of the top-level JSON value in raw, leading
// whitespace skipped. Empty input is jx.Invalid.
func kindOf(raw []byte) jx.Type {
	if len(bytes.TrimSpace(raw)) == 0 {
		return jx.Invalid
	}
	return jx.DecodeBytes(raw).Next()
}

// isNull returns true if raw is absent or the JSON null literal.
func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || kindOf(raw) == jx.Null
}

// compactID normalizes a JSON-encoded ID so that it can be compared or used
// as a map key regardless of insignificant whitespace.
func compactID(raw json.RawMessage) string {
	if isNull(raw) {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
