package review

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// CheckResponse validates the raw API body against the documented shape:
// a JSON object holding a list under "homeworks". It returns the entries.
// Any violation aborts the current cycle; there is no recovery here.
func CheckResponse(v any) ([]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ShapeError{Reason: fmt.Sprintf("body is %T, want object", v)}
	}
	raw, ok := m["homeworks"]
	if !ok {
		return nil, &ShapeError{Reason: `missing "homeworks" key`}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, &ShapeError{Reason: fmt.Sprintf(`"homeworks" is %T, want list`, raw)}
	}
	return list, nil
}

// CurrentDate extracts the server-supplied poll cursor from a valid body.
// Absent or malformed values report ok=false; the caller falls back to the
// wall clock.
func CurrentDate(v any) (int64, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return 0, false
	}
	raw, ok := m["current_date"]
	if !ok {
		return 0, false
	}
	switch n := raw.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
