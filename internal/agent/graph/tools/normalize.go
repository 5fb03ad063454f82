package tools

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizePayload coerces a free-form case payload into an object:
// nil becomes {}, a map is kept, a string holding a JSON object is parsed,
// any other value is wrapped as {"note": ...}.
func NormalizePayload(v any) map[string]any {
	switch p := v.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return p
	case string:
		s := strings.TrimSpace(p)
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			var parsed map[string]any
			if err := json.Unmarshal([]byte(s), &parsed); err == nil && parsed != nil {
				return parsed
			}
		}
		return map[string]any{"note": p}
	default:
		return map[string]any{"note": fmt.Sprint(p)}
	}
}
