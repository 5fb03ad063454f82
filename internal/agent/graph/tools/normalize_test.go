package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePayload(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want map[string]any
	}{
		{"nil", nil, map[string]any{}},
		{"map identity", map[string]any{"a": float64(1)}, map[string]any{"a": float64(1)}},
		{"json object string", `{"a":1}`, map[string]any{"a": float64(1)}},
		{"padded json object string", "  {\"days\": 2}\n", map[string]any{"days": float64(2)}},
		{"free text", "free text", map[string]any{"note": "free text"}},
		{"broken json stays a note", "{not json}", map[string]any{"note": "{not json}"}},
		{"json array is a note", "[1,2]", map[string]any{"note": "[1,2]"}},
		{"integer", 42, map[string]any{"note": "42"}},
		{"float", 2.5, map[string]any{"note": "2.5"}},
		{"bool", true, map[string]any{"note": "true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePayload(tt.in))
		})
	}
}
