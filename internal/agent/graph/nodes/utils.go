package nodes

import (
	"github.com/leave-agent-poc-v1/server/internal/agent/model"
)

// DefaultMaxRounds is the model/tool round budget of a single user turn.
const DefaultMaxRounds = 5

// StoppedContent is returned as the answer when the round budget runs out.
const StoppedContent = "(stopped: too many tool iterations)"

// NormalizeMaxRounds returns a sane default when the provided value is invalid.
func NormalizeMaxRounds(n int) int {
	if n <= 0 {
		return DefaultMaxRounds
	}
	return n
}

// budgetExhausted reports whether another model call would exceed max.
func budgetExhausted(state *model.TurnState, max int) bool {
	return state.Round >= NormalizeMaxRounds(max)
}
