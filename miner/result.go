package miner

import (
	"fmt"
	"strings"
)

// State of the latest session. Found, Cancelled and Exhausted are terminal.
type State int

const (
	Idle State = iota
	Running
	Found
	Cancelled
	Exhausted
)

var stateNames = []string{"idle", "running", "found", "cancelled", "exhausted"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether the state ends a session.
func (s State) Terminal() bool {
	return s == Found || s == Cancelled || s == Exhausted
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, n := range stateNames {
		if n == name {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// Result is returned by Start once the session reached a terminal state.
type Result struct {
	Status      State  `json:"status"`
	BlockHeader string `json:"block_header"`
	Nonce       uint64 `json:"nonce"`
	Hash        string `json:"hash"` // hex digest of the last candidate; empty if exhausted
	Iterations  uint64 `json:"iterations"`
	Difficulty  uint32 `json:"difficulty"`
	ElapsedMs   int64  `json:"elapsed_ms"`
}

// Solved reports whether the result carries a valid solution.
func (r *Result) Solved() bool {
	return r != nil && r.Status == Found
}
