package cursor

import (
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/ledgermirror/internal/core/domain"
)

// State is an alias for domain.HistoryStatus for internal use.
type State = domain.HistoryStatus

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// ValidTransitions defines allowed history transitions.
var ValidTransitions = map[State][]State{
	domain.HistoryUnfilled: {domain.HistoryFilled},
	domain.HistoryFilled:   {},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to State) bool {
	for _, target := range ValidTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Transition represents a state change with metadata.
type Transition struct {
	From      State
	To        State
	Reason    string
	Timestamp time.Time
}

// MarkFilled moves the history to filled. Calling it on a filled cursor is a no-op.
func MarkFilled(c *Cursor, reason string) (Transition, error) {
	from := c.HistoryStatus
	if from == "" {
		from = domain.HistoryUnfilled
	}
	if from == domain.HistoryFilled {
		return Transition{From: from, To: from, Reason: reason, Timestamp: time.Now()}, nil
	}
	if !CanTransition(from, domain.HistoryFilled) {
		return Transition{}, fmt.Errorf("%w: cannot transition from %s to %s",
			ErrInvalidTransition, from, domain.HistoryFilled)
	}
	c.HistoryStatus = domain.HistoryFilled
	return Transition{From: from, To: domain.HistoryFilled, Reason: reason, Timestamp: time.Now()}, nil
}

// FillAt marks history filled and snaps the floor to block. The floor only ever moves down.
func FillAt(c *Cursor, block uint64, reason string) (Transition, error) {
	t, err := MarkFilled(c, reason)
	if err != nil {
		return t, err
	}
	RetreatFloor(c, block)
	return t, nil
}

// StateDescription returns a human-readable description of a state.
func StateDescription(s State) string {
	switch s {
	case domain.HistoryUnfilled:
		return "Backfilling - walking back toward the creation block"
	case domain.HistoryFilled:
		return "Complete - history reached the creation block"
	default:
		return "Unknown state"
	}
}
