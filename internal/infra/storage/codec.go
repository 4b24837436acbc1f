package storage

import (
	"encoding/json"
	"fmt"

	"github.com/vietddude/ledgermirror/internal/core/domain"
)

// Encode renders the cursor document in its persisted JSON shape.
func Encode(state *domain.GlobalCursorState) ([]byte, error) {
	if state == nil || state.Tokens == nil {
		state = domain.NewGlobalCursorState()
	}
	return json.MarshalIndent(state, "", "  ")
}

// Decode parses a persisted cursor document. Any malformed payload wraps ErrStorage.
func Decode(data []byte) (*domain.GlobalCursorState, error) {
	var state domain.GlobalCursorState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if state.Tokens == nil {
		state.Tokens = make(map[string]*domain.EntityCursorState)
	}
	for sym, st := range state.Tokens {
		if st == nil {
			return nil, fmt.Errorf("%w: token %s has null cursor", ErrStorage, sym)
		}
		switch st.HistoryStatus {
		case "":
			st.HistoryStatus = domain.HistoryUnfilled
		case domain.HistoryUnfilled, domain.HistoryFilled:
		default:
			return nil, fmt.Errorf("%w: token %s has unknown history_status %q",
				ErrStorage, sym, st.HistoryStatus)
		}
	}
	return &state, nil
}
