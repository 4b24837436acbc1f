package domain

// HistoryStatus tracks whether the backward walk has reached the token's origin.
type HistoryStatus string

const (
	HistoryUnfilled HistoryStatus = "unfilled"
	HistoryFilled   HistoryStatus = "filled"
)

// EntityCursorState holds the ingestion watermarks of one token.
type EntityCursorState struct {
	Initialized      bool          `json:"initialized"`
	MaxIngestedBlock uint64        `json:"max_ingested_block"`
	MinIngestedBlock uint64        `json:"min_ingested_block"`
	HistoryStatus    HistoryStatus `json:"history_status"`
	CreationBlock    uint64        `json:"creation_block"` // 0 = unknown
}

// NewEntityCursorState returns the default state of a token seen for the first time.
func NewEntityCursorState() *EntityCursorState {
	return &EntityCursorState{HistoryStatus: HistoryUnfilled}
}

// Filled reports whether the history has been walked back to the origin.
func (s *EntityCursorState) Filled() bool {
	return s.HistoryStatus == HistoryFilled
}

// GlobalCursorState is the persisted document holding every token's cursor.
// Entries are never removed.
type GlobalCursorState struct {
	Tokens map[string]*EntityCursorState `json:"tokens"`
}

// NewGlobalCursorState returns an empty state document.
func NewGlobalCursorState() *GlobalCursorState {
	return &GlobalCursorState{Tokens: make(map[string]*EntityCursorState)}
}

// Ensure returns the cursor for symbol, creating it with defaults if absent.
func (g *GlobalCursorState) Ensure(symbol string) *EntityCursorState {
	if g.Tokens == nil {
		g.Tokens = make(map[string]*EntityCursorState)
	}
	st, ok := g.Tokens[symbol]
	if !ok || st == nil {
		st = NewEntityCursorState()
		g.Tokens[symbol] = st
	}
	if st.HistoryStatus == "" {
		st.HistoryStatus = HistoryUnfilled
	}
	return st
}

// Clone returns a deep copy, used by stores that must not share memory with callers.
func (g *GlobalCursorState) Clone() *GlobalCursorState {
	out := NewGlobalCursorState()
	for sym, st := range g.Tokens {
		if st == nil {
			continue
		}
		c := *st
		out.Tokens[sym] = &c
	}
	return out
}
