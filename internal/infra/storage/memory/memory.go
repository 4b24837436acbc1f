package memory

import (
	"context"
	"sync"

	"github.com/vietddude/ledgermirror/internal/core/domain"
)

// CursorStore keeps the cursor document in process memory. Used for dry runs and tests.
type CursorStore struct {
	mu    sync.RWMutex
	state *domain.GlobalCursorState
	saves int
}

func NewCursorStore() *CursorStore {
	return &CursorStore{}
}

// NewCursorStoreWith seeds the store with an existing document.
func NewCursorStoreWith(state *domain.GlobalCursorState) *CursorStore {
	return &CursorStore{state: state.Clone()}
}

func (s *CursorStore) Load(ctx context.Context) (*domain.GlobalCursorState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return domain.NewGlobalCursorState(), nil
	}
	return s.state.Clone(), nil
}

func (s *CursorStore) Save(ctx context.Context, state *domain.GlobalCursorState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *CursorStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
