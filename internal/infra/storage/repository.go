package storage

import (
	"context"
	"errors"

	"github.com/vietddude/ledgermirror/internal/core/domain"
)

var (
	// ErrStorage is returned when a persisted cursor document exists but cannot be decoded.
	ErrStorage = errors.New("cursor state unreadable")
)

// CursorStore persists the whole cursor document. Save overwrites unconditionally;
// a single writer is assumed.
type CursorStore interface {
	// Load returns the persisted document, or an empty one when nothing was saved yet.
	Load(ctx context.Context) (*domain.GlobalCursorState, error)

	// Save serializes and overwrites the persisted document.
	Save(ctx context.Context, state *domain.GlobalCursorState) error
}
