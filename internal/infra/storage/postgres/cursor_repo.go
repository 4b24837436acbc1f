package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vietddude/ledgermirror/internal/core/domain"
	"github.com/vietddude/ledgermirror/internal/infra/storage"
)

// CursorStore implements storage.CursorStore as one JSONB row in cursor_state.
type CursorStore struct {
	db   *DB
	name string
}

// NewCursorStore creates a cursor store keyed by name.
func NewCursorStore(db *DB, name string) *CursorStore {
	return &CursorStore{db: db, name: name}
}

// Load reads the state document. A missing row is an empty state.
func (s *CursorStore) Load(ctx context.Context) (*domain.GlobalCursorState, error) {
	var body []byte
	err := s.db.GetContext(ctx, &body, `SELECT body FROM cursor_state WHERE name = $1`, s.name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewGlobalCursorState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load cursor state %q: %v", storage.ErrStorage, s.name, err)
	}
	return storage.Decode(body)
}

// Save overwrites the state document.
func (s *CursorStore) Save(ctx context.Context, state *domain.GlobalCursorState) error {
	body, err := storage.Encode(state)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cursor_state (name, body, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (name) DO UPDATE SET
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at
	`, s.name, string(body))
	if err != nil {
		return fmt.Errorf("failed to save cursor state %q: %w", s.name, err)
	}
	return nil
}
