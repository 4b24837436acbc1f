// Package file keeps the cursor document as a JSON file on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vietddude/ledgermirror/internal/core/domain"
	"github.com/vietddude/ledgermirror/internal/infra/storage"
)

// CursorStore implements storage.CursorStore on a single file.
type CursorStore struct {
	path string
}

// NewCursorStore creates a store at path. The parent directory is created on first save.
func NewCursorStore(path string) *CursorStore {
	return &CursorStore{path: path}
}

// Load reads the document, returning an empty one when the file does not exist.
func (s *CursorStore) Load(ctx context.Context) (*domain.GlobalCursorState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewGlobalCursorState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", storage.ErrStorage, s.path, err)
	}
	return storage.Decode(data)
}

// Save writes to a temp file and renames it over the old document.
func (s *CursorStore) Save(ctx context.Context, state *domain.GlobalCursorState) error {
	data, err := storage.Encode(state)
	if err != nil {
		return fmt.Errorf("failed to encode cursor state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace state: %w", err)
	}
	return nil
}
