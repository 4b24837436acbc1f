package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/ledgermirror/internal/core/domain"
	"github.com/vietddude/ledgermirror/internal/infra/storage"
)

// CursorStore implements storage.CursorStore as a single Redis string key.
type CursorStore struct {
	rdb *redis.Client
	key string
}

// NewCursorStore creates a Redis-backed cursor store.
func NewCursorStore(client *Client, key string) *CursorStore {
	return &CursorStore{rdb: client.rdb, key: stateKey(key)}
}

func stateKey(name string) string {
	return fmt.Sprintf("ledgermirror:state:%s", name)
}

// Load reads the state document. A missing key is an empty state.
func (s *CursorStore) Load(ctx context.Context) (*domain.GlobalCursorState, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewGlobalCursorState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get %s: %v", storage.ErrStorage, s.key, err)
	}
	return storage.Decode(data)
}

// Save overwrites the state document. No expiry is set.
func (s *CursorStore) Save(ctx context.Context, state *domain.GlobalCursorState) error {
	data, err := storage.Encode(state)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", s.key, err)
	}
	return nil
}
