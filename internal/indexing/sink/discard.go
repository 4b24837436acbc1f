package sink

import (
	"context"

	"github.com/vietddude/ledgermirror/internal/core/domain"
)

// Discard trims batches and drops the result. Used for dry runs.
type Discard struct {
	Trim TrimOptions
}

// Write implements Sink.
func (d Discard) Write(_ context.Context, _ string, _ Phase, batch []domain.RawTransaction) (int, error) {
	return len(Trim(batch, d.Trim)), nil
}

// Close implements Sink.
func (Discard) Close() error { return nil }
