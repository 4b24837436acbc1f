// Package sink receives the raw transaction batches the ingestion walkers fetch,
// trims them and writes the surviving rows somewhere durable.
package sink

import (
	"context"

	"github.com/vietddude/ledgermirror/internal/core/domain"
)

// Phase identifies which walker produced a batch.
type Phase string

const (
	PhaseInit        Phase = "init"
	PhaseIncremental Phase = "inc"
	PhaseBackfill    Phase = "bf"
)

// Sink defines the interface for persisting fetched transactions
type Sink interface {
	// Write trims and stores one raw batch for the given token symbol.
	// It returns the number of rows that survived trimming and were accepted.
	Write(ctx context.Context, symbol string, phase Phase, batch []domain.RawTransaction) (int, error)

	// Close flushes and releases resources
	Close() error
}
