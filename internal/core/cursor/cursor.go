// Package cursor guards the per-token ingestion watermarks.
//
// # Watermarks
//
// Every tracked token carries two block heights:
//   - head (max_ingested_block): highest block fetched going forward, never lowered
//   - floor (min_ingested_block): lowest block fetched going backward, never raised
//
// The forward walk only calls AdvanceHead, the backward walk only calls RetreatFloor,
// so repeated runs can re-fetch overlapping pages without ever moving a watermark the
// wrong way.
//
// # History State Machine
//
//	unfilled → filled (valid, once)
//	filled → unfilled (invalid)
//
// # Quick Start
//
//	st := state.Ensure("JOE")
//	cursor.Bootstrap(st, 1200, 9000, 0)       // first page covered blocks 1200..9000
//	cursor.AdvanceHead(st, 9500)               // forward walk
//	cursor.RetreatFloor(st, 800)               // backward walk
//	cursor.MarkFilled(st, "reached creation block")
package cursor

import (
	"fmt"

	"github.com/vietddude/ledgermirror/internal/core/domain"
)

// Cursor is the per-token watermark state.
type Cursor = domain.EntityCursorState

// AdvanceHead raises the head watermark. Lower values are ignored; it reports
// whether the watermark moved.
func AdvanceHead(c *Cursor, block uint64) bool {
	if block <= c.MaxIngestedBlock {
		return false
	}
	c.MaxIngestedBlock = block
	return true
}

// RetreatFloor lowers the floor watermark. Higher values are ignored; it reports
// whether the watermark moved.
func RetreatFloor(c *Cursor, block uint64) bool {
	if block >= c.MinIngestedBlock {
		return false
	}
	c.MinIngestedBlock = block
	return true
}

// SetCreationBlock records the origin block once. Zero and repeated writes are ignored.
func SetCreationBlock(c *Cursor, block uint64) bool {
	if block == 0 || c.CreationBlock != 0 {
		return false
	}
	c.CreationBlock = block
	return true
}

// Bootstrap establishes both watermarks from the first page of an uninitialized token.
func Bootstrap(c *Cursor, minBlock, maxBlock, creationBlock uint64) error {
	if c.Initialized {
		return fmt.Errorf("%w: cursor already initialized", ErrInvalidTransition)
	}
	if minBlock > maxBlock {
		return fmt.Errorf("invalid bootstrap range %d..%d", minBlock, maxBlock)
	}
	c.MaxIngestedBlock = maxBlock
	c.MinIngestedBlock = minBlock
	SetCreationBlock(c, creationBlock)
	return nil
}

// MarkInitialized flips the initialized flag. It never reverts.
func MarkInitialized(c *Cursor) {
	c.Initialized = true
}

// Lag returns how many blocks the head is behind tip.
func Lag(c *Cursor, tip uint64) uint64 {
	if tip <= c.MaxIngestedBlock {
		return 0
	}
	return tip - c.MaxIngestedBlock
}
