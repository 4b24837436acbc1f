// Package ingest mirrors explorer transaction history for tracked tokens.
//
// Each token carries two watermarks: a head that the forward walker pushes toward the
// chain tip and a floor that the backward walker pulls toward the token's creation
// block. Both walkers fetch at most BatchesPerRun pages per run and re-fetch the
// boundary block between pages; the sink is expected to de-duplicate by hash.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/vietddude/ledgermirror/internal/core/domain"
	"github.com/vietddude/ledgermirror/internal/indexing/sink"
	"github.com/vietddude/ledgermirror/internal/infra/explorer"
)

var (
	// ErrFatalRun aborts a run before any token is touched.
	ErrFatalRun = errors.New("fatal run error")

	// ErrStateWrite is returned when cursor state could not be persisted.
	ErrStateWrite = errors.New("failed to persist cursor state")
)

// TipProvider returns the current chain height.
type TipProvider interface {
	ChainTip(ctx context.Context) (uint64, error)
}

// Fetcher returns one page of an address's transactions.
type Fetcher interface {
	Transactions(ctx context.Context, q explorer.Query) ([]domain.RawTransaction, error)
}

// CreationLocator resolves a token's creation block, 0 when unknown.
type CreationLocator interface {
	CreationBlock(ctx context.Context, address string) uint64
}

// Explorer is everything the runner needs from the upstream API.
type Explorer interface {
	TipProvider
	Fetcher
	CreationLocator
}

// Options bounds how much work a run does.
type Options struct {
	PageSize      int
	BatchesPerRun int
}

// DefaultOptions mirrors the explorer's maximum page size.
func DefaultOptions() Options {
	return Options{
		PageSize:      10000,
		BatchesPerRun: 10,
	}
}

// PhaseError wraps a failure of one phase for one token.
type PhaseError struct {
	Symbol string
	Phase  sink.Phase
	Err    error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Symbol, e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// StopReason says why a phase stopped walking.
type StopReason string

const (
	StopEmpty         StopReason = "empty_page"
	StopPartial       StopReason = "partial_page"
	StopFiltered      StopReason = "empty_after_trim"
	StopTip           StopReason = "passed_tip"
	StopBudget        StopReason = "batch_budget"
	StopUpToDate      StopReason = "up_to_date"
	StopFilled        StopReason = "already_filled"
	StopOrigin        StopReason = "reached_origin"
	StopOriginUnknown StopReason = "origin_unknown"
	StopSinglePage    StopReason = "single_page"
	StopError         StopReason = "error"
)

// PhaseResult reports what one phase did.
type PhaseResult struct {
	Phase    sink.Phase
	Batches  int
	Records  int
	Accepted int
	Stop     StopReason
}
