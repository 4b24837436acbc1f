package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/ledgermirror/internal/core/cursor"
	"github.com/vietddude/ledgermirror/internal/core/domain"
	"github.com/vietddude/ledgermirror/internal/indexing/metrics"
	"github.com/vietddude/ledgermirror/internal/indexing/sink"
	"github.com/vietddude/ledgermirror/internal/infra/explorer"
)

// Initializer bootstraps a token from its most recent page of transactions.
type Initializer struct {
	fetcher Fetcher
	locator CreationLocator
	sink    sink.Sink
	log     *slog.Logger
}

// NewInitializer creates a new initializer.
func NewInitializer(fetcher Fetcher, locator CreationLocator, s sink.Sink, log *slog.Logger) *Initializer {
	if log == nil {
		log = slog.Default()
	}
	return &Initializer{fetcher: fetcher, locator: locator, sink: s, log: log}
}

// Run initializes c. On a fetch or write error c stays uninitialized so the next run
// tries again; an empty history still marks c initialized.
func (in *Initializer) Run(ctx context.Context, token domain.Token, c *cursor.Cursor, tip uint64) (PhaseResult, error) {
	res := PhaseResult{Phase: sink.PhaseInit, Stop: StopError}
	log := in.log.With("symbol", token.Symbol, "phase", res.Phase)

	if cursor.SetCreationBlock(c, in.locator.CreationBlock(ctx, token.Address)) {
		log.Info("creation block found", "creation_block", c.CreationBlock)
	}

	log.Info("fetching most recent transactions", "tip", tip)
	batch, err := in.fetcher.Transactions(ctx, explorer.Query{
		Address:    token.Address,
		StartBlock: 0,
		EndBlock:   tip,
		Sort:       explorer.SortDesc,
	})
	if err != nil {
		return res, fmt.Errorf("fetch [0,%d]: %w", tip, err)
	}
	res.Batches = 1

	if len(batch) == 0 {
		cursor.MarkInitialized(c)
		res.Stop = StopEmpty
		log.Warn("no transactions found, marking initialized")
		return res, nil
	}

	accepted, err := in.sink.Write(ctx, token.Symbol, res.Phase, batch)
	if err != nil {
		return res, fmt.Errorf("write batch: %w", err)
	}
	res.Records, res.Accepted = len(batch), accepted
	metrics.RecordsFetched.WithLabelValues(token.Symbol, string(res.Phase)).Add(float64(len(batch)))
	metrics.RowsAccepted.WithLabelValues(token.Symbol, string(res.Phase)).Add(float64(accepted))

	minBlock, maxBlock := domain.BlockRange(batch)
	if err := cursor.Bootstrap(c, minBlock, maxBlock, 0); err != nil {
		return res, err
	}
	res.Stop = StopSinglePage
	if c.CreationBlock > 0 && minBlock <= c.CreationBlock {
		if _, err := cursor.MarkFilled(c, "first page reached creation block"); err != nil {
			return res, err
		}
		res.Stop = StopOrigin
	}
	cursor.MarkInitialized(c)

	log.Info("initialized",
		"records", len(batch),
		"accepted", accepted,
		"head", c.MaxIngestedBlock,
		"floor", c.MinIngestedBlock,
		"history", c.HistoryStatus,
	)
	return res, nil
}
