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

// ForwardWalker moves a token's head watermark toward the chain tip.
type ForwardWalker struct {
	fetcher Fetcher
	sink    sink.Sink
	opts    Options
	log     *slog.Logger
}

// NewForwardWalker creates a new forward walker.
func NewForwardWalker(fetcher Fetcher, s sink.Sink, opts Options, log *slog.Logger) *ForwardWalker {
	if log == nil {
		log = slog.Default()
	}
	return &ForwardWalker{fetcher: fetcher, sink: s, opts: opts, log: log}
}

// Run fetches ascending pages from head+1 to tip. The head is raised after every
// page that was written, so an error leaves the progress made so far in c.
func (w *ForwardWalker) Run(ctx context.Context, token domain.Token, c *cursor.Cursor, tip uint64) (PhaseResult, error) {
	res := PhaseResult{Phase: sink.PhaseIncremental}
	log := w.log.With("symbol", token.Symbol, "phase", res.Phase)

	start := c.MaxIngestedBlock + 1
	if start > tip {
		res.Stop = StopUpToDate
		return res, nil
	}

	res.Stop = StopBudget
	for i := 0; i < w.opts.BatchesPerRun; i++ {
		if err := ctx.Err(); err != nil {
			res.Stop = StopError
			return res, err
		}

		log.Debug("fetching batch", "start", start, "end", tip)
		batch, err := w.fetcher.Transactions(ctx, explorer.Query{
			Address:    token.Address,
			StartBlock: start,
			EndBlock:   tip,
			Sort:       explorer.SortAsc,
		})
		if err != nil {
			res.Stop = StopError
			return res, fmt.Errorf("fetch [%d,%d]: %w", start, tip, err)
		}
		res.Batches++
		if len(batch) == 0 {
			res.Stop = StopEmpty
			break
		}

		accepted, err := w.sink.Write(ctx, token.Symbol, res.Phase, batch)
		if err != nil {
			res.Stop = StopError
			return res, fmt.Errorf("write batch [%d,%d]: %w", start, tip, err)
		}
		res.Records += len(batch)
		res.Accepted += accepted
		metrics.RecordsFetched.WithLabelValues(token.Symbol, string(res.Phase)).Add(float64(len(batch)))
		metrics.RowsAccepted.WithLabelValues(token.Symbol, string(res.Phase)).Add(float64(accepted))

		_, maxBlock := domain.BlockRange(batch)
		cursor.AdvanceHead(c, maxBlock)

		if len(batch) < w.opts.PageSize {
			res.Stop = StopPartial
			break
		}
		if accepted == 0 {
			res.Stop = StopFiltered
			break
		}

		// Whole page inside one block: step past it instead of asking again.
		if maxBlock <= start {
			start++
		} else {
			start = maxBlock
		}
		if start > tip {
			res.Stop = StopTip
			break
		}
	}

	if res.Records > 0 {
		log.Info("incremental done",
			"records", res.Records,
			"accepted", res.Accepted,
			"batches", res.Batches,
			"head", c.MaxIngestedBlock,
			"stop", res.Stop,
		)
	}
	return res, nil
}
