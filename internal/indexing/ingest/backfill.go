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

// BackwardWalker moves a token's floor watermark toward its creation block.
type BackwardWalker struct {
	fetcher Fetcher
	locator CreationLocator
	sink    sink.Sink
	opts    Options
	log     *slog.Logger
}

// NewBackwardWalker creates a new backward walker.
func NewBackwardWalker(fetcher Fetcher, locator CreationLocator, s sink.Sink, opts Options, log *slog.Logger) *BackwardWalker {
	if log == nil {
		log = slog.Default()
	}
	return &BackwardWalker{fetcher: fetcher, locator: locator, sink: s, opts: opts, log: log}
}

// Run fetches descending pages from the floor down to the creation block, or to
// genesis when the creation block is unknown.
func (w *BackwardWalker) Run(ctx context.Context, token domain.Token, c *cursor.Cursor) (PhaseResult, error) {
	res := PhaseResult{Phase: sink.PhaseBackfill}
	log := w.log.With("symbol", token.Symbol, "phase", res.Phase)

	if c.Filled() {
		res.Stop = StopFilled
		return res, nil
	}

	if c.CreationBlock == 0 {
		if cursor.SetCreationBlock(c, w.locator.CreationBlock(ctx, token.Address)) {
			log.Info("creation block found", "creation_block", c.CreationBlock)
		}
	}
	creation := c.CreationBlock

	if creation > 0 && c.MinIngestedBlock <= creation {
		res.Stop = StopOrigin
		return res, w.fill(log, c, creation, "floor already at creation block")
	}

	floor := c.MinIngestedBlock
	target := creation
	log.Info("walking back", "floor", floor, "target", target)

	res.Stop = StopBudget
	for i := 0; i < w.opts.BatchesPerRun; i++ {
		if err := ctx.Err(); err != nil {
			res.Stop = StopError
			return res, err
		}

		log.Debug("fetching batch", "start", target, "end", floor)
		batch, err := w.fetcher.Transactions(ctx, explorer.Query{
			Address:    token.Address,
			StartBlock: target,
			EndBlock:   floor,
			Sort:       explorer.SortDesc,
		})
		if err != nil {
			res.Stop = StopError
			return res, fmt.Errorf("fetch [%d,%d]: %w", target, floor, err)
		}
		res.Batches++

		if len(batch) == 0 {
			if target == 0 {
				// Nothing below the floor and no origin to compare against.
				res.Stop = StopOriginUnknown
				break
			}
			res.Stop = StopOrigin
			if err := w.fill(log, c, target, "no data above creation block"); err != nil {
				return res, err
			}
			break
		}

		accepted, err := w.sink.Write(ctx, token.Symbol, res.Phase, batch)
		if err != nil {
			res.Stop = StopError
			return res, fmt.Errorf("write batch [%d,%d]: %w", target, floor, err)
		}
		res.Records += len(batch)
		res.Accepted += accepted
		metrics.RecordsFetched.WithLabelValues(token.Symbol, string(res.Phase)).Add(float64(len(batch)))
		metrics.RowsAccepted.WithLabelValues(token.Symbol, string(res.Phase)).Add(float64(accepted))

		minBlock, _ := domain.BlockRange(batch)
		cursor.RetreatFloor(c, minBlock)

		if len(batch) < w.opts.PageSize {
			res.Stop = StopPartial
			snap := c.MinIngestedBlock
			if creation > 0 {
				snap = creation
			}
			if err := w.fill(log, c, snap, "partial page"); err != nil {
				return res, err
			}
			break
		}
		if accepted == 0 {
			res.Stop = StopFiltered
			break
		}

		var next uint64
		if minBlock >= floor {
			// Whole page inside one block.
			if minBlock == 0 {
				res.Stop = StopOrigin
				if err := w.fill(log, c, 0, "single-block page at genesis"); err != nil {
					return res, err
				}
				break
			}
			next = minBlock - 1
		} else {
			next = minBlock
		}

		if creation > 0 && next <= creation {
			res.Stop = StopOrigin
			if err := w.fill(log, c, creation, "crossed creation block"); err != nil {
				return res, err
			}
			break
		}
		floor = next
	}

	if res.Records > 0 || c.Filled() {
		log.Info("backfill done",
			"records", res.Records,
			"accepted", res.Accepted,
			"batches", res.Batches,
			"floor", c.MinIngestedBlock,
			"history", c.HistoryStatus,
			"stop", res.Stop,
		)
	}
	return res, nil
}

func (w *BackwardWalker) fill(log *slog.Logger, c *cursor.Cursor, floor uint64, reason string) error {
	t, err := cursor.FillAt(c, floor, reason)
	if err != nil {
		return err
	}
	log.Info("history complete", "floor", c.MinIngestedBlock, "from", t.From, "reason", reason)
	return nil
}
