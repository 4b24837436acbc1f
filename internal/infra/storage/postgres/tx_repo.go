package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vietddude/ledgermirror/internal/core/domain"
	"github.com/vietddude/ledgermirror/internal/indexing/sink"
)

const insertRawTransactions = `
	INSERT INTO raw_transactions (
		symbol, hash, block_number, time_stamp, month, phase, run_id, payload
	)
	SELECT $1, t.hash, t.block_number, t.time_stamp, t.month, $2, $3, t.payload::jsonb
	FROM unnest($4::text[], $5::bigint[], $6::bigint[], $7::text[], $8::text[])
		AS t(hash, block_number, time_stamp, month, payload)
	ON CONFLICT (symbol, hash) DO NOTHING
`

// TxSink implements sink.Sink by inserting trimmed rows into raw_transactions.
// Rows already present for (symbol, hash) are skipped, which absorbs the boundary
// block the walkers re-fetch.
type TxSink struct {
	db    *DB
	runID uuid.UUID
	trim  sink.TrimOptions
	log   *slog.Logger
}

// NewTxSink creates a Postgres-backed sink. runID tags every inserted row.
func NewTxSink(db *DB, runID uuid.UUID, trim sink.TrimOptions, log *slog.Logger) *TxSink {
	if log == nil {
		log = slog.Default()
	}
	return &TxSink{
		db:    db,
		runID: runID,
		trim:  trim,
		log:   log.With("component", "pg_sink"),
	}
}

// Write implements sink.Sink. The accepted count is the number of rows that
// survived trimming, whether or not they were new.
func (s *TxSink) Write(ctx context.Context, symbol string, phase sink.Phase, batch []domain.RawTransaction) (int, error) {
	rows := sink.Trim(batch, s.trim)
	if len(rows) == 0 {
		s.log.Info("buffer empty after trimming", "symbol", symbol, "phase", phase, "raw", len(batch))
		return 0, nil
	}

	var (
		hashes   = make([]string, len(rows))
		blocks   = make([]int64, len(rows))
		stamps   = make([]int64, len(rows))
		months   = make([]string, len(rows))
		payloads = make([]string, len(rows))
	)
	for i, r := range rows {
		payload, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("failed to encode transaction %s: %w", r.Tx.Hash, err)
		}
		hashes[i] = r.Tx.Hash
		blocks[i] = int64(r.Tx.BlockNumber)
		stamps[i] = r.Tx.TimeStamp
		months[i] = r.Month
		payloads[i] = string(payload)
	}

	res, err := s.db.ExecContext(ctx, insertRawTransactions,
		symbol, string(phase), s.runID,
		pq.Array(hashes), pq.Array(blocks), pq.Array(stamps), pq.Array(months), pq.Array(payloads),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transactions: %w", err)
	}

	inserted, _ := res.RowsAffected()
	s.log.Debug("saved transactions",
		"symbol", symbol,
		"phase", phase,
		"rows", len(rows),
		"inserted", inserted,
	)
	return len(rows), nil
}

// CountTransactions returns the number of stored rows for a symbol.
func (s *TxSink) CountTransactions(ctx context.Context, symbol string) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM raw_transactions WHERE symbol = $1`, symbol); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

// Close implements sink.Sink. The DB is owned by the caller.
func (s *TxSink) Close() error { return nil }
