package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/ledgermirror/internal/core/cursor"
	"github.com/vietddude/ledgermirror/internal/core/domain"
	"github.com/vietddude/ledgermirror/internal/indexing/metrics"
	"github.com/vietddude/ledgermirror/internal/indexing/sink"
	"github.com/vietddude/ledgermirror/internal/infra/storage"
)

// Runner executes one ingestion pass over all configured tokens.
type Runner struct {
	store    storage.CursorStore
	tips     TipProvider
	tokens   []domain.Token
	initer   *Initializer
	forward  *ForwardWalker
	backward *BackwardWalker
	runID    uuid.UUID
	log      *slog.Logger
}

// NewRunner creates a runner. Tokens are processed in the given order.
func NewRunner(
	store storage.CursorStore,
	client Explorer,
	s sink.Sink,
	tokens []domain.Token,
	opts Options,
	log *slog.Logger,
) *Runner {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "ingest")
	return &Runner{
		store:    store,
		tips:     client,
		tokens:   tokens,
		initer:   NewInitializer(client, client, s, log),
		forward:  NewForwardWalker(client, s, opts, log),
		backward: NewBackwardWalker(client, client, s, opts, log),
		log:      log,
	}
}

// WithRunID fixes the ID reported by the next runs instead of generating one per run.
func (r *Runner) WithRunID(id uuid.UUID) *Runner {
	r.runID = id
	return r
}

// TokenOutcome is what happened to one token during a run.
type TokenOutcome struct {
	Symbol      string
	Initialized bool
	Phases      []PhaseResult
	Errors      []error
	Cursor      domain.EntityCursorState
}

// Summary reports a finished run.
type Summary struct {
	RunID     uuid.UUID
	ChainTip  uint64
	StartedAt time.Time
	Duration  time.Duration
	Tokens    []TokenOutcome
	Cancelled bool
}

// Failures returns all phase errors of the run.
func (s Summary) Failures() []error {
	var errs []error
	for _, t := range s.Tokens {
		errs = append(errs, t.Errors...)
	}
	return errs
}

// Run loads state, fetches the chain tip and processes each token, persisting
// state after every token. Phase failures are logged and recorded in the summary;
// only fatal setup errors and state write errors are returned.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	runID := r.runID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	summary := &Summary{RunID: runID, StartedAt: time.Now()}
	err := r.run(ctx, summary)
	summary.Duration = time.Since(summary.StartedAt)
	metrics.RunDuration.Set(summary.Duration.Seconds())
	return *summary, err
}

func (r *Runner) run(ctx context.Context, summary *Summary) error {
	log := r.log.With("run_id", summary.RunID.String())

	state, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: load cursor state: %w", ErrFatalRun, err)
	}

	tip, err := r.tips.ChainTip(ctx)
	if err != nil {
		return fmt.Errorf("%w: chain tip: %w", ErrFatalRun, err)
	}
	summary.ChainTip = tip
	metrics.ChainTip.Set(float64(tip))
	log.Info("run started", "tip", tip, "tokens", len(r.tokens))

	// Saves must land even when ctx is cancelled mid-token.
	saveCtx := context.WithoutCancel(ctx)

	for _, token := range r.tokens {
		if ctx.Err() != nil {
			summary.Cancelled = true
			log.Warn("run cancelled", "remaining_from", token.Symbol)
			break
		}

		c := state.Ensure(token.Symbol)
		outcome := r.processToken(ctx, log, token, c, tip)

		if err := r.store.Save(saveCtx, state); err != nil {
			metrics.StateSaves.WithLabelValues("error").Inc()
			summary.Tokens = append(summary.Tokens, outcome)
			return fmt.Errorf("%w: after %s: %w", ErrStateWrite, token.Symbol, err)
		}
		metrics.StateSaves.WithLabelValues("ok").Inc()

		outcome.Cursor = *c
		summary.Tokens = append(summary.Tokens, outcome)
		observe(token.Symbol, c)
	}

	log.Info("run finished",
		"tip", tip,
		"tokens", len(summary.Tokens),
		"failures", len(summary.Failures()),
		"elapsed", time.Since(summary.StartedAt).Round(time.Millisecond),
	)
	return nil
}

func (r *Runner) processToken(ctx context.Context, log *slog.Logger, token domain.Token, c *cursor.Cursor, tip uint64) TokenOutcome {
	out := TokenOutcome{Symbol: token.Symbol}

	if !c.Initialized {
		log.Info("initializing token", "symbol", token.Symbol)
		res, err := r.initer.Run(ctx, token, c, tip)
		out.Initialized = true
		r.record(log, &out, res, err, token.Symbol)
		return out
	}

	res, err := r.forward.Run(ctx, token, c, tip)
	r.record(log, &out, res, err, token.Symbol)

	res, err = r.backward.Run(ctx, token, c)
	r.record(log, &out, res, err, token.Symbol)
	return out
}

func (r *Runner) record(log *slog.Logger, out *TokenOutcome, res PhaseResult, err error, symbol string) {
	out.Phases = append(out.Phases, res)
	if err == nil {
		return
	}
	perr := &PhaseError{Symbol: symbol, Phase: res.Phase, Err: err}
	out.Errors = append(out.Errors, perr)
	metrics.PhaseFailures.WithLabelValues(symbol, string(res.Phase)).Inc()

	if errors.Is(err, context.Canceled) {
		log.Warn("phase interrupted", "symbol", symbol, "phase", res.Phase)
		return
	}
	log.Error("phase failed", "symbol", symbol, "phase", res.Phase, "error", err)
}

func observe(symbol string, c *cursor.Cursor) {
	metrics.HeadBlock.WithLabelValues(symbol).Set(float64(c.MaxIngestedBlock))
	metrics.FloorBlock.WithLabelValues(symbol).Set(float64(c.MinIngestedBlock))
	filled := 0.0
	if c.Filled() {
		filled = 1
	}
	metrics.HistoryFilled.WithLabelValues(symbol).Set(filled)
}
