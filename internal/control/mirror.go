package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vietddude/ledgermirror/internal/core/config"
	"github.com/vietddude/ledgermirror/internal/core/cursor"
	"github.com/vietddude/ledgermirror/internal/core/domain"
	"github.com/vietddude/ledgermirror/internal/indexing/ingest"
	"github.com/vietddude/ledgermirror/internal/indexing/metrics"
	"github.com/vietddude/ledgermirror/internal/indexing/sink"
	"github.com/vietddude/ledgermirror/internal/infra/explorer"
	redisclient "github.com/vietddude/ledgermirror/internal/infra/redis"
	"github.com/vietddude/ledgermirror/internal/infra/storage"
	"github.com/vietddude/ledgermirror/internal/infra/storage/file"
	"github.com/vietddude/ledgermirror/internal/infra/storage/memory"
	"github.com/vietddude/ledgermirror/internal/infra/storage/postgres"
)

// ErrUnknownToken is returned for a symbol that is not configured.
var ErrUnknownToken = errors.New("unknown token")

// Mirror wires the cursor store, sink, explorer client and runner for one process.
type Mirror struct {
	cfg         *config.AppConfig
	runID       uuid.UUID
	store       storage.CursorStore
	sink        sink.Sink
	client      *explorer.Client
	runner      *ingest.Runner
	db          *postgres.DB
	redisClient *redisclient.Client
	log         *slog.Logger
}

// Build creates a Mirror from a loaded config. Postgres migrations run here when
// either the state or the sink lives in Postgres.
func Build(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*Mirror, error) {
	if log == nil {
		log = slog.Default()
	}
	m := &Mirror{cfg: cfg, runID: uuid.New(), log: log}

	if cfg.State.Backend == config.BackendPostgres || cfg.Sink.Backend == config.BackendPostgres {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		m.db = db
		if err := postgres.Migrate(ctx, db); err != nil {
			m.Close()
			return nil, err
		}
	}

	if cfg.State.Backend == config.BackendRedis {
		client, err := redisclient.NewClient(ctx, cfg.Redis)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		m.redisClient = client
	}

	switch cfg.State.Backend {
	case config.BackendFile:
		m.store = file.NewCursorStore(cfg.State.Path)
	case config.BackendPostgres:
		m.store = postgres.NewCursorStore(m.db, cfg.State.Key)
	case config.BackendRedis:
		m.store = redisclient.NewCursorStore(m.redisClient, cfg.State.Key)
	case config.BackendMemory:
		m.store = memory.NewCursorStore()
	default:
		m.Close()
		return nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
	log.Info("Using cursor store", "backend", cfg.State.Backend)

	trim := TrimOptions(cfg.Sink)
	switch cfg.Sink.Backend {
	case config.BackendFile:
		m.sink = sink.NewFileSink(cfg.Sink.Dir, trim, log)
	case config.BackendPostgres:
		m.sink = postgres.NewTxSink(m.db, m.runID, trim, log)
	case config.BackendDiscard:
		m.sink = sink.Discard{Trim: trim}
	default:
		m.Close()
		return nil, fmt.Errorf("unknown sink backend %q", cfg.Sink.Backend)
	}
	log.Info("Using sink", "backend", cfg.Sink.Backend)

	m.client = explorer.NewClient(explorer.Config{
		BaseURL:     cfg.Explorer.BaseURL,
		APIKey:      cfg.Explorer.APIKey,
		Timeout:     cfg.Explorer.Timeout,
		MinInterval: cfg.Explorer.MinInterval,
		MaxAttempts: cfg.Explorer.MaxAttempts,
		PageSize:    cfg.Ingest.PageSize,
	}, log)

	opts := ingest.Options{
		PageSize:      cfg.Ingest.PageSize,
		BatchesPerRun: cfg.Ingest.BatchesPerRun,
	}
	m.runner = ingest.NewRunner(m.store, m.client, m.sink, cfg.Tokens, opts, log).WithRunID(m.runID)

	return m, nil
}

// TrimOptions turns sink config into trim options. Unset flags default to true.
func TrimOptions(cfg config.SinkConfig) sink.TrimOptions {
	opts := sink.DefaultTrimOptions
	if cfg.DropApprovals != nil {
		opts.DropApprovals = *cfg.DropApprovals
	}
	if cfg.DropFailed != nil {
		opts.DropFailed = *cfg.DropFailed
	}
	return opts
}

// RunID identifies this process's run in logs and stored rows.
func (m *Mirror) RunID() uuid.UUID { return m.runID }

// Run executes one ingestion pass.
func (m *Mirror) Run(ctx context.Context) (ingest.Summary, error) {
	return m.runner.Run(ctx)
}

// PushMetrics sends the collected metrics to the configured Pushgateway.
func (m *Mirror) PushMetrics(ctx context.Context) error {
	return metrics.Push(ctx, m.cfg.Metrics.PushgatewayURL, m.cfg.Metrics.Job)
}

// TokenStatus is one row of the status report.
type TokenStatus struct {
	Symbol  string
	Address string
	Cursor  domain.EntityCursorState
	Tracked bool // present in the persisted state
	Lag     uint64
}

// Status reports the persisted cursor of every configured token. When withTip is
// set, the chain tip is fetched to compute lag.
func (m *Mirror) Status(ctx context.Context, withTip bool) ([]TokenStatus, uint64, error) {
	state, err := m.store.Load(ctx)
	if err != nil {
		return nil, 0, err
	}

	var tip uint64
	if withTip {
		tip, err = m.client.ChainTip(ctx)
		if err != nil {
			return nil, 0, err
		}
	}

	out := make([]TokenStatus, 0, len(m.cfg.Tokens))
	for _, t := range m.cfg.Tokens {
		st := TokenStatus{Symbol: t.Symbol, Address: t.Address}
		if c, ok := state.Tokens[t.Symbol]; ok {
			st.Cursor = *c
			st.Tracked = true
		} else {
			st.Cursor = *domain.NewEntityCursorState()
		}
		if withTip && st.Cursor.Initialized {
			st.Lag = cursor.Lag(&st.Cursor, tip)
		}
		out = append(out, st)
	}
	return out, tip, nil
}

// ResetCursor drops a token's cursor so the next run initializes it again.
func (m *Mirror) ResetCursor(ctx context.Context, symbol string) error {
	known := false
	for _, t := range m.cfg.Tokens {
		if t.Symbol == symbol {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
	}

	state, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	delete(state.Tokens, symbol)
	return m.store.Save(ctx, state)
}

// Close releases connections.
func (m *Mirror) Close() error {
	var errs []error
	if m.sink != nil {
		errs = append(errs, m.sink.Close())
	}
	if m.redisClient != nil {
		errs = append(errs, m.redisClient.Close())
	}
	if m.db != nil {
		errs = append(errs, m.db.Close())
	}
	return errors.Join(errs...)
}

// Migrate applies the Postgres schema without building the rest of the mirror.
func Migrate(ctx context.Context, cfg *config.AppConfig) (int64, error) {
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return 0, fmt.Errorf("failed to init db: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := postgres.Migrate(ctx, db); err != nil {
		return 0, err
	}
	return postgres.MigrationVersion(ctx, db)
}
