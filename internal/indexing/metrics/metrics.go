package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// ExplorerCallsTotal tracks explorer API calls per action and outcome
	ExplorerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgermirror_explorer_calls_total",
			Help: "Total number of explorer API calls",
		},
		[]string{"action", "outcome"},
	)

	// ExplorerLatency tracks explorer call latency
	ExplorerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledgermirror_explorer_latency_seconds",
			Help:    "Explorer API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	// RecordsFetched tracks raw transactions returned per token and phase
	RecordsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgermirror_records_fetched_total",
			Help: "Total number of raw transactions fetched",
		},
		[]string{"token", "phase"},
	)

	// RowsAccepted tracks rows kept by the sink after trimming
	RowsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgermirror_sink_rows_accepted_total",
			Help: "Total number of rows accepted by the sink",
		},
		[]string{"token", "phase"},
	)

	// PhaseFailures tracks failed init/incremental/backfill phases
	PhaseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgermirror_phase_failures_total",
			Help: "Total number of failed ingestion phases",
		},
		[]string{"token", "phase"},
	)

	// HeadBlock tracks the forward watermark per token
	HeadBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledgermirror_head_block",
			Help: "Highest block ingested going forward",
		},
		[]string{"token"},
	)

	// FloorBlock tracks the backward watermark per token
	FloorBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledgermirror_floor_block",
			Help: "Lowest block ingested going backward",
		},
		[]string{"token"},
	)

	// HistoryFilled is 1 once a token's history reached its creation block
	HistoryFilled = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledgermirror_history_filled",
			Help: "Whether backfill reached the creation block (1) or not (0)",
		},
		[]string{"token"},
	)

	// ChainTip tracks the chain head observed at run start
	ChainTip = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledgermirror_chain_tip",
			Help: "Latest block height reported by the explorer",
		},
	)

	// RunDuration tracks the wall time of the last run
	RunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledgermirror_run_duration_seconds",
			Help: "Duration of the last ingestion run",
		},
	)

	// StateSaves tracks cursor document writes
	StateSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgermirror_state_saves_total",
			Help: "Total number of cursor state saves",
		},
		[]string{"outcome"},
	)
)

// Push sends the default registry to a Pushgateway. Runs are short-lived, so
// metrics are pushed once at the end instead of being scraped.
func Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
