package control

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/vietddude/ledgermirror/internal/core/config"
	"github.com/vietddude/ledgermirror/internal/core/domain"
)

const tokenAddr = "0x00000000000000000000000000000000000000aa"

// explorerStub answers the handful of calls one run makes for a single token.
func explorerStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("action") {
		case "eth_blockNumber":
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":"0x3e8"}`)
		case "getcontractcreation":
			fmt.Fprint(w, `{"status":"1","message":"OK","result":[{"txHash":"0xc0"}]}`)
		case "eth_getTransactionByHash":
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{"blockNumber":"0x64"}}`)
		case "txlist":
			if q.Get("sort") == "desc" && q.Get("startblock") == "0" {
				fmt.Fprint(w, `{"status":"1","message":"OK","result":[
					{"blockNumber":"900","timeStamp":"1705276800","hash":"0x2","isError":"0"},
					{"blockNumber":"100","timeStamp":"1705276000","hash":"0x1","isError":"0"}
				]}`)
				return
			}
			fmt.Fprint(w, `{"status":"0","message":"No transactions found","result":[]}`)
		default:
			t.Errorf("unexpected action %q", q.Get("action"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.AppConfig {
	return &config.AppConfig{
		Explorer: config.ExplorerConfig{
			BaseURL:     baseURL,
			Timeout:     2 * time.Second,
			MaxAttempts: 2,
		},
		Ingest: config.IngestConfig{PageSize: 100, BatchesPerRun: 2},
		Tokens: []domain.Token{{Symbol: "JOE", Address: tokenAddr, Decimals: 18}},
		State: config.StateConfig{
			Backend: config.BackendFile,
			Path:    filepath.Join(t.TempDir(), "state", "global_state.json"),
		},
		Sink: config.SinkConfig{Backend: config.BackendDiscard},
	}
}

func TestMirror_Lifecycle(t *testing.T) {
	srv := explorerStub(t)
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	m, err := Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer m.Close()

	summary, err := m.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.RunID != m.RunID() {
		t.Errorf("summary run ID %s, want %s", summary.RunID, m.RunID())
	}
	if summary.ChainTip != 1000 || len(summary.Tokens) != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	rows, tip, err := m.Status(ctx, true)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if tip != 1000 || len(rows) != 1 {
		t.Fatalf("unexpected status: tip %d, %d rows", tip, len(rows))
	}
	c := rows[0].Cursor
	if !rows[0].Tracked || !c.Initialized || c.MaxIngestedBlock != 900 || c.MinIngestedBlock != 100 {
		t.Errorf("unexpected cursor %+v", c)
	}
	if c.CreationBlock != 100 || !c.Filled() {
		t.Errorf("first page reached creation block 100, got %+v", c)
	}
	if rows[0].Lag != 100 {
		t.Errorf("expected lag 100, got %d", rows[0].Lag)
	}

	// A rebuilt mirror sees the persisted file state.
	m2, err := Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	defer m2.Close()
	rows, _, err = m2.Status(ctx, false)
	if err != nil || rows[0].Cursor.MaxIngestedBlock != 900 {
		t.Errorf("expected persisted head 900, got %+v (%v)", rows, err)
	}
}

func TestMirror_ResetCursor(t *testing.T) {
	srv := explorerStub(t)
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	m, err := Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer m.Close()

	if _, err := m.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := m.ResetCursor(ctx, "NOPE"); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("expected ErrUnknownToken, got %v", err)
	}
	if err := m.ResetCursor(ctx, "JOE"); err != nil {
		t.Fatalf("ResetCursor failed: %v", err)
	}

	rows, _, err := m.Status(ctx, false)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if rows[0].Tracked || rows[0].Cursor.Initialized {
		t.Errorf("expected cursor dropped, got %+v", rows[0])
	}
}

func TestBuild_UnknownBackends(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.AppConfig)
	}{
		{"state", func(c *config.AppConfig) { c.State.Backend = "s3" }},
		{"sink", func(c *config.AppConfig) { c.Sink.Backend = "kafka" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, "http://localhost:0")
			tt.mutate(cfg)
			if _, err := Build(context.Background(), cfg, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTrimOptions(t *testing.T) {
	off := false
	opts := TrimOptions(config.SinkConfig{DropFailed: &off})
	if !opts.DropApprovals || opts.DropFailed {
		t.Errorf("unexpected options %+v", opts)
	}
}
