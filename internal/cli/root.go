package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/ledgermirror/internal/control"
	"github.com/vietddude/ledgermirror/internal/core/config"
	"github.com/vietddude/ledgermirror/internal/indexing/ingest"
)

var (
	cfgPath string
	isDebug bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Mirror explorer transaction history for tracked tokens",
	Long: `mirror runs one ingestion pass: it walks every configured token forward to the
chain tip and backward toward its creation block, writes the fetched transactions to
the configured sink and persists the per-token cursors. Schedule it periodically.`,
	SilenceUsage: true,
	RunE:         runMirror,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "keep state in memory and discard fetched rows")
}

// loadConfig reads .env and the config file, then sets up logging.
func loadConfig() (*config.AppConfig, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		return nil, err
	}

	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
	return cfg, nil
}

func runMirror(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dryRun {
		cfg.State.Backend = config.BackendMemory
		cfg.Sink.Backend = config.BackendDiscard
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := control.Build(ctx, cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to initialize mirror", "error", err)
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("Error during shutdown", "error", err)
		}
	}()

	summary, runErr := app.Run(ctx)

	pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.PushMetrics(pushCtx); err != nil {
		slog.Warn("Failed to push metrics", "error", err)
	}

	if runErr != nil {
		if errors.Is(runErr, ingest.ErrFatalRun) {
			slog.Error("Run aborted", "run_id", summary.RunID, "error", runErr)
		} else {
			slog.Error("Run failed", "run_id", summary.RunID, "error", runErr)
		}
		return runErr
	}

	slog.Info("Run complete",
		"run_id", summary.RunID,
		"tip", summary.ChainTip,
		"tokens", len(summary.Tokens),
		"failures", len(summary.Failures()),
		"cancelled", summary.Cancelled,
		"duration", summary.Duration.Round(time.Millisecond),
	)
	return nil
}
