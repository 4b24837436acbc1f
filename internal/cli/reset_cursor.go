package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vietddude/ledgermirror/internal/control"
)

var resetCursorCmd = &cobra.Command{
	Use:          "reset-cursor [symbol]",
	Short:        "Drop a token's cursor so the next run initializes it again",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runResetCursor,
}

func init() {
	rootCmd.AddCommand(resetCursorCmd)
}

func runResetCursor(cmd *cobra.Command, args []string) error {
	symbol := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	app, err := control.Build(ctx, cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to initialize mirror", "error", err)
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	if err := app.ResetCursor(ctx, symbol); err != nil {
		slog.Error("Failed to reset cursor", "symbol", symbol, "error", err)
		return err
	}

	fmt.Printf("Successfully reset cursor for %s\n", symbol)
	return nil
}
