package cli

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/ledgermirror/internal/control"
	"github.com/vietddude/ledgermirror/internal/core/cursor"
)

var showLag bool

var statusCmd = &cobra.Command{
	Use:          "status",
	Short:        "Show the persisted cursor of every configured token",
	SilenceUsage: true,
	RunE:         runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&showLag, "lag", false, "fetch the chain tip and show how far each head is behind")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	rows, tip, err := app.Status(ctx, showLag)
	if err != nil {
		slog.Error("Failed to load status", "error", err)
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TOKEN\tINITIALIZED\tHEAD\tFLOOR\tHISTORY\tCREATION\tLAG")
	for _, r := range rows {
		lag := "-"
		if showLag && r.Cursor.Initialized {
			lag = fmt.Sprintf("%d", r.Lag)
		}
		_, _ = fmt.Fprintf(w, "%s\t%t\t%d\t%d\t%s\t%d\t%s\n",
			r.Symbol,
			r.Cursor.Initialized,
			r.Cursor.MaxIngestedBlock,
			r.Cursor.MinIngestedBlock,
			r.Cursor.HistoryStatus,
			r.Cursor.CreationBlock,
			lag,
		)
	}
	_ = w.Flush()

	if showLag {
		fmt.Printf("\nchain tip: %d\n", tip)
	}
	if isDebug {
		for _, r := range rows {
			fmt.Printf("%s: %s\n", r.Symbol, cursor.StateDescription(r.Cursor.HistoryStatus))
		}
	}
	return nil
}
