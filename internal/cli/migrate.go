package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vietddude/ledgermirror/internal/control"
)

var migrateCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Apply the Postgres schema migrations",
	SilenceUsage: true,
	RunE:         runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is not set")
	}

	version, err := control.Migrate(cmd.Context(), cfg)
	if err != nil {
		slog.Error("Migration failed", "error", err)
		return err
	}
	fmt.Printf("Database schema at version %d\n", version)
	return nil
}
