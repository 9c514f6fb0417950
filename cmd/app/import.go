package main

import (
	"context"
	"fmt"
	"os"

	"QuantLab/internal/di"
	"QuantLab/internal/repository"
	applogger "QuantLab/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var csvPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load daily closes from CSV into ClickHouse",
	Long: `Reads symbol,date,close rows and inserts them into the configured price
table, creating it if needed. Re-importing a date replaces the earlier close.

Example:
  CLICKHOUSE_HOST=localhost quantlab import --csv closes.csv`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&csvPath, "csv", "", "CSV file with symbol,date,close rows")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.ClickHouse.Enabled {
		return fmt.Errorf("clickhouse is disabled; set clickhouse.enabled or CLICKHOUSE_HOST")
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	bars, err := repository.ReadBarsCSV(f)
	if err != nil {
		return err
	}

	client, cleanup, err := di.ProvideClickHouseClient(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	l := applogger.NewWriter(os.Stderr, zerolog.InfoLevel)
	store := repository.NewCHPriceStore(client.DB(), cfg.ClickHouse.Database+"."+cfg.ClickHouse.Table, l)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ClickHouse.MaxExecutionTime)
	defer cancel()
	n, err := store.InsertBars(ctx, bars)
	if err != nil {
		return err
	}
	l.Info("import complete",
		applogger.Int("rows", len(bars)),
		applogger.Int("written", n),
		applogger.String("table", cfg.ClickHouse.Table))
	return nil
}
