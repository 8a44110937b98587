package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marketdash/etl/internal/warehouse"
	"github.com/marketdash/etl/pkg/config"
	"github.com/marketdash/etl/pkg/database"
	"github.com/marketdash/etl/pkg/logger"
)

// setupDBCmd creates the star schema and seeds the dimension tables
var setupDBCmd = &cobra.Command{
	Use:   "setup-db",
	Short: "Create the warehouse schema and seed dimensions",
	Long: `Creates the star schema (dimension and fact tables) and seeds the
dimension tables with the tracked symbols and indicators.

Idempotent: safe to run against an existing warehouse.`,
	RunE: setupDB,
}

func init() {
	rootCmd.AddCommand(setupDBCmd)
}

func setupDB(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to warehouse: %w", err)
	}
	defer db.Close()

	if err := warehouse.Setup(context.Background(), db, log); err != nil {
		return err
	}

	fmt.Println("Warehouse schema ready")
	return nil
}
