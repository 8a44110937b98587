package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketdash/etl/pkg/config"
	"github.com/marketdash/etl/pkg/database"
	"github.com/marketdash/etl/pkg/redis"
)

// checkCmd verifies configuration and connectivity
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify configuration and connectivity",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Printf("Config: ok (env=%s, symbols=%d, indicators=%d, keywords=%d)\n",
		cfg.Env, len(cfg.Stooq.Symbols), len(cfg.FRED.Indicators), len(cfg.Trends.Keywords))

	if cfg.FRED.APIKey == "" {
		fmt.Println("Warning: FRED_API_KEY not set, the macro pipeline will fail")
	}
	if cfg.NewsAPI.APIKey == "" {
		fmt.Println("Warning: NEWS_API_KEY not set, the news pipeline will fail")
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("warehouse: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("warehouse ping: %w", err)
	}
	stats := db.Stats()
	fmt.Printf("Warehouse: ok (conns %d/%d)\n", stats.TotalConns, stats.MaxConns)

	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	if redisClient.Enabled() {
		if err := redisClient.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		fmt.Println("Redis: ok (shared rate limiting active)")
	} else {
		fmt.Println("Redis: disabled (local rate limiting only)")
	}

	return nil
}
