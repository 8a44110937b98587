package commands

import (
	"fmt"

	"github.com/marketdash/etl/internal/contracts"
	"github.com/marketdash/etl/internal/external/fred"
	"github.com/marketdash/etl/internal/external/gtrends"
	"github.com/marketdash/etl/internal/external/newsapi"
	"github.com/marketdash/etl/internal/external/stooq"
	"github.com/marketdash/etl/internal/pipeline"
	"github.com/marketdash/etl/internal/quality"
	"github.com/marketdash/etl/internal/warehouse"
	"github.com/marketdash/etl/pkg/config"
	"github.com/marketdash/etl/pkg/database"
	"github.com/marketdash/etl/pkg/httputil"
	"github.com/marketdash/etl/pkg/logger"
	"github.com/marketdash/etl/pkg/redis"
)

const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// allSources is the canonical pipeline ordering
var allSources = []string{"price", "macro", "trend", "news"}

// app holds the wired process dependencies
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	db           *database.DB
	redis        *redis.Client
	orchestrator *pipeline.Orchestrator
}

// newApp wires the process for the requested sources. An empty source list
// means all pipelines.
func newApp(sources []string, workerOverride int) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if workerOverride > 0 {
		cfg.ETL.Workers = workerOverride
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to warehouse: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	limiter := redis.NewRateLimiter(redisClient, "etl")

	adapters, err := buildAdapters(cfg, log, limiter, sources)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, err
	}

	validator := quality.New(cfg, log)
	writer := warehouse.NewWriter(db, log)
	retry := pipeline.NewRetryPolicy(cfg)

	runners := make([]*pipeline.Runner, 0, len(adapters))
	for _, adapter := range adapters {
		runners = append(runners, pipeline.NewRunner(adapter, validator, writer, retry, log))
	}

	return &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		redis:        redisClient,
		orchestrator: pipeline.NewOrchestrator(cfg, log, runners...),
	}, nil
}

// Close releases process resources
func (a *app) Close() {
	a.db.Close()
	a.redis.Close()
}

// buildAdapters creates the source adapters in canonical order.
// Each provider gets its own HTTP client so rate limits and default headers
// stay per-provider.
func buildAdapters(cfg *config.Config, log *logger.Logger, limiter *redis.RateLimiter, sources []string) ([]contracts.Adapter, error) {
	if len(sources) == 0 {
		sources = allSources
	}

	requested := make(map[string]bool, len(sources))
	for _, s := range sources {
		requested[s] = true
	}
	for s := range requested {
		if !isKnownSource(s) {
			return nil, fmt.Errorf("unknown source %q (known: price, macro, trend, news)", s)
		}
	}

	var adapters []contracts.Adapter
	for _, name := range allSources {
		if !requested[name] {
			continue
		}

		switch name {
		case "price":
			client := httputil.New(log).
				WithRateLimiter(limiter, redis.StooqRateLimit).
				WithLocalLimit(5, 1)
			adapters = append(adapters, stooq.New(client, log, cfg.Stooq.BaseURL, cfg.Stooq.Symbols))

		case "macro":
			client := httputil.New(log).
				WithRateLimiter(limiter, redis.FREDRateLimit).
				WithLocalLimit(2, 1)
			adapters = append(adapters, fred.New(client, log, cfg.FRED.BaseURL, cfg.FRED.APIKey, cfg.FRED.Indicators))

		case "trend":
			client := httputil.New(log).
				WithRateLimiter(limiter, redis.TrendsRateLimit).
				WithLocalLimit(0.2, 1).
				WithHeader("User-Agent", browserUA)
			adapters = append(adapters, gtrends.New(client, log, cfg.Trends.BaseURL, cfg.Trends.Geo, cfg.Trends.Keywords))

		case "news":
			client := httputil.New(log).
				WithRateLimiter(limiter, redis.NewsRateLimit).
				WithLocalLimit(1, 1)
			adapters = append(adapters, newsapi.New(client, log, cfg.NewsAPI.BaseURL, cfg.NewsAPI.APIKey, cfg.NewsAPI.Symbols, cfg.NewsAPI.PageSize))
		}
	}
	return adapters, nil
}

func isKnownSource(name string) bool {
	for _, s := range allSources {
		if s == name {
			return true
		}
	}
	return false
}
