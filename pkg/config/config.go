package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the ETL process.
// SSOT: every environment variable is read here and nowhere else.
type Config struct {
	Env string // development, staging, production

	// Warehouse
	Warehouse WarehouseConfig

	// Redis (optional, shared rate limiting)
	Redis RedisConfig

	// External providers
	Stooq   StooqConfig
	FRED    FREDConfig
	Trends  TrendsConfig
	NewsAPI NewsAPIConfig

	// Pipeline behavior
	ETL ETLConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// WarehouseConfig holds PostgreSQL warehouse configuration
type WarehouseConfig struct {
	DSN string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// StooqConfig holds the daily price provider configuration
type StooqConfig struct {
	BaseURL string
	Symbols []string
}

// FREDConfig holds the FRED macro data API configuration
type FREDConfig struct {
	APIKey     string
	BaseURL    string
	Indicators []string
}

// TrendsConfig holds the search-trends provider configuration
type TrendsConfig struct {
	BaseURL  string
	Geo      string
	Keywords []string
}

// NewsAPIConfig holds the news provider configuration
type NewsAPIConfig struct {
	APIKey        string
	BaseURL       string
	Symbols       []string
	PageSize      int
	LookbackHours int
}

// ETLConfig holds pipeline tuning parameters
type ETLConfig struct {
	// Validation: batch rejected when rejects/total exceeds this ratio
	MaxRejectRatio float64

	// Freshness thresholds per source
	PriceStaleness time.Duration
	MacroStaleness time.Duration
	TrendStaleness time.Duration
	NewsStaleness  time.Duration

	// Fetch retry (rate-limit backoff)
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration

	// Orchestration
	Workers    int           // concurrent pipelines; 1 = sequential
	RunTimeout time.Duration // whole-invocation deadline

	// Fetch windows
	IncrementalLookback time.Duration
	FullLookback        time.Duration
}

// Symbols tracked by default: broad market, sector ETFs, and volatility.
var defaultSymbols = []string{
	"SPY", "QQQ", "IWM", "EFA", "VTI",
	"XLF", "XLK", "XLE", "XLI", "XLV",
	"XLY", "XLP", "XLU", "XLB", "XLRE",
	"^VIX",
}

// FRED series loaded by default.
var defaultIndicators = []string{
	"CPIAUCSL", "UNRATE", "FEDFUNDS", "UMCSENT", "DGS10", "DGS2", "DGS30",
	"GDP", "PAYEMS", "INDPRO", "RSXFS", "HOUST", "DGORDER", "TCU",
	"M2SL", "TOTALSA", "CSUSHPISA", "RECPROUSM156N", "T10Y2Y", "T10Y3M",
}

// Search keywords tracked by default.
var defaultKeywords = []string{
	"stock market crash", "recession", "inflation", "bear market", "bull market",
	"buy stocks", "sell stocks", "stock market news", "market volatility", "fed interest rates",
	"unemployment", "gdp growth", "consumer spending", "housing market", "oil prices",
	"tech stocks", "banking stocks", "energy stocks", "healthcare stocks", "crypto",
	"earnings season", "fed meeting", "jobs report", "cpi report", "market correction",
}

// News is only fetched for the most liquid names.
var defaultNewsSymbols = []string{"SPY", "QQQ", "IWM", "XLF", "XLK", "XLE", "VIX"}

// Load reads configuration from environment variables.
// SSOT: this is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		Warehouse: WarehouseConfig{
			DSN:             getEnv("PG_DSN", ""),
			MaxConns:        getEnvAsInt("PG_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("PG_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("PG_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("PG_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Stooq: StooqConfig{
			BaseURL: getEnv("STOOQ_BASE_URL", "https://stooq.com"),
			Symbols: getEnvAsList("ETL_SYMBOLS", defaultSymbols),
		},

		FRED: FREDConfig{
			APIKey:     getEnv("FRED_API_KEY", ""),
			BaseURL:    getEnv("FRED_BASE_URL", "https://api.stlouisfed.org"),
			Indicators: getEnvAsList("ETL_INDICATORS", defaultIndicators),
		},

		Trends: TrendsConfig{
			BaseURL:  getEnv("TRENDS_BASE_URL", "https://trends.google.com"),
			Geo:      getEnv("TRENDS_GEO", "US"),
			Keywords: getEnvAsList("ETL_KEYWORDS", defaultKeywords),
		},

		NewsAPI: NewsAPIConfig{
			APIKey:        getEnv("NEWS_API_KEY", ""),
			BaseURL:       getEnv("NEWS_BASE_URL", "https://newsapi.org"),
			Symbols:       getEnvAsList("ETL_NEWS_SYMBOLS", defaultNewsSymbols),
			PageSize:      getEnvAsInt("NEWS_PAGE_SIZE", 10),
			LookbackHours: getEnvAsInt("NEWS_LOOKBACK_HOURS", 24),
		},

		ETL: ETLConfig{
			MaxRejectRatio: getEnvAsFloat("ETL_MAX_REJECT_RATIO", 0.10),

			PriceStaleness: getEnvAsDuration("ETL_PRICE_STALENESS", "96h"),
			MacroStaleness: getEnvAsDuration("ETL_MACRO_STALENESS", "1080h"), // 45 days, quarterly series lag
			TrendStaleness: getEnvAsDuration("ETL_TREND_STALENESS", "168h"),
			NewsStaleness:  getEnvAsDuration("ETL_NEWS_STALENESS", "24h"),

			RetryMaxAttempts:  getEnvAsInt("ETL_RETRY_MAX_ATTEMPTS", 3),
			RetryInitialDelay: getEnvAsDuration("ETL_RETRY_INITIAL_DELAY", "1s"),
			RetryMaxDelay:     getEnvAsDuration("ETL_RETRY_MAX_DELAY", "10s"),

			Workers:    getEnvAsInt("ETL_WORKERS", 2),
			RunTimeout: getEnvAsDuration("ETL_RUN_TIMEOUT", "30m"),

			IncrementalLookback: getEnvAsDuration("ETL_INCREMENTAL_LOOKBACK", "168h"), // 7 days
			FullLookback:        getEnvAsDuration("ETL_FULL_LOOKBACK", "17520h"),      // 2 years
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Warehouse.DSN == "" {
		return fmt.Errorf("PG_DSN is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.ETL.MaxRejectRatio < 0 || c.ETL.MaxRejectRatio > 1 {
		return fmt.Errorf("ETL_MAX_REJECT_RATIO must be in [0, 1]")
	}

	if c.ETL.RetryMaxAttempts < 1 {
		return fmt.Errorf("ETL_RETRY_MAX_ATTEMPTS must be at least 1")
	}

	if c.ETL.Workers < 1 {
		return fmt.Errorf("ETL_WORKERS must be at least 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}

	if len(values) == 0 {
		return defaultValue
	}

	return values
}
