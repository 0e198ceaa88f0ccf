package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server (read-only records API)
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis (quote cache + cross-process provider budget)
	Redis RedisConfig

	// Market-data providers
	FMP           FMPConfig
	StockAnalysis StockAnalysisConfig

	// Fundamentals cache
	Cache CacheConfig

	// Pipeline
	Pipeline PipelineConfig

	// Scheduled refresh
	Schedule ScheduleConfig

	// Screening/valuation thresholds document ("" = built-in defaults)
	CriteriaFile string

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
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

// FMPConfig holds Financial Modeling Prep API configuration
type FMPConfig struct {
	BaseURL string
	APIKey  string

	// In-process token bucket: sustained calls/sec and burst size.
	RateLimit float64
	RateBurst int

	// Account-level calls/min budget, enforced via Redis when enabled.
	// FMP 요금제 한도는 프로세스가 아니라 API 키 단위
	MinuteBudget int

	Timeout time.Duration

	// Years of annual statements requested per ticker
	StatementYears int
}

// StockAnalysisConfig holds the fallback quote source configuration
type StockAnalysisConfig struct {
	BaseURL string
	Enabled bool
}

// CacheConfig holds fundamentals cache TTLs
type CacheConfig struct {
	FundamentalsTTL time.Duration
	QuoteTTL        time.Duration
}

// PipelineConfig holds orchestrator tuning knobs
type PipelineConfig struct {
	Workers   int
	BatchSize int
}

// ScheduleConfig holds cron expressions for background refresh
type ScheduleConfig struct {
	Enabled      bool
	QuoteRefresh string // weekly watchlist quote refresh
	FullRefresh  string // quarterly forced fundamentals refresh
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8086"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "compounder"),
			User:            getEnv("DB_USER", "compounder"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		FMP: FMPConfig{
			BaseURL:        getEnv("FMP_BASE_URL", "https://financialmodelingprep.com/stable"),
			APIKey:         getEnv("FMP_API_KEY", ""),
			RateLimit:      getEnvAsFloat("FMP_RATE_LIMIT", 4.0),
			RateBurst:      getEnvAsInt("FMP_RATE_BURST", 8),
			MinuteBudget:   getEnvAsInt("FMP_MINUTE_BUDGET", 280),
			Timeout:        getEnvAsDuration("FMP_TIMEOUT", "30s"),
			StatementYears: getEnvAsInt("FMP_STATEMENT_YEARS", 10),
		},

		StockAnalysis: StockAnalysisConfig{
			BaseURL: getEnv("STOCKANALYSIS_BASE_URL", "https://stockanalysis.com"),
			Enabled: getEnvAsBool("STOCKANALYSIS_ENABLED", true),
		},

		Cache: CacheConfig{
			FundamentalsTTL: getEnvAsDuration("CACHE_FUNDAMENTALS_TTL", "24h"),
			QuoteTTL:        getEnvAsDuration("CACHE_QUOTE_TTL", "1h"),
		},

		Pipeline: PipelineConfig{
			Workers:   getEnvAsInt("PIPELINE_WORKERS", 8),
			BatchSize: getEnvAsInt("PIPELINE_BATCH_SIZE", 50),
		},

		Schedule: ScheduleConfig{
			Enabled: getEnvAsBool("SCHEDULE_ENABLED", true),
			// 초 단위 포함 6필드 (cron.WithSeconds)
			QuoteRefresh: getEnv("SCHEDULE_QUOTE_REFRESH", "0 0 6 * * MON"),
			FullRefresh:  getEnv("SCHEDULE_FULL_REFRESH", "0 0 4 1 */3 *"),
		},

		CriteriaFile: getEnv("CRITERIA_FILE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.FMP.RateLimit <= 0 {
		return fmt.Errorf("FMP_RATE_LIMIT must be positive")
	}

	if c.FMP.RateBurst < 1 {
		return fmt.Errorf("FMP_RATE_BURST must be at least 1")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be at least 1")
	}

	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("PIPELINE_BATCH_SIZE must be at least 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
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
