package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"
)

type Config struct {
	AppEnv       string `env:"APP_ENV" default:"development"`
	Port         string `env:"PORT" default:"8080"`
	RedisURL     string `env:"REDIS_URL"`
	StoreBackend string `env:"STORE_BACKEND" default:"redis"`
	LogLevel     string `env:"LOG_LEVEL" default:"info"`
	LogFormat    string `env:"LOG_FORMAT" default:"text"`

	VoteThreshold   int           `env:"VOTE_THRESHOLD" default:"10"`
	RevealAfter     time.Duration `env:"REVEAL_AFTER" default:"24h"`
	MaxPostsPerDay  int           `env:"MAX_POSTS_PER_DAY" default:"3"`
	MaxVotesPerDay  int           `env:"MAX_VOTES_PER_DAY" default:"50"`
	StatementMinLen int           `env:"STATEMENT_MIN_LEN" default:"5"`
	StatementMaxLen int           `env:"STATEMENT_MAX_LEN" default:"120"`

	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" default:"5m"` // 0 disables the in-process sweeper
	SweepBatchSize int           `env:"SWEEP_BATCH_SIZE" default:"100"`
	SweepTimeout   time.Duration `env:"SWEEP_TIMEOUT" default:"1m"`

	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" default:"10s"`
	APIRatePerSecond float64       `env:"API_RATE_PER_SECOND" default:"5"`
	APIRateBurst     int           `env:"API_RATE_BURST" default:"20"`

	PlatformAPIURL   string `env:"PLATFORM_API_URL"`
	PlatformAPIToken string `env:"PLATFORM_API_TOKEN"`
	PostTitle        string `env:"POST_TITLE" default:"Decept: 2 Truths 1 Lie"`
	JobToken         string `env:"JOB_TOKEN"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.StoreBackend {
	case StoreBackendRedis:
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required")
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendRedis, StoreBackendMemory, cfg.StoreBackend)
	}

	if cfg.AppEnv == "production" && cfg.JobToken == "" {
		return errors.New("JOB_TOKEN is required in production")
	}

	positive := map[string]int{
		"VOTE_THRESHOLD":    cfg.VoteThreshold,
		"MAX_POSTS_PER_DAY": cfg.MaxPostsPerDay,
		"MAX_VOTES_PER_DAY": cfg.MaxVotesPerDay,
		"STATEMENT_MIN_LEN": cfg.StatementMinLen,
		"SWEEP_BATCH_SIZE":  cfg.SweepBatchSize,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if cfg.StatementMaxLen < cfg.StatementMinLen {
		return errors.New("STATEMENT_MAX_LEN must not be below STATEMENT_MIN_LEN")
	}
	if cfg.RevealAfter <= 0 {
		return errors.New("REVEAL_AFTER must be positive")
	}
	if cfg.SweepInterval < 0 {
		return errors.New("SWEEP_INTERVAL must not be negative")
	}

	return nil
}
