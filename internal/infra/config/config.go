package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	DatabaseURL   string
	TelegramToken string // optional; in-app delivery falls back to the log sender when empty
	LogLevel      string
	Environment   string

	CronSpecDispatchTick     string // due-reminder scan
	CronSpecDailyMaintenance string // batch reminder setup + expiration sweep
	CronSpecEvidencePoll     string // evidence feed pull

	EvidenceFeedURL   string // optional; polling is disabled when empty
	EvidenceFeedToken string

	DispatchBatchSize   int
	DispatchParallelism int
	DeliveryRetryLimit  int
	ClaimStaleAfter     time.Duration // SENDING rows older than this are reclaimable
	NotifyTimeout       time.Duration // per alert-notification attempt
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.CronSpecDispatchTick = envOrDefault("CRON_SPEC_DISPATCH_TICK", "*/5 * * * *")
	cfg.CronSpecDailyMaintenance = envOrDefault("CRON_SPEC_DAILY_MAINTENANCE", "0 6 * * *")
	cfg.CronSpecEvidencePoll = envOrDefault("CRON_SPEC_EVIDENCE_POLL", "*/30 * * * *")

	cfg.EvidenceFeedURL = os.Getenv("EVIDENCE_FEED_URL")
	cfg.EvidenceFeedToken = os.Getenv("EVIDENCE_FEED_TOKEN")

	var err error
	if cfg.DispatchBatchSize, err = envOrDefaultInt("DISPATCH_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.DispatchParallelism, err = envOrDefaultInt("DISPATCH_PARALLELISM", 5); err != nil {
		return nil, err
	}
	if cfg.DeliveryRetryLimit, err = envOrDefaultInt("DELIVERY_RETRY_LIMIT", 3); err != nil {
		return nil, err
	}
	if cfg.ClaimStaleAfter, err = envOrDefaultDuration("CLAIM_STALE_AFTER", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.NotifyTimeout, err = envOrDefaultDuration("NOTIFY_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envOrDefaultDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
