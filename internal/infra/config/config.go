package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken string `yaml:"telegram_token"`
	LogLevel      string `yaml:"log_level"`
	Environment   string `yaml:"environment"`

	StoreDriver string `yaml:"store_driver"` // file, postgres or sqlite
	StoreDir    string `yaml:"store_dir"`
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`

	MetricsAddr      string        `yaml:"metrics_addr"` // empty disables /metrics
	NotifyRatePerSec int           `yaml:"notify_rate_per_sec"`
	NotifyTimeout    time.Duration `yaml:"notify_timeout"`
	PollTimeout      time.Duration `yaml:"poll_timeout"`
}

// Load reads configuration from the optional BOT_CONFIG_FILE, then environment
// variables and .env file (if present). Environment values win over the file.
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if path := os.Getenv("BOT_CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	setString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	setString(&cfg.LogLevel, "LOG_LEVEL")
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	setString(&cfg.Environment, "ENVIRONMENT")
	cfg.Environment = strings.ToLower(cfg.Environment)
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	setString(&cfg.StoreDriver, "STORE_DRIVER")
	cfg.StoreDriver = strings.ToLower(cfg.StoreDriver)
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = "file"
	}
	setString(&cfg.StoreDir, "STORE_DIR")
	if cfg.StoreDir == "" {
		cfg.StoreDir = "data"
	}
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.SQLitePath, "SQLITE_PATH")
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "data/reminders.db"
	}

	switch cfg.StoreDriver {
	case "file", "sqlite":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set (required for STORE_DRIVER=postgres)")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: use file, postgres or sqlite", cfg.StoreDriver)
	}

	setString(&cfg.MetricsAddr, "METRICS_ADDR")

	if err := setInt(&cfg.NotifyRatePerSec, "NOTIFY_RATE_PER_SEC"); err != nil {
		return nil, err
	}
	if cfg.NotifyRatePerSec <= 0 {
		cfg.NotifyRatePerSec = 20 // Telegram allows ~30 msg/s per bot
	}

	if err := setDuration(&cfg.NotifyTimeout, "NOTIFY_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 30 * time.Second
	}

	if err := setDuration(&cfg.PollTimeout, "POLL_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}

	return cfg, nil
}

func loadFile(path string, cfg *AppConfig) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read BOT_CONFIG_FILE: %w", err)
	}
	if err := yaml.Unmarshal(body, cfg); err != nil {
		return fmt.Errorf("invalid BOT_CONFIG_FILE %s: %w", path, err)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
