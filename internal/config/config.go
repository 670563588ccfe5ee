package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"FactorPulse/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Backend struct {
		BaseURL         string        `yaml:"base_url"`
		FactorsPath     string        `yaml:"factors_path"`
		APIKey          string        `yaml:"api_key"`
		Timeout         time.Duration `yaml:"timeout"`
		RequestsPerSec  float64       `yaml:"requests_per_sec"`
		MaxRetryElapsed time.Duration `yaml:"max_retry_elapsed"`
		BreakerFailures uint32        `yaml:"breaker_failures"`
		// Mock serves generated factors instead of calling the backend.
		Mock            bool          `yaml:"mock"`
	} `yaml:"backend"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
		DigestCron  string `yaml:"digest_cron"`
	} `yaml:"schedule"`
	Report struct {
		Horizon  model.Horizon `yaml:"horizon"`
		TopN     int           `yaml:"top_n"`
		XHorizon model.Horizon `yaml:"x_horizon"`
		YHorizon model.Horizon `yaml:"y_horizon"`
	} `yaml:"report"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		SQLitePath   string `yaml:"sqlite_path"`
		PostgresDSN  string `yaml:"postgres_dsn"`
		// SnapshotFile caches the last snapshot on disk when Redis is not set.
		SnapshotFile string `yaml:"snapshot_file"`
	} `yaml:"database"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then a .env file if present, then
// applies environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BACKEND_BASE_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("BACKEND_MOCK"); v != "" {
		mock, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BACKEND_MOCK: %w", err)
		}
		c.Backend.Mock = mock
	}
	if v := os.Getenv("BACKEND_API_KEY"); v != "" {
		c.Backend.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		c.Schedule.RefreshCron = v
	}
	if v := os.Getenv("CRON_DIGEST"); v != "" {
		c.Schedule.DigestCron = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Database.PostgresDSN = v
	}
	if v := os.Getenv("SNAPSHOT_FILE"); v != "" {
		c.Database.SnapshotFile = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("REPORT_HORIZON"); v != "" {
		h, err := model.ParseHorizon(v)
		if err != nil {
			return fmt.Errorf("REPORT_HORIZON: %w", err)
		}
		c.Report.Horizon = h
	}
	if v := os.Getenv("REPORT_TOP_N"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REPORT_TOP_N: %w", err)
		}
		c.Report.TopN = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Backend.FactorsPath == "" {
		c.Backend.FactorsPath = "/api/factors"
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 30 * time.Second
	}
	if c.Backend.RequestsPerSec == 0 {
		c.Backend.RequestsPerSec = 5
	}
	if c.Backend.MaxRetryElapsed == 0 {
		c.Backend.MaxRetryElapsed = 30 * time.Second
	}
	if c.Backend.BreakerFailures == 0 {
		c.Backend.BreakerFailures = 5
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 */15 * * * *"
	}
	if c.Schedule.DigestCron == "" {
		c.Schedule.DigestCron = "0 30 16 * * 1-5"
	}
	if c.Report.Horizon == 0 {
		c.Report.Horizon = model.Horizon1D
	}
	if c.Report.TopN == 0 {
		c.Report.TopN = 5
	}
	if c.Report.XHorizon == 0 {
		c.Report.XHorizon = model.Horizon1M
	}
	if c.Report.YHorizon == 0 {
		c.Report.YHorizon = model.Horizon3M
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Database.SQLitePath == "" && c.Database.PostgresDSN == "" {
		c.Database.SQLitePath = "data/factor_pulse.db"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 10 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" && !c.Backend.Mock {
		return fmt.Errorf("backend.base_url is required unless backend.mock is set")
	}
	if c.Backend.RequestsPerSec < 0 {
		return fmt.Errorf("backend.requests_per_sec must not be negative")
	}
	if c.Report.TopN < 0 {
		return fmt.Errorf("report.top_n must not be negative")
	}
	if !c.Report.XHorizon.IsShortTerm() {
		return fmt.Errorf("report.x_horizon must be one of 1D, 5D, 1M")
	}
	if !c.Report.YHorizon.IsMediumTerm() {
		return fmt.Errorf("report.y_horizon must be one of 1M, 3M, 6M, 12M")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether digests should be pushed to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
