// Package config loads the bot configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tiv91/intimshopbot/pkg/database"
	"github.com/tiv91/intimshopbot/pkg/envconfig"
	"github.com/tiv91/intimshopbot/pkg/logger"
)

type Config struct {
	Telegram TelegramConfig  `yaml:"telegram"`
	Sheets   SheetsConfig    `yaml:"sheets"`
	Shop     ShopConfig      `yaml:"shop"`
	Session  SessionConfig   `yaml:"session"`
	Database database.Config `yaml:"database"`
	Log      logger.Config   `yaml:"log"`
	Ops      OpsConfig       `yaml:"ops"`
	Tracing  TracingConfig   `yaml:"tracing"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
	// AdminChatID receives a notification for every completed order.
	AdminChatID          int64 `yaml:"admin_chat_id"`
	PollTimeout          int   `yaml:"poll_timeout"`
	MaxConcurrentUpdates int64 `yaml:"max_concurrent_updates"`
	Debug                bool  `yaml:"debug"`
}

type SheetsConfig struct {
	SpreadsheetID   string        `yaml:"spreadsheet_id"`
	SpreadsheetName string        `yaml:"spreadsheet_name"`
	CredentialsFile string        `yaml:"credentials_file"`
	OrdersSheet     string        `yaml:"orders_sheet"`
	Columns         ColumnsConfig `yaml:"columns"`
	// Endpoint overrides the Google API base URL; tests and emulators only.
	Endpoint          string        `yaml:"endpoint"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`
}

// ColumnsConfig names the header cells of a product sheet. ID is optional.
type ColumnsConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Photo       string `yaml:"photo"`
}

type ShopConfig struct {
	Currency     string        `yaml:"currency"`
	PriceFilters []PriceFilter `yaml:"price_filters"`
}

type PriceFilter struct {
	Label string `yaml:"label"`
	Min   int64  `yaml:"min"`
	Max   int64  `yaml:"max"`
}

type SessionConfig struct {
	Backend  string        `yaml:"backend"` // memory, redis, postgres
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

type OpsConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type TracingConfig struct {
	Exporter string `yaml:"exporter"` // none, stdout, otlp
	Endpoint string `yaml:"endpoint"`
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Default returns the shop's stock configuration.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeout:          60,
			MaxConcurrentUpdates: 16,
		},
		Sheets: SheetsConfig{
			CredentialsFile: "credentials.json",
			OrdersSheet:     "ЗАМОВЛЕННЯ",
			Columns: ColumnsConfig{
				ID:          "ID",
				Name:        "НАЗВА",
				Description: "ОПИС",
				Price:       "ЦІНА",
				Photo:       "ФОТО",
			},
			RequestsPerMinute: 60,
			Burst:             10,
			Timeout:           15 * time.Second,
		},
		Shop: ShopConfig{
			Currency: "грн",
			PriceFilters: []PriceFilter{
				{Label: "💸 До 300 грн", Min: 0, Max: 300},
				{Label: "💰 300–600 грн", Min: 300, Max: 600},
				{Label: "💎 Понад 600 грн", Min: 600, Max: 10000},
			},
		},
		Session: SessionConfig{
			Backend: BackendMemory,
		},
		Database: database.DefaultConfig(),
		Log:      logger.DefaultConfig(),
		Ops: OpsConfig{
			Host: "0.0.0.0",
			Port: "9090",
		},
		Tracing: TracingConfig{
			Exporter: "none",
		},
	}
}

// Load reads the optional YAML file over the defaults and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides file values with environment variables that are set.
func (c *Config) ApplyEnv() {
	c.Telegram.Token = envconfig.GetEnv("TOKEN", c.Telegram.Token)
	c.Telegram.AdminChatID = envconfig.GetInt64("ADMIN_ID", c.Telegram.AdminChatID)

	c.Sheets.SpreadsheetID = envconfig.GetEnv("SPREADSHEET_ID", c.Sheets.SpreadsheetID)
	c.Sheets.SpreadsheetName = envconfig.GetEnv("SPREADSHEET_NAME", c.Sheets.SpreadsheetName)
	c.Sheets.CredentialsFile = envconfig.GetEnv("CREDENTIALS_FILE", c.Sheets.CredentialsFile)
	c.Sheets.OrdersSheet = envconfig.GetEnv("ORDER_SHEET_NAME", c.Sheets.OrdersSheet)

	c.Session.Backend = envconfig.GetEnv("SESSION_BACKEND", c.Session.Backend)
	c.Session.RedisURL = envconfig.GetEnv("REDIS_URL", c.Session.RedisURL)
	c.Session.TTL = envconfig.GetDuration("SESSION_TTL", c.Session.TTL)
	if c.Session.Backend == BackendPostgres {
		c.Database = mergeDatabase(c.Database, envconfig.LoadDatabaseConfig())
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		c.Log.Level = envconfig.GetLogLevel()
	}
	c.Log.Format = envconfig.GetEnv("LOG_FORMAT", c.Log.Format)
	c.Log.Output = envconfig.GetEnv("LOG_OUTPUT", c.Log.Output)
	c.Log.Environment = envconfig.GetEnv("ENVIRONMENT", c.Log.Environment)

	c.Ops.Host = envconfig.GetEnv("OPS_HOST", c.Ops.Host)
	c.Ops.Port = envconfig.GetEnv("OPS_PORT", c.Ops.Port)

	c.Tracing.Exporter = envconfig.GetEnv("OTEL_EXPORTER", c.Tracing.Exporter)
	c.Tracing.Endpoint = envconfig.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.Endpoint)
}

// mergeDatabase keeps file values unless the environment changed them from the defaults.
func mergeDatabase(file, env database.Config) database.Config {
	def := database.DefaultConfig()
	if env.Host != def.Host {
		file.Host = env.Host
	}
	if env.Port != def.Port {
		file.Port = env.Port
	}
	if env.User != def.User {
		file.User = env.User
	}
	if env.Password != def.Password {
		file.Password = env.Password
	}
	if env.DBName != def.DBName {
		file.DBName = env.DBName
	}
	if env.SSLMode != def.SSLMode {
		file.SSLMode = env.SSLMode
	}
	return file
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token is required (or TOKEN)"))
	}
	if c.Sheets.SpreadsheetID == "" && c.Sheets.SpreadsheetName == "" {
		errs = append(errs, errors.New("sheets.spreadsheet_id or sheets.spreadsheet_name is required"))
	}
	if c.Sheets.CredentialsFile == "" && c.Sheets.Endpoint == "" {
		errs = append(errs, errors.New("sheets.credentials_file is required"))
	}
	if strings.TrimSpace(c.Sheets.OrdersSheet) == "" {
		errs = append(errs, errors.New("sheets.orders_sheet is required"))
	}
	cols := c.Sheets.Columns
	if cols.Name == "" || cols.Description == "" || cols.Price == "" || cols.Photo == "" {
		errs = append(errs, errors.New("sheets.columns name, description, price and photo are required"))
	}
	if c.Sheets.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("sheets.requests_per_minute must be positive"))
	}
	for i, f := range c.Shop.PriceFilters {
		if f.Min < 0 || f.Max < f.Min {
			errs = append(errs, fmt.Errorf("shop.price_filters[%d]: invalid range %d..%d", i, f.Min, f.Max))
		}
		if f.Label == "" {
			errs = append(errs, fmt.Errorf("shop.price_filters[%d]: label is required", i))
		}
	}
	switch c.Session.Backend {
	case BackendMemory, BackendPostgres:
	case BackendRedis:
		if c.Session.RedisURL == "" {
			errs = append(errs, errors.New("session.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("session.backend %q is not one of memory, redis, postgres", c.Session.Backend))
	}
	switch c.Tracing.Exporter {
	case "", "none", "stdout":
	case "otlp":
		if c.Tracing.Endpoint == "" {
			errs = append(errs, errors.New("tracing.endpoint is required for the otlp exporter"))
		}
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter %q is not one of none, stdout, otlp", c.Tracing.Exporter))
	}

	return errors.Join(errs...)
}
