package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pistachio-backend/internal/domain"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Storage       StorageConfig      `yaml:"storage"`
	JWT           JWTConfig          `yaml:"jwt"`
	Log           LogConfig          `yaml:"log"`
	Ledger        LedgerConfig       `yaml:"ledger"`
	Payments      PaymentsConfig     `yaml:"payments"`
	Cache         CacheConfig        `yaml:"cache"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Bootstrap     BootstrapConfig    `yaml:"bootstrap"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	ReadTimeoutSecs   int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSecs  int    `yaml:"write_timeout_seconds"`
	ShutdownGraceSecs int    `yaml:"shutdown_grace_seconds"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// StorageConfig selects the repository backend
type StorageConfig struct {
	Type string `yaml:"type"` // "postgres" or "memory"
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// LedgerConfig controls how order debt is folded into balances
type LedgerConfig struct {
	OrderDebtMode domain.OrderDebtMode `yaml:"order_debt_mode"`
}

// PaymentsConfig contains payment rules
type PaymentsConfig struct {
	RequireShipped bool `yaml:"require_shipped"`
}

// CacheConfig contains read cache settings
type CacheConfig struct {
	AccountTTLSeconds int `yaml:"account_ttl_seconds"`
}

// NotificationConfig contains reminder e-mail settings
type NotificationConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	SendOverdueReminders     string `yaml:"send_overdue_reminders"`
	TakeBalanceSnapshots     string `yaml:"take_balance_snapshots"`
	VerifyBalances           string `yaml:"verify_balances"`
	CompensateStockMovements string `yaml:"compensate_stock_movements"`
	StaleMovementMinutes     int    `yaml:"stale_movement_minutes"`
}

// BootstrapConfig names the admin account created at server start when no
// user with that name exists yet. Empty values skip bootstrapping.
type BootstrapConfig struct {
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
}

// Load reads configuration from a YAML file. A .env file next to the working
// directory is loaded first when present so local overrides reach the env.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Storage
	if val := os.Getenv("STORAGE_TYPE"); val != "" {
		c.Storage.Type = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Ledger
	if val := os.Getenv("LEDGER_ORDER_DEBT_MODE"); val != "" {
		c.Ledger.OrderDebtMode = domain.OrderDebtMode(val)
	}

	// Notifications
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Notifications.SendGridAPIKey = val
	}

	// Bootstrap
	if val := os.Getenv("ADMIN_USERNAME"); val != "" {
		c.Bootstrap.AdminUsername = val
	}
	if val := os.Getenv("ADMIN_PASSWORD"); val != "" {
		c.Bootstrap.AdminPassword = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "postgres"
	}
	switch c.Storage.Type {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 480
	}

	if c.Ledger.OrderDebtMode == "" {
		c.Ledger.OrderDebtMode = domain.OrderDebtImplicit
	}
	if !c.Ledger.OrderDebtMode.Valid() {
		return fmt.Errorf("invalid ledger order debt mode: %s", c.Ledger.OrderDebtMode)
	}

	if c.Cache.AccountTTLSeconds == 0 {
		c.Cache.AccountTTLSeconds = 60
	}

	if c.Server.ReadTimeoutSecs == 0 {
		c.Server.ReadTimeoutSecs = 15
	}
	if c.Server.WriteTimeoutSecs == 0 {
		c.Server.WriteTimeoutSecs = 15
	}
	if c.Server.ShutdownGraceSecs == 0 {
		c.Server.ShutdownGraceSecs = 10
	}

	if c.Bootstrap.AdminUsername != "" && len(c.Bootstrap.AdminPassword) < 8 {
		return fmt.Errorf("bootstrap admin password must be at least 8 characters")
	}

	if c.Notifications.FromName == "" {
		c.Notifications.FromName = "Pistachio Accounts"
	}

	// Scheduler defaults
	if c.Scheduler.SendOverdueReminders == "" {
		c.Scheduler.SendOverdueReminders = "0 0 8 * * *" // daily at 8 AM UTC
	}
	if c.Scheduler.TakeBalanceSnapshots == "" {
		c.Scheduler.TakeBalanceSnapshots = "0 0 0 1 * *" // month start, closes the previous month
	}
	if c.Scheduler.VerifyBalances == "" {
		c.Scheduler.VerifyBalances = "0 0 2 * * *" // 2 AM UTC
	}
	if c.Scheduler.CompensateStockMovements == "" {
		c.Scheduler.CompensateStockMovements = "0 15 * * * *" // hourly
	}
	if c.Scheduler.StaleMovementMinutes == 0 {
		c.Scheduler.StaleMovementMinutes = 30
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AccountCacheTTL returns the account read cache lifetime
func (c *Config) AccountCacheTTL() time.Duration {
	return time.Duration(c.Cache.AccountTTLSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued access tokens
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenExpiry) * time.Minute
}
