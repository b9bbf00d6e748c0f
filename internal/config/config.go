package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	HTTP         HTTPConfig         `yaml:"http"`
	Database     DatabaseConfig     `yaml:"database"`
	JWT          JWTConfig          `yaml:"jwt"`
	Log          LogConfig          `yaml:"log"`
	Escrow       EscrowConfig       `yaml:"escrow"`
	Verification VerificationConfig `yaml:"verification"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Notify       NotifyConfig       `yaml:"notify"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
}

// ServerConfig contains gRPC server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// HTTPConfig contains the health, metrics and read-only query listener
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig selects the ledger database. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	Path     string `yaml:"path"` // sqlite file
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	Issuer            string `yaml:"issuer"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// EscrowConfig holds the ledger's business parameters
type EscrowConfig struct {
	FeeBps               uint32        `yaml:"fee_bps"`
	MinDuration          time.Duration `yaml:"min_duration"`
	MaxDuration          time.Duration `yaml:"max_duration"`
	DisputeTimeout       time.Duration `yaml:"dispute_timeout"`
	MaxDescriptionLength int           `yaml:"max_description_length"`
	MaxReasonLength      int           `yaml:"max_reason_length"`
	Owner                string        `yaml:"owner"`
	Arbiter              string        `yaml:"arbiter"`
}

// VerificationConfig selects how party verification is answered
type VerificationConfig struct {
	Mode      string        `yaml:"mode"` // "static" or "database"
	AllowAll  bool          `yaml:"allow_all"`
	Allowlist []string      `yaml:"allowlist"`
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// RateLimitConfig is a per-caller token bucket applied to mutating RPCs
type RateLimitConfig struct {
	Enabled    bool          `yaml:"enabled"`
	RPS        float64       `yaml:"rps"`
	Burst      int           `yaml:"burst"`
	MaxCallers int           `yaml:"max_callers"`
	IdleTTL    time.Duration `yaml:"idle_ttl"`
}

// NotifyConfig contains dispute and settlement notification settings
type NotifyConfig struct {
	Provider       string            `yaml:"provider"` // "log" or "sendgrid"
	SendGridAPIKey string            `yaml:"sendgrid_api_key"`
	FromEmail      string            `yaml:"from_email"`
	FromName       string            `yaml:"from_name"`
	Contacts       map[string]string `yaml:"contacts"` // address -> email
	Workers        int               `yaml:"workers"`
	QueueSize      int               `yaml:"queue_size"`
	MaxRetries     int               `yaml:"max_retries"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ReconcileJournal  string        `yaml:"reconcile_journal"`
	AuditCustody      string        `yaml:"audit_custody"`
	JournalStaleAfter time.Duration `yaml:"journal_stale_after"`
}

// TelemetryConfig controls OpenTelemetry tracing
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates the result
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
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
	if val := os.Getenv("DB_PATH"); val != "" {
		c.Database.Path = val
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
	if val := os.Getenv("HTTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.HTTP.Port)
	}

	// Escrow
	if val := os.Getenv("ESCROW_OWNER"); val != "" {
		c.Escrow.Owner = val
	}
	if val := os.Getenv("ESCROW_ARBITER"); val != "" {
		c.Escrow.Arbiter = val
	}
	if val := os.Getenv("ESCROW_FEE_BPS"); val != "" {
		fmt.Sscanf(val, "%d", &c.Escrow.FeeBps)
	}

	// Notify
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Notify.SendGridAPIKey = val
	}

	// Telemetry
	if val := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); val != "" {
		c.Telemetry.OTLPEndpoint = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}

	// Database validation
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "", "postgres":
		c.Database.Driver = "postgres"
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
	case "sqlite":
		if c.Database.Path == "" {
			c.Database.Path = "data/escrow.db"
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	if err := c.validateEscrow(); err != nil {
		return err
	}

	// Verification defaults
	switch c.Verification.Mode {
	case "":
		c.Verification.Mode = "static"
	case "static", "database":
	default:
		return fmt.Errorf("unsupported verification mode: %s", c.Verification.Mode)
	}
	if c.Verification.CacheSize == 0 {
		c.Verification.CacheSize = 1024
	}
	if c.Verification.CacheTTL == 0 {
		c.Verification.CacheTTL = 5 * time.Minute
	}

	// Rate limit defaults
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 5
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
	if c.RateLimit.MaxCallers == 0 {
		c.RateLimit.MaxCallers = 10000
	}
	if c.RateLimit.IdleTTL == 0 {
		c.RateLimit.IdleTTL = 10 * time.Minute
	}

	// Notify defaults
	if c.Notify.Provider == "" {
		c.Notify.Provider = "log"
	}
	if c.Notify.Provider == "sendgrid" && c.Notify.SendGridAPIKey == "" {
		return fmt.Errorf("sendgrid api key is required for the sendgrid provider")
	}
	if c.Notify.Workers == 0 {
		c.Notify.Workers = 2
	}
	if c.Notify.QueueSize == 0 {
		c.Notify.QueueSize = 256
	}
	if c.Notify.MaxRetries == 0 {
		c.Notify.MaxRetries = 3
	}

	// Scheduler defaults
	if c.Scheduler.ReconcileJournal == "" {
		c.Scheduler.ReconcileJournal = "0 */5 * * * *" // every 5 minutes
	}
	if c.Scheduler.AuditCustody == "" {
		c.Scheduler.AuditCustody = "0 0 3 * * *" // 3 AM UTC
	}
	if c.Scheduler.JournalStaleAfter == 0 {
		c.Scheduler.JournalStaleAfter = 2 * time.Minute
	}

	// Telemetry defaults
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "rental-escrow"
	}
	if c.Telemetry.SampleRatio == 0 {
		c.Telemetry.SampleRatio = 1
	}

	return nil
}

func (c *Config) validateEscrow() error {
	e := &c.Escrow
	e.Owner = strings.ToLower(strings.TrimSpace(e.Owner))
	e.Arbiter = strings.ToLower(strings.TrimSpace(e.Arbiter))
	if e.Owner == "" {
		return fmt.Errorf("escrow owner is required")
	}
	if e.Arbiter == "" {
		return fmt.Errorf("escrow arbiter is required")
	}
	if e.FeeBps > 1000 {
		return fmt.Errorf("escrow fee_bps must be at most 1000, got %d", e.FeeBps)
	}
	if e.MinDuration == 0 {
		e.MinDuration = time.Hour
	}
	if e.MaxDuration == 0 {
		e.MaxDuration = 365 * 24 * time.Hour
	}
	if e.MinDuration > e.MaxDuration {
		return fmt.Errorf("escrow min_duration %s exceeds max_duration %s", e.MinDuration, e.MaxDuration)
	}
	if e.DisputeTimeout == 0 {
		e.DisputeTimeout = 7 * 24 * time.Hour
	}
	if e.MaxDescriptionLength == 0 {
		e.MaxDescriptionLength = 500
	}
	if e.MaxReasonLength == 0 {
		e.MaxReasonLength = 500
	}
	return nil
}

// GetDatabaseConnectionString returns the DSN for the configured driver
func (c *Config) GetDatabaseConnectionString() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.Path
	}
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

// GetServerAddress returns the gRPC server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetHTTPAddress returns the HTTP side server address; empty when disabled
func (c *Config) GetHTTPAddress() string {
	if c.HTTP.Port == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}
