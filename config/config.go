package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Processor  ProcessorConfig  `mapstructure:"processor"`
	Venue      VenueConfig      `mapstructure:"venue"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// ProcessorConfig configures the external payment processor integration.
type ProcessorConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// VenueConfig configures the order callback to the venue/POS system.
// An empty base URL disables the callback.
type VenueConfig struct {
	CallbackBaseURL string        `mapstructure:"callback_base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// LedgerConfig holds fee constants and withdrawal eligibility rules.
type LedgerConfig struct {
	TransferFee       string        `mapstructure:"transfer_fee"`       // flat platform fee per transfer
	WithdrawalFee     string        `mapstructure:"withdrawal_fee"`     // flat fee per withdrawal
	EligibilityWindow time.Duration `mapstructure:"eligibility_window"` // user anti-fraud holding window
	VenueMinBalance   string        `mapstructure:"venue_min_balance"`  // venue withdrawal floor
}

// TransferFeeAmount parses the configured transfer fee.
func (l LedgerConfig) TransferFeeAmount() (decimal.Decimal, error) {
	return decimal.NewFromString(l.TransferFee)
}

// WithdrawalFeeAmount parses the configured withdrawal fee.
func (l LedgerConfig) WithdrawalFeeAmount() (decimal.Decimal, error) {
	return decimal.NewFromString(l.WithdrawalFee)
}

// VenueMinBalanceAmount parses the configured venue minimum balance.
func (l LedgerConfig) VenueMinBalanceAmount() (decimal.Decimal, error) {
	return decimal.NewFromString(l.VenueMinBalance)
}

type SettlementConfig struct {
	BatchLimit int           `mapstructure:"batch_limit"`
	Interval   time.Duration `mapstructure:"interval"`
	Enabled    bool          `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: JVC_.
// Nested keys use underscore: JVC_DATABASE_HOST, JVC_LEDGER_TRANSFER_FEE, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "jvc_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "jvc-ledger")
	v.SetDefault("processor.base_url", "")
	v.SetDefault("processor.api_key", "")
	v.SetDefault("processor.webhook_secret", "")
	v.SetDefault("processor.timeout", "10s")
	v.SetDefault("venue.callback_base_url", "")
	v.SetDefault("venue.api_key", "")
	v.SetDefault("venue.timeout", "5s")
	v.SetDefault("ledger.transfer_fee", "0.10")
	v.SetDefault("ledger.withdrawal_fee", "1.00")
	v.SetDefault("ledger.eligibility_window", "168h") // 7 days
	v.SetDefault("ledger.venue_min_balance", "50.00")
	v.SetDefault("settlement.batch_limit", 50)
	v.SetDefault("settlement.interval", "5m")
	v.SetDefault("settlement.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: JVC_DATABASE_HOST -> database.host
	v.SetEnvPrefix("JVC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
