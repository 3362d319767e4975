// Package config loads engine configuration from file, environment and .env.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SNIPER_REDIS_ADDR.
const EnvPrefix = "SNIPER"

// Config holds all configuration for the application.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Logging LoggingConfig `mapstructure:"logging"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Storage StorageConfig `mapstructure:"storage"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Enrich  EnrichConfig  `mapstructure:"enrich"`
	Trading TradingConfig `mapstructure:"trading"`
	Vault   VaultConfig   `mapstructure:"vault"`
	Server  ServerConfig  `mapstructure:"server"`
	Archive ArchiveConfig `mapstructure:"archive"`
}

// AppConfig contains application-level configuration.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	DryRun      bool   `mapstructure:"dry_run"` // log acquisitions instead of trading
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, stderr, file
	File   string `mapstructure:"file"`
}

// EngineConfig tunes ingestion and execution.
type EngineConfig struct {
	Timezone          string        `mapstructure:"timezone"` // daily reset boundary
	EvaluationWorkers int           `mapstructure:"evaluation_workers"`
	ReserveRules      bool          `mapstructure:"reserve_rules"`
	SeenCapacity      int           `mapstructure:"seen_capacity"`
	ShutdownGrace     time.Duration `mapstructure:"shutdown_grace"`
	ApprovalCapacity  int           `mapstructure:"approval_capacity"`
}

// Location resolves Timezone.
func (e EngineConfig) Location() (*time.Location, error) {
	if e.Timezone == "" || strings.EqualFold(e.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(e.Timezone)
}

// StorageConfig selects the primary store and the optional analytics mirror.
type StorageConfig struct {
	Backend       string `mapstructure:"backend"` // memory, postgres, sqlite
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	ClickHouseDSN string `mapstructure:"clickhouse_dsn"`

	// Postgres pool sizing
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig contains Redis connection and channel settings.
type RedisConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	TLS             bool          `mapstructure:"tls"`
	PendingChannel  string        `mapstructure:"pending_channel"`
	DecisionChannel string        `mapstructure:"decision_channel"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
}

// FeedConfig contains the PumpPortal stream settings.
type FeedConfig struct {
	WSURL             string        `mapstructure:"ws_url"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnectDelay time.Duration `mapstructure:"max_reconnect_delay"`
	PingInterval      time.Duration `mapstructure:"ping_interval"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	BufferSize        int           `mapstructure:"buffer_size"`
}

// EnrichConfig contains metadata resolution settings.
type EnrichConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Gateways []string      `mapstructure:"gateways"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Workers  int           `mapstructure:"workers"`
}

// TradingConfig contains trade API and fill lookup settings.
type TradingConfig struct {
	APIURL      string        `mapstructure:"api_url"`
	PriorityFee float64       `mapstructure:"priority_fee"` // SOL, used when a rule sets no max_fee
	Timeout     time.Duration `mapstructure:"timeout"`
	RPCURL      string        `mapstructure:"rpc_url"`
	FillLookup  bool          `mapstructure:"fill_lookup"`
	FillTimeout time.Duration `mapstructure:"fill_timeout"`
}

// VaultConfig holds the passphrase that seals account API keys.
type VaultConfig struct {
	Passphrase string `mapstructure:"passphrase"`
}

// ServerConfig contains the operator HTTP API settings.
type ServerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	APIKey       string        `mapstructure:"api_key"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ArchiveConfig contains the S3 destination of transaction exports.
type ArchiveConfig struct {
	Endpoint        string `mapstructure:"endpoint"` // empty for AWS
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	Prefix          string `mapstructure:"prefix"`
}

// Load reads configuration. A .env file in the working directory is loaded
// first when present; an empty path skips the config file and uses defaults
// plus SNIPER_* environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "solana-sniper")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.dry_run", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file", "")

	v.SetDefault("engine.timezone", "Local")
	v.SetDefault("engine.evaluation_workers", 8)
	v.SetDefault("engine.reserve_rules", false)
	v.SetDefault("engine.seen_capacity", 10000)
	v.SetDefault("engine.shutdown_grace", "30s")
	v.SetDefault("engine.approval_capacity", 50)

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.sqlite_path", "./data/sniper.db")
	v.SetDefault("storage.clickhouse_dsn", "")
	v.SetDefault("storage.max_conns", 10)
	v.SetDefault("storage.min_conns", 1)
	v.SetDefault("storage.max_conn_lifetime", "1h")
	v.SetDefault("storage.max_conn_idle_time", "10m")
	v.SetDefault("storage.connect_timeout", "10s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.tls", false)
	v.SetDefault("redis.pending_channel", "sniper:approvals:pending")
	v.SetDefault("redis.decision_channel", "sniper:approvals:decisions")
	v.SetDefault("redis.lock_ttl", "2m")

	v.SetDefault("feed.ws_url", "wss://pumpportal.fun/api/data")
	v.SetDefault("feed.reconnect_delay", "1s")
	v.SetDefault("feed.max_reconnect_delay", "30s")
	v.SetDefault("feed.ping_interval", "30s")
	v.SetDefault("feed.read_timeout", "60s")
	v.SetDefault("feed.buffer_size", 1024)

	v.SetDefault("enrich.enabled", true)
	v.SetDefault("enrich.gateways", []string{
		"https://ipfs.io/ipfs/",
		"https://cloudflare-ipfs.com/ipfs/",
		"https://gateway.pinata.cloud/ipfs/",
	})
	v.SetDefault("enrich.timeout", "5s")
	v.SetDefault("enrich.cache_ttl", "1h")
	v.SetDefault("enrich.workers", 16)

	v.SetDefault("trading.api_url", "https://pumpportal.fun/api")
	v.SetDefault("trading.priority_fee", 0.00005)
	v.SetDefault("trading.timeout", "10s")
	v.SetDefault("trading.rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("trading.fill_lookup", false)
	v.SetDefault("trading.fill_timeout", "20s")

	v.SetDefault("vault.passphrase", "")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.access_key_id", "")
	v.SetDefault("archive.secret_access_key", "")
	v.SetDefault("archive.use_path_style", false)
	v.SetDefault("archive.prefix", "transactions")
}

// Validate checks the settings needed to run the engine.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Engine.Location(); err != nil {
		errs = append(errs, fmt.Errorf("engine.timezone: %w", err))
	}
	if c.Engine.EvaluationWorkers <= 0 {
		errs = append(errs, errors.New("engine.evaluation_workers must be positive"))
	}
	if c.Engine.ApprovalCapacity <= 0 {
		errs = append(errs, errors.New("engine.approval_capacity must be positive"))
	}
	if c.Engine.ShutdownGrace < 0 {
		errs = append(errs, errors.New("engine.shutdown_grace must not be negative"))
	}

	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres backend"))
		}
		if c.Storage.MaxConns < 1 || c.Storage.MinConns < 0 || c.Storage.MinConns > c.Storage.MaxConns {
			errs = append(errs, errors.New("storage.max_conns must be positive and at least storage.min_conns"))
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q: want memory, postgres or sqlite", c.Storage.Backend))
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}
	if c.Feed.WSURL == "" {
		errs = append(errs, errors.New("feed.ws_url is required"))
	}
	if !c.App.DryRun {
		if c.Trading.APIURL == "" {
			errs = append(errs, errors.New("trading.api_url is required"))
		}
		if c.Vault.Passphrase == "" {
			errs = append(errs, errors.New("vault.passphrase is required to open account keys"))
		}
	}
	if c.Trading.FillLookup && c.Trading.RPCURL == "" {
		errs = append(errs, errors.New("trading.rpc_url is required for fill_lookup"))
	}
	if c.Trading.PriorityFee < 0 {
		errs = append(errs, errors.New("trading.priority_fee must not be negative"))
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required when the server is enabled"))
	}

	return errors.Join(errs...)
}

// ValidateArchive checks the settings needed by the archive command.
func (c *Config) ValidateArchive() error {
	if c.Archive.Bucket == "" {
		return errors.New("archive.bucket is required")
	}
	if c.Archive.Region == "" {
		return errors.New("archive.region is required")
	}
	return nil
}
