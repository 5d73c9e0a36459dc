package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	DB      DBConfig
	Redis   RedisConfig
	Cart    CartConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.DB.applyBackend(cfg.Storage.Backend)
	return &cfg, nil
}

// Validate checks the backend-specific requirements envconfig cannot express.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendMemory:
		return nil
	case BackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("%s is required for the %s backend", EnvDBDSN, BackendPostgres)
		}
		return nil
	case BackendRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("either %s or %s is required for the %s backend", EnvRedisURL, EnvRedisAddr, BackendRedis)
		}
		return nil
	default:
		return fmt.Errorf("unknown %s %q (want %s)", EnvStorageBackend, c.Storage.Backend, strings.Join(Backends, "|"))
	}
}

type AppConfig struct {
	Env          string `envconfig:"MARKETPLACE_APP_ENV" default:"dev"`
	Port         string `envconfig:"MARKETPLACE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MARKETPLACE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETPLACE_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma separated allow-list for browser clients.
	CORSOrigins []string `envconfig:"MARKETPLACE_APP_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:8081"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type StorageConfig struct {
	Backend     string `envconfig:"MARKETPLACE_STORAGE_BACKEND" default:"sqlite"`
	AutoMigrate bool   `envconfig:"MARKETPLACE_STORAGE_AUTO_MIGRATE" default:"true"`
}

// UsesSQL reports whether the backend is served by the gorm client.
func (s StorageConfig) UsesSQL() bool {
	return s.Backend == BackendSQLite || s.Backend == BackendPostgres
}

type DBConfig struct {
	DSN    string `envconfig:"MARKETPLACE_DB_DSN"`
	Driver string `envconfig:"MARKETPLACE_DB_DRIVER"`

	MaxOpenConns    int           `envconfig:"MARKETPLACE_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"MARKETPLACE_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETPLACE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETPLACE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) applyBackend(backend string) {
	switch backend {
	case BackendSQLite:
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = DefaultSQLiteDSN
		}
		// sqlite serializes writers; one connection avoids SQLITE_BUSY.
		db.MaxOpenConns = 1
	case BackendPostgres:
		db.Driver = DriverPostgres
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETPLACE_REDIS_URL"`
	Address      string        `envconfig:"MARKETPLACE_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETPLACE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETPLACE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETPLACE_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"MARKETPLACE_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"MARKETPLACE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETPLACE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETPLACE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CartConfig struct {
	// StorageKey overrides the persisted key; empty keeps the default.
	StorageKey string `envconfig:"MARKETPLACE_CART_STORAGE_KEY"`
	// WriteTimeout bounds each persistence write; zero waits forever.
	WriteTimeout time.Duration `envconfig:"MARKETPLACE_CART_WRITE_TIMEOUT" default:"0s"`
}
