package config

// EnvPrefix is passed to envconfig; every field carries an explicit name so
// the prefix only matters for untagged fields.
const EnvPrefix = "MARKETPLACE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Backends lists the accepted MARKETPLACE_STORAGE_BACKEND values.
var Backends = []string{BackendSQLite, BackendPostgres, BackendRedis, BackendMemory}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultSQLiteDSN = "file:marketplace-cart.db?_busy_timeout=5000"
)

const (
	EnvAppEnv         = "MARKETPLACE_APP_ENV"
	EnvPort           = "MARKETPLACE_APP_PORT"
	EnvLogLevel       = "MARKETPLACE_LOG_LEVEL"
	EnvCORSOrigins    = "MARKETPLACE_APP_CORS_ORIGINS"
	EnvStorageBackend = "MARKETPLACE_STORAGE_BACKEND"
	EnvAutoMigrate    = "MARKETPLACE_STORAGE_AUTO_MIGRATE"
	EnvDBDSN          = "MARKETPLACE_DB_DSN"
	EnvRedisURL       = "MARKETPLACE_REDIS_URL"
	EnvRedisAddr      = "MARKETPLACE_REDIS_ADDR"
	EnvCartKey        = "MARKETPLACE_CART_STORAGE_KEY"
	EnvCartTimeout    = "MARKETPLACE_CART_WRITE_TIMEOUT"
)
