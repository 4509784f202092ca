package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName           = "SANBank"
	defaultAppEnv            = "development"
	defaultPort              = "8080"
	defaultLogLevel          = "info"
	defaultLogFormat         = "json"
	defaultCurrency          = "INR"
	defaultShutdownDelay     = 10 * time.Second
	defaultIdempotencyTTL    = 24 * time.Hour
	defaultLockTimeout       = 5 * time.Second
	defaultTransferRateLimit = 20
	defaultImmuPort          = 3322
	idemTTLSecondsEnvVar     = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar         = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar    = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar   = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	LogFormat      string
	DatabaseURL    string
	DBMaxConns     int32
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// Location decides calendar days for the daily limit and the unusual
	// hours of the risk rules.
	Location          *time.Location
	Currency          string
	LockTimeout       time.Duration
	TransferRateLimit int
	AdminToken        string
	// IdentitySecret, when set, makes the API verify gateway-signed bearer
	// tokens instead of trusting X-User-ID.
	IdentitySecret string

	Immu ImmuConfig
}

// ImmuConfig points at the immudb instance holding the audit trail. An empty
// Address disables it.
type ImmuConfig struct {
	Address  string
	Port     int
	Username string
	Password string
	Database string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:           getEnv("APP_NAME", defaultAppName),
		AppEnv:            getEnv("APP_ENV", defaultAppEnv),
		Port:              getEnv("PORT", defaultPort),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		Currency:          strings.ToUpper(getEnv("LEDGER_CURRENCY", defaultCurrency)),
		AdminToken:        os.Getenv("ADMIN_TOKEN"),
		IdentitySecret:    os.Getenv("IDENTITY_TOKEN_SECRET"),
		TransferRateLimit: defaultTransferRateLimit,
		Immu: ImmuConfig{
			Address:  os.Getenv("IMMUDB_ADDRESS"),
			Port:     defaultImmuPort,
			Username: getEnv("IMMUDB_USER", "immudb"),
			Password: getEnv("IMMUDB_PASSWORD", "immudb"),
			Database: getEnv("IMMUDB_DATABASE", "defaultdb"),
		},
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.LockTimeout, err = durationEnv("", "LOCK_TIMEOUT", defaultLockTimeout); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("TRANSFER_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid TRANSFER_RATE_LIMIT: %q", v)
		}
		cfg.TransferRateLimit = n
	}
	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid DB_MAX_CONNS: %q", v)
		}
		cfg.DBMaxConns = int32(n)
	}
	if v := os.Getenv("IMMUDB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid IMMUDB_PORT: %w", err)
		}
		cfg.Immu.Port = port
	}

	cfg.Location = time.Local
	if v := os.Getenv("LEDGER_TIMEZONE"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LEDGER_TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a local development environment,
// where the in-memory stores stand in for Postgres and Redis.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	}
	return false
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// durationEnv reads a whole number of seconds from secondsKey, falling back
// to a Go duration string in durationKey.
func durationEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
