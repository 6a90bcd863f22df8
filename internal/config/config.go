package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// PlaceholderOMDbKey is sent when no key is configured so the provider rejects the call instead of
// the service failing at startup.
const PlaceholderOMDbKey = "YOUR_OMDB_API_KEY"

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	AppEnv       string `envconfig:"APP_ENV" default:"development"`
	Port         string `envconfig:"PORT" default:"8080"`
	AllowOrigins string `envconfig:"ALLOW_ORIGINS" default:"*"`
	SentryDSN    string `envconfig:"SENTRY_DSN"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LOG_FORMAT" default:"json"`

	ReadTimeoutSecs  int `envconfig:"SERVER_READ_TIMEOUT" default:"15"`
	WriteTimeoutSecs int `envconfig:"SERVER_WRITE_TIMEOUT" default:"30"`
	IdleTimeoutSecs  int `envconfig:"SERVER_IDLE_TIMEOUT" default:"60"`
	AuthRateLimit    int `envconfig:"AUTH_RATE_LIMIT" default:"30"`

	DBURL             string `envconfig:"DB_URL"`
	DBAutoMigrate     bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
	DBMaxConns        int    `envconfig:"DB_MAX_CONNS" default:"20"`
	DBMinConns        int    `envconfig:"DB_MIN_CONNS" default:"2"`
	DBMaxIdleSecs     int    `envconfig:"DB_MAX_CONN_IDLE_SECS" default:"300"`
	DBMaxLifeSecs     int    `envconfig:"DB_MAX_CONN_LIFETIME_SECS" default:"3600"`
	DBConnTimeoutSecs int    `envconfig:"DB_CONN_TIMEOUT_SECS" default:"10"`
	DBStatementCache  int    `envconfig:"DB_STATEMENT_CACHE_CAPACITY" default:"256"`

	JWTSecret     string        `envconfig:"JWT_SECRET"`
	JWTAccessTTL  time.Duration `envconfig:"JWT_ACCESS_TTL" default:"15m"`
	JWTRefreshTTL time.Duration `envconfig:"JWT_REFRESH_TTL" default:"168h"`
	BcryptCost    int           `envconfig:"BCRYPT_COST" default:"10"`

	OMDbURL         string `envconfig:"OMDB_URL" default:"http://www.omdbapi.com/"`
	OMDbAPIKey      string `envconfig:"OMDB_API_KEY"`
	OMDbTimeoutSecs int    `envconfig:"OMDB_TIMEOUT_SECS" default:"10"`
}

// Origins splits ALLOW_ORIGINS into its comma separated entries.
func (c Config) Origins() []string {
	var out []string
	for _, origin := range strings.Split(c.AllowOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

// OMDbTimeout is the bound applied to every outbound OMDb call.
func (c Config) OMDbTimeout() time.Duration {
	return time.Duration(c.OMDbTimeoutSecs) * time.Second
}

// Load reads configuration from an optional .env file and environment variables, applying defaults
// and validation.
func Load() (Config, error) {
	// a missing .env is the normal case outside local development
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(cfg.OMDbAPIKey) == "" {
		cfg.OMDbAPIKey = PlaceholderOMDbKey
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL and JWT_REFRESH_TTL must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if c.OMDbURL == "" {
		return fmt.Errorf("OMDB_URL is required")
	}
	if c.OMDbTimeoutSecs <= 0 {
		return fmt.Errorf("OMDB_TIMEOUT_SECS must be positive")
	}
	if c.AuthRateLimit <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT must be positive")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if c.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	return nil
}
