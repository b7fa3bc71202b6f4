package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the gateway.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Session     SessionConfig
	Remote      RemoteConfig
	APIKey      APIKeyConfig
	Buffer      BufferConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxConn      int
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// SessionConfig drives the token codec and the session cookie.
type SessionConfig struct {
	Secret       string
	Issuer       string
	TTL          time.Duration
	CookieDomain string
	Secure       bool
	CrossSite    bool
}

// RemoteConfig points at the account and chat API the gateway fronts.
type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

type APIKeyConfig struct {
	Cooldown time.Duration
}

type BufferConfig struct {
	Path           string
	RetentionHours int
	SyncInterval   time.Duration
	MaxRetry       int
	BatchSize      int
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env).
// Everything has a default except the session secret.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "mudai-gateway"),
		Environment: getString("APP_ENV", "development"),
		HTTP:        loadHTTP(),
		Database:    loadDatabase(),
		Redis:       loadRedis(),
		Session:     loadSession(),
		Remote: RemoteConfig{
			BaseURL: strings.TrimRight(getString("REMOTE_API_URL", "http://localhost:9000"), "/"),
			Timeout: getDuration("REMOTE_API_TIMEOUT", 10*time.Second),
		},
		APIKey: APIKeyConfig{
			Cooldown: getDuration("APIKEY_COOLDOWN", time.Minute),
		},
		Buffer: loadBuffer(),
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 15*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadHTTP() HTTPConfig {
	return HTTPConfig{
		Host:         getString("SERVER_HOST", "0.0.0.0"),
		Port:         getString("SERVER_PORT", "8080"),
		ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		MaxConn:      getInt("SERVER_MAX_CONN", 0),
	}
}

func loadDatabase() DatabaseConfig {
	db := DatabaseConfig{
		URL:             os.Getenv("DATABASE_URL"),
		Host:            getString("DB_HOST", "localhost"),
		Port:            getString("DB_PORT", "5432"),
		Name:            getString("DB_NAME", "mudai"),
		User:            getString("DB_USER", "mudai"),
		Password:        os.Getenv("DB_PASSWORD"),
		MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 2),
		MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
		SSLMode:         getString("DB_SSLMODE", "disable"),
	}
	if db.URL == "" {
		db.URL = db.dsn()
	}
	return db
}

func loadRedis() RedisConfig {
	return RedisConfig{
		URL:      getString("REDIS_URL", "redis://localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getInt("REDIS_DB", 0),
	}
}

func loadSession() SessionConfig {
	return SessionConfig{
		Secret:       os.Getenv("SESSION_SECRET"),
		Issuer:       getString("SESSION_ISSUER", "mudai"),
		TTL:          getDuration("SESSION_TTL", time.Hour),
		CookieDomain: os.Getenv("SESSION_COOKIE_DOMAIN"),
		Secure:       getBool("SESSION_COOKIE_SECURE", true),
		CrossSite:    getBool("SESSION_CROSS_SITE", false),
	}
}

func loadBuffer() BufferConfig {
	return BufferConfig{
		Path:           getString("BOLTDB_PATH", "./data/audit-buffer.db"),
		RetentionHours: getInt("BUFFER_RETENTION_HOURS", 72),
		SyncInterval:   getDuration("SYNC_INTERVAL_SECONDS", 30*time.Second),
		MaxRetry:       getInt("MAX_RETRY_ATTEMPTS", 5),
		BatchSize:      getInt("BUFFER_BATCH_SIZE", 50),
	}
}

func (c *Config) validate() error {
	var problems []string
	if c.Session.Secret == "" {
		problems = append(problems, "SESSION_SECRET is required")
	}
	if c.Session.TTL <= 0 {
		problems = append(problems, fmt.Sprintf("SESSION_TTL must be positive, got %s", c.Session.TTL))
	}
	if c.Remote.BaseURL == "" {
		problems = append(problems, "REMOTE_API_URL is required")
	}
	if len(problems) > 0 {
		return errors.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// dsn assembles a postgres URL, escaping credentials.
func (d DatabaseConfig) dsn() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return net.JoinHostPort(c.HTTP.Host, c.HTTP.Port)
}

// IsProduction reports whether the gateway runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
