// Package config loads service configuration from an optional .env file and
// the process environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultDatabase is used when MONGO_URI carries no database name.
const DefaultDatabase = "todo-db"

type HTTPConfig struct {
	Port        int    `env:"PORT" env-default:"5174"`
	StaticDir   string `env:"STATIC_DIR" env-default:"public"`
	CORSOrigins string `env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
}

type StorageConfig struct {
	Driver           string        `env:"STORAGE_DRIVER" env-default:"mongo"`
	MongoURI         string        `env:"MONGO_URI" env-default:"mongodb://localhost:27017/todo-db"`
	MongoCollection  string        `env:"MONGO_COLLECTION" env-default:"todos"`
	ConnectTimeout   time.Duration `env:"MONGO_CONNECT_TIMEOUT" env-default:"10s"`
	SQLitePath       string        `env:"SQLITE_PATH" env-default:"todos.db"`
	OperationTimeout time.Duration `env:"STORAGE_OPERATION_TIMEOUT" env-default:"10s"`
}

type RateLimitConfig struct {
	RedisAddr string        `env:"REDIS_ADDR"`
	Requests  int           `env:"RATE_LIMIT_REQUESTS" env-default:"100"`
	Window    time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"1m"`
	KeyPrefix string        `env:"RATE_LIMIT_PREFIX" env-default:"ratelimit:todo:"`
}

// Enabled reports whether a Redis address was configured.
func (c RateLimitConfig) Enabled() bool {
	return c.RedisAddr != ""
}

type Config struct {
	LogLevel        string        `env:"LOG_LEVEL" env-default:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
	HTTP            HTTPConfig
	Storage         StorageConfig
	RateLimit       RateLimitConfig
}

// Load reads path (a .env file) when it exists and the environment
// otherwise. Environment variables win over file values.
func Load(path string) (Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("cannot read env: %w", err)
		}
		return cfg.normalize()
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		var pe *os.PathError
		if !errors.As(err, &pe) {
			return Config{}, fmt.Errorf("cannot read config %q: %w", path, err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("cannot read env: %w", err)
		}
	}
	return cfg.normalize()
}

func (c Config) normalize() (Config, error) {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "mongo", "sqlite", "memory":
	default:
		return Config{}, fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Storage.Driver == "mongo" {
		uri, err := WithDefaultDatabase(c.Storage.MongoURI, DefaultDatabase)
		if err != nil {
			return Config{}, err
		}
		c.Storage.MongoURI = uri
	}
	return c, nil
}

// WithDefaultDatabase appends db to a MongoDB URI that has no database path,
// keeping any query options.
func WithDefaultDatabase(uri, db string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid MONGO_URI: %w", err)
	}
	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return "", fmt.Errorf("invalid MONGO_URI scheme %q", u.Scheme)
	}
	if strings.Trim(u.Path, "/") == "" {
		u.Path = "/" + db
	}
	return u.String(), nil
}

// DatabaseName returns the database path segment of a MongoDB URI.
func DatabaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return strings.Trim(u.Path, "/")
}

// Redact masks the password of a URI for logging.
func Redact(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "<invalid uri>"
	}
	return u.Redacted()
}
