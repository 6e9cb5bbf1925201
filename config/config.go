package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ShreyaaMaityy/SyncFlow/internal/postgres"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
}

type GRPC struct {
	Addr string `yaml:"addr"` // empty disables the gRPC listener
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // syncflow-relay
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Postgres struct {
	DSN               string        `yaml:"dsn"`
	MaxConns          int32         `yaml:"maxConns"`
	MinConns          int32         `yaml:"minConns"`
	MaxConnLifetime   time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime   time.Duration `yaml:"maxConnIdleTime"`
	HealthCheckPeriod time.Duration `yaml:"healthCheckPeriod"`
	ApplicationName   string        `yaml:"applicationName"`
}

func (p Postgres) ToPGConfig() postgres.Config {
	return postgres.Config{
		DSN:               p.DSN,
		MaxConns:          p.MaxConns,
		MinConns:          p.MinConns,
		MaxConnLifetime:   p.MaxConnLifetime,
		MaxConnIdleTime:   p.MaxConnIdleTime,
		HealthCheckPeriod: p.HealthCheckPeriod,
		ApplicationName:   p.ApplicationName,
	}
}

type Redis struct {
	URL string `yaml:"url"`
}

type Store struct {
	Backend  string   `yaml:"backend"` // memory|postgres|redis
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
}

func (s *Store) Validate() error {
	if s.Backend == "" {
		s.Backend = StoreMemory
	}
	switch s.Backend {
	case StoreMemory:
	case StorePostgres:
		if s.Postgres.DSN == "" {
			return errors.New("store.postgres.dsn is required for the postgres backend")
		}
	case StoreRedis:
		if s.Redis.URL == "" {
			return errors.New("store.redis.url is required for the redis backend")
		}
	default:
		return fmt.Errorf("store.backend %q is not one of memory|postgres|redis", s.Backend)
	}
	return nil
}

type AI struct {
	APIKey  string        `yaml:"apiKey"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"` // 0 = no timeout
}

type Reconciler struct {
	Debounce     time.Duration `yaml:"debounce"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

type WS struct {
	ReadBufferSize  int           `yaml:"readBufferSize"`
	WriteBufferSize int           `yaml:"writeBufferSize"`
	PingInterval    time.Duration `yaml:"pingInterval"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	SendQueueSize   int           `yaml:"sendQueueSize"`
	MaxMessageSize  int64         `yaml:"maxMessageSize"`
}

type Auth struct {
	JWTSecret     string        `yaml:"jwtSecret"`
	PublicKeyPath string        `yaml:"publicKeyPath"`
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	ClockSkew     time.Duration `yaml:"clockSkew"`
}

// Enabled reports whether bearer tokens should be verified.
func (a Auth) Enabled() bool {
	return a.JWTSecret != "" || a.PublicKeyPath != ""
}

type Config struct {
	HTTP       HTTP       `yaml:"http"`
	GRPC       GRPC       `yaml:"grpc"`
	Logging    Logging    `yaml:"logging"`
	Store      Store      `yaml:"store"`
	AI         AI         `yaml:"ai"`
	Reconciler Reconciler `yaml:"reconciler"`
	WS         WS         `yaml:"ws"`
	Auth       Auth       `yaml:"auth"`
}

// LoadConfig reads the YAML file at CONFIG_PATH (default ./config/config.yaml),
// applies .env and environment overrides, then validates.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets secrets and connection strings come from the environment.
// DATABASE_URL and REDIS_URL also pick the backend when none is configured.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		c.AI.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET")); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		c.Store.Postgres.DSN = v
		if c.Store.Backend == "" {
			c.Store.Backend = StorePostgres
		}
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		c.Store.Redis.URL = v
		if c.Store.Backend == "" {
			c.Store.Backend = StoreRedis
		}
	}
	if v := strings.TrimSpace(os.Getenv("APP_ENV")); v != "" && c.Logging.Env == "" {
		c.Logging.Env = v
	}
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if c.AI.Timeout < 0 {
		return errors.New("ai.timeout must be >= 0")
	}
	if c.Auth.ClockSkew < 0 || c.Auth.ClockSkew > time.Minute {
		return errors.New("auth.clockSkew must be in [0..1m]")
	}

	// defaults
	if c.Logging.Service == "" {
		c.Logging.Service = "syncflow-relay"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	c.HTTP.ReadTimeout = durationOr(c.HTTP.ReadTimeout, 10*time.Second)
	c.HTTP.IdleTimeout = durationOr(c.HTTP.IdleTimeout, 60*time.Second)
	c.HTTP.ShutdownTimeout = durationOr(c.HTTP.ShutdownTimeout, 10*time.Second)
	c.Reconciler.Debounce = durationOr(c.Reconciler.Debounce, 2*time.Second)
	c.Reconciler.WriteTimeout = durationOr(c.Reconciler.WriteTimeout, 10*time.Second)
	return nil
}

func durationOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
