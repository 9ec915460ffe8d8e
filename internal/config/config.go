package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends understood by cmd/server.
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendMongo  = "mongo"
)

// Config holds the application configuration.
type Config struct {
	Port      string          `yaml:"port"`
	JWTSecret string          `yaml:"jwt_secret"`
	LogLevel  string          `yaml:"log_level"`
	Store     StoreConfig     `yaml:"store"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Bolt      BoltConfig      `yaml:"bolt"`
	Redis     RedisConfig     `yaml:"redis"`
	CORS      CORSConfig      `yaml:"cors"`
	Expiry    ExpiryConfig    `yaml:"expiry"`
	Directory DirectoryConfig `yaml:"directory"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type BoltConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig configures the directory cache. An empty Address disables it.
type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size"`
	TTL      time.Duration `yaml:"ttl"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ExpiryConfig controls the stale request sweeper.
type ExpiryConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Schedule string        `yaml:"schedule"`
	Grace    time.Duration `yaml:"grace"`
}

// DirectoryConfig seeds the in-memory directory when Mongo is not used.
type DirectoryConfig struct {
	SeedFile string `yaml:"seed_file"`
}

// LoadConfig reads .env (if present), then the YAML file at path (if present,
// with ${VAR} expansion), then environment overrides, then defaults.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			expanded := []byte(os.ExpandEnv(string(data)))
			if err := yaml.Unmarshal(expanded, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&cfg.Port, "PORT")
	override(&cfg.JWTSecret, "JWT_SECRET")
	override(&cfg.LogLevel, "LOG_LEVEL")
	override(&cfg.Store.Backend, "STORE_BACKEND")
	override(&cfg.Mongo.URI, "MONGO_URI")
	override(&cfg.Mongo.Database, "MONGO_DB")
	override(&cfg.Bolt.Path, "BOLT_PATH")
	override(&cfg.Redis.Address, "REDIS_ADDR")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = strings.Split(v, ",")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendMongo
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "walk_companion"
	}
	if cfg.Mongo.ConnectTimeout == 0 {
		cfg.Mongo.ConnectTimeout = 10 * time.Second
	}
	if cfg.Bolt.Path == "" {
		cfg.Bolt.Path = "walk_requests.db"
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 5 * time.Minute
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Expiry.Schedule == "" {
		cfg.Expiry.Schedule = "@hourly"
	}
	if cfg.Expiry.Grace == 0 {
		cfg.Expiry.Grace = 2 * time.Hour
	}
}

// Validate checks settings that have no sensible default.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt secret is required (JWT_SECRET)")
	}
	switch c.Store.Backend {
	case BackendMemory, BackendBolt:
	case BackendMongo:
		if c.Mongo.URI == "" {
			return errors.New("mongo uri is required for the mongo backend (MONGO_URI)")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}
