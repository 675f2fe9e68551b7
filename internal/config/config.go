// Package config loads application configuration from an optional YAML
// file and OUTAGER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "OUTAGER_"

// Config is the application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Log           LogConfig           `koanf:"log"`
	CORS          CORSConfig          `koanf:"cors"`
	JWT           JWTConfig           `koanf:"jwt"`
	Organizations OrganizationsConfig `koanf:"organizations"`
	Realtime      RealtimeConfig      `koanf:"realtime"`
	Redis         RedisConfig         `koanf:"redis"`
	StatusPage    StatusPageConfig    `koanf:"statuspage"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig contains PostgreSQL settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	MigrationsPath  string        `koanf:"migrations_path"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// CORSConfig contains CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// JWTConfig contains access token verification settings.
type JWTConfig struct {
	SecretKey string        `koanf:"secret_key"`
	Issuer    string        `koanf:"issuer"`
	Audience  string        `koanf:"audience"`
	Leeway    time.Duration `koanf:"leeway"`
}

// OrganizationsConfig contains membership registry settings.
type OrganizationsConfig struct {
	SlugAttempts int `koanf:"slug_attempts"`
}

// RealtimeConfig contains broadcast hub and /ws settings.
type RealtimeConfig struct {
	BufferSize       int           `koanf:"buffer_size"`
	MaxOrganizations int           `koanf:"max_organizations"`
	PingInterval     time.Duration `koanf:"ping_interval"`
	WriteTimeout     time.Duration `koanf:"write_timeout"`
	InboundRate      float64       `koanf:"inbound_rate"`
	InboundBurst     int           `koanf:"inbound_burst"`
	MaxMessageBytes  int64         `koanf:"max_message_bytes"`
	AllowedOrigins   []string      `koanf:"allowed_origins"`
}

// RedisConfig contains cross-instance relay settings.
type RedisConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	Channel        string        `koanf:"channel"`
	PublishTimeout time.Duration `koanf:"publish_timeout"`
}

// StatusPageConfig contains public summary settings.
type StatusPageConfig struct {
	RecentIncidents int `koanf:"recent_incidents"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			RequestTimeout:    60 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectAttempts: 5,
			ConnectTimeout:  60 * time.Second,
			MigrationsPath:  "file://migrations",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		JWT: JWTConfig{
			Leeway: 30 * time.Second,
		},
		Organizations: OrganizationsConfig{
			SlugAttempts: 10,
		},
		Realtime: RealtimeConfig{
			BufferSize:       64,
			MaxOrganizations: 16,
			PingInterval:     25 * time.Second,
			WriteTimeout:     10 * time.Second,
			InboundRate:      5,
			InboundBurst:     10,
			MaxMessageBytes:  4096,
		},
		Redis: RedisConfig{
			Channel:        "outager:realtime",
			PublishTimeout: 2 * time.Second,
		},
		StatusPage: StatusPageConfig{
			RecentIncidents: 5,
		},
	}
}

// Load reads defaults, then path (if it exists), then the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envKey maps OUTAGER_SECTION_SOME_KEY to section.some_key. Comma-separated
// values become lists.
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.Replace(key, "_", ".", 1)

	if strings.HasSuffix(key, "allowed_origins") {
		parts := strings.Split(value, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		return key, origins
	}
	return key, value
}

// Validate checks required settings.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.JWT.SecretKey == "" {
		errs = append(errs, errors.New("jwt.secret_key is required"))
	} else if len(c.JWT.SecretKey) < 32 {
		errs = append(errs, errors.New("jwt.secret_key must be at least 32 characters"))
	}
	if c.Organizations.SlugAttempts < 1 {
		errs = append(errs, errors.New("organizations.slug_attempts must be positive"))
	}
	if c.Realtime.BufferSize < 1 {
		errs = append(errs, errors.New("realtime.buffer_size must be positive"))
	}
	if c.Realtime.MaxOrganizations < 1 {
		errs = append(errs, errors.New("realtime.max_organizations must be positive"))
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		errs = append(errs, errors.New("redis.url is required when redis is enabled"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, text", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
