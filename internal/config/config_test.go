package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("OUTAGER_DATABASE_URL", "postgres://localhost/outager")
	t.Setenv("OUTAGER_JWT_SECRET_KEY", testSecret)
	t.Setenv("OUTAGER_SERVER_METRICS_PORT", "9191")
	t.Setenv("OUTAGER_REALTIME_PING_INTERVAL", "10s")
	t.Setenv("OUTAGER_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/outager", cfg.Database.URL)
	assert.Equal(t, testSecret, cfg.JWT.SecretKey)
	assert.Equal(t, "9191", cfg.Server.MetricsPort)
	assert.Equal(t, 10*time.Second, cfg.Realtime.PingInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Organizations.SlugAttempts)
	assert.Equal(t, 64, cfg.Realtime.BufferSize)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  url: postgres://file/outager
jwt:
  secret_key: `+testSecret+`
organizations:
  slug_attempts: 3
redis:
  enabled: true
  url: redis://localhost:6379/0
log:
  format: text
`), 0o600))

	t.Setenv("OUTAGER_DATABASE_URL", "postgres://env/outager")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/outager", cfg.Database.URL)
	assert.Equal(t, 3, cfg.Organizations.SlugAttempts)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "outager:realtime", cfg.Redis.Channel)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	t.Setenv("OUTAGER_DATABASE_URL", "postgres://localhost/outager")
	t.Setenv("OUTAGER_JWT_SECRET_KEY", testSecret)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default().Server, cfg.Server)
	assert.Equal(t, Default().Realtime.BufferSize, cfg.Realtime.BufferSize)
	assert.Equal(t, []string{"localhost:3000"}, cfg.Realtime.AllowedOrigins)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Database.URL = "postgres://localhost/outager"
		cfg.JWT.SecretKey = testSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no database", mutate: func(c *Config) { c.Database.URL = "" }, wantErr: "database.url"},
		{name: "no secret", mutate: func(c *Config) { c.JWT.SecretKey = "" }, wantErr: "jwt.secret_key is required"},
		{name: "short secret", mutate: func(c *Config) { c.JWT.SecretKey = "short" }, wantErr: "at least 32"},
		{name: "zero slug attempts", mutate: func(c *Config) { c.Organizations.SlugAttempts = 0 }, wantErr: "slug_attempts"},
		{name: "zero buffer", mutate: func(c *Config) { c.Realtime.BufferSize = 0 }, wantErr: "buffer_size"},
		{name: "redis without url", mutate: func(c *Config) { c.Redis.Enabled = true }, wantErr: "redis.url"},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvKey(t *testing.T) {
	key, value := envKey("OUTAGER_SERVER_READ_HEADER_TIMEOUT", "3s")
	assert.Equal(t, "server.read_header_timeout", key)
	assert.Equal(t, "3s", value)

	key, value = envKey("OUTAGER_REALTIME_ALLOWED_ORIGINS", "a.example,,b.example")
	assert.Equal(t, "realtime.allowed_origins", key)
	assert.Equal(t, []string{"a.example", "b.example"}, value)
}
