package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"PORT", "JWT_SECRET", "LOG_LEVEL", "STORE_BACKEND", "MONGO_URI", "MONGO_DB", "BOLT_PATH", "REDIS_ADDR", "REDIS_PASSWORD", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_YAMLWithEnvExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_SECRET", "s3cret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
jwt_secret: ${TEST_SECRET}
store:
  backend: bolt
bolt:
  path: /tmp/walks.db
expiry:
  enabled: true
  grace: 30m
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, BackendBolt, cfg.Store.Backend)
	assert.Equal(t, "/tmp/walks.db", cfg.Bolt.Path)
	assert.True(t, cfg.Expiry.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Expiry.Grace)
	assert.Equal(t, "@hourly", cfg.Expiry.Schedule)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_EnvOverridesAndMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("PORT", "7000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"missing secret", Config{Store: StoreConfig{Backend: BackendMemory}}, true},
		{"mongo without uri", Config{JWTSecret: "x", Store: StoreConfig{Backend: BackendMongo}}, true},
		{"unknown backend", Config{JWTSecret: "x", Store: StoreConfig{Backend: "sqlite"}}, true},
		{"memory ok", Config{JWTSecret: "x", Store: StoreConfig{Backend: BackendMemory}}, false},
		{"mongo ok", Config{JWTSecret: "x", Store: StoreConfig{Backend: BackendMongo}, Mongo: MongoConfig{URI: "mongodb://localhost"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
