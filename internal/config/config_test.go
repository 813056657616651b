package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "mock", cfg.Extraction.Mode)
	assert.Equal(t, 90*time.Second, cfg.Extraction.Timeout)
	assert.Equal(t, "local", cfg.Lock.Driver)
	assert.Equal(t, "host=localhost port=5432 user=rfdb password= dbname=rfdb sslmode=disable", cfg.DB.DSN())
}

func TestLoadConfig_Environment(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("RFDB_DB_DRIVER", "memory")
	t.Setenv("RFDB_LOCK_DRIVER", "redis")
	t.Setenv("RFDB_LOCK_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("RFDB_AUTH_ISSUER", " https://issuer.example.com/ ")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.DB.Driver)
	assert.Equal(t, "redis", cfg.Lock.Driver)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Lock.RedisURL)
	assert.Equal(t, "https://issuer.example.com", cfg.Auth.Issuer)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("RFDB_RENDER_FORMAT=docx\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("RFDB_RENDER_FORMAT") })

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "docx", cfg.Render.Format)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	base, err := LoadConfig("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"http extraction needs a url", func(c *Config) { c.Extraction.Mode = "http" }, "URL"},
		{"unknown db driver", func(c *Config) { c.DB.Driver = "sqlite" }, "Driver"},
		{"redis lock needs a url", func(c *Config) { c.Lock.Driver = "redis" }, "RedisURL"},
		{"oidc needs an issuer", func(c *Config) { c.Auth.Mode = "oidc" }, "Issuer"},
		{"minio needs an endpoint", func(c *Config) { c.Storage.Driver = "minio" }, "Endpoint"},
		{"unknown render format", func(c *Config) { c.Render.Format = "rtf" }, "Format"},
		{"tls needs a certificate", func(c *Config) { c.TLS.Enable = true }, "CertFile"},
		{"oauth needs client credentials", func(c *Config) { c.Extraction.OAuth.TokenURL = "https://idp.example.com/token" }, "ClientID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	assert.NoError(t, base.Validate())
}
