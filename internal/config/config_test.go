package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 5*time.Second, cfg.Store.OperationTimeout)
	assert.Equal(t, "syntactic", cfg.App.ValidationPolicy)
	assert.Equal(t, "sequence", cfg.App.IDStrategy)
	assert.Equal(t, int64(99999), cfg.App.IDRandomMax)
	assert.True(t, cfg.App.SeedFixtures)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("STORE_OPERATION_TIMEOUT", "250ms")
	t.Setenv("VALIDATION_POLICY", "resolvable")
	t.Setenv("ID_STRATEGY", "random")
	t.Setenv("SEED_FIXTURES", "false")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Store.OperationTimeout)
	assert.Equal(t, "resolvable", cfg.App.ValidationPolicy)
	assert.Equal(t, "random", cfg.App.IDStrategy)
	assert.False(t, cfg.App.SeedFixtures)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shorturl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("STORE_BACKEND: sqlite\nSQLITE_PATH: /tmp/urls.db\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/urls.db", cfg.SQLite.Path)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "backend", key: "STORE_BACKEND", val: "mongo"},
		{name: "policy", key: "VALIDATION_POLICY", val: "strict"},
		{name: "strategy", key: "ID_STRATEGY", val: "uuid"},
		{name: "attempts", key: "ID_MAX_ATTEMPTS", val: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "app",
		Password: "p@ss word",
		DBName:   "shorturl",
		SSLMode:  "disable",
	}

	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/shorturl?sslmode=disable", db.DatabaseURL())
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: "6380"}
	assert.Equal(t, "cache:6380", r.RedisAddr())
}
