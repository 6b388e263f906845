package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/bloomcart/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "order.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("reads yaml and fills defaults", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 8080
mongodb:
  uri: mongodb://localhost:27017
auth:
  jwt_secret: s3cret
redis:
  catalog_ttl: 30s
`)

		cfg, err := config.Load(path)

		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "order-service", cfg.Server.Name)
		assert.Equal(t, "orders", cfg.MongoDB.Collection)
		assert.Equal(t, "flowers", cfg.MongoDB.FlowersCollection)
		assert.Equal(t, 30*time.Second, cfg.Redis.CatalogTTL)
		assert.Equal(t, "@every 1h", cfg.Sweep.Schedule)
		assert.False(t, cfg.Orders.FreezeTerminal)
		assert.False(t, cfg.MySQL.Enabled())
		assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	})

	t.Run("environment overrides file values", func(t *testing.T) {
		path := writeConfig(t, `
mongodb:
  uri: mongodb://file:27017
auth:
  jwt_secret: from-file
`)
		t.Setenv("BLOOMCART_MONGODB_URI", "mongodb://env:27017")
		t.Setenv("BLOOMCART_MYSQL_HOST", "audit-db")
		t.Setenv("BLOOMCART_ORDERS_FREEZE_TERMINAL", "true")

		cfg, err := config.Load(path)

		require.NoError(t, err)
		assert.Equal(t, "mongodb://env:27017", cfg.MongoDB.URI)
		assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
		assert.True(t, cfg.MySQL.Enabled())
		assert.True(t, cfg.Orders.FreezeTerminal)
	})

	t.Run("missing file falls back to env and defaults", func(t *testing.T) {
		t.Setenv("BLOOMCART_MONGODB_URI", "mongodb://env:27017")
		t.Setenv("BLOOMCART_AUTH_JWT_SECRET", "env-secret")

		cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))

		require.NoError(t, err)
		assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	})

	t.Run("reports every missing required setting", func(t *testing.T) {
		path := writeConfig(t, "server:\n  port: 1\n")

		_, err := config.Load(path)

		require.ErrorIs(t, err, config.ErrMissingSettings)
		assert.Contains(t, err.Error(), "mongodb.uri")
		assert.Contains(t, err.Error(), "auth.jwt_secret")
	})
}

func TestMySQLConfigDSN(t *testing.T) {
	cfg := config.MySQLConfig{Host: "db", Port: 3306, Username: "u", Password: "p", Database: "audit"}

	assert.Equal(t, "u:p@tcp(db:3306)/audit?charset=utf8mb4&parseTime=True&loc=Local", cfg.DSN())
}
