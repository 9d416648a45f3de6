package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-shop-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)

	require.Equal(t, "Shop Client", cfg.GetAppName())
	require.Equal(t, "DEV", cfg.GetEnv())
	require.Equal(t, "http://localhost:8080/api", cfg.GetAPIURL())
	require.Equal(t, 30*time.Second, cfg.GetRequestTimeout())
	require.Equal(t, config.StorageFile, cfg.GetTokenStorage())
	require.Equal(t, filepath.Join("./data", "tokens.json"), cfg.GetTokenFile())
	require.Equal(t, "shop:", cfg.GetRedisPrefix())
	require.Empty(t, cfg.GetEncryptionKey())
	require.Equal(t, ":8080", cfg.GetPort())
	require.Equal(t, 7*24*time.Hour, cfg.GetDemoRefreshTokenExpiry())
}

func TestNew_FromEnvironment(t *testing.T) {
	t.Setenv("API_URL", "https://shop.example.com/api")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("TOKEN_STORAGE", "redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ENV", "prod")
	t.Setenv("PORT", ":9000")
	t.Setenv("TOKEN_FILE", "/tmp/shop.json")

	cfg, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "https://shop.example.com/api", cfg.GetAPIURL())
	require.Equal(t, 5*time.Second, cfg.GetRequestTimeout())
	require.Equal(t, config.StorageRedis, cfg.GetTokenStorage())
	require.Equal(t, "redis://cache:6379/2", cfg.GetRedisURL())
	require.Equal(t, "debug", cfg.GetLogLevel())
	require.Equal(t, "PROD", cfg.GetEnv())
	require.Equal(t, ":9000", cfg.GetPort())
	require.Equal(t, "/tmp/shop.json", cfg.GetTokenFile())
}

func TestNew_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"relative api url": {"API_URL", "/api"},
		"unknown storage":  {"TOKEN_STORAGE", "sqlite"},
		"bad duration":     {"REQUEST_TIMEOUT", "soon"},
		"zero timeout":     {"REQUEST_TIMEOUT", "0s"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := config.New()
			require.Error(t, err)
		})
	}
}
