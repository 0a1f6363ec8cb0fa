package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestLoadConfigDefaults(t *testing.T) {
	filename := writeConfigFile(t, `
redisURL: redis://localhost:6379/0
`)
	cfg, err := LoadConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("listenAddr = %q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.TokenStore.Backend != StoreBackendRedis {
		t.Errorf("store backend = %q, want %q", cfg.TokenStore.Backend, StoreBackendRedis)
	}
	if cfg.TokenStore.KeyPrefix != DefaultTokenKeyPrefix {
		t.Errorf("keyPrefix = %q, want %q", cfg.TokenStore.KeyPrefix, DefaultTokenKeyPrefix)
	}
	if cfg.DefaultTokenTTL != time.Hour {
		t.Errorf("defaultTokenTTL = %v, want 1h", cfg.DefaultTokenTTL)
	}
	if cfg.AuthBackend != AuthBackendLocal {
		t.Errorf("authBackend = %q, want %q", cfg.AuthBackend, AuthBackendLocal)
	}
}

func TestLoadConfigRequiresRedisURL(t *testing.T) {
	filename := writeConfigFile(t, `
tokenStore:
  backend: redis
`)
	if _, err := LoadConfig(filename); err == nil {
		t.Fatal("expected error for redis store without redisURL")
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	filename := writeConfigFile(t, `
tokenStore:
  backend: cassandra
`)
	if _, err := LoadConfig(filename); err == nil {
		t.Fatal("expected error for unknown store backend")
	}

	filename = writeConfigFile(t, `
redisURL: redis://localhost:6379/0
authBackend: kerberos
`)
	if _, err := LoadConfig(filename); err == nil {
		t.Fatal("expected error for unknown auth backend")
	}
}
