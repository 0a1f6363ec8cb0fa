package config

import (
	"fmt"
	"time"

	"github.com/khanghh/tokend/internal/verifier"
	"github.com/khanghh/tokend/params"
	"github.com/spf13/viper"
)

const (
	DefaultListenAddr     = ":3000"
	DefaultTokenKeyPrefix = "tokend:token:"

	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"

	AuthBackendLocal     = "local"
	AuthBackendDirectory = "ldap"
)

type MySQLConfig struct {
	Dsn             string `yaml:"dsn"`
	MaxIdleConns    int    `yaml:"maxIdleConns"`
	MaxOpenConns    int    `yaml:"maxOpenConns"`
	ConnMaxIdleTime int    `yaml:"connMaxIdleTime"`
	ConnMaxLifetime int    `yaml:"connMaxLifetime"`
}

type TokenStoreConfig struct {
	Backend   string `yaml:"backend"`
	KeyPrefix string `yaml:"keyPrefix"`
}

type Config struct {
	Debug           bool                     `yaml:"debug"`
	AppName         string                   `yaml:"appName"`
	ListenAddr      string                   `yaml:"listenAddr"`
	RedisURL        string                   `yaml:"redisURL"`
	TokenStore      TokenStoreConfig         `yaml:"tokenStore"`
	DefaultTokenTTL time.Duration            `yaml:"defaultTokenTTL"`
	AuthBackend     string                   `yaml:"authBackend"`
	ScopeAsGroup    bool                     `yaml:"scopeAsGroup"`
	MySQL           MySQLConfig              `yaml:"mysql"`
	Ldap            verifier.DirectoryConfig `yaml:"ldap"`
}

func (c *Config) Sanitize() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.TokenStore.Backend == "" {
		c.TokenStore.Backend = StoreBackendRedis
	}
	if c.TokenStore.KeyPrefix == "" {
		c.TokenStore.KeyPrefix = DefaultTokenKeyPrefix
	}
	if c.DefaultTokenTTL == 0 {
		c.DefaultTokenTTL = params.DefaultTokenTTL
	}
	if c.AuthBackend == "" {
		c.AuthBackend = AuthBackendLocal
	}

	if c.TokenStore.Backend == StoreBackendRedis && c.RedisURL == "" {
		return fmt.Errorf("redisURL is required for the %s token store", StoreBackendRedis)
	}
	if c.TokenStore.Backend != StoreBackendRedis && c.TokenStore.Backend != StoreBackendMemory {
		return fmt.Errorf("unknown token store backend: %s", c.TokenStore.Backend)
	}
	if c.AuthBackend != AuthBackendLocal && c.AuthBackend != AuthBackendDirectory {
		return fmt.Errorf("unknown auth backend: %s", c.AuthBackend)
	}
	return nil
}

func LoadConfig(filename string) (*Config, error) {
	viper.SetConfigFile(filename)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Sanitize(); err != nil {
		return nil, err
	}
	return &config, nil
}
