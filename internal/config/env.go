package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/vvka-141/clusterha/pkg/clusterha"
)

// Environment variables overriding the config file.
const (
	EnvBackend          = "CLUSTERHA_BACKEND"
	EnvDSN              = "CLUSTERHA_DSN"
	EnvTopology         = "CLUSTERHA_TOPOLOGY"
	EnvMaxRetryAttempts = "CLUSTERHA_MAX_RETRY_ATTEMPTS"
	EnvRetryInterval    = "CLUSTERHA_RETRY_INTERVAL"
	EnvLogLevel         = "CLUSTERHA_LOG_LEVEL"
	EnvLogFormat        = "CLUSTERHA_LOG_FORMAT"
)

// envOptions maps environment variables onto connection options.
var envOptions = map[string]string{
	"CLUSTERHA_RECONNECT_ATTEMPTS":          OptReconnectAttempts,
	"CLUSTERHA_RECONNECT_RETRY_SECONDS":     OptReconnectRetrySeconds,
	"CLUSTERHA_RECONNECT_RETRY_MULTIPLIER":  OptReconnectRetryMultiplier,
	"CLUSTERHA_RECONNECT_MAX_RETRY_SECONDS": OptReconnectMaxRetrySeconds,
	"CLUSTERHA_RECONNECT_JITTER":            OptReconnectJitter,
}

// LoadEnvFile loads variables from a .env file without overriding variables
// already set. An empty path means ".env" in the working directory, which
// may be absent.
func LoadEnvFile(path string) error {
	if path == "" {
		err := godotenv.Load()
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values with CLUSTERHA_* environment variables.
func (c *ProjectConfig) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvBackend); ok {
		c.Connection.Backend = v
	}
	if v, ok := os.LookupEnv(EnvDSN); ok {
		c.Connection.DSN = v
	}
	if v, ok := os.LookupEnv(EnvTopology); ok {
		c.Connection.Topology = v
	}
	if v, ok := os.LookupEnv(EnvMaxRetryAttempts); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %v: %w", EnvMaxRetryAttempts, v, err, clusterha.ErrInvalidConfig)
		}
		c.Connection.MaxRetryAttempts = &n
	}
	if v, ok := os.LookupEnv(EnvRetryInterval); ok {
		c.Connection.RetryInterval = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvLogFormat); ok {
		c.Log.Format = v
	}

	for env, option := range envOptions {
		v, ok := os.LookupEnv(env)
		if !ok {
			continue
		}
		if c.Connection.Options == nil {
			c.Connection.Options = make(map[string]string)
		}
		// Drop spellings of the same key so the environment wins.
		for key := range c.Connection.Options {
			if normalizeKey(key) == normalizeKey(option) {
				delete(c.Connection.Options, key)
			}
		}
		c.Connection.Options[option] = v
	}
	return nil
}
