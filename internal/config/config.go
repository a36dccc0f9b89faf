package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/clusterha/pkg/clusterha"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// Supported backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Topologies.
const (
	TopologyReplicaSet = "replica_set"
	TopologySharded    = "sharded"
)

type ConnectionConfig struct {
	Backend          string            `yaml:"backend"`
	DSN              string            `yaml:"dsn"`
	Topology         string            `yaml:"topology,omitempty"`
	MaxRetryAttempts *int              `yaml:"max_retry_attempts,omitempty"`
	RetryInterval    string            `yaml:"retry_interval,omitempty"`
	Options          map[string]string `yaml:"options,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

type ProjectConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	Log        LogConfig        `yaml:"log,omitempty"`
}

const ConfigFileName = "clusterha.yaml"

// Load reads ConfigFileName from dir.
func Load(dir string) (*ProjectConfig, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads the config file at path.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %v: %w", path, err, clusterha.ErrInvalidConfig)
	}
	return &cfg, nil
}

// Settings is a validated connection configuration.
type Settings struct {
	Backend          string
	DSN              string
	Sharded          bool
	MaxRetryAttempts int
	RetryInterval    time.Duration

	// Retry drives reconnect backoff.
	Retry clusterha.RetryConfig

	// Passthrough holds the options not consumed here, keyed as written.
	// They are handed to the backend driver unchanged.
	Passthrough map[string]string
}

// Resolve validates the connection section and applies defaults.
func (c ConnectionConfig) Resolve() (*Settings, error) {
	backend, err := normalizeBackend(c.Backend)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(c.DSN) == "" {
		return nil, fmt.Errorf("dsn is required: %w", clusterha.ErrInvalidConfig)
	}

	sharded, err := isSharded(c.Topology)
	if err != nil {
		return nil, err
	}

	// Unset means the default; an explicit 0 turns read/write retries off.
	maxRetries := clusterha.DefaultMaxRetryAttempts
	if c.MaxRetryAttempts != nil {
		maxRetries = *c.MaxRetryAttempts
		if maxRetries < 0 {
			return nil, fmt.Errorf("max_retry_attempts must be >= 0, got %d: %w", maxRetries, clusterha.ErrInvalidConfig)
		}
	}

	interval := clusterha.DefaultRetryInterval
	if c.RetryInterval != "" {
		interval, err = time.ParseDuration(c.RetryInterval)
		if err != nil || interval < 0 {
			return nil, fmt.Errorf("invalid retry_interval %q: %w", c.RetryInterval, clusterha.ErrInvalidConfig)
		}
	}

	retryCfg, passthrough, err := ParseOptions(c.Options)
	if err != nil {
		return nil, err
	}

	return &Settings{
		Backend:          backend,
		DSN:              c.DSN,
		Sharded:          sharded,
		MaxRetryAttempts: maxRetries,
		RetryInterval:    interval,
		Retry:            retryCfg,
		Passthrough:      passthrough,
	}, nil
}

func normalizeBackend(backend string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "postgres", "postgresql", "pg", "":
		return BackendPostgres, nil
	case "redis":
		return BackendRedis, nil
	default:
		return "", fmt.Errorf("backend %q: %w", backend, clusterha.ErrUnsupportedBackend)
	}
}

func isSharded(topology string) (bool, error) {
	switch normalizeKey(topology) {
	case "", "replicaset", "replica":
		return false, nil
	case "sharded", "router":
		return true, nil
	default:
		return false, fmt.Errorf("unknown topology %q: %w", topology, clusterha.ErrInvalidConfig)
	}
}
