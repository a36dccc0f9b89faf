package rediscluster

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vvka-141/clusterha/pkg/clusterha"
)

// Config holds configuration for a Redis view.
type Config struct {
	// Addrs are the seed members. More than one address without MasterName
	// selects cluster mode.
	Addrs []string

	// MasterName selects Sentinel failover mode; Addrs are then the sentinels.
	MasterName string

	Username string
	Password string
	DB       int

	// Sharded reports a cluster deployment. Router failures are then waited
	// out instead of triggering a rescan.
	Sharded bool

	// MaxRetryAttempts bounds read/write retries; 0 turns them off.
	MaxRetryAttempts int
	RetryInterval    time.Duration

	// Connection pool settings
	PoolSize     int
	MinIdleConns int

	// MaxRetries is go-redis' own per-command retry count. The default of -1
	// disables it so that failures reach the retry layer unmasked.
	MaxRetries int

	// Timeouts
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Addrs:            []string{"localhost:6379"},
		MaxRetryAttempts: clusterha.DefaultMaxRetryAttempts,
		RetryInterval:    clusterha.DefaultRetryInterval,
		PoolSize:         10,
		MinIdleConns:     1,
		MaxRetries:       -1,
		DialTimeout:      5 * time.Second,
		ReadTimeout:      3 * time.Second,
		WriteTimeout:     3 * time.Second,
	}
}

// ParseDSN builds a Config from a connection string of the form
//
//	redis://[user:password@]host:port[,host:port...][/db]
//
// and the pass-through connection options (pool_size, min_idle_conns,
// max_retries, master_name, dial_timeout, read_timeout, write_timeout).
func ParseDSN(dsn string, options map[string]string) (Config, error) {
	cfg := DefaultConfig()

	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		scheme, rest = "redis", dsn
	}

	userinfo := ""
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		userinfo, rest = rest[:at], rest[at+1:]
	}

	hosts, path, _ := strings.Cut(rest, "/")
	addrs := strings.Split(hosts, ",")
	for i, addr := range addrs {
		addr = strings.TrimSpace(addr)
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return Config{}, fmt.Errorf("invalid redis address %q: %v: %w", addr, err, clusterha.ErrInvalidConfig)
		}
		addrs[i] = addr
	}

	first := scheme + "://"
	if userinfo != "" {
		first += userinfo + "@"
	}
	first += addrs[0]
	if path != "" {
		first += "/" + path
	}
	opts, err := redis.ParseURL(first)
	if err != nil {
		return Config{}, fmt.Errorf("invalid redis url: %v: %w", err, clusterha.ErrInvalidConfig)
	}

	cfg.Addrs = addrs
	cfg.Username = opts.Username
	cfg.Password = opts.Password
	cfg.DB = opts.DB

	if err := applyOptions(&cfg, options); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyOptions(cfg *Config, options map[string]string) error {
	for key, value := range options {
		var err error
		switch strings.ToLower(key) {
		case "master_name", "mastername":
			cfg.MasterName = value
		case "pool_size", "poolsize":
			cfg.PoolSize, err = strconv.Atoi(value)
		case "min_idle_conns", "minidleconns":
			cfg.MinIdleConns, err = strconv.Atoi(value)
		case "max_retries", "maxretries":
			cfg.MaxRetries, err = strconv.Atoi(value)
		case "dial_timeout", "dialtimeout":
			cfg.DialTimeout, err = time.ParseDuration(value)
		case "read_timeout", "readtimeout":
			cfg.ReadTimeout, err = time.ParseDuration(value)
		case "write_timeout", "writetimeout":
			cfg.WriteTimeout, err = time.ParseDuration(value)
		default:
			return fmt.Errorf("unknown redis option %q: %w", key, clusterha.ErrInvalidConfig)
		}
		if err != nil {
			return fmt.Errorf("redis option %s=%q: %v: %w", key, value, err, clusterha.ErrInvalidConfig)
		}
	}
	return nil
}

func (c Config) universalOptions() *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:        c.Addrs,
		MasterName:   c.MasterName,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

func (c Config) memberOptions(addr string) *redis.Options {
	return &redis.Options{
		Addr:         addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}
