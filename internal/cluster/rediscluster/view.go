// Package rediscluster implements clusterha.ClusterView for Redis
// standalone, Sentinel and Cluster deployments using go-redis.
package rediscluster

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vvka-141/clusterha/internal/retry"
	"github.com/vvka-141/clusterha/pkg/clusterha"
)

const probeTimeout = 2 * time.Second

// Reply prefixes Redis uses while a shard or replica changes role.
var (
	failoverPhrases = []string{"READONLY", "MASTERDOWN"}
	routerPhrases   = []string{"CLUSTERDOWN", "TRYAGAIN", "LOADING"}
	// Matched against the lowercased error text.
	connectionPhrases = []string{"client is closed", "connection pool timeout"}
)

// ClassifierOptions returns the Redis reply phrases for retry.NewClassifier.
func ClassifierOptions() []retry.ClassifierOption {
	return []retry.ClassifierOption{
		retry.WithFailoverPhrases(failoverPhrases...),
		retry.WithRouterPhrases(routerPhrases...),
		retry.WithConnectionPhrases(connectionPhrases...),
	}
}

// View is a ClusterView over a go-redis universal client.
//
// Thread-Safety: Safe for concurrent use.
type View struct {
	cfg Config

	mu        sync.RWMutex
	client    redis.UniversalClient
	connected atomic.Bool
}

// New creates a view without connecting.
func New(cfg Config) *View {
	if cfg.MaxRetryAttempts < 0 {
		cfg.MaxRetryAttempts = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = clusterha.DefaultRetryInterval
	}
	return &View{cfg: cfg}
}

// Open creates a view and connects.
func Open(ctx context.Context, cfg Config) (*View, error) {
	v := New(cfg)
	if err := v.RawReconnect(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *View) currentClient() (redis.UniversalClient, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.client == nil {
		return nil, &clusterha.ConnectionFailure{Message: "redis: client is closed"}
	}
	return v.client, nil
}

// ProbeLiveness sends PING.
func (v *View) ProbeLiveness(ctx context.Context) bool {
	client, err := v.currentClient()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	alive := client.Ping(ctx).Err() == nil
	v.connected.Store(alive)
	return alive
}

// RawReconnect replaces the client with a fresh one and pings it.
func (v *View) RawReconnect(ctx context.Context) error {
	client := redis.NewUniversalClient(v.cfg.universalOptions())
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		v.connected.Store(false)
		return &clusterha.ConnectionFailure{Message: "redis reconnect failed", Err: err}
	}

	v.mu.Lock()
	old := v.client
	v.client = client
	v.mu.Unlock()
	v.connected.Store(true)

	if old != nil {
		_ = old.Close()
	}
	return nil
}

func (v *View) IsConnected() bool {
	return v.connected.Load()
}

// RescanTopology reloads the slot map in cluster mode. Standalone and
// Sentinel clients resolve the master on every new connection.
func (v *View) RescanTopology(ctx context.Context) error {
	client, err := v.currentClient()
	if err != nil {
		return err
	}
	if cluster, ok := client.(*redis.ClusterClient); ok {
		cluster.ReloadState(ctx)
	}
	return nil
}

func (v *View) IsSharded() bool {
	return v.cfg.Sharded
}

// NextPrimary returns the address of the master: the slot owner of the
// empty key in cluster mode, the Sentinel's answer in failover mode and the
// configured address otherwise.
func (v *View) NextPrimary(ctx context.Context) (clusterha.ServerRef, error) {
	client, err := v.currentClient()
	if err != nil {
		return clusterha.ServerRef{}, err
	}

	if cluster, ok := client.(*redis.ClusterClient); ok {
		master, err := cluster.MasterForKey(ctx, "")
		if err != nil {
			return clusterha.ServerRef{}, err
		}
		return clusterha.ServerRef{Addr: master.Options().Addr}, nil
	}

	if v.cfg.MasterName != "" {
		sentinel := redis.NewSentinelClient(v.cfg.memberOptions(v.cfg.Addrs[0]))
		defer sentinel.Close()

		hostPort, err := sentinel.GetMasterAddrByName(ctx, v.cfg.MasterName).Result()
		if err != nil {
			return clusterha.ServerRef{}, err
		}
		return clusterha.ServerRef{Addr: net.JoinHostPort(hostPort[0], hostPort[1])}, nil
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return clusterha.ServerRef{}, err
	}
	return clusterha.ServerRef{Addr: v.cfg.Addrs[0]}, nil
}

// Invalidate closes the current client so no further command reaches the
// member that stepped down. The next operation fails fast and triggers a
// reconnect.
func (v *View) Invalidate() {
	v.connected.Store(false)

	v.mu.Lock()
	client := v.client
	v.client = nil
	v.mu.Unlock()

	if client != nil {
		_ = client.Close()
	}
}

func (v *View) MaxRetryAttempts() int {
	return v.cfg.MaxRetryAttempts
}

func (v *View) RetryInterval() time.Duration {
	return v.cfg.RetryInterval
}

// Close releases the client.
func (v *View) Close() error {
	v.connected.Store(false)

	v.mu.Lock()
	client := v.client
	v.client = nil
	v.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}

// Do sends one command. A missing key is returned as redis.Nil.
func (v *View) Do(ctx context.Context, args ...any) (any, error) {
	client, err := v.currentClient()
	if err != nil {
		return nil, err
	}
	return client.Do(ctx, args...).Result()
}

// DoOn sends one command to a specific member.
func (v *View) DoOn(ctx context.Context, server clusterha.ServerRef, args ...any) (any, error) {
	client := redis.NewClient(v.cfg.memberOptions(server.Addr))
	defer client.Close()
	return client.Do(ctx, args...).Result()
}

var _ clusterha.ClusterView = (*View)(nil)
