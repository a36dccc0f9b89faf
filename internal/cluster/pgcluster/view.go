// Package pgcluster implements clusterha.ClusterView for PostgreSQL
// deployments reached through a multi-host connection string.
//
// pgx tries the hosts of a DSN such as
//
//	postgres://app@db-1:5432,db-2:5432/app?target_session_attrs=read-write
//
// in order and keeps the first one accepting writes, so dropping the pool's
// connections is enough to follow a failover.
package pgcluster

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/clusterha/internal/retry"
	"github.com/vvka-141/clusterha/pkg/clusterha"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns limits concurrent connections per view.
	DefaultMaxConns = 10

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime drops idle connections so stale members are
	// forgotten quickly.
	DefaultMaxConnIdleTime = 5 * time.Minute

	probeTimeout = 2 * time.Second
)

// Config configures a View.
type Config struct {
	DSN     string
	Sharded bool

	// MaxRetryAttempts bounds read/write retries; 0 turns them off.
	MaxRetryAttempts int
	RetryInterval    time.Duration

	// RuntimeParams are sent to the server at connection start
	// (application_name, statement_timeout, ...).
	RuntimeParams map[string]string
}

// View is a ClusterView over a pgx connection pool.
//
// Thread-Safety: Safe for concurrent use. The pool is replaced as a whole on
// reconnect; operations pick up the current pool when they start.
type View struct {
	cfg        Config
	poolConfig *pgxpool.Config

	mu        sync.RWMutex
	pool      *pgxpool.Pool
	connected atomic.Bool
}

// Open parses cfg and connects. A failed first connection is returned as
// *clusterha.ConnectionFailure.
func Open(ctx context.Context, cfg Config) (*View, error) {
	v, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := v.RawReconnect(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// DefaultConfig returns a Config for dsn with the default retry bounds.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:              dsn,
		MaxRetryAttempts: clusterha.DefaultMaxRetryAttempts,
		RetryInterval:    clusterha.DefaultRetryInterval,
	}
}

// New parses cfg without connecting. The first RawReconnect opens the pool.
func New(cfg Config) (*View, error) {
	dsn, err := normalizeDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %v: %w", err, clusterha.ErrInvalidConfig)
	}

	configurePool(poolConfig)
	for key, value := range cfg.RuntimeParams {
		poolConfig.ConnConfig.RuntimeParams[key] = value
	}

	if cfg.MaxRetryAttempts < 0 {
		return nil, fmt.Errorf("max retry attempts must be >= 0, got %d: %w", cfg.MaxRetryAttempts, clusterha.ErrInvalidConfig)
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = clusterha.DefaultRetryInterval
	}

	return &View{cfg: cfg, poolConfig: poolConfig}, nil
}

func configurePool(poolConfig *pgxpool.Config) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
}

// ClassifierOptions returns the pgx error texts that mean the connection is gone.
func ClassifierOptions() []retry.ClassifierOption {
	return []retry.ClassifierOption{
		retry.WithConnectionPhrases("closed pool", "conn closed", "conn busy"),
	}
}

func (v *View) currentPool() (*pgxpool.Pool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.pool == nil {
		return nil, &clusterha.ConnectionFailure{Message: "connection closed"}
	}
	return v.pool, nil
}

// ProbeLiveness pings the current pool.
func (v *View) ProbeLiveness(ctx context.Context) bool {
	pool, err := v.currentPool()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	alive := pool.Ping(ctx) == nil
	v.connected.Store(alive)
	return alive
}

// RawReconnect opens a fresh pool and swaps it in. The old pool is closed
// once its borrowed connections are released.
func (v *View) RawReconnect(ctx context.Context) error {
	pool, err := pgxpool.NewWithConfig(ctx, v.poolConfig.Copy())
	if err != nil {
		return v.connectFailure(err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return v.connectFailure(err)
	}

	v.mu.Lock()
	old := v.pool
	v.pool = pool
	v.mu.Unlock()
	v.connected.Store(true)

	if old != nil {
		go old.Close()
	}
	return nil
}

func (v *View) connectFailure(err error) error {
	v.connected.Store(false)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && isAuthCode(pgErr.Code) {
		return &clusterha.AuthenticationFailure{Message: pgErr.Message, Code: pgErr.Code, Err: err}
	}
	return &clusterha.ConnectionFailure{
		Message: describeConnectError(err, v.poolConfig.ConnConfig.Host, v.poolConfig.ConnConfig.Port),
		Err:     err,
	}
}

// IsConnected reports the outcome of the last probe or reconnect.
func (v *View) IsConnected() bool {
	return v.connected.Load()
}

// RescanTopology drops every pooled connection. New connections walk the
// host list again and land on the current primary.
func (v *View) RescanTopology(ctx context.Context) error {
	pool, err := v.currentPool()
	if err != nil {
		return err
	}
	pool.Reset()
	return nil
}

// IsSharded reports whether the DSN points at a router tier (for example
// a pgbouncer or Citus coordinator fleet).
func (v *View) IsSharded() bool {
	return v.cfg.Sharded
}

// NextPrimary returns the address of the member the pool writes to.
func (v *View) NextPrimary(ctx context.Context) (clusterha.ServerRef, error) {
	pool, err := v.currentPool()
	if err != nil {
		return clusterha.ServerRef{}, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return clusterha.ServerRef{}, err
	}
	defer conn.Release()

	var inRecovery bool
	if err := conn.QueryRow(ctx, "SELECT pg_is_in_recovery()").Scan(&inRecovery); err != nil {
		return clusterha.ServerRef{}, err
	}

	addr := conn.Conn().PgConn().Conn().RemoteAddr().String()
	if inRecovery {
		return clusterha.ServerRef{}, &clusterha.OperationFailure{
			Message: fmt.Sprintf("Not primary: %s is in recovery", addr),
		}
	}
	return clusterha.ServerRef{Addr: addr}, nil
}

// Invalidate marks the view disconnected and drops pooled connections.
func (v *View) Invalidate() {
	v.connected.Store(false)

	v.mu.RLock()
	pool := v.pool
	v.mu.RUnlock()
	if pool != nil {
		pool.Reset()
	}
}

func (v *View) MaxRetryAttempts() int {
	return v.cfg.MaxRetryAttempts
}

func (v *View) RetryInterval() time.Duration {
	return v.cfg.RetryInterval
}

// Close closes the pool.
func (v *View) Close() {
	v.mu.Lock()
	pool := v.pool
	v.pool = nil
	v.mu.Unlock()
	v.connected.Store(false)

	if pool != nil {
		pool.Close()
	}
}

// Exec executes a statement on the current pool.
func (v *View) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	pool, err := v.currentPool()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return pool.Exec(ctx, sql, args...)
}

// Query runs a query and collects every row as a column-name map.
func (v *View) Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	pool, err := v.currentPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToMap)
}

// ExecOn executes a statement on one specific member, bypassing the pool.
func (v *View) ExecOn(ctx context.Context, server clusterha.ServerRef, sql string, args ...any) (pgconn.CommandTag, error) {
	connConfig, err := v.memberConfig(server)
	if err != nil {
		return pgconn.CommandTag{}, err
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return pgconn.CommandTag{}, v.connectFailure(err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	return conn.Exec(ctx, sql, args...)
}

func (v *View) memberConfig(server clusterha.ServerRef) (*pgx.ConnConfig, error) {
	host, portStr, err := net.SplitHostPort(server.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid member address %q: %v: %w", server.Addr, err, clusterha.ErrInvalidConfig)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid member port %q: %v: %w", portStr, err, clusterha.ErrInvalidConfig)
	}

	connConfig := v.poolConfig.ConnConfig.Copy()
	connConfig.Host = host
	connConfig.Port = uint16(port)
	connConfig.Fallbacks = nil
	return connConfig, nil
}

// Begin starts a transaction on the current pool.
func (v *View) Begin(ctx context.Context) (*Tx, error) {
	pool, err := v.currentPool()
	if err != nil {
		return nil, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

var _ clusterha.ClusterView = (*View)(nil)
