package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/vvka-141/clusterha/internal/cluster/pgcluster"
	"github.com/vvka-141/clusterha/internal/cluster/rediscluster"
	"github.com/vvka-141/clusterha/internal/config"
	"github.com/vvka-141/clusterha/internal/retry"
	"github.com/vvka-141/clusterha/pkg/clusterha"
)

// target is a ClusterView that can also run a statement given as CLI words.
type target interface {
	clusterha.ClusterView

	// run executes the statement on the cluster and renders the result.
	run(ctx context.Context, statement []string, read bool) (string, error)

	// runOn executes the statement on one member.
	runOn(ctx context.Context, server clusterha.ServerRef, statement []string) (string, error)

	// ping is a cheap round trip through the current connection.
	ping(ctx context.Context) error

	close()
}

func newTarget(s *config.Settings) (target, []retry.ClassifierOption, error) {
	switch s.Backend {
	case config.BackendPostgres:
		view, err := pgcluster.New(pgcluster.Config{
			DSN:              s.DSN,
			Sharded:          s.Sharded,
			MaxRetryAttempts: s.MaxRetryAttempts,
			RetryInterval:    s.RetryInterval,
			RuntimeParams:    s.Passthrough,
		})
		if err != nil {
			return nil, nil, err
		}
		return &pgTarget{View: view}, pgcluster.ClassifierOptions(), nil

	case config.BackendRedis:
		cfg, err := rediscluster.ParseDSN(s.DSN, s.Passthrough)
		if err != nil {
			return nil, nil, err
		}
		cfg.Sharded = s.Sharded
		cfg.MaxRetryAttempts = s.MaxRetryAttempts
		cfg.RetryInterval = s.RetryInterval
		return &redisTarget{View: rediscluster.New(cfg)}, rediscluster.ClassifierOptions(), nil

	default:
		return nil, nil, fmt.Errorf("backend %q: %w", s.Backend, clusterha.ErrUnsupportedBackend)
	}
}

type pgTarget struct {
	*pgcluster.View
}

func (t *pgTarget) run(ctx context.Context, statement []string, read bool) (string, error) {
	sql := strings.Join(statement, " ")
	if !read {
		tag, err := t.Exec(ctx, sql)
		if err != nil {
			return "", err
		}
		return tag.String(), nil
	}

	rows, err := t.Query(ctx, sql)
	if err != nil {
		return "", err
	}
	return formatRows(rows), nil
}

func (t *pgTarget) runOn(ctx context.Context, server clusterha.ServerRef, statement []string) (string, error) {
	tag, err := t.ExecOn(ctx, server, strings.Join(statement, " "))
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}

func (t *pgTarget) ping(ctx context.Context) error {
	_, err := t.Exec(ctx, "SELECT 1")
	return err
}

func (t *pgTarget) close() {
	t.Close()
}

// formatRows renders rows as one line of sorted column=value pairs each.
func formatRows(rows []map[string]any) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		columns := make([]string, 0, len(row))
		for column := range row {
			columns = append(columns, column)
		}
		sort.Strings(columns)

		pairs := make([]string, 0, len(columns))
		for _, column := range columns {
			pairs = append(pairs, fmt.Sprintf("%s=%v", column, row[column]))
		}
		lines = append(lines, strings.Join(pairs, " "))
	}
	return strings.Join(lines, "\n")
}

type redisTarget struct {
	*rediscluster.View
}

func (t *redisTarget) run(ctx context.Context, statement []string, read bool) (string, error) {
	reply, err := t.Do(ctx, commandArgs(statement)...)
	return formatReply(reply, err)
}

func (t *redisTarget) runOn(ctx context.Context, server clusterha.ServerRef, statement []string) (string, error) {
	reply, err := t.DoOn(ctx, server, commandArgs(statement)...)
	return formatReply(reply, err)
}

func (t *redisTarget) ping(ctx context.Context) error {
	_, err := t.Do(ctx, "PING")
	return err
}

func (t *redisTarget) close() {
	_ = t.Close()
}

func commandArgs(statement []string) []any {
	args := make([]any, len(statement))
	for i, word := range statement {
		args[i] = word
	}
	return args
}

func formatReply(reply any, err error) (string, error) {
	if errors.Is(err, redis.Nil) {
		return "(nil)", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprint(reply), nil
}
