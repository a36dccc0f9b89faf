package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vvka-141/clusterha/internal/config"
	"github.com/vvka-141/clusterha/internal/logging"
	"github.com/vvka-141/clusterha/internal/retry"
	"github.com/vvka-141/clusterha/pkg/clusterha"
)

// session bundles what a command needs to talk to the cluster.
type session struct {
	settings *config.Settings
	logger   clusterha.Logger
	target   target
	executor *retry.Executor
	registry *prometheus.Registry
	flush    func()
}

func (s *session) close() {
	reportMetrics(s.logger, s.registry)
	s.target.close()
	s.flush()
}

// openSession loads configuration and builds the executor. The connection
// itself is opened by the first operation, through the reconnect path.
func openSession(cmd *cobra.Command) (*session, error) {
	projectCfg, settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}

	logger, flush, err := newLogger(cmd, projectCfg)
	if err != nil {
		return nil, err
	}

	tgt, classifierOpts, err := newTarget(settings)
	if err != nil {
		flush()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	executor, err := retry.NewExecutor(tgt, settings.Retry,
		retry.WithClassifier(retry.NewClassifier(classifierOpts...)),
		retry.WithLogger(logger),
		retry.WithMetrics(retry.NewMetrics(registry)),
	)
	if err != nil {
		tgt.close()
		flush()
		return nil, err
	}

	logger.Verbose("session ready",
		clusterha.String("backend", settings.Backend),
		clusterha.Bool("sharded", settings.Sharded),
		clusterha.Int("max_retry_attempts", settings.MaxRetryAttempts),
		clusterha.Int("reconnect_attempts", settings.Retry.MaxAttempts),
	)

	return &session{
		settings: settings,
		logger:   logger,
		target:   tgt,
		executor: executor,
		registry: registry,
		flush:    flush,
	}, nil
}

// loadSettings merges the config file, .env, environment and flags, in
// increasing precedence.
func loadSettings(cmd *cobra.Command) (*config.ProjectConfig, *config.Settings, error) {
	if err := config.LoadEnvFile(globalFlags.envFile); err != nil {
		return nil, nil, fmt.Errorf("%v: %w", err, clusterha.ErrInvalidConfig)
	}

	cfg, err := loadProjectConfig()
	if err != nil {
		return nil, nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, nil, err
	}

	if globalFlags.backend != "" {
		cfg.Connection.Backend = globalFlags.backend
	}
	if globalFlags.dsn != "" {
		cfg.Connection.DSN = globalFlags.dsn
	}
	if globalFlags.topology != "" {
		cfg.Connection.Topology = globalFlags.topology
	}

	settings, err := cfg.Connection.Resolve()
	if err != nil {
		return nil, nil, err
	}
	return cfg, settings, nil
}

func loadProjectConfig() (*config.ProjectConfig, error) {
	if globalFlags.configPath != "" {
		cfg, err := config.LoadFile(globalFlags.configPath)
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("%s: %v: %w", globalFlags.configPath, err, clusterha.ErrInvalidConfig)
		}
		return cfg, err
	}

	cfg, err := config.Load(".")
	if errors.Is(err, config.ErrConfigNotFound) {
		return &config.ProjectConfig{}, nil
	}
	return cfg, err
}

// newLogger builds the logger selected by --log-format and --verbose, falling
// back to the log section of the config file.
func newLogger(cmd *cobra.Command, cfg *config.ProjectConfig) (clusterha.Logger, func(), error) {
	format := globalFlags.logFormat
	if !cmd.Flags().Changed("log-format") && cfg.Log.Format != "" {
		format = cfg.Log.Format
	}

	switch logging.Format(format) {
	case logging.FormatConsole, "":
		return logging.NewConsoleLogger(globalFlags.verbose), func() {}, nil
	case logging.FormatJSON:
		level := cfg.Log.Level
		if globalFlags.verbose {
			level = "debug"
		}
		if level == "" {
			level = "info"
		}
		logger, err := logging.NewZapLogger(logging.Config{Level: level, Format: logging.FormatJSON, Output: "stderr"})
		if err != nil {
			return nil, nil, fmt.Errorf("%v: %w", err, clusterha.ErrInvalidConfig)
		}
		return logger, func() { _ = logger.Sync() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown log format %q: %w", format, clusterha.ErrInvalidConfig)
	}
}

// reportMetrics writes the retry counters of this run to the verbose log.
func reportMetrics(logger clusterha.Logger, registry *prometheus.Registry) {
	families, err := registry.Gather()
	if err != nil {
		logger.Verbose("gather metrics failed", clusterha.Err(err))
		return
	}

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, label := range metric.GetLabel() {
				labels = append(labels, label.GetName()+"="+label.GetValue())
			}
			sort.Strings(labels)

			logger.Verbose("metric",
				clusterha.String("name", family.GetName()),
				clusterha.String("labels", strings.Join(labels, ",")),
				clusterha.Any("value", metric.GetCounter().GetValue()),
			)
		}
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
