package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/clusterha/pkg/clusterha"
)

// Recognised connection option keys. Matching ignores case, '_' and '-', so
// reconnect_attempts, reconnectAttempts and reconnect-attempts are one key.
const (
	OptReconnectAttempts        = "reconnect_attempts"
	OptReconnectRetrySeconds    = "reconnect_retry_seconds"
	OptReconnectRetryMultiplier = "reconnect_retry_multiplier"
	OptReconnectMaxRetrySeconds = "reconnect_max_retry_seconds"
	OptReconnectJitter          = "reconnect_jitter"
)

// ParseOptions extracts the reconnect settings from opts and returns every
// other option unchanged.
func ParseOptions(opts map[string]string) (clusterha.RetryConfig, map[string]string, error) {
	cfg := clusterha.DefaultRetryConfig()
	passthrough := make(map[string]string)

	for key, raw := range opts {
		value := strings.TrimSpace(raw)
		var err error

		switch normalizeKey(key) {
		case normalizeKey(OptReconnectAttempts):
			cfg.MaxAttempts, err = strconv.Atoi(value)
		case normalizeKey(OptReconnectRetrySeconds):
			cfg.BaseInterval, err = parseSeconds(value)
		case normalizeKey(OptReconnectRetryMultiplier):
			cfg.Multiplier, err = strconv.ParseFloat(value, 64)
		case normalizeKey(OptReconnectMaxRetrySeconds):
			cfg.MaxInterval, err = parseSeconds(value)
		case normalizeKey(OptReconnectJitter):
			cfg.Jitter, err = strconv.ParseFloat(value, 64)
		default:
			passthrough[key] = raw
			continue
		}

		if err != nil {
			return clusterha.RetryConfig{}, nil, fmt.Errorf("option %s=%q: %v: %w", key, raw, err, clusterha.ErrInvalidConfig)
		}
	}

	if err := cfg.Validate(); err != nil {
		return clusterha.RetryConfig{}, nil, err
	}
	return cfg, passthrough, nil
}

func parseSeconds(s string) (time.Duration, error) {
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, errors.New("not a finite number of seconds")
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer("_", "", "-", "").Replace(key)
}
