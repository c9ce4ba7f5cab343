package config

import (
	"log/slog"
	"sort"

	"github.com/jpalmerr/pushwatch"
)

// BuildOptions converts parsed configuration into SDK options for
// [pushwatch.New]. logger may be nil, in which case the SDK default is used.
func BuildOptions(cfg *Config, logger *slog.Logger) []pushwatch.Option {
	opts := []pushwatch.Option{
		pushwatch.WithPort(cfg.Port),
		pushwatch.WithPollingInterval(cfg.PollInterval.Duration()),
	}

	if cfg.Title != "" {
		opts = append(opts, pushwatch.WithTitle(cfg.Title))
	}

	if cfg.Timeout != 0 {
		opts = append(opts, pushwatch.WithTimeout(cfg.Timeout.Duration()))
	}

	if len(cfg.Headers) > 0 {
		opts = append(opts, pushwatch.WithHeaders(mapToKeyValuePairs(cfg.Headers)...))
	}

	if cfg.NoReload {
		opts = append(opts, pushwatch.WithSuppress(true))
	}

	if logger != nil {
		opts = append(opts, pushwatch.WithLogger(logger))
	}

	return opts
}

// BuildWatcher creates a [pushwatch.Watcher] from parsed configuration.
func BuildWatcher(cfg *Config, logger *slog.Logger) (*pushwatch.Watcher, error) {
	return pushwatch.New(cfg.PushURL, BuildOptions(cfg, logger)...)
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
