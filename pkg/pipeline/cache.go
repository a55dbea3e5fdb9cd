package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gel-ops/exifstrip/pkg/errors"
)

const (
	// DefaultCacheTTL bounds how long a fetched configuration is served
	// without consulting the parameter store.
	DefaultCacheTTL = 300 * time.Second

	// defaultMaxFileSize (10 MiB) is the fallback when the max-file-size
	// parameter does not parse as a positive integer.
	defaultMaxFileSize = 10 * 1024 * 1024
)

// ConfigCache fetches pipeline configuration from the parameter store and
// caches it for a fixed TTL. Refresh-on-expiry is serialized by a mutex;
// a fetch failure propagates and never serves a stale value.
type ConfigCache struct {
	params ParameterSource
	store  BlobStore
	prefix string
	ttl    time.Duration
	now    func() time.Time

	mu     sync.Mutex
	cached *Config
}

// NewConfigCache creates a config cache reading parameters under
// /{prefix}/ from the given source.
func NewConfigCache(params ParameterSource, store BlobStore, prefix string, ttl time.Duration) *ConfigCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ConfigCache{
		params: params,
		store:  store,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns the cached configuration when fresh, otherwise fetches,
// validates, and atomically replaces it. Errors carry KindConfig.
func (c *ConfigCache) Get(ctx context.Context) (*Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.cached != nil {
		age := now.Sub(c.cached.FetchedAt)
		if age < c.ttl {
			slog.Debug("config_cache_hit", "age_seconds", age.Seconds())
			return c.cached, nil
		}
		slog.Info("config_cache_expired", "age_seconds", age.Seconds())
		c.cached = nil
	}

	cfg, err := c.fetch(ctx, now)
	if err != nil {
		return nil, err
	}

	c.cached = cfg
	slog.Info("config_cache_refreshed",
		"source_bucket", cfg.SourceBucket,
		"destination_bucket", cfg.DestinationBucket,
		"max_file_size", cfg.MaxFileSize,
	)
	return cfg, nil
}

func (c *ConfigCache) fetch(ctx context.Context, now time.Time) (*Config, error) {
	names := []string{
		fmt.Sprintf("/%s/ingest-bucket", c.prefix),
		fmt.Sprintf("/%s/processed-bucket", c.prefix),
		fmt.Sprintf("/%s/processed-kms-key-arn", c.prefix),
		fmt.Sprintf("/%s/max-file-size", c.prefix),
	}

	values, err := c.params.GetParameters(ctx, names)
	if err != nil {
		return nil, errors.WithKind(errors.KindConfig, errors.Wrap(err, "parameter fetch failed"))
	}
	if len(values) != len(names) {
		slog.Error("config_parameter_count_mismatch", "expected", len(names), "got", len(values))
		return nil, errors.WithKind(errors.KindConfig,
			fmt.Errorf("expected %d parameters, got %d", len(names), len(values)))
	}

	cfg := &Config{
		SourceBucket:      values[names[0]],
		DestinationBucket: values[names[1]],
		KMSKeyARN:         values[names[2]],
		MaxFileSize:       parseMaxFileSize(values[names[3]]),
		FetchedAt:         now,
	}

	for _, bucket := range []struct{ name, value string }{
		{"ingest-bucket", cfg.SourceBucket},
		{"processed-bucket", cfg.DestinationBucket},
	} {
		if strings.TrimSpace(bucket.value) == "" {
			slog.Error("config_bucket_invalid", "parameter", bucket.name)
			return nil, errors.WithKind(errors.KindConfig,
				fmt.Errorf("%s must be a non-empty string", bucket.name))
		}
		if err := c.store.BucketExists(ctx, bucket.value); err != nil {
			slog.Error("config_bucket_unreachable", "parameter", bucket.name, "bucket", bucket.value, "error", err)
			return nil, errors.WithKind(errors.KindConfig,
				errors.Wrap(err, fmt.Sprintf("%s %q does not exist or access denied", bucket.name, bucket.value)))
		}
	}

	if strings.TrimSpace(cfg.KMSKeyARN) == "" {
		slog.Error("config_kms_key_missing")
		return nil, errors.WithKind(errors.KindConfig,
			fmt.Errorf("processed-kms-key-arn is required"))
	}

	return cfg, nil
}

// parseMaxFileSize parses the size-limit parameter, falling back to the
// built-in default when the value is not a positive integer. A malformed
// size limit is not worth failing the whole fetch over.
func parseMaxFileSize(value string) int64 {
	size, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || size <= 0 {
		slog.Warn("config_max_file_size_invalid", "value", value, "fallback", int64(defaultMaxFileSize))
		return defaultMaxFileSize
	}
	return size
}
