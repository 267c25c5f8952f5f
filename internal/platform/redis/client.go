package redis

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"unearthify/internal/platform/config"
)

// Client wraps the go-redis client with a health check and pool metrics.
type Client struct {
	*redis.Client
}

// New connects using cfg. An empty URL returns (nil, nil): Redis is optional.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout.Duration > 0 {
		opts.DialTimeout = cfg.DialTimeout.Duration
	}
	if cfg.ReadTimeout.Duration > 0 {
		opts.ReadTimeout = cfg.ReadTimeout.Duration
	}
	if cfg.WriteTimeout.Duration > 0 {
		opts.WriteTimeout = cfg.WriteTimeout.Duration
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// RegisterMetrics exports go-redis pool statistics on reg.
func (c *Client) RegisterMetrics(reg prometheus.Registerer) error {
	stats := func(pick func(*redis.PoolStats) uint32) func() float64 {
		return func() float64 { return float64(pick(c.PoolStats())) }
	}
	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "unearthify_redis_pool_hits_total",
			Help: "Connections found idle in the pool",
		}, stats(func(s *redis.PoolStats) uint32 { return s.Hits })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "unearthify_redis_pool_misses_total",
			Help: "Connections that had to be dialed",
		}, stats(func(s *redis.PoolStats) uint32 { return s.Misses })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "unearthify_redis_pool_timeouts_total",
			Help: "Waits for a pooled connection that timed out",
		}, stats(func(s *redis.PoolStats) uint32 { return s.Timeouts })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "unearthify_redis_pool_total_conns",
			Help: "Connections currently in the pool",
		}, stats(func(s *redis.PoolStats) uint32 { return s.TotalConns })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "unearthify_redis_pool_idle_conns",
			Help: "Idle connections in the pool",
		}, stats(func(s *redis.PoolStats) uint32 { return s.IdleConns })),
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return fmt.Errorf("register redis metrics: %w", err)
		}
	}
	return nil
}
