package service

import (
	"log/slog"

	"unearthify/internal/catalog/changefeed"
	"unearthify/internal/platform/blob"
	"unearthify/internal/platform/tracer"
)

type serviceConfig struct {
	blobs  blob.Store
	feed   *changefeed.Feed
	tracer tracer.Tracer
	logger *slog.Logger
}

type Option func(*serviceConfig)

// WithBlobStore enables image uploads. Without it image operations fail.
func WithBlobStore(b blob.Store) Option {
	return func(c *serviceConfig) {
		c.blobs = b
	}
}

func WithFeed(f *changefeed.Feed) Option {
	return func(c *serviceConfig) {
		c.feed = f
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *serviceConfig) {
		c.tracer = t
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}
