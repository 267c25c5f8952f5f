package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "unearthify/internal/auth/handler"
	authservice "unearthify/internal/auth/service"
	"unearthify/internal/auth/store/revocation"
	userstore "unearthify/internal/auth/store/user"
	"unearthify/internal/catalog/changefeed"
	cataloghandler "unearthify/internal/catalog/handler"
	"unearthify/internal/catalog/models"
	catalogservice "unearthify/internal/catalog/service"
	"unearthify/internal/catalog/store"
	"unearthify/internal/dashboard"
	jwttoken "unearthify/internal/jwt_token"
	"unearthify/internal/listing"
	"unearthify/internal/platform/blob"
	"unearthify/internal/platform/config"
	"unearthify/internal/platform/database"
	"unearthify/internal/platform/health"
	"unearthify/internal/platform/kafka/producer"
	"unearthify/internal/platform/metrics"
	"unearthify/internal/platform/redis"
	"unearthify/internal/platform/tracer"
	"unearthify/internal/seeder"
	"unearthify/pkg/platform/middleware/auth"
	"unearthify/pkg/platform/middleware/request"
)

// revocationStore is what both the auth service and the auth middleware need.
type revocationStore interface {
	authservice.RevocationList
	auth.TokenRevocationChecker
}

// app holds the wired dependencies of one server process.
type app struct {
	cfg      config.Server
	logger   *slog.Logger
	registry *prometheus.Registry

	db       *database.Pool
	redis    *redis.Client
	producer *producer.Producer
	trl      revocationStore

	users   authservice.UserStore
	docs    store.DocumentStore
	blobs   blob.Store
	feed    *changefeed.Feed
	tracer  tracer.Tracer
	metrics *metrics.Metrics
	jwt     *jwttoken.JWTService
	auth    *authservice.Service

	health   *health.Handler
	routes   []cataloghandler.Registrar
	seedData seeder.Catalog

	closers []func() error
}

// newApp connects to every configured backend. Postgres, Redis, Kafka and
// S3 are each optional and fall back to in-process implementations.
func newApp(ctx context.Context, cfg config.Server, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		feed:     changefeed.New(),
		tracer:   tracer.New("unearthify"),
		health:   health.New(cfg.Environment),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	if err := a.openStores(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.openRevocation(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.openBlobs(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.openFeed(); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.jwt = jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.TokenTTL.Duration)
	a.auth = authservice.NewService(a.users, a.jwt, a.trl,
		authservice.WithLogger(logger),
		authservice.WithMetrics(a.metrics),
	)
	a.mountCatalog()
	return a, nil
}

func (a *app) openStores(ctx context.Context) error {
	pool, err := database.New(ctx, database.Config{
		URL:             a.cfg.Database.URL,
		MaxOpenConns:    a.cfg.Database.MaxOpenConns,
		MaxIdleConns:    a.cfg.Database.MaxIdleConns,
		ConnMaxLifetime: a.cfg.Database.ConnMaxLifetime.Duration,
		Logger:          a.logger,
	})
	if err != nil {
		return err
	}
	if pool == nil {
		a.logger.Warn("DATABASE_URL not set, using in-memory stores")
		a.users = userstore.New()
		a.docs = store.NewInMemory()
		return nil
	}

	a.db = pool
	a.closers = append(a.closers, pool.Close)
	a.health.RegisterCheck("postgres", pool.Health)
	a.users = userstore.NewPostgres(pool.DB())
	a.docs = store.NewPostgres(pool.DB())
	return nil
}

func (a *app) openRevocation(ctx context.Context) error {
	rc, err := redis.New(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}
	if rc == nil {
		trl := revocation.NewInMemoryTRL()
		a.trl = trl
		a.closers = append(a.closers, func() error { trl.Close(); return nil })
		return nil
	}

	a.redis = rc
	a.closers = append(a.closers, rc.Close)
	a.health.RegisterCheck("redis", rc.Health)
	if err := rc.RegisterMetrics(a.registry); err != nil {
		return err
	}
	local := revocation.NewInMemoryTRL()
	a.closers = append(a.closers, func() error { local.Close(); return nil })
	a.metrics.SetBreakerOpen("revocation", false)
	a.trl = revocation.NewFailoverTRL(revocation.NewRedisTRL(rc.Client), local,
		revocation.WithFailoverLogger(a.logger),
		revocation.WithStateHook(func(open bool) { a.metrics.SetBreakerOpen("revocation", open) }),
	)
	return nil
}

func (a *app) openBlobs(ctx context.Context) error {
	if a.cfg.Blob.Bucket == "" {
		a.blobs = blob.NewMemoryStore()
		return nil
	}
	s3, err := blob.NewS3Store(ctx, blob.S3Config{
		Bucket:          a.cfg.Blob.Bucket,
		Region:          a.cfg.Blob.Region,
		Endpoint:        a.cfg.Blob.Endpoint,
		AccessKeyID:     a.cfg.Blob.AccessKeyID,
		SecretAccessKey: a.cfg.Blob.SecretAccessKey,
	})
	if err != nil {
		return err
	}
	a.blobs = s3
	return nil
}

func (a *app) openFeed() error {
	a.feed.Subscribe(changefeed.LogSink(a.logger))
	a.feed.Subscribe(changefeed.MetricsSink(a.metrics))
	if len(a.cfg.Kafka.Brokers) == 0 {
		return nil
	}

	p, err := producer.New(producer.Config{
		Brokers:         a.cfg.Kafka.Brokers,
		Topic:           a.cfg.Kafka.Topic,
		ClientID:        a.cfg.Kafka.ClientID,
		DeliveryTimeout: 10 * time.Second,
	}, a.logger)
	if err != nil {
		return err
	}
	a.producer = p
	a.closers = append(a.closers, p.Close)
	a.health.RegisterCheck("kafka", p.Health)
	a.feed.Subscribe(changefeed.KafkaSink(p, a.logger))
	return nil
}

func newCatalogService[E models.Entity](a *app, newFn func() E, fields listing.Fields[E]) *catalogservice.Service[E] {
	return catalogservice.New(
		store.NewRepository(a.docs, newFn, a.logger),
		fields,
		catalogservice.WithBlobStore(a.blobs),
		catalogservice.WithFeed(a.feed),
		catalogservice.WithTracer(a.tracer),
		catalogservice.WithLogger(a.logger),
	)
}

func mount[E models.Entity](a *app, newFn func() E, fields listing.Fields[E]) *catalogservice.Service[E] {
	svc := newCatalogService(a, newFn, fields)
	a.routes = append(a.routes, cataloghandler.New(svc, newFn, a.logger))
	return svc
}

func (a *app) mountCatalog() {
	artists := mount(a, func() *models.Artist { return &models.Artist{} }, models.ArtistFields())
	categories := mount(a, func() *models.Category { return &models.Category{} }, models.CategoryFields())
	artTypes := mount(a, func() *models.ArtType { return &models.ArtType{} }, models.ArtTypeFields())
	mount(a, func() *models.ArtDetail { return &models.ArtDetail{} }, models.ArtDetailFields())
	events := mount(a, func() *models.Event { return &models.Event{} }, models.EventFields())
	mount(a, func() *models.Contribution { return &models.Contribution{} }, models.ContributionFields())
	mount(a, func() *models.Application { return &models.Application{} }, models.ApplicationFields())
	mount(a, func() *models.Submission { return &models.Submission{} }, models.SubmissionFields())

	a.seedData = seeder.Catalog{
		Records:    a.docs,
		Categories: categories,
		ArtTypes:   artTypes,
		Artists:    artists,
		Events:     events,
	}
}

// seed creates the configured admin and, outside production, demo records.
func (a *app) seed(ctx context.Context) error {
	var opts []seeder.Option
	if a.cfg.Seed.Demo && !a.cfg.IsProduction() {
		opts = append(opts, seeder.WithDemoCatalog(a.seedData))
	}
	return seeder.New(a.auth, a.logger, opts...).SeedAll(ctx, seeder.AdminAccount{
		Email:    a.cfg.Seed.AdminEmail,
		Password: a.cfg.Seed.AdminPassword,
		FullName: a.cfg.Seed.AdminName,
	})
}

// Router builds the HTTP surface:
//
//	/health, /health/live, /health/ready   probes
//	/metrics                               prometheus
//	/api/auth/signin, /api/auth/signup     public
//	/api/images/*                          public
//	/api/...                               bearer token required
func (a *app) Router() (http.Handler, error) {
	proxies, err := a.cfg.Proxies()
	if err != nil {
		return nil, err
	}
	latency := request.NewMetrics(a.registry)

	r := chi.NewRouter()
	r.Use(request.Recovery(a.logger))
	r.Use(request.RequestID)
	r.Use(request.RequestTime)
	r.Use(request.ClientIP(proxies))
	r.Use(request.Logger(a.logger))
	r.Use(request.LatencyMiddleware(latency, routePattern))

	a.health.Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	authHandler := authhandler.New(a.auth, a.logger)
	validator := jwttoken.NewJWTServiceAdapter(a.jwt)

	r.Route("/api", func(r chi.Router) {
		if d := a.cfg.RequestTimeout.Duration; d > 0 {
			r.Use(request.Timeout(d))
		}
		r.Use(jsonOnly(a.cfg.BodyLimit))

		authHandler.Register(r)
		cataloghandler.NewImages(a.blobs, a.logger).Register(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(validator, a.trl, a.logger))
			authHandler.RegisterProtected(r)
			dashboard.New(dashboard.NewService(a.docs, a.users, a.logger), a.logger).Register(r)
			for _, h := range a.routes {
				h.Register(r)
			}
		})
	})
	return r, nil
}

// jsonOnly applies the JSON content-type check and body limit to every route
// except image uploads, which are multipart and bounded by their handler.
func jsonOnly(limit int64) func(http.Handler) http.Handler {
	bodyLimit := request.BodyLimit(limit)
	return func(next http.Handler) http.Handler {
		guarded := bodyLimit(request.ContentTypeJSON(next))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/image") {
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// Close releases backends in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("close: %w", errors.Join(errs...))
	}
	return nil
}
