// Package config loads server configuration from an optional TOML file
// (UNEARTHIFY_CONFIG) with environment variables taking precedence.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	strutil "unearthify/pkg/platform/strings"
	"unearthify/pkg/platform/validation"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string         `toml:"addr"`
	Environment    string         `toml:"environment"`
	LogLevel       string         `toml:"log_level"`
	JWTSigningKey  string         `toml:"jwt_signing_key"`
	JWTIssuer      string         `toml:"jwt_issuer"`
	TokenTTL       Duration       `toml:"token_ttl"`
	RequestTimeout Duration       `toml:"request_timeout"`
	BodyLimit      int64          `toml:"body_limit"`
	TrustedProxies []string       `toml:"trusted_proxies"`
	Database       DatabaseConfig `toml:"database"`
	Redis          RedisConfig    `toml:"redis"`
	Kafka          KafkaConfig    `toml:"kafka"`
	Blob           BlobConfig     `toml:"blob"`
	Seed           SeedConfig     `toml:"seed"`
}

// DatabaseConfig points at PostgreSQL. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL             string   `toml:"url"`
	MaxOpenConns    int      `toml:"max_open_conns"`
	MaxIdleConns    int      `toml:"max_idle_conns"`
	ConnMaxLifetime Duration `toml:"conn_max_lifetime"`
}

// RedisConfig points at the revocation list backend. An empty URL keeps
// revocations in process memory.
type RedisConfig struct {
	URL          string   `toml:"url"`
	PoolSize     int      `toml:"pool_size"`
	MinIdleConns int      `toml:"min_idle_conns"`
	DialTimeout  Duration `toml:"dial_timeout"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// KafkaConfig enables the change-feed sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers  []string `toml:"brokers"`
	Topic    string   `toml:"topic"`
	ClientID string   `toml:"client_id"`
}

// BlobConfig selects S3-compatible image storage when Bucket is set.
type BlobConfig struct {
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	PublicBaseURL   string `toml:"public_base_url"`
}

// SeedConfig describes the admin account created on an empty user store.
type SeedConfig struct {
	AdminEmail    string `toml:"admin_email"`
	AdminPassword string `toml:"admin_password"`
	AdminName     string `toml:"admin_name"`
	// Demo loads a handful of sample records into an empty catalog.
	Demo bool `toml:"demo"`
}

// Duration decodes TOML strings such as "15m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the development defaults.
func Default() Server {
	return Server{
		Addr:           ":8080",
		Environment:    "development",
		LogLevel:       "info",
		JWTSigningKey:  "dev-secret-key-change-in-production",
		JWTIssuer:      "unearthify",
		TokenTTL:       Duration{time.Hour},
		RequestTimeout: Duration{30 * time.Second},
		BodyLimit:      validation.MaxBodySize,
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration{5 * time.Minute},
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  Duration{5 * time.Second},
			ReadTimeout:  Duration{3 * time.Second},
			WriteTimeout: Duration{3 * time.Second},
		},
		Kafka: KafkaConfig{
			Topic:    "unearthify.records",
			ClientID: "unearthify-server",
		},
		Blob: BlobConfig{
			Region: "us-east-1",
		},
		Seed: SeedConfig{
			AdminName: "Administrator",
		},
	}
}

// Load reads the TOML file named by UNEARTHIFY_CONFIG (when set) over the
// defaults, then applies environment overrides.
func Load() (Server, error) {
	cfg := Default()
	if path := os.Getenv("UNEARTHIFY_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Server{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Server, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}
	dur := func(key string, dst *Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		dst.Duration = d
		return nil
	}

	str("UNEARTHIFY_ADDR", &cfg.Addr)
	str("UNEARTHIFY_ENV", &cfg.Environment)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("JWT_SIGNING_KEY", &cfg.JWTSigningKey)
	str("JWT_ISSUER", &cfg.JWTIssuer)
	list("TRUSTED_PROXIES", &cfg.TrustedProxies)
	str("DATABASE_URL", &cfg.Database.URL)
	str("REDIS_URL", &cfg.Redis.URL)
	list("KAFKA_BROKERS", &cfg.Kafka.Brokers)
	str("KAFKA_TOPIC", &cfg.Kafka.Topic)
	str("S3_BUCKET", &cfg.Blob.Bucket)
	str("S3_REGION", &cfg.Blob.Region)
	str("S3_ENDPOINT", &cfg.Blob.Endpoint)
	str("S3_ACCESS_KEY_ID", &cfg.Blob.AccessKeyID)
	str("S3_SECRET_ACCESS_KEY", &cfg.Blob.SecretAccessKey)
	str("S3_PUBLIC_BASE_URL", &cfg.Blob.PublicBaseURL)
	str("SEED_ADMIN_EMAIL", &cfg.Seed.AdminEmail)
	str("SEED_ADMIN_PASSWORD", &cfg.Seed.AdminPassword)
	str("SEED_ADMIN_NAME", &cfg.Seed.AdminName)

	if v, ok := lookup("SEED_DEMO"); ok && v != "" {
		demo, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SEED_DEMO: invalid value %q", v)
		}
		cfg.Seed.Demo = demo
	}

	if err := dur("TOKEN_TTL", &cfg.TokenTTL); err != nil {
		return err
	}
	if err := dur("REQUEST_TIMEOUT", &cfg.RequestTimeout); err != nil {
		return err
	}
	if v, ok := lookup("BODY_LIMIT"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("BODY_LIMIT: invalid value %q", v)
		}
		cfg.BodyLimit = n
	}
	return nil
}

func splitList(v string) []string {
	return strutil.DedupeAndTrim(strings.Split(v, ","))
}

// IsProduction reports whether dev conveniences must be disabled.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// Validate rejects configurations that are unsafe to serve.
func (s Server) Validate() error {
	if s.TokenTTL.Duration <= 0 {
		return fmt.Errorf("token_ttl must be positive")
	}
	if s.IsProduction() && s.JWTSigningKey == Default().JWTSigningKey {
		return fmt.Errorf("jwt_signing_key must be set in production")
	}
	if _, err := s.Proxies(); err != nil {
		return err
	}
	return nil
}

// Proxies parses TrustedProxies as CIDR prefixes.
func (s Server) Proxies() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, raw := range s.TrustedProxies {
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted_proxies: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}
