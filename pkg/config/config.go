package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/critique/pkg/observability"
	"github.com/platinummonkey/critique/pkg/storage"
)

// MinJWTSecretLength is the shortest accepted HS256 signing secret
const MinJWTSecretLength = 32

// Mail backends
const (
	MailBackendLog  = "log"
	MailBackendSMTP = "smtp"
)

// Rate limit backends
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	Mail          MailConfig          `yaml:"mail"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL         string        `yaml:"url"`
	ReplicaURLs []string      `yaml:"replica_urls"`
	MaxConns    int           `yaml:"max_conns"`
	MinConns    int           `yaml:"min_conns"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`
	AutoMigrate bool          `yaml:"auto_migrate"`
}

// RedisConfig holds Redis settings. Redis is optional; it backs the shared
// rate limiter and shows up in readiness checks when configured.
type RedisConfig struct {
	URL        string `yaml:"url"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	MaxRetries int    `yaml:"max_retries"`
	PoolSize   int    `yaml:"pool_size"`
}

// AuthConfig holds token settings
type AuthConfig struct {
	JWTSecret           string        `yaml:"jwt_secret"`
	AccessTokenTTL      time.Duration `yaml:"access_token_ttl"`
	ConfirmationCodeTTL time.Duration `yaml:"confirmation_code_ttl"`
}

// MailConfig selects and configures the confirmation code mailer
type MailConfig struct {
	Backend      string `yaml:"backend"`
	From         string `yaml:"from"`
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUsername string `yaml:"smtp_username"`
	SMTPPassword string `yaml:"smtp_password"`
}

// RateLimitConfig limits the open auth endpoints
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Backend           string        `yaml:"backend"`
	RequestsPerWindow int           `yaml:"requests_per_window"`
	Window            time.Duration `yaml:"window"`
	Burst             int           `yaml:"burst"`
	MaxKeys           int           `yaml:"max_keys"`
	TrustProxy        bool          `yaml:"trust_proxy"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel         string `yaml:"log_level"`
	AuditAllRequests bool   `yaml:"audit_all_requests"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"` // Use insecure gRPC connection
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// Default returns the configuration used when neither file nor environment set a value
func Default() *Config {
	storageDefaults := storage.DefaultConfig()

	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			HealthPort:      "9090",
		},
		Database: DatabaseConfig{
			URL:         storageDefaults.PostgresURL,
			MaxConns:    storageDefaults.PostgresMaxConns,
			MinConns:    storageDefaults.PostgresMinConns,
			Timeout:     storageDefaults.PostgresTimeout,
			MaxLifetime: storageDefaults.PostgresMaxLifetime,
		},
		Redis: RedisConfig{
			MaxRetries: storageDefaults.RedisMaxRetries,
			PoolSize:   storageDefaults.RedisPoolSize,
		},
		Auth: AuthConfig{
			AccessTokenTTL:      24 * time.Hour,
			ConfirmationCodeTTL: 24 * time.Hour,
		},
		Mail: MailConfig{
			Backend:  MailBackendLog,
			From:     "noreply@critique.local",
			SMTPPort: 587,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			Backend:           RateLimitBackendMemory,
			RequestsPerWindow: 20,
			Window:            time.Minute,
			Burst:             5,
			MaxKeys:           10000,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "critique",
			OTelServiceVersion: observability.Version,
			OTelInsecure:       true,
			OTelSampleRatio:    1.0,
		},
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	return load(Default())
}

// LoadFile loads a YAML file over the defaults; environment variables then
// override the file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return load(cfg)
}

func load(cfg *Config) (*Config, error) {
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides cfg with any CRITIQUE_* variables that are set
func applyEnv(cfg *Config) {
	s := &cfg.Server
	s.Host = getEnv("CRITIQUE_HOST", s.Host)
	s.Port = getEnv("CRITIQUE_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("CRITIQUE_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("CRITIQUE_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("CRITIQUE_IDLE_TIMEOUT", s.IdleTimeout)
	s.RequestTimeout = getEnvDuration("CRITIQUE_REQUEST_TIMEOUT", s.RequestTimeout)
	s.ShutdownTimeout = getEnvDuration("CRITIQUE_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxBodyBytes = getEnvInt64("CRITIQUE_MAX_BODY_BYTES", s.MaxBodyBytes)
	s.CORSOrigins = getEnvList("CRITIQUE_CORS_ORIGINS", s.CORSOrigins)
	s.HealthPort = getEnv("CRITIQUE_HEALTH_PORT", s.HealthPort)

	d := &cfg.Database
	d.URL = getEnv("CRITIQUE_DATABASE_URL", d.URL)
	d.ReplicaURLs = getEnvList("CRITIQUE_DATABASE_REPLICA_URLS", d.ReplicaURLs)
	d.MaxConns = getEnvInt("CRITIQUE_DATABASE_MAX_CONNS", d.MaxConns)
	d.MinConns = getEnvInt("CRITIQUE_DATABASE_MIN_CONNS", d.MinConns)
	d.Timeout = getEnvDuration("CRITIQUE_DATABASE_TIMEOUT", d.Timeout)
	d.MaxLifetime = getEnvDuration("CRITIQUE_DATABASE_MAX_LIFETIME", d.MaxLifetime)
	d.AutoMigrate = getEnvBool("CRITIQUE_AUTO_MIGRATE", d.AutoMigrate)

	r := &cfg.Redis
	r.URL = getEnv("CRITIQUE_REDIS_URL", r.URL)
	r.Password = getEnv("CRITIQUE_REDIS_PASSWORD", r.Password)
	r.DB = getEnvInt("CRITIQUE_REDIS_DB", r.DB)
	r.MaxRetries = getEnvInt("CRITIQUE_REDIS_MAX_RETRIES", r.MaxRetries)
	r.PoolSize = getEnvInt("CRITIQUE_REDIS_POOL_SIZE", r.PoolSize)

	a := &cfg.Auth
	a.JWTSecret = getEnv("CRITIQUE_JWT_SECRET", a.JWTSecret)
	a.AccessTokenTTL = getEnvDuration("CRITIQUE_ACCESS_TOKEN_TTL", a.AccessTokenTTL)
	a.ConfirmationCodeTTL = getEnvDuration("CRITIQUE_CONFIRMATION_CODE_TTL", a.ConfirmationCodeTTL)

	m := &cfg.Mail
	m.Backend = strings.ToLower(getEnv("CRITIQUE_MAIL_BACKEND", m.Backend))
	m.From = getEnv("CRITIQUE_MAIL_FROM", m.From)
	m.SMTPHost = getEnv("CRITIQUE_SMTP_HOST", m.SMTPHost)
	m.SMTPPort = getEnvInt("CRITIQUE_SMTP_PORT", m.SMTPPort)
	m.SMTPUsername = getEnv("CRITIQUE_SMTP_USERNAME", m.SMTPUsername)
	m.SMTPPassword = getEnv("CRITIQUE_SMTP_PASSWORD", m.SMTPPassword)

	rl := &cfg.RateLimit
	rl.Enabled = getEnvBool("CRITIQUE_RATE_LIMIT_ENABLED", rl.Enabled)
	rl.Backend = strings.ToLower(getEnv("CRITIQUE_RATE_LIMIT_BACKEND", rl.Backend))
	rl.RequestsPerWindow = getEnvInt("CRITIQUE_RATE_LIMIT_REQUESTS", rl.RequestsPerWindow)
	rl.Window = getEnvDuration("CRITIQUE_RATE_LIMIT_WINDOW", rl.Window)
	rl.Burst = getEnvInt("CRITIQUE_RATE_LIMIT_BURST", rl.Burst)
	rl.MaxKeys = getEnvInt("CRITIQUE_RATE_LIMIT_MAX_KEYS", rl.MaxKeys)
	rl.TrustProxy = getEnvBool("CRITIQUE_TRUST_PROXY", rl.TrustProxy)

	o := &cfg.Observability
	o.LogLevel = getEnv("CRITIQUE_LOG_LEVEL", o.LogLevel)
	o.AuditAllRequests = getEnvBool("CRITIQUE_AUDIT_ALL_REQUESTS", o.AuditAllRequests)
	o.MetricsEnabled = getEnvBool("CRITIQUE_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("CRITIQUE_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("CRITIQUE_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("CRITIQUE_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("CRITIQUE_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("CRITIQUE_OTEL_INSECURE", o.OTelInsecure)
	o.OTelSampleRatio = getEnvFloat("CRITIQUE_OTEL_SAMPLE_RATIO", o.OTelSampleRatio)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is required"))
	}
	if c.Server.HealthPort == "" {
		errs = append(errs, errors.New("health port is required"))
	}
	if c.Server.Port != "" && c.Server.Port == c.Server.HealthPort {
		errs = append(errs, errors.New("server port and health port must be different"))
	}

	if c.Database.URL == "" {
		errs = append(errs, errors.New("database URL is required"))
	}

	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT secret must be at least %d characters", MinJWTSecretLength))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("access token TTL must be positive"))
	}
	if c.Auth.ConfirmationCodeTTL <= 0 {
		errs = append(errs, errors.New("confirmation code TTL must be positive"))
	}

	switch c.Mail.Backend {
	case MailBackendLog:
	case MailBackendSMTP:
		if c.Mail.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP host is required for the smtp mail backend"))
		}
		if c.Mail.SMTPPort <= 0 {
			errs = append(errs, errors.New("SMTP port must be positive"))
		}
		if c.Mail.From == "" {
			errs = append(errs, errors.New("mail from address is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid mail backend: %s (must be log or smtp)", c.Mail.Backend))
	}

	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case RateLimitBackendMemory:
		case RateLimitBackendRedis:
			if c.Redis.URL == "" {
				errs = append(errs, errors.New("redis URL is required for the redis rate limit backend"))
			}
		default:
			errs = append(errs, fmt.Errorf("invalid rate limit backend: %s (must be memory or redis)", c.RateLimit.Backend))
		}
		if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("rate limit requests and window must be positive"))
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			errs = append(errs, errors.New("OpenTelemetry endpoint is required when OTel is enabled"))
		}
		if c.Observability.OTelServiceName == "" {
			errs = append(errs, errors.New("OpenTelemetry service name is required when OTel is enabled"))
		}
	}

	return errors.Join(errs...)
}

// StorageConfig converts the database and redis sections for the storage layer
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		PostgresURL:         c.Database.URL,
		PostgresReplicaURLs: c.Database.ReplicaURLs,
		PostgresMaxConns:    c.Database.MaxConns,
		PostgresMinConns:    c.Database.MinConns,
		PostgresTimeout:     c.Database.Timeout,
		PostgresMaxLifetime: c.Database.MaxLifetime,
		RedisURL:            c.Redis.URL,
		RedisPassword:       c.Redis.Password,
		RedisDB:             c.Redis.DB,
		RedisMaxRetries:     c.Redis.MaxRetries,
		RedisPoolSize:       c.Redis.PoolSize,
	}
}

// OTelConfig converts the observability section for observability.InitOTel
func (c *Config) OTelConfig() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.Observability.OTelEnabled,
		Endpoint:       c.Observability.OTelEndpoint,
		ServiceName:    c.Observability.OTelServiceName,
		ServiceVersion: c.Observability.OTelServiceVersion,
		Insecure:       c.Observability.OTelInsecure,
		SampleRatio:    c.Observability.OTelSampleRatio,
	}
}

// LogLevel returns the parsed log level
func (c *Config) LogLevel() observability.LogLevel {
	return observability.ParseLogLevel(c.Observability.LogLevel)
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var list []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}
		return list
	}
	return defaultValue
}
