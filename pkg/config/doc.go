// Package config provides application configuration from a YAML file and
// environment variables.
//
// # Overview
//
// Defaults come first, then the optional YAML file, then CRITIQUE_* environment
// variables. Validate reports every problem at once.
//
// # Configuration Structure
//
// Server settings:
//
//	CRITIQUE_HOST="0.0.0.0"
//	CRITIQUE_PORT="8080"
//	CRITIQUE_HEALTH_PORT="9090"
//	CRITIQUE_REQUEST_TIMEOUT="30s"
//	CRITIQUE_CORS_ORIGINS="https://critique.example"
//
// Database settings:
//
//	CRITIQUE_DATABASE_URL="postgres://localhost:5432/critique?sslmode=disable"
//	CRITIQUE_DATABASE_REPLICA_URLS="postgres://replica1/critique,postgres://replica2/critique"
//	CRITIQUE_AUTO_MIGRATE="true"
//
// Auth and mail settings:
//
//	CRITIQUE_JWT_SECRET="at-least-32-characters-of-secret"
//	CRITIQUE_ACCESS_TOKEN_TTL="24h"
//	CRITIQUE_CONFIRMATION_CODE_TTL="24h"
//	CRITIQUE_MAIL_BACKEND="smtp"   # log, smtp
//	CRITIQUE_SMTP_HOST="smtp.example.com"
//
// Rate limiting (signup and token endpoints):
//
//	CRITIQUE_RATE_LIMIT_BACKEND="redis"   # memory, redis
//	CRITIQUE_REDIS_URL="redis://localhost:6379/0"
//
// Observability settings:
//
//	CRITIQUE_LOG_LEVEL="info"  # debug, info, warn, error
//	CRITIQUE_METRICS_ENABLED="true"
//	CRITIQUE_OTEL_ENABLED="true"
//	CRITIQUE_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadFile("critique.yaml")
//	if err != nil {
//		return err
//	}
//	cm, err := postgres.Open(cfg.StorageConfig(), logger)
//
// # Related Packages
//
//   - pkg/storage: Uses database and redis configuration
//   - pkg/observability: Uses observability configuration
package config
