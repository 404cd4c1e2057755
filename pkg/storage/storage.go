package storage

import "time"

const (
	// DefaultPageSize is used when a list request gives no limit
	DefaultPageSize = 20
	// MaxPageSize caps the limit a client may request
	MaxPageSize = 100
)

// Page selects a window of a list
type Page struct {
	Limit  int
	Offset int
}

// NewPage normalizes client-supplied pagination: non-positive limits become
// DefaultPageSize, large limits are capped, and negative offsets become 0.
func NewPage(limit, offset int) Page {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}

// List is the envelope returned by every list endpoint
type List[T any] struct {
	Count   int64 `json:"count"`
	Results []T   `json:"results"`
}

// NewList builds a list envelope, never encoding results as null
func NewList[T any](count int64, results []T) *List[T] {
	if results == nil {
		results = []T{}
	}
	return &List[T]{Count: count, Results: results}
}

// Config for storage backends
type Config struct {
	// PostgreSQL config
	PostgresURL         string
	PostgresReplicaURLs []string
	PostgresMaxConns    int
	PostgresMinConns    int
	PostgresTimeout     time.Duration
	PostgresMaxLifetime time.Duration

	// Redis config, used by the distributed rate limiter
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		PostgresURL:         "postgres://localhost:5432/critique?sslmode=disable",
		PostgresMaxConns:    20,
		PostgresMinConns:    2,
		PostgresTimeout:     10 * time.Second,
		PostgresMaxLifetime: 30 * time.Minute,
		RedisDB:             0,
		RedisMaxRetries:     3,
		RedisPoolSize:       10,
	}
}
