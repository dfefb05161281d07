package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ClientConfig holds configuration for the PostgreSQL client.
type ClientConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig(dsn string) ClientConfig {
	return ClientConfig{
		DSN:             dsn,
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// Client wraps a PostgreSQL connection pool.
type Client struct {
	pool *pgxpool.Pool
}

// NewClient creates a new PostgreSQL client with connection pooling.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{pool: pool}, nil
}

// schema creates the tables the service owns. Statements are idempotent and
// run in order; the ALTERs upgrade tables created before the list columns.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id              UUID PRIMARY KEY,
		email                TEXT NOT NULL DEFAULT '',
		display_name         TEXT NOT NULL DEFAULT '',
		ratings              JSONB NOT NULL DEFAULT '{}'::jsonb,
		total_ratings        INTEGER NOT NULL DEFAULT 0,
		watchlist            JSONB NOT NULL DEFAULT '[]'::jsonb,
		favorites            JSONB NOT NULL DEFAULT '[]'::jsonb,
		favorite_genres      JSONB NOT NULL DEFAULT '[]'::jsonb,
		total_movies_watched INTEGER NOT NULL DEFAULT 0,
		created_at           TIMESTAMPTZ NOT NULL,
		updated_at           TIMESTAMPTZ NOT NULL
	)`,
	`ALTER TABLE profiles ADD COLUMN IF NOT EXISTS watchlist JSONB NOT NULL DEFAULT '[]'::jsonb`,
	`ALTER TABLE profiles ADD COLUMN IF NOT EXISTS favorites JSONB NOT NULL DEFAULT '[]'::jsonb`,
	`ALTER TABLE profiles ADD COLUMN IF NOT EXISTS favorite_genres JSONB NOT NULL DEFAULT '[]'::jsonb`,
	`ALTER TABLE profiles ADD COLUMN IF NOT EXISTS total_movies_watched INTEGER NOT NULL DEFAULT 0`,
}

// EnsureSchema creates or upgrades the profiles table.
func (c *Client) EnsureSchema(ctx context.Context) error {
	return ensureSchema(ctx, c.pool)
}

func ensureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Pool returns the underlying connection pool.
// Use this for creating the profile repository.
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// Ping verifies the database connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close closes all connections in the pool.
func (c *Client) Close() {
	c.pool.Close()
}

// Stats returns connection pool statistics.
type Stats struct {
	AcquireCount         int64
	AcquiredConns        int32
	IdleConns            int32
	TotalConns           int32
	MaxConns             int32
	EmptyAcquireCount    int64
	CanceledAcquireCount int64
}

// Stats returns current connection pool statistics.
func (c *Client) Stats() Stats {
	s := c.pool.Stat()
	return Stats{
		AcquireCount:         s.AcquireCount(),
		AcquiredConns:        s.AcquiredConns(),
		IdleConns:            s.IdleConns(),
		TotalConns:           s.TotalConns(),
		MaxConns:             s.MaxConns(),
		EmptyAcquireCount:    s.EmptyAcquireCount(),
		CanceledAcquireCount: s.CanceledAcquireCount(),
	}
}
