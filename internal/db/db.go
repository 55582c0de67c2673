// Package db owns the process-wide Postgres connection pool. The handle is
// constructed once in main and injected; the underlying pool dials lazily on
// first use, exactly once, so request handlers never race the initialisation.
package db

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/draftstudio/auth-gateway/internal/errors"
)

// DialFunc opens a pgx pool for the given DSN.
type DialFunc func(ctx context.Context, url string) (*pgxpool.Pool, error)

// Handle is an application-lifetime database handle.
type Handle struct {
	url  string
	dial DialFunc

	once sync.Once
	pool *pgxpool.Pool
	err  error
}

// Option configures a Handle.
type Option func(*Handle)

// WithDialFunc overrides how the pool is opened (primarily for testing).
func WithDialFunc(dial DialFunc) Option {
	return func(h *Handle) {
		h.dial = dial
	}
}

// New returns a handle for the given DSN. The pool is not opened until the
// first Pool call.
func New(url string, options ...Option) *Handle {
	h := &Handle{
		url:  url,
		dial: pgxpool.New,
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

// Pool returns the shared connection pool, opening it on first call.
// Concurrent first calls still produce exactly one pool. A failed first open
// is sticky: the handle keeps returning the same error.
func (h *Handle) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	h.once.Do(func() {
		if h.url == "" {
			h.err = apperrors.Wrapf(apperrors.ErrDatabaseConnection,
				"DATABASE_URL is required but not set")
			return
		}
		h.pool, h.err = h.dial(ctx, h.url)
		if h.err != nil {
			h.err = apperrors.Wrapf(h.err, "db: open pool")
		}
	})
	return h.pool, h.err
}

// Close releases the pool if it was ever opened.
func (h *Handle) Close() {
	if h.pool != nil {
		h.pool.Close()
	}
}
