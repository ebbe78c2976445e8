// Package venue is the PostgreSQL venue store: the source of truth for venue
// rows, the relational fallback query path, and the row stream feeding the
// reindex pipeline.
package venue

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mandapcloud/venuesearch/internal/domain/search/query"
	"github.com/mandapcloud/venuesearch/internal/domain/search/result"
	domvenue "github.com/mandapcloud/venuesearch/internal/domain/venue"
)

// Repo is the pgx-backed venue repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a venue repository over an existing pool.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Ping is the lightweight relational round-trip used by health checks.
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (r *Repo) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := r.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Search executes the relational fallback query: identical filter semantics
// to the engine path, no full-text ranking, and authoritative date-based
// availability filtering.
func (r *Repo) Search(ctx context.Context, q *query.Query) (result.Result, error) {
	sql, args := buildSearchSQL(q)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return result.Result{}, fmt.Errorf("search venues: %w", err)
	}
	defer rows.Close()

	var (
		items []result.VenueSummary
		total int
	)
	for rows.Next() {
		var v result.VenueSummary
		if err := rows.Scan(&v.ID, &v.Name, &v.City, &v.Capacity, &v.Price, &v.Amenities, &v.Rating, &total); err != nil {
			return result.Result{}, fmt.Errorf("scan venue: %w", err)
		}
		if v.Amenities == nil {
			v.Amenities = []string{}
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return result.Result{}, fmt.Errorf("iterate venues: %w", err)
	}

	return result.New(items, total, q.Page(), q.Limit()), nil
}

// EachVenue streams every venue row to fn in id order. Used by the reindex
// pipeline so the whole table never has to sit in memory at once.
func (r *Repo) EachVenue(ctx context.Context, fn func(domvenue.Venue) error) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, city, state, capacity, price, amenities, description, rating, created_at
		 FROM venues ORDER BY id`)
	if err != nil {
		return fmt.Errorf("list venues: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v domvenue.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.City, &v.State, &v.Capacity, &v.Price,
			&v.Amenities, &v.Description, &v.Rating, &v.CreatedAt); err != nil {
			return fmt.Errorf("scan venue: %w", err)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return rows.Err()
}
