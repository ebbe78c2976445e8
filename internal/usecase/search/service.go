// Package search owns the engine-vs-fallback decision for venue queries and
// the bulk reindex routine that keeps the engine in sync with the relational
// store.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mandapcloud/venuesearch/internal/db"
	"github.com/mandapcloud/venuesearch/internal/domain"
	"github.com/mandapcloud/venuesearch/internal/domain/reindex"
	"github.com/mandapcloud/venuesearch/internal/domain/search/query"
	"github.com/mandapcloud/venuesearch/internal/domain/search/result"
	"github.com/mandapcloud/venuesearch/internal/domain/venue"
	"github.com/mandapcloud/venuesearch/internal/metrics"
)

// DefaultBatchSize is the reindex upsert batch size.
const DefaultBatchSize = 100

// Service serves venue search from the engine when possible and from the
// relational fallback otherwise.
type Service struct {
	engine    Engine // nil when the engine is not configured
	venues    VenueStore
	logger    *zap.Logger
	batchSize int
}

// New creates a search service. engine may be nil.
func New(engine Engine, venues VenueStore, logger *zap.Logger) *Service {
	return &Service{
		engine:    engine,
		venues:    venues,
		logger:    logger,
		batchSize: DefaultBatchSize,
	}
}

// WithBatchSize configures the reindex upsert batch size.
func (s *Service) WithBatchSize(size int) *Service {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// Enabled reports whether the search engine is configured. This is the single
// capability check the API layer and the reindex runner rely on.
func (s *Service) Enabled() bool { return s.engine != nil }

// Search serves a canonical query. The engine handles it when it is
// configured and the query carries no date; date-filtered queries always go
// to the fallback because the engine has no availability model. An engine
// call failure is logged and absorbed: the fallback answers instead, so
// search stays available through engine outages.
func (s *Service) Search(ctx context.Context, q *query.Query) (result.Result, error) {
	_, hasDate := q.Date()

	if s.engine != nil && !hasDate {
		res, err := s.searchEngine(ctx, q)
		if err == nil {
			metrics.SearchRequestsTotal.WithLabelValues("engine").Inc()
			return res, nil
		}
		s.logger.Warn("engine search failed, serving relational fallback", zap.Error(err))
		metrics.EngineFallbacksTotal.Inc()
	}

	metrics.SearchRequestsTotal.WithLabelValues("fallback").Inc()
	return s.venues.Search(ctx, q)
}

// ReindexAll streams every venue row, projects it into an engine document,
// and bulk-upserts in batches. Per-item failures are counted and do not
// abort the run; the returned error is non-nil only when the engine (or the
// row stream) failed as a whole, which the job queue treats as retryable.
func (s *Service) ReindexAll(ctx context.Context) (reindex.Summary, error) {
	if s.engine == nil {
		return reindex.Summary{}, domain.ErrEngineDisabled
	}

	if err := s.engine.EnsureIndex(ctx); err != nil {
		return reindex.Summary{}, fmt.Errorf("%w: ensure index: %w", domain.ErrEngineUnavailable, err)
	}

	var summary reindex.Summary
	batch := make([]db.DocumentItem, 0, s.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		failed, err := s.engine.UpsertDocuments(ctx, batch)
		if err != nil {
			return fmt.Errorf("%w: upsert batch: %w", domain.ErrEngineUnavailable, err)
		}
		summary.Indexed += len(batch) - failed
		summary.Failed += failed
		batch = batch[:0]
		return nil
	}

	err := s.venues.EachVenue(ctx, func(v venue.Venue) error {
		doc := venue.Project(v)
		batch = append(batch, db.DocumentItem{ID: doc.ID, Fields: doc.Fields()})
		if len(batch) >= s.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return summary, err
	}
	if err := flush(); err != nil {
		return summary, err
	}

	metrics.ReindexDocumentsTotal.WithLabelValues("indexed").Add(float64(summary.Indexed))
	metrics.ReindexDocumentsTotal.WithLabelValues("failed").Add(float64(summary.Failed))

	s.logger.Info("bulk reindex finished",
		zap.Int("indexed", summary.Indexed),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// searchEngine translates the query and maps the raw engine page back into
// the shared result shape.
func (s *Service) searchEngine(ctx context.Context, q *query.Query) (result.Result, error) {
	eq := translate(q)

	page, err := s.engine.Search(ctx, eq)
	if err != nil {
		return result.Result{}, err
	}

	items := make([]result.VenueSummary, 0, len(page.Hits))
	for _, hit := range page.Hits {
		items = append(items, hitToSummary(hit))
	}
	return result.New(items, page.Total, q.Page(), q.Limit()), nil
}

// translate maps the canonical query onto the engine's query model. The date
// is intentionally not carried over: availability filtering belongs to the
// relational path alone.
func translate(q *query.Query) *db.EngineQuery {
	eq := &db.EngineQuery{
		Text:      q.Text(),
		City:      q.City(),
		Amenities: q.Amenities(),
		SortBy:    q.SortBy(),
		SortDir:   q.SortDir(),
		Offset:    q.Offset(),
		Limit:     q.Limit(),
	}
	if v, ok := q.MinGuests(); ok {
		eq.MinGuests = &v
	}
	if v, ok := q.MinPrice(); ok {
		eq.MinPrice = &v
	}
	if v, ok := q.MaxPrice(); ok {
		eq.MaxPrice = &v
	}
	return eq
}

func hitToSummary(hit db.SearchHit) result.VenueSummary {
	f := hit.Fields

	capacity, _ := strconv.Atoi(f["capacity"])
	price, _ := strconv.Atoi(f["price"])
	rating, _ := strconv.ParseFloat(f["rating"], 64)

	amenities := []string{}
	if raw := f["amenities"]; raw != "" {
		amenities = strings.Split(raw, ",")
	}

	id := f["id"]
	if id == "" {
		id = hit.Key
	}

	return result.VenueSummary{
		ID:        id,
		Name:      f["name"],
		City:      f["city"],
		Capacity:  capacity,
		Price:     price,
		Amenities: amenities,
		Rating:    rating,
	}
}
