package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mandapcloud/venuesearch/internal/db"
	"github.com/mandapcloud/venuesearch/internal/domain"
	"github.com/mandapcloud/venuesearch/internal/domain/search/query"
	"github.com/mandapcloud/venuesearch/internal/domain/search/result"
	"github.com/mandapcloud/venuesearch/internal/domain/venue"
)

// --- Mocks ---

type mockEngine struct {
	ensureErr  error
	searchPage *db.SearchPage
	searchErr  error

	searchCalls int
	upsertCalls int
	upserted    [][]db.DocumentItem
	failPerCall int
	upsertErr   error
}

func (m *mockEngine) EnsureIndex(_ context.Context) error { return m.ensureErr }

func (m *mockEngine) UpsertDocuments(_ context.Context, items []db.DocumentItem) (int, error) {
	m.upsertCalls++
	m.upserted = append(m.upserted, items)
	if m.upsertErr != nil {
		return len(items), m.upsertErr
	}
	failed := m.failPerCall
	if failed > len(items) {
		failed = len(items)
	}
	return failed, nil
}

func (m *mockEngine) Search(_ context.Context, _ *db.EngineQuery) (*db.SearchPage, error) {
	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchPage, nil
}

type mockVenueStore struct {
	searchRes   result.Result
	searchErr   error
	searchCalls int

	venues   []venue.Venue
	eachErr  error
	eachStop error
}

func (m *mockVenueStore) Search(_ context.Context, q *query.Query) (result.Result, error) {
	m.searchCalls++
	if m.searchErr != nil {
		return result.Result{}, m.searchErr
	}
	res := m.searchRes
	res.Page = q.Page()
	res.Limit = q.Limit()
	return res, nil
}

func (m *mockVenueStore) EachVenue(_ context.Context, fn func(venue.Venue) error) error {
	if m.eachErr != nil {
		return m.eachErr
	}
	for _, v := range m.venues {
		if err := fn(v); err != nil {
			return err
		}
	}
	return m.eachStop
}

func normalize(t *testing.T, p query.Params) *query.Query {
	t.Helper()

	q, err := query.NewNormalizer(20, 50).Normalize(p)
	if err != nil {
		t.Fatalf("unexpected normalize error: %v", err)
	}
	return &q
}

// --- Search ---

func TestSearch_EnginePath(t *testing.T) {
	engine := &mockEngine{searchPage: &db.SearchPage{
		Total: 1,
		Hits: []db.SearchHit{{
			Key: "venue:v1",
			Fields: map[string]string{
				"id": "v1", "name": "Lakeside Palace", "city": "Udaipur",
				"capacity": "300", "price": "250000",
				"amenities": "catering,parking", "rating": "4.5",
			},
		}},
	}}
	store := &mockVenueStore{}
	svc := New(engine, store, zap.NewNop())

	res, err := svc.Search(context.Background(), normalize(t, query.Params{City: "Udaipur"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.searchCalls != 0 {
		t.Error("expected fallback not to be called")
	}
	if res.Total != 1 || len(res.Items) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	item := res.Items[0]
	if item.ID != "v1" || item.Name != "Lakeside Palace" || item.City != "Udaipur" {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.Capacity != 300 || item.Price != 250000 || item.Rating != 4.5 {
		t.Errorf("unexpected numeric fields: %+v", item)
	}
	if len(item.Amenities) != 2 || item.Amenities[0] != "catering" {
		t.Errorf("unexpected amenities: %v", item.Amenities)
	}
	if res.Page != 1 || res.Limit != 20 {
		t.Errorf("expected page/limit echoed, got page=%d limit=%d", res.Page, res.Limit)
	}
}

func TestSearch_EngineFailureFallsBack(t *testing.T) {
	engine := &mockEngine{searchErr: errors.New("connection refused")}
	store := &mockVenueStore{searchRes: result.Result{Items: []result.VenueSummary{}, Total: 3}}
	svc := New(engine, store, zap.NewNop())

	res, err := svc.Search(context.Background(), normalize(t, query.Params{}))
	if err != nil {
		t.Fatalf("engine failure must not surface, got: %v", err)
	}

	if engine.searchCalls != 1 {
		t.Errorf("expected 1 engine call, got %d", engine.searchCalls)
	}
	if store.searchCalls != 1 {
		t.Errorf("expected 1 fallback call, got %d", store.searchCalls)
	}
	if res.Total != 3 {
		t.Errorf("expected fallback result, got %+v", res)
	}
}

func TestSearch_NilEngineUsesFallback(t *testing.T) {
	store := &mockVenueStore{searchRes: result.Result{Total: 2}}
	svc := New(nil, store, zap.NewNop())

	if svc.Enabled() {
		t.Error("expected Enabled() to be false with a nil engine")
	}

	_, err := svc.Search(context.Background(), normalize(t, query.Params{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.searchCalls != 1 {
		t.Errorf("expected fallback call, got %d", store.searchCalls)
	}
}

func TestSearch_DateAlwaysUsesFallback(t *testing.T) {
	engine := &mockEngine{searchPage: &db.SearchPage{}}
	store := &mockVenueStore{searchRes: result.Result{Total: 1}}
	svc := New(engine, store, zap.NewNop())

	_, err := svc.Search(context.Background(), normalize(t, query.Params{Date: "2026-11-20"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if engine.searchCalls != 0 {
		t.Error("date-filtered query must not reach the engine")
	}
	if store.searchCalls != 1 {
		t.Errorf("expected fallback call, got %d", store.searchCalls)
	}
}

func TestSearch_FallbackErrorSurfaces(t *testing.T) {
	store := &mockVenueStore{searchErr: errors.New("db down")}
	svc := New(nil, store, zap.NewNop())

	_, err := svc.Search(context.Background(), normalize(t, query.Params{}))
	if err == nil {
		t.Fatal("expected fallback error to surface")
	}
}

// --- ReindexAll ---

func makeVenues(n int) []venue.Venue {
	venues := make([]venue.Venue, n)
	for i := range venues {
		venues[i] = venue.Venue{
			ID:        string(rune('a' + i)),
			Name:      "Venue",
			CreatedAt: time.Unix(0, 0),
		}
	}
	return venues
}

func TestReindexAll_NilEngine(t *testing.T) {
	svc := New(nil, &mockVenueStore{}, zap.NewNop())

	_, err := svc.ReindexAll(context.Background())
	if !errors.Is(err, domain.ErrEngineDisabled) {
		t.Fatalf("expected ErrEngineDisabled, got %v", err)
	}
}

func TestReindexAll_EnsureIndexFailure(t *testing.T) {
	engine := &mockEngine{ensureErr: errors.New("timeout")}
	svc := New(engine, &mockVenueStore{}, zap.NewNop())

	_, err := svc.ReindexAll(context.Background())
	if !errors.Is(err, domain.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestReindexAll_BatchesAndCounts(t *testing.T) {
	engine := &mockEngine{}
	store := &mockVenueStore{venues: makeVenues(5)}
	svc := New(engine, store, zap.NewNop()).WithBatchSize(2)

	summary, err := svc.ReindexAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 5 venues at batch size 2: two full batches plus a final flush of one.
	if engine.upsertCalls != 3 {
		t.Errorf("expected 3 upsert calls, got %d", engine.upsertCalls)
	}
	if summary.Indexed != 5 || summary.Failed != 0 {
		t.Errorf("expected 5 indexed, got %+v", summary)
	}
}

func TestReindexAll_CountsPerItemFailures(t *testing.T) {
	engine := &mockEngine{failPerCall: 1}
	store := &mockVenueStore{venues: makeVenues(4)}
	svc := New(engine, store, zap.NewNop()).WithBatchSize(2)

	summary, err := svc.ReindexAll(context.Background())
	if err != nil {
		t.Fatalf("per-item failures must not abort the run, got: %v", err)
	}

	if summary.Indexed != 2 || summary.Failed != 2 {
		t.Errorf("expected indexed=2 failed=2, got %+v", summary)
	}
}

func TestReindexAll_WholeBatchFailureAborts(t *testing.T) {
	engine := &mockEngine{upsertErr: errors.New("connection reset")}
	store := &mockVenueStore{venues: makeVenues(3)}
	svc := New(engine, store, zap.NewNop()).WithBatchSize(10)

	_, err := svc.ReindexAll(context.Background())
	if !errors.Is(err, domain.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestReindexAll_RowStreamFailure(t *testing.T) {
	engine := &mockEngine{}
	store := &mockVenueStore{eachErr: errors.New("db down")}
	svc := New(engine, store, zap.NewNop())

	_, err := svc.ReindexAll(context.Background())
	if err == nil {
		t.Fatal("expected row stream failure to surface")
	}
}

func TestSearch_EngineHitFallsBackToKeyWhenIDMissing(t *testing.T) {
	engine := &mockEngine{searchPage: &db.SearchPage{
		Total: 1,
		Hits:  []db.SearchHit{{Key: "venue:v9", Fields: map[string]string{"name": "X"}}},
	}}
	svc := New(engine, &mockVenueStore{}, zap.NewNop())

	res, err := svc.Search(context.Background(), normalize(t, query.Params{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Items[0].ID != "venue:v9" {
		t.Errorf("expected hash key as fallback ID, got %q", res.Items[0].ID)
	}
}
