package venue

import (
	"strings"
	"testing"

	"github.com/mandapcloud/venuesearch/internal/domain/search/query"
)

func mustNormalize(t *testing.T, p query.Params) *query.Query {
	t.Helper()

	q, err := query.NewNormalizer(20, 50).Normalize(p)
	if err != nil {
		t.Fatalf("unexpected normalize error: %v", err)
	}
	return &q
}

func TestBuildSearchSQL_NoFilters(t *testing.T) {
	q := mustNormalize(t, query.Params{})

	sql, args := buildSearchSQL(q)

	if strings.Contains(sql, "WHERE") {
		t.Errorf("expected no WHERE clause, got %q", sql)
	}
	if !strings.Contains(sql, "count(*) over() AS total") {
		t.Errorf("expected window total in select, got %q", sql)
	}
	if !strings.Contains(sql, "ORDER BY v.created_at DESC, v.id ASC") {
		t.Errorf("expected default ordering, got %q", sql)
	}
	if !strings.HasSuffix(sql, "LIMIT $1 OFFSET $2") {
		t.Errorf("expected trailing limit/offset, got %q", sql)
	}
	if len(args) != 2 || args[0] != 20 || args[1] != 0 {
		t.Errorf("expected args [20 0], got %v", args)
	}
}

func TestBuildSearchSQL_AllFilters(t *testing.T) {
	q := mustNormalize(t, query.Params{
		Text:      "palace",
		City:      "Udaipur",
		Guests:    "250",
		MinPrice:  "100000",
		MaxPrice:  "500000",
		Date:      "2026-11-20",
		Amenities: []string{"parking,wifi"},
		SortBy:    "price",
		SortDir:   "asc",
		Page:      "3",
		Limit:     "10",
	})

	sql, args := buildSearchSQL(q)

	for _, frag := range []string{
		"(v.name ILIKE $1 OR v.description ILIKE $1)",
		"v.city = $2",
		"v.capacity >= $3",
		"v.price >= $4",
		"v.price <= $5",
		"v.amenities @> $6",
		"NOT EXISTS (SELECT 1 FROM venue_bookings b WHERE b.venue_id = v.id AND b.booked_on = $7)",
		"ORDER BY v.price ASC, v.id ASC",
		"LIMIT $8 OFFSET $9",
	} {
		if !strings.Contains(sql, frag) {
			t.Errorf("expected SQL to contain %q, got:\n%s", frag, sql)
		}
	}

	if len(args) != 9 {
		t.Fatalf("expected 9 args, got %d: %v", len(args), args)
	}
	if args[0] != "%palace%" {
		t.Errorf("expected substring pattern, got %v", args[0])
	}
	if args[7] != 10 || args[8] != 20 {
		t.Errorf("expected limit 10 offset 20, got %v %v", args[7], args[8])
	}
}

func TestBuildSearchSQL_DateOnly(t *testing.T) {
	q := mustNormalize(t, query.Params{Date: "2026-11-20"})

	sql, args := buildSearchSQL(q)

	if !strings.Contains(sql, "NOT EXISTS (SELECT 1 FROM venue_bookings b") {
		t.Errorf("expected availability anti-join, got %q", sql)
	}
	if len(args) != 3 {
		t.Errorf("expected date plus limit/offset args, got %v", args)
	}
}

func TestOrderBy_Mapping(t *testing.T) {
	cases := []struct {
		sort query.Sort
		dir  query.Direction
		want string
	}{
		{query.SortPrice, query.Asc, "v.price ASC, v.id ASC"},
		{query.SortPrice, query.Desc, "v.price DESC, v.id ASC"},
		{query.SortCapacity, query.Asc, "v.capacity ASC, v.id ASC"},
		{query.SortCreatedAt, query.Desc, "v.created_at DESC, v.id ASC"},
	}

	for _, tc := range cases {
		if got := orderBy(tc.sort, tc.dir); got != tc.want {
			t.Errorf("orderBy(%s, %s) = %q, want %q", tc.sort, tc.dir, got, tc.want)
		}
	}
}
