package venue

import (
	"fmt"
	"strings"

	"github.com/mandapcloud/venuesearch/internal/domain/search/query"
)

// searchColumns are the summary columns returned by the fallback search,
// plus a window total so one round-trip yields both page and match count.
const searchColumns = "v.id, v.name, v.city, v.capacity, v.price, v.amenities, v.rating, count(*) over() AS total"

// buildSearchSQL translates a canonical query into the fallback SELECT.
// Filter semantics mirror the engine translation exactly; free-text matching
// degrades to case-insensitive substring on name/description because the
// relational store has no ranking. Date-based availability is handled here
// and only here.
func buildSearchSQL(q *query.Query) (string, []any) {
	var (
		conds []string
		args  []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if text := q.Text(); text != "" {
		p := arg("%" + text + "%")
		conds = append(conds, fmt.Sprintf("(v.name ILIKE %s OR v.description ILIKE %s)", p, p))
	}
	if city := q.City(); city != "" {
		conds = append(conds, "v.city = "+arg(city))
	}
	if guests, ok := q.MinGuests(); ok {
		conds = append(conds, "v.capacity >= "+arg(guests))
	}
	if minPrice, ok := q.MinPrice(); ok {
		conds = append(conds, "v.price >= "+arg(minPrice))
	}
	if maxPrice, ok := q.MaxPrice(); ok {
		conds = append(conds, "v.price <= "+arg(maxPrice))
	}
	if amenities := q.Amenities(); len(amenities) > 0 {
		conds = append(conds, "v.amenities @> "+arg(amenities))
	}
	if date, ok := q.Date(); ok {
		conds = append(conds, fmt.Sprintf(
			"NOT EXISTS (SELECT 1 FROM venue_bookings b WHERE b.venue_id = v.id AND b.booked_on = %s)",
			arg(date)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(searchColumns)
	sb.WriteString(" FROM venues v")
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderBy(q.SortBy(), q.SortDir()))
	sb.WriteString(fmt.Sprintf(" LIMIT %s OFFSET %s", arg(q.Limit()), arg(q.Offset())))

	return sb.String(), args
}

// orderBy maps the sort enumeration to a column with an id tiebreak so
// pagination is stable across identical sort keys.
func orderBy(s query.Sort, d query.Direction) string {
	col := "v.created_at"
	switch s {
	case query.SortPrice:
		col = "v.price"
	case query.SortCapacity:
		col = "v.capacity"
	}

	dir := "DESC"
	if d == query.Asc {
		dir = "ASC"
	}
	return fmt.Sprintf("%s %s, v.id ASC", col, dir)
}
