package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Params are the raw, untyped request parameters as they arrive on the wire.
// Amenities may be repeated values, comma-delimited values, or both.
type Params struct {
	Text      string
	City      string
	Guests    string
	MinPrice  string
	MaxPrice  string
	Date      string
	Amenities []string
	SortBy    string
	SortDir   string
	Page      string
	Limit     string
}

// FieldError names one offending parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors is the full list of validation failures for a request.
// Normalization collects every offending field, not just the first.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "invalid search parameters: " + strings.Join(parts, "; ")
}

// Normalizer validates raw parameters into canonical queries.
type Normalizer struct {
	defaultLimit int
	maxLimit     int
}

// NewNormalizer creates a normalizer with the given pagination bounds.
// Non-positive values fall back to the package defaults.
func NewNormalizer(defaultLimit, maxLimit int) *Normalizer {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit <= 0 || maxLimit > MaxLimit {
		maxLimit = MaxLimit
	}
	return &Normalizer{defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// Normalize validates and canonicalizes raw parameters. On failure the
// returned error is a FieldErrors listing every offending field. Missing
// values get documented defaults; invalid values are never silently replaced.
func (n *Normalizer) Normalize(p Params) (Query, error) {
	var errs FieldErrors
	q := Query{
		text:    strings.TrimSpace(p.Text),
		city:    strings.TrimSpace(p.City),
		sortBy:  SortCreatedAt,
		sortDir: Desc,
		page:    1,
		limit:   n.defaultLimit,
	}

	if v, ok := parseIntField(&errs, "guests", p.Guests); ok {
		if v < 1 {
			errs = append(errs, FieldError{Field: "guests", Message: "must be at least 1"})
		} else {
			q.minGuests = &v
		}
	}

	minPrice, minOK := parseIntField(&errs, "minPrice", p.MinPrice)
	if minOK && minPrice < 0 {
		errs = append(errs, FieldError{Field: "minPrice", Message: "must not be negative"})
		minOK = false
	}
	maxPrice, maxOK := parseIntField(&errs, "maxPrice", p.MaxPrice)
	if maxOK && maxPrice < 0 {
		errs = append(errs, FieldError{Field: "maxPrice", Message: "must not be negative"})
		maxOK = false
	}
	// The range contradiction is its own failure, distinct from "not a
	// number", and it names both bounds.
	if minOK && maxOK && minPrice > maxPrice {
		errs = append(errs,
			FieldError{Field: "minPrice", Message: "must not exceed maxPrice"},
			FieldError{Field: "maxPrice", Message: "must not be less than minPrice"},
		)
	} else {
		if minOK {
			q.minPrice = &minPrice
		}
		if maxOK {
			q.maxPrice = &maxPrice
		}
	}

	if p.Date != "" {
		d, err := time.Parse(DateLayout, p.Date)
		if err != nil {
			errs = append(errs, FieldError{Field: "date", Message: "must be a calendar date (YYYY-MM-DD)"})
		} else {
			q.date = &d
		}
	}

	q.amenities = normalizeAmenities(p.Amenities)

	if p.SortBy != "" {
		s := Sort(p.SortBy)
		if !s.IsValid() {
			errs = append(errs, FieldError{
				Field:   "sortBy",
				Message: fmt.Sprintf("must be one of %s, %s, %s", SortPrice, SortCapacity, SortCreatedAt),
			})
		} else {
			q.sortBy = s
		}
	}

	if p.SortDir != "" {
		d := Direction(p.SortDir)
		if !d.IsValid() {
			errs = append(errs, FieldError{Field: "sortDir", Message: "must be asc or desc"})
		} else {
			q.sortDir = d
		}
	}

	if v, ok := parseIntField(&errs, "page", p.Page); ok {
		if v < 1 {
			errs = append(errs, FieldError{Field: "page", Message: "must be at least 1"})
		} else {
			q.page = v
		}
	}

	// Out-of-range limits are rejected, not clamped, so callers never get
	// fewer rows than they believe they asked for.
	if v, ok := parseIntField(&errs, "limit", p.Limit); ok {
		if v < 1 || v > n.maxLimit {
			errs = append(errs, FieldError{
				Field:   "limit",
				Message: fmt.Sprintf("must be between 1 and %d", n.maxLimit),
			})
		} else {
			q.limit = v
		}
	}

	if len(errs) > 0 {
		return Query{}, errs
	}
	return q, nil
}

// parseIntField parses an optional integer parameter. Returns ok=false when
// the value is absent or malformed; malformed values append a field error.
func parseIntField(errs *FieldErrors, field, raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		*errs = append(*errs, FieldError{Field: field, Message: "must be an integer"})
		return 0, false
	}
	return v, true
}
