package venue

import (
	"reflect"
	"testing"
	"time"
)

func TestProject_Deterministic(t *testing.T) {
	v := Venue{
		ID:        "v1",
		Name:      "Lakeside Palace",
		City:      "Udaipur",
		State:     "RJ",
		Capacity:  300,
		Price:     250000,
		Amenities: []string{" parking", "catering ", "", "wifi"},
		Rating:    4.5,
		CreatedAt: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
	}

	first := Project(v)
	second := Project(v)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("projection is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}

	want := []string{"catering", "parking", "wifi"}
	if !reflect.DeepEqual(first.Amenities, want) {
		t.Errorf("expected trimmed sorted amenities %v, got %v", want, first.Amenities)
	}
	if first.CreatedAtMs != v.CreatedAt.UnixMilli() {
		t.Errorf("expected created_at %d, got %d", v.CreatedAt.UnixMilli(), first.CreatedAtMs)
	}
}

func TestDocument_Fields(t *testing.T) {
	d := Document{
		ID:          "v1",
		Name:        "Lakeside Palace",
		City:        "Udaipur",
		State:       "RJ",
		Capacity:    300,
		Price:       250000,
		Amenities:   []string{"catering", "parking"},
		Description: "on the lake",
		Rating:      4.5,
		CreatedAtMs: 1748781000000,
	}

	f := d.Fields()

	if f["capacity"] != "300" {
		t.Errorf("expected capacity 300, got %q", f["capacity"])
	}
	if f["price"] != "250000" {
		t.Errorf("expected price 250000, got %q", f["price"])
	}
	// Comma join must match the index TAG separator.
	if f["amenities"] != "catering,parking" {
		t.Errorf("expected comma-joined amenities, got %q", f["amenities"])
	}
	if f["rating"] != "4.5" {
		t.Errorf("expected rating 4.5, got %q", f["rating"])
	}
	if f["created_at"] != "1748781000000" {
		t.Errorf("expected created_at millis, got %q", f["created_at"])
	}
}
