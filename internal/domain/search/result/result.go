// Package result defines the venue search result shape shared by the engine
// path and the relational fallback.
package result

// VenueSummary is one venue in a search result page.
type VenueSummary struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	City      string   `json:"city"`
	Capacity  int      `json:"capacity"`
	Price     int      `json:"price"`
	Amenities []string `json:"amenities"`
	Rating    float64  `json:"rating"`
}

// Result is an ordered page of venue summaries plus the total match count
// and the page parameters echoed back. Produced fresh per request.
type Result struct {
	Items []VenueSummary `json:"items"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// New builds a result page, never leaving Items nil so the JSON encoding is
// always an array.
func New(items []VenueSummary, total, page, limit int) Result {
	if items == nil {
		items = []VenueSummary{}
	}
	return Result{Items: items, Total: total, Page: page, Limit: limit}
}
