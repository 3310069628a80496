package pagination

import (
	"net/http"
	"strconv"
)

// Default pagination values
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params represents pagination query parameters
type Params struct {
	Page  int `json:"page"`  // 1-based
	Limit int `json:"limit"`
}

// Meta describes the page that was served.
type Meta struct {
	CurrentPage  int  `json:"current_page"`
	PerPage      int  `json:"per_page"`
	TotalPages   int  `json:"total_pages"`
	TotalRecords int  `json:"total_records"`
	HasNext      bool `json:"has_next"`
	HasPrevious  bool `json:"has_previous"`
}

// Requested reports whether the request carries page or limit query parameters.
func Requested(r *http.Request) bool {
	q := r.URL.Query()
	return q.Has("page") || q.Has("limit")
}

// ParseParams extracts pagination parameters from the query string, falling
// back to defaults for missing or malformed values.
func ParseParams(r *http.Request) Params {
	p := Params{Page: DefaultPage, Limit: DefaultLimit}

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if v, err := strconv.Atoi(pageStr); err == nil {
			p.Page = v
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil {
			p.Limit = v
		}
	}

	p.Validate()
	return p
}

// Validate clamps the parameters into the accepted range.
func (p *Params) Validate() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// Offset returns the SQL OFFSET for the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta computes the response metadata for totalRecords rows.
func (p Params) Meta(totalRecords int) Meta {
	totalPages := (totalRecords + p.Limit - 1) / p.Limit
	if totalPages < 1 {
		totalPages = 1
	}

	return Meta{
		CurrentPage:  p.Page,
		PerPage:      p.Limit,
		TotalPages:   totalPages,
		TotalRecords: totalRecords,
		HasNext:      p.Page < totalPages,
		HasPrevious:  p.Page > 1,
	}
}
