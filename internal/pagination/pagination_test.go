package pagination

import (
	"net/http/httptest"
	"testing"
)

func TestParseParams(t *testing.T) {
	testCases := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{"defaults", "", DefaultPage, DefaultLimit},
		{"explicit values", "?page=3&limit=10", 3, 10},
		{"limit above max is clamped", "?limit=500", DefaultPage, MaxLimit},
		{"negative page falls back", "?page=-2", DefaultPage, DefaultLimit},
		{"garbage is ignored", "?page=abc&limit=xyz", DefaultPage, DefaultLimit},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/patients"+tc.query, nil)

			p := ParseParams(req)

			if p.Page != tc.wantPage {
				t.Errorf("Expected page %d, got %d", tc.wantPage, p.Page)
			}
			if p.Limit != tc.wantLimit {
				t.Errorf("Expected limit %d, got %d", tc.wantLimit, p.Limit)
			}
		})
	}
}

func TestRequested(t *testing.T) {
	if Requested(httptest.NewRequest("GET", "/patients", nil)) {
		t.Error("Expected no pagination for bare list request")
	}
	if !Requested(httptest.NewRequest("GET", "/patients?limit=5", nil)) {
		t.Error("Expected pagination when limit is given")
	}
	if !Requested(httptest.NewRequest("GET", "/patients?page=1", nil)) {
		t.Error("Expected pagination when page is given")
	}
}

func TestParamsMeta(t *testing.T) {
	p := Params{Page: 2, Limit: 10}

	if p.Offset() != 10 {
		t.Errorf("Expected offset 10, got %d", p.Offset())
	}

	meta := p.Meta(25)
	if meta.TotalPages != 3 {
		t.Errorf("Expected 3 pages, got %d", meta.TotalPages)
	}
	if !meta.HasNext || !meta.HasPrevious {
		t.Errorf("Expected both next and previous on middle page: %+v", meta)
	}

	empty := Params{Page: 1, Limit: 10}.Meta(0)
	if empty.TotalPages != 1 || empty.HasNext {
		t.Errorf("Unexpected meta for empty result: %+v", empty)
	}
}
