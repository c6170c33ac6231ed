package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestFromContext(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", DefaultLimit, 0},
		{"?limit=10&offset=5", 10, 5},
		{"?limit=-1", DefaultLimit, 0},
		{"?limit=100000", MaxLimit, 0},
		{"?offset=-3", DefaultLimit, 0},
		{"?limit=abc", DefaultLimit, 0},
	}
	e := echo.New()
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		p := FromContext(c)
		if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
			t.Errorf("%q: got limit=%d offset=%d", tt.query, p.Limit, p.Offset)
		}
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	r := Page(items, Params{Limit: 2, Offset: 1})
	if len(r.Data) != 2 || r.Data[0] != 2 || r.Data[1] != 3 {
		t.Errorf("unexpected page: %v", r.Data)
	}
	if !r.HasMore || r.Total != 5 {
		t.Errorf("expected has_more and total 5, got %+v", r)
	}

	r = Page(items, Params{Limit: 10, Offset: 3})
	if len(r.Data) != 2 || r.HasMore {
		t.Errorf("tail page: %+v", r)
	}

	r = Page(items, Params{Limit: 10, Offset: 50})
	if r.Data == nil || len(r.Data) != 0 {
		t.Errorf("past the end should be an empty, non-nil page: %+v", r)
	}

	r = Page([]int(nil), Params{Limit: 10})
	if r.Data == nil || r.Total != 0 {
		t.Errorf("nil input: %+v", r)
	}
}

func TestPage_CopiesData(t *testing.T) {
	items := []int{1, 2, 3}
	r := Page(items, Params{Limit: 3})
	r.Data[0] = 99
	if items[0] != 1 {
		t.Error("Page must not alias the input")
	}
}

func TestParams_Navigation(t *testing.T) {
	p := Params{Limit: 10, Offset: 20}
	if !p.HasPrevious() || p.NextOffset() != 30 {
		t.Errorf("unexpected navigation: %+v", p)
	}
	if p.HasNext(30) {
		t.Error("offset 20 + limit 10 of 30 has no next page")
	}
}
