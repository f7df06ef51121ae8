package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func ctxWithQuery(t *testing.T, query string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(ctxWithQuery(t, ""))
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CapsLimit(t *testing.T) {
	p := FromContext(ctxWithQuery(t, "limit=5000"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_ParsesValues(t *testing.T) {
	p := FromContext(ctxWithQuery(t, "limit=5&offset=10"))
	if p.Limit != 5 || p.Offset != 10 {
		t.Errorf("unexpected params: %+v", p)
	}
}

func TestPage_Windows(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	got := Page(items, Params{Limit: 2, Offset: 1})
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("unexpected page: %v", got)
	}

	got = Page(items, Params{Limit: 10, Offset: 4})
	if len(got) != 1 || got[0] != 5 {
		t.Errorf("unexpected tail page: %v", got)
	}

	got = Page(items, Params{Limit: 10, Offset: 9})
	if len(got) != 0 {
		t.Errorf("expected empty page past the end, got %v", got)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	r := NewResponse(nil, 50, 20, 0)
	if !r.HasMore {
		t.Error("expected has_more true on first page")
	}
	r = NewResponse(nil, 50, 20, 40)
	if r.HasMore {
		t.Error("expected has_more false on last page")
	}
}
