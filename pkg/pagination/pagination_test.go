package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor(t, "")
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestFromContext_Explicit(t *testing.T) {
	p := paramsFor(t, "limit=50&offset=10")
	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("expected limit 50 offset 10, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContext_CapsAtMax(t *testing.T) {
	p := paramsFor(t, "limit=5000")
	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_PageForm(t *testing.T) {
	p := paramsFor(t, "page=2&limit=10")
	if p.Limit != 10 || p.Offset != 10 {
		t.Errorf("expected limit 10 offset 10 for page 2, got %d/%d", p.Limit, p.Offset)
	}
	p = paramsFor(t, "page=3")
	if p.Offset != 2*DefaultLimit {
		t.Errorf("expected offset %d for page 3, got %d", 2*DefaultLimit, p.Offset)
	}
	if p := paramsFor(t, "page=1&limit=10"); p.Offset != 0 {
		t.Errorf("page 1 is the first page, got offset %d", p.Offset)
	}
	if p := paramsFor(t, "page=0"); p.Offset != 0 {
		t.Errorf("expected offset 0 for page 0, got %d", p.Offset)
	}
}

func TestFromContext_OffsetWinsOverPage(t *testing.T) {
	p := paramsFor(t, "offset=30&page=2&limit=10")
	if p.Offset != 30 {
		t.Errorf("explicit offset must win, got %d", p.Offset)
	}
}

func TestFromContext_NegativeOffset(t *testing.T) {
	p := paramsFor(t, "offset=-5")
	if p.Offset != 0 {
		t.Errorf("expected offset 0 for negative input, got %d", p.Offset)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	r := NewResponse([]string{"a"}, 50, 20, 0)
	if !r.HasMore {
		t.Error("expected HasMore true when more rows remain")
	}
	r = NewResponse([]string{"a"}, 10, 20, 0)
	if r.HasMore {
		t.Error("expected HasMore false for final page")
	}
}

func TestParams_NextOffset(t *testing.T) {
	p := Params{Limit: 20, Offset: 40}
	if p.NextOffset() != 60 {
		t.Errorf("expected next offset 60, got %d", p.NextOffset())
	}
	if !p.HasNext(100) {
		t.Error("expected HasNext true for total 100")
	}
	if p.HasNext(60) {
		t.Error("expected HasNext false for total 60")
	}
}
