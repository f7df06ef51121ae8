package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func setupHandler(t *testing.T) (*echo.Echo, *fixture) {
	t.Helper()
	f := newFixture(t)
	e := echo.New()
	NewHandler(f.svc).RegisterRoutes(e.Group("/api"))
	return e, f
}

func TestHandler_Summary(t *testing.T) {
	e, f := setupHandler(t)
	f.seed(t)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/summary", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var sum Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.TotalPatients != 3 {
		t.Errorf("expected 3 patients, got %d", sum.TotalPatients)
	}
}

func TestHandler_SummaryFiltered(t *testing.T) {
	e, f := setupHandler(t)
	f.seed(t)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/summary?carrier=aetna", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var sum Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.TotalPatients != 1 || sum.TotalAppointments != 2 {
		t.Errorf("carrier filter must narrow the figures, got %+v", sum)
	}
}

func TestHandler_Overview(t *testing.T) {
	e, f := setupHandler(t)
	f.seed(t)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/patients?carrier=blue", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Data  []PatientRow `json:"data"`
		Total int          `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Data[0].Name != "Jane Doe" {
		t.Errorf("unexpected overview: %+v", resp)
	}
}
