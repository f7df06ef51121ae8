package appointments

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func setupHandler(t *testing.T) (*echo.Echo, *Service) {
	t.Helper()
	repo := NewJSONRepository(t.TempDir())
	svc := NewService(repo, &mockDirectory{email: "jane@example.org"}, testLogger())
	e := echo.New()
	NewHandler(svc).RegisterRoutes(e.Group("/api"))
	return e, svc
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const apptBody = `{"patient_id":1,"date":"2026-09-10","slot":"10:00-11:00"}`

func TestHandler_CreateAndGet(t *testing.T) {
	e, _ := setupHandler(t)

	rec := doRequest(e, http.MethodPost, "/api/appointments", apptBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var created Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID != 1 || created.Status != StatusUpcoming {
		t.Errorf("unexpected record: %+v", created)
	}

	rec = doRequest(e, http.MethodGet, "/api/appointments/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_CreateInvalid(t *testing.T) {
	e, _ := setupHandler(t)
	rec := doRequest(e, http.MethodPost, "/api/appointments", `{"patient_id":1,"date":"bad","slot":"10:00-11:00"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_GetMissing(t *testing.T) {
	e, _ := setupHandler(t)
	rec := doRequest(e, http.MethodGet, "/api/appointments/42", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_ListFilters(t *testing.T) {
	e, _ := setupHandler(t)
	seeds := []string{
		`{"patient_id":1,"date":"2026-09-10","slot":"09:00-10:00"}`,
		`{"patient_id":1,"date":"2026-09-12","slot":"10:00-11:00","status":"completed"}`,
		`{"patient_id":2,"date":"2026-09-15","slot":"11:00-12:00"}`,
	}
	for _, body := range seeds {
		if rec := doRequest(e, http.MethodPost, "/api/appointments", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed failed: %d %s", rec.Code, rec.Body)
		}
	}

	cases := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?patient_id=1", 2},
		{"?status=upcoming", 2},
		{"?date_from=2026-09-11&date_to=2026-09-14", 1},
	}
	for _, tc := range cases {
		rec := doRequest(e, http.MethodGet, "/api/appointments"+tc.query, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("query %q: expected 200, got %d", tc.query, rec.Code)
		}
		var resp struct {
			Data  []Appointment `json:"data"`
			Total int           `json:"total"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Total != tc.want {
			t.Errorf("query %q: expected %d, got %d", tc.query, tc.want, resp.Total)
		}
	}

	rec := doRequest(e, http.MethodGet, "/api/appointments?status=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad status filter, got %d", rec.Code)
	}
}

func TestHandler_PatchStatus(t *testing.T) {
	e, _ := setupHandler(t)
	doRequest(e, http.MethodPost, "/api/appointments", apptBody)

	rec := doRequest(e, http.MethodPatch, "/api/appointments/1", `{"status":"cancelled"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var a Appointment
	json.Unmarshal(rec.Body.Bytes(), &a)
	if a.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", a.Status)
	}
}

func TestHandler_Delete(t *testing.T) {
	e, _ := setupHandler(t)
	doRequest(e, http.MethodPost, "/api/appointments", apptBody)

	rec := doRequest(e, http.MethodDelete, "/api/appointments/1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec = doRequest(e, http.MethodGet, "/api/appointments/1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestHandler_SendReminder(t *testing.T) {
	e, svc := setupHandler(t)
	notifier := &mockNotifier{}
	svc.SetNotifier(notifier)
	doRequest(e, http.MethodPost, "/api/appointments", apptBody)

	rec := doRequest(e, http.MethodPost, "/api/appointments/1/reminders?kind=Reminder-60min", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	want := fmt.Sprintf("1:%s", Reminder60)
	if len(notifier.sent) != 1 || notifier.sent[0] != want {
		t.Errorf("expected %s, got %v", want, notifier.sent)
	}

	rec = doRequest(e, http.MethodPost, "/api/appointments/9/reminders", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing appointment, got %d", rec.Code)
	}
}
