package forms

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
)

func setupHandler(t *testing.T) *echo.Echo {
	t.Helper()
	dir := t.TempDir()
	svc := NewService(NewJSONRepository(dir), filepath.Join(dir, "uploads"), testLogger())
	svc.inspectPDF = func(path string) (int, error) { return 2, nil }
	e := echo.New()
	NewHandler(svc).RegisterRoutes(e.Group("/api"))
	return e
}

func multipartUpload(t *testing.T, patientID, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if patientID != "" {
		w.WriteField("patient_id", patientID)
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		io.WriteString(part, content)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func postUpload(e *echo.Echo, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/forms", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Upload(t *testing.T) {
	e := setupHandler(t)
	body, ct := multipartUpload(t, "1", "intake.pdf", "%PDF-1.7 body")

	rec := postUpload(e, body, ct)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var form Form
	if err := json.Unmarshal(rec.Body.Bytes(), &form); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if form.ID != 1 || form.PageCount != 2 {
		t.Errorf("unexpected record: %+v", form)
	}
}

func TestHandler_UploadRejections(t *testing.T) {
	e := setupHandler(t)

	body, ct := multipartUpload(t, "", "intake.pdf", "%PDF-1.7")
	if rec := postUpload(e, body, ct); rec.Code != http.StatusBadRequest {
		t.Errorf("missing patient_id: expected 400, got %d", rec.Code)
	}

	body, ct = multipartUpload(t, "1", "", "")
	if rec := postUpload(e, body, ct); rec.Code != http.StatusBadRequest {
		t.Errorf("missing file: expected 400, got %d", rec.Code)
	}

	body, ct = multipartUpload(t, "1", "intake.pdf", "plain text")
	if rec := postUpload(e, body, ct); rec.Code != http.StatusBadRequest {
		t.Errorf("non-PDF: expected 400, got %d", rec.Code)
	}
}

func TestHandler_Download(t *testing.T) {
	e := setupHandler(t)
	body, ct := multipartUpload(t, "1", "intake.pdf", "%PDF-1.7 download me")
	if rec := postUpload(e, body, ct); rec.Code != http.StatusCreated {
		t.Fatalf("upload failed: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/forms/1/download", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("download me")) {
		t.Error("download body does not match upload")
	}
}

func TestHandler_ProcessAndDelete(t *testing.T) {
	e := setupHandler(t)
	body, ct := multipartUpload(t, "1", "intake.pdf", "%PDF-1.7")
	postUpload(e, body, ct)

	req := httptest.NewRequest(http.MethodPost, "/api/forms/1/process", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("process: expected 200, got %d", rec.Code)
	}
	var form Form
	json.Unmarshal(rec.Body.Bytes(), &form)
	if !form.Processed {
		t.Error("expected processed true")
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/forms/1", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/forms/1", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}
