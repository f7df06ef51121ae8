package forms

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/platform/jsonstore"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/forms", h.List)
	api.POST("/forms", h.Upload)
	api.GET("/forms/:id", h.Get)
	api.GET("/forms/:id/download", h.Download)
	api.POST("/forms/:id/process", h.MarkProcessed)
	api.PUT("/forms/:id/notes", h.UpdateNotes)
	api.DELETE("/forms/:id", h.Delete)
}

func httpError(err error, notFoundMsg string) error {
	var verr *jsonstore.ValidationError
	switch {
	case errors.Is(err, jsonstore.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, notFoundMsg)
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// Upload accepts a multipart form with a "file" part plus "patient_id" and
// optional "notes" fields.
func (h *Handler) Upload(c echo.Context) error {
	patientID, err := strconv.ParseInt(c.FormValue("patient_id"), 10, 64)
	if err != nil || patientID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file part")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file part")
	}
	defer src.Close()

	form, err := h.svc.Upload(c.Request().Context(), patientID, fh.Filename, src, c.FormValue("notes"))
	if err != nil {
		return httpError(err, "form not found")
	}
	return c.JSON(http.StatusCreated, form)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	form, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err, "form not found")
	}
	return c.JSON(http.StatusOK, form)
}

func (h *Handler) List(c echo.Context) error {
	var f Filter
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = id
	}
	if raw := c.QueryParam("processed"); raw != "" {
		processed, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid processed flag")
		}
		f.Processed = &processed
	}

	pg := pagination.FromContext(c)
	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return httpError(err, "form not found")
	}
	total := len(items)
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(items, pg), total, pg.Limit, pg.Offset))
}

func (h *Handler) Download(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	form, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err, "form not found")
	}
	return c.Attachment(form.FilePath, form.FileName)
}

func (h *Handler) MarkProcessed(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	form, err := h.svc.MarkProcessed(c.Request().Context(), id)
	if err != nil {
		return httpError(err, "form not found")
	}
	return c.JSON(http.StatusOK, form)
}

func (h *Handler) UpdateNotes(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	form, err := h.svc.UpdateNotes(c.Request().Context(), id, body.Notes)
	if err != nil {
		return httpError(err, "form not found")
	}
	return c.JSON(http.StatusOK, form)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err, "form not found")
	}
	return c.NoContent(http.StatusNoContent)
}
