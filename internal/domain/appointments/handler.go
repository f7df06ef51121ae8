package appointments

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
	api.GET("/appointments", h.List)
	api.POST("/appointments", h.Create)
	api.GET("/appointments/:id", h.Get)
	api.PUT("/appointments/:id", h.Update)
	api.PATCH("/appointments/:id", h.Patch)
	api.DELETE("/appointments/:id", h.Delete)
	api.POST("/appointments/:id/reminders", h.SendReminder)
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

func filterFromQuery(c echo.Context) (Filter, error) {
	var f Filter
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = id
	}
	if status := c.QueryParam("status"); status != "" {
		if !validStatuses[status] {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		f.Status = status
	}
	f.DateFrom = c.QueryParam("date_from")
	f.DateTo = c.QueryParam("date_to")
	for _, d := range []string{f.DateFrom, f.DateTo} {
		if d != "" && !datePattern.MatchString(d) {
			return f, echo.NewHTTPError(http.StatusBadRequest, "date filters must be YYYY-MM-DD")
		}
	}
	return f, nil
}

func (h *Handler) Create(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &a); err != nil {
		return httpError(err, "appointment not found")
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err, "appointment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return httpError(err, "appointment not found")
	}
	total := len(items)
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(items, pg), total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.ID = id
	if err := h.svc.Update(c.Request().Context(), &a); err != nil {
		return httpError(err, "appointment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Patch(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	fields := map[string]any{}
	if err := c.Bind(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Patch(c.Request().Context(), id, fields)
	if err != nil {
		return httpError(err, "appointment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err, "appointment not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SendReminder(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	kind := c.QueryParam("kind")
	if err := h.svc.SendReminder(c.Request().Context(), id, kind); err != nil {
		return httpError(err, "appointment not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "sent"})
}
