package dashboard

import (
	"errors"
	"net/http"

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
	api.GET("/dashboard/summary", h.Summary)
	api.GET("/dashboard/patients", h.Overview)
}

func httpError(err error) error {
	if errors.Is(err, jsonstore.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) Summary(c echo.Context) error {
	sum, err := h.svc.Summary(c.Request().Context(), c.QueryParam("q"), c.QueryParam("carrier"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *Handler) Overview(c echo.Context) error {
	rows, err := h.svc.Overview(c.Request().Context(), c.QueryParam("q"), c.QueryParam("carrier"))
	if err != nil {
		return httpError(err)
	}
	pg := pagination.FromContext(c)
	total := len(rows)
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(rows, pg), total, pg.Limit, pg.Offset))
}
