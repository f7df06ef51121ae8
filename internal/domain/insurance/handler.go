package insurance

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
	api.GET("/insurance", h.List)
	api.POST("/insurance", h.Create)
	api.GET("/insurance/carriers", h.Carriers)
	api.GET("/insurance/:id", h.Get)
	api.PUT("/insurance/:id", h.Update)
	api.PATCH("/insurance/:id", h.Patch)
	api.DELETE("/insurance/:id", h.Delete)
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

func (h *Handler) Create(c echo.Context) error {
	var p Policy
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &p); err != nil {
		return httpError(err, "policy not found")
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err, "policy not found")
	}
	return c.JSON(http.StatusOK, p)
}

// List serves both the plain listing and the carrier search. A patient_id
// filter takes precedence over the carrier query.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		items []*Policy
		err   error
	)
	if raw := c.QueryParam("patient_id"); raw != "" {
		patientID, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || patientID <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		items, err = h.svc.ForPatient(ctx, patientID)
	} else {
		items, err = h.svc.Search(ctx, c.QueryParam("carrier"))
	}
	if err != nil {
		return httpError(err, "policy not found")
	}
	pg := pagination.FromContext(c)
	total := len(items)
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(items, pg), total, pg.Limit, pg.Offset))
}

func (h *Handler) Carriers(c echo.Context) error {
	carriers, err := h.svc.Carriers(c.Request().Context())
	if err != nil {
		return httpError(err, "policy not found")
	}
	if carriers == nil {
		carriers = []string{}
	}
	return c.JSON(http.StatusOK, carriers)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var p Policy
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.Update(c.Request().Context(), &p); err != nil {
		return httpError(err, "policy not found")
	}
	return c.JSON(http.StatusOK, p)
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
	p, err := h.svc.Patch(c.Request().Context(), id, fields)
	if err != nil {
		return httpError(err, "policy not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err, "policy not found")
	}
	return c.NoContent(http.StatusNoContent)
}
