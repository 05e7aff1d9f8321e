package handler

import (
	"net/http"
	"strconv"
	"time"

	md "github.com/campuskit/equipment-service/pkg/middleware"

	"github.com/campuskit/equipment-service/internal/errs"
	"github.com/campuskit/equipment-service/internal/model"
	"github.com/campuskit/equipment-service/pkg/validate"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Handler struct {
	svc EquipmentService
	log *zap.Logger
}

func New(svc EquipmentService, log *zap.Logger) *Handler {
	h := &Handler{
		svc: svc,
		log: log,
	}
	return h
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig()),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.GET("/inventory", h.GetItems)
	api.POST("/inventory", h.CreateItem)
	api.GET("/inventory/:itemUid", h.GetItem)
	api.PUT("/inventory/:itemUid", h.UpdateItem)
	api.DELETE("/inventory/:itemUid", h.DeleteItem)
	api.GET("/inventory/:itemUid/availability", h.GetAvailability)

	api.POST("/checkouts", h.CreateCheckout)
	api.POST("/checkouts/:checkoutUid/return", h.ReturnCheckout)

	api.POST("/requests", h.SubmitRequest)
	api.GET("/requests", h.GetRequests)
	api.GET("/requests/:requestUid", h.GetRequest)
	api.PUT("/requests/:requestUid", h.UpdateRequest)
	api.POST("/requests/:requestUid/messages", h.PostMessage)
	api.DELETE("/requests/:requestUid", h.DeleteRequest)

	api.GET("/events", h.GetEvents)
	api.POST("/events", h.CreateEvent)

	api.GET("/activity", h.GetActivity)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps the service error taxonomy onto status codes.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errs.IsInsufficientAvailability(err),
		errors.Is(err, errs.ErrAlreadyReturned),
		errors.Is(err, errs.ErrInvalidTransition),
		errors.Is(err, errs.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrActiveCheckouts):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) CreateItem(c echo.Context) error {
	var req model.CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	item, err := h.svc.CreateItem(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) UpdateItem(c echo.Context) error {
	itemUid := c.Param("itemUid")
	var req model.UpdateItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	item, err := h.svc.UpdateItem(c.Request().Context(), itemUid, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) GetItem(c echo.Context) error {
	item, err := h.svc.GetItem(c.Request().Context(), c.Param("itemUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) GetItems(c echo.Context) error {
	items, err := h.svc.ListItems(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DeleteItem(c echo.Context) error {
	if err := h.svc.DeleteItem(c.Request().Context(), c.Param("itemUid")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetAvailability(c echo.Context) error {
	av, err := h.svc.GetAvailability(c.Request().Context(), c.Param("itemUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, av)
}

func (h *Handler) CreateCheckout(c echo.Context) error {
	var req model.CreateCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	checkout, err := h.svc.CreateCheckout(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, checkout)
}

func (h *Handler) ReturnCheckout(c echo.Context) error {
	checkoutUid := c.Param("checkoutUid")
	if checkoutUid == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "checkoutUid is empty")
	}
	checkout, err := h.svc.ReturnCheckout(c.Request().Context(), checkoutUid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, checkout)
}

func (h *Handler) SubmitRequest(c echo.Context) error {
	var req model.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	created, err := h.svc.SubmitRequest(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetRequests(c echo.Context) error {
	reqs, err := h.svc.ListRequests(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, reqs)
}

func (h *Handler) GetRequest(c echo.Context) error {
	req, err := h.svc.GetRequest(c.Request().Context(), c.Param("requestUid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) UpdateRequest(c echo.Context) error {
	requestUid := c.Param("requestUid")
	var upd model.UpdateRequest
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(upd); err != nil {
		return err
	}
	req, err := h.svc.UpdateRequest(c.Request().Context(), requestUid, upd)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) PostMessage(c echo.Context) error {
	requestUid := c.Param("requestUid")
	var req model.PostMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	msg, err := h.svc.PostMessage(c.Request().Context(), requestUid, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *Handler) DeleteRequest(c echo.Context) error {
	if err := h.svc.DeleteRequest(c.Request().Context(), c.Param("requestUid")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateEvent(c echo.Context) error {
	var req model.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	ev, err := h.svc.CreateEvent(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, ev)
}

func (h *Handler) GetEvents(c echo.Context) error {
	ctx := c.Request().Context()
	if upcomingParam := c.QueryParam("upcoming"); upcomingParam != "" {
		upcoming, err := strconv.ParseBool(upcomingParam)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "upcoming is invalid")
		}
		if upcoming {
			occs, err := h.svc.UpcomingEvents(ctx, time.Now().UTC())
			if err != nil {
				return httpError(err)
			}
			return c.JSON(http.StatusOK, occs)
		}
	}
	events, err := h.svc.ListEvents(ctx)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, events)
}

func (h *Handler) GetActivity(c echo.Context) error {
	limit := 0
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		var err error
		if limit, err = strconv.Atoi(limitParam); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit is invalid")
		}
	}
	entries, err := h.svc.ListActivity(c.Request().Context(), limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entries)
}
