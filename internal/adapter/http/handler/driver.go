package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/google/uuid"
)

type DriverService interface {
	GoOnline(ctx context.Context, driverID uuid.UUID, latitude, longitude float64) (*models.Driver, error)
	GoOffline(ctx context.Context, driverID uuid.UUID) error
	UpdateLocation(ctx context.Context, driverID uuid.UUID, latitude, longitude float64) error
}

type Driver struct {
	service DriverService
	l       logger.Logger
}

func NewDriver(service DriverService, l logger.Logger) *Driver {
	return &Driver{
		service: service,
		l:       l,
	}
}

// readCoordinates decodes and validates a coordinate body. On failure the response is already written.
func (h *Driver) readCoordinates(ctx context.Context, w http.ResponseWriter, r *http.Request) (float64, float64, bool) {
	var req dto.Coordinates
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return 0, 0, false
	}
	if errs := validateStruct(&req); errs != nil {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, errs)
		return 0, 0, false
	}
	return *req.Latitude, *req.Longitude, true
}

// GoOnline godoc
// @Summary      Go online
// @Description  Marks the driver AVAILABLE at the given position
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string           true  "Driver ID"
// @Param        request  body      dto.Coordinates  true  "Current position"
// @Success      200      {object}  map[string]any
// @Failure      404      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Router       /drivers/{id}/online [post]
func (h *Driver) GoOnline(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionDriverOnline)

	driverID, err := parseID(r, "id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	ctx = wrap.WithDriverID(ctx, driverID.String())

	lat, lng, ok := h.readCoordinates(ctx, w, r)
	if !ok {
		return
	}

	driver, err := h.service.GoOnline(ctx, driverID, lat, lng)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to set driver status to online", err)
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{
		"status":  driver.Status,
		"message": "You are now online and ready to accept rides",
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
		return
	}

	h.l.Info(ctx, "driver set to online successfully")
}

// GoOffline godoc
// @Summary      Go offline
// @Description  Marks the driver UNAVAILABLE and removes them from the geo index
// @Tags         Drivers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Driver ID"
// @Success      200  {object}  map[string]any
// @Failure      409  {object}  map[string]any
// @Router       /drivers/{id}/offline [post]
func (h *Driver) GoOffline(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionDriverOffline)

	driverID, err := parseID(r, "id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	ctx = wrap.WithDriverID(ctx, driverID.String())

	if err := h.service.GoOffline(ctx, driverID); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to set driver status to offline", err)
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{
		"status":  types.DriverUnavailable,
		"message": "You are now offline",
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}

// UpdateLocation godoc
// @Summary      Update driver location
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string           true  "Driver ID"
// @Param        request  body      dto.Coordinates  true  "Current position"
// @Success      200      {object}  map[string]any
// @Failure      400      {object}  map[string]any
// @Router       /drivers/{id}/location [post]
func (h *Driver) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionLocationUpdate)

	driverID, err := parseID(r, "id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	ctx = wrap.WithDriverID(ctx, driverID.String())

	lat, lng, ok := h.readCoordinates(ctx, w, r)
	if !ok {
		return
	}

	if err := h.service.UpdateLocation(ctx, driverID, lat, lng); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to update driver location", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"driver_id": driverID, "latitude": lat, "longitude": lng}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}
