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

type RequestService interface {
	Create(ctx context.Context, in models.RideRequestInput) (*models.RideRequest, error)
	Respond(ctx context.Context, requestID, driverID uuid.UUID, accept bool) (*models.RideRequest, *models.Ride, error)
	Cancel(ctx context.Context, requestID, userID uuid.UUID) (*models.RideRequest, error)
}

type RideRequest struct {
	service RequestService
	l       logger.Logger
}

func NewRideRequest(service RequestService, l logger.Logger) *RideRequest {
	return &RideRequest{
		service: service,
		l:       l,
	}
}

// Create godoc
// @Summary      Request a ride
// @Description  Offers the ride to the chosen driver. The request stays PENDING until the driver responds or the accept window elapses.
// @Tags         Ride requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.CreateRideRequest  true  "Driver, pickup and destination"
// @Success      201      {object}  models.RideRequest
// @Failure      400      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Router       /ride-requests [post]
func (h *RideRequest) Create(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRequestRide)
	user := models.UserFromContext(ctx)

	var req dto.CreateRideRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}
	if errs := validateStruct(&req); errs != nil {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, errs)
		return
	}

	rideReq, err := h.service.Create(ctx, req.ToModel(user.ID))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to create ride request", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"ride_request": rideReq}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}

// Respond godoc
// @Summary      Respond to a ride request
// @Description  The offered driver accepts or rejects. Accepting creates the ride.
// @Tags         Ride requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string              true  "Ride request ID"
// @Param        request  body      dto.RespondRequest  true  "Decision"
// @Success      200      {object}  map[string]any
// @Failure      404      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Router       /ride-requests/{id}/respond [post]
func (h *RideRequest) Respond(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRespondRequest)
	user := models.UserFromContext(ctx)

	requestID, err := parseID(r, "id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.RespondRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}
	if errs := validateStruct(&req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	rideReq, ride, err := h.service.Respond(ctx, requestID, user.ID, *req.Accept)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to respond to ride request", err)
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{"ride_request": rideReq}
	if ride != nil {
		response["ride"] = ride
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}

// Cancel godoc
// @Summary      Cancel a ride request
// @Description  The rider withdraws a pending request
// @Tags         Ride requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Ride request ID"
// @Success      200  {object}  models.RideRequest
// @Failure      404  {object}  map[string]any
// @Failure      409  {object}  map[string]any
// @Router       /ride-requests/{id}/cancel [post]
func (h *RideRequest) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionCancelRequest)
	user := models.UserFromContext(ctx)

	requestID, err := parseID(r, "id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	rideReq, err := h.service.Cancel(ctx, requestID, user.ID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to cancel ride request", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride_request": rideReq}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}
