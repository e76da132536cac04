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

type RideService interface {
	MarkPickup(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error)
	CompleteRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.RideCompletion, error)
	RateRide(ctx context.Context, rideID, userID uuid.UUID, score int, comment string) (*models.Rating, error)
}

type Ride struct {
	service RideService
	l       logger.Logger
}

func NewRide(service RideService, l logger.Logger) *Ride {
	return &Ride{
		service: service,
		l:       l,
	}
}

// Pickup godoc
// @Summary      Mark pickup
// @Description  The assigned driver picked up the rider. ACCEPTED -> IN_PROGRESS.
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Ride ID"
// @Success      200  {object}  models.Ride
// @Failure      404  {object}  map[string]any
// @Failure      409  {object}  map[string]any
// @Router       /rides/{id}/pickup [post]
func (h *Ride) Pickup(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionMarkPickup)
	user := models.UserFromContext(ctx)

	rideID, err := parseID(r, "id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	ride, err := h.service.MarkPickup(ctx, rideID, user.ID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to mark pickup", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride": ride}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}

// Complete godoc
// @Summary      Complete a ride
// @Description  IN_PROGRESS -> COMPLETED, then settles the fare. A failed settlement does not undo completion and is reported in payment_error.
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Ride ID"
// @Success      200  {object}  models.RideCompletion
// @Failure      404  {object}  map[string]any
// @Failure      409  {object}  map[string]any
// @Router       /rides/{id}/complete [post]
func (h *Ride) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionCompleteRide)
	user := models.UserFromContext(ctx)

	rideID, err := parseID(r, "id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	completion, err := h.service.CompleteRide(ctx, rideID, user.ID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to complete ride", err)
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{"ride": completion.Ride}
	if completion.Settlement != nil {
		response["settlement"] = completion.Settlement
	}
	if completion.PaymentErr != "" {
		response["payment_error"] = completion.PaymentErr
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}

// Rate godoc
// @Summary      Rate a ride
// @Description  The rider rates a completed ride once, from 1 to 5
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string               true  "Ride ID"
// @Param        request  body      dto.RateRideRequest  true  "Rating"
// @Success      201      {object}  models.Rating
// @Failure      400      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Router       /rides/{id}/rating [post]
func (h *Ride) Rate(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRateRide)
	user := models.UserFromContext(ctx)

	rideID, err := parseID(r, "id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.RateRideRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}
	if errs := validateStruct(&req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	rating, err := h.service.RateRide(ctx, rideID, user.ID, req.Rating, req.Comment)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to rate ride", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"rating": rating}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}
