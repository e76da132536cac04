package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

type DispatchService interface {
	Nearby(ctx context.Context, at models.Location, radiusKm float64) ([]models.Candidate, error)
	FindCandidates(ctx context.Context, rider, destination models.Location, radiusKm float64) ([]models.Candidate, error)
}

type Dispatch struct {
	service       DispatchService
	defaultRadius float64
	l             logger.Logger
}

func NewDispatch(service DispatchService, defaultRadiusKm float64, l logger.Logger) *Dispatch {
	return &Dispatch{
		service:       service,
		defaultRadius: defaultRadiusKm,
		l:             l,
	}
}

// Candidates godoc
// @Summary      Find ride candidates
// @Description  Available drivers around the pickup point, each priced for the trip to the destination
// @Tags         Dispatch
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.CandidatesRequest  true  "Pickup, destination and search radius"
// @Success      200      {object}  map[string]any
// @Failure      400      {object}  map[string]any
// @Failure      502      {object}  map[string]any
// @Router       /rides/candidates [post]
func (h *Dispatch) Candidates(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionFindCandidates)

	var req dto.CandidatesRequest
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

	radius := req.RadiusKm
	if radius == 0 {
		radius = h.defaultRadius
	}

	pickup := models.Location{Latitude: *req.Pickup.Latitude, Longitude: *req.Pickup.Longitude}
	destination := models.Location{Latitude: *req.Destination.Latitude, Longitude: *req.Destination.Longitude}

	candidates, err := h.service.FindCandidates(ctx, pickup, destination, radius)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to find candidates", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"candidates": dto.NewCandidates(candidates)}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}

// Nearby godoc
// @Summary      Nearby drivers
// @Description  Dispatchable drivers within the radius ordered by distance, without fares
// @Tags         Dispatch
// @Produce      json
// @Security     BearerAuth
// @Param        lat     query     number  true   "Latitude"
// @Param        lng     query     number  true   "Longitude"
// @Param        radius  query     number  false  "Radius in km"
// @Success      200     {object}  map[string]any
// @Failure      400     {object}  map[string]any
// @Router       /drivers/nearby [get]
func (h *Dispatch) Nearby(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "nearby_drivers")

	q := r.URL.Query()
	if q.Get("lat") == "" || q.Get("lng") == "" {
		badRequestResponse(w, "query parameters lat and lng are required")
		return
	}

	lat, err := queryFloat(r, "lat", 0)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	lng, err := queryFloat(r, "lng", 0)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	radius, err := queryFloat(r, "radius", h.defaultRadius)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	at := models.Location{Latitude: lat, Longitude: lng}
	if !at.Valid() {
		serviceErrorResponse(w, types.ErrInvalidCoordinates)
		return
	}

	drivers, err := h.service.Nearby(ctx, at, radius)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to query nearby drivers", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"drivers": dto.NewNearby(drivers)}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}
