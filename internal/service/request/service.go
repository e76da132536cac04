package request

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/geo"
	"github.com/Temutjin2k/ride-dispatch/internal/service/notify"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
	"github.com/google/uuid"
)

const DefaultAcceptWindow = 2 * time.Minute

// Deps groups the collaborators of the ride request service. Router and Riders are optional.
type Deps struct {
	Requests RequestRepo
	Drivers  DriverGetter
	Rides    RideCreator
	Geocoder Geocoder
	Router   Router
	Pricer   Pricer
	Riders   RiderLocator
	Notifier Notifier
	Trm      trm.TxManager
	Clock    Clock
}

// Service drives a ride request from PENDING to exactly one terminal status.
type Service struct {
	requests RequestRepo
	drivers  DriverGetter
	rides    RideCreator
	geocoder Geocoder
	router   Router
	pricer   Pricer
	riders   RiderLocator
	notifier Notifier
	trm      trm.TxManager
	clock    Clock

	window   time.Duration
	watchdog *watchdog
	l        logger.Logger
}

func New(d Deps, acceptWindow time.Duration, l logger.Logger) *Service {
	if acceptWindow <= 0 {
		acceptWindow = DefaultAcceptWindow
	}
	if d.Clock == nil {
		d.Clock = RealClock()
	}

	return &Service{
		requests: d.Requests,
		drivers:  d.Drivers,
		rides:    d.Rides,
		geocoder: d.Geocoder,
		router:   d.Router,
		pricer:   d.Pricer,
		riders:   d.Riders,
		notifier: d.Notifier,
		trm:      d.Trm,
		clock:    d.Clock,
		window:   acceptWindow,
		watchdog: newWatchdog(d.Clock),
		l:        l,
	}
}

// Create offers a ride to the chosen driver. The request stays PENDING until the driver
// responds, the rider cancels or the accept window elapses.
func (s *Service) Create(ctx context.Context, in models.RideRequestInput) (*models.RideRequest, error) {
	ctx = wrap.WithAction(ctx, types.ActionRequestRide)
	ctx = wrap.WithUserID(ctx, in.UserID.String())
	ctx = wrap.WithDriverID(ctx, in.DriverID.String())

	if in.UserID == uuid.Nil || in.DriverID == uuid.Nil {
		return nil, wrap.Error(ctx, types.ErrInvalidID)
	}

	pickup, err := s.resolve(ctx, in.Pickup)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	destination, err := s.resolve(ctx, in.Destination)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	driver, err := s.drivers.Get(ctx, in.DriverID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if !driver.Dispatchable() {
		return nil, wrap.Error(ctx, types.ErrDriverUnavailable)
	}

	now := s.clock.Now()
	distance := geo.DistanceKm(pickup, destination)

	fare, err := s.pricer.Quote(ctx, distance, driver.Vehicle.Type, pickup.Latitude, pickup.Longitude, now)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	var eta int
	if s.router != nil {
		d, err := s.router.TravelTime(ctx, pickup, destination)
		if err != nil {
			s.l.Warn(ctx, "travel time lookup failed", "error", err)
			return nil, wrap.Error(ctx, types.ErrLocationUnresolvable)
		}
		eta = int(d.Minutes())
	}

	if s.riders != nil {
		if err := s.riders.Upsert(ctx, in.UserID, pickup.Latitude, pickup.Longitude); err != nil {
			s.l.Warn(ctx, "failed to record rider location", "error", err)
		}
	}

	req := &models.RideRequest{
		ID:          uuid.New(),
		UserID:      in.UserID,
		DriverID:    in.DriverID,
		VehicleType: driver.Vehicle.Type,
		Pickup:      pickup,
		Destination: destination,
		DistanceKm:  distance,
		ETAMinutes:  eta,
		Fare:        fare,
		Status:      types.RequestPending,
		ExpiresAt:   now.Add(s.window),
		CreatedAt:   now,
	}
	ctx = wrap.WithRequestID(ctx, req.ID.String())

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to create ride request: %w", err))
	}

	s.watchdog.schedule(req.ID, s.window, s.timeout)
	metrics.RideRequestTransitions.WithLabelValues(types.RequestPending.String()).Inc()
	s.notifier.Notify(ctx, notify.NewRideRequest(req.DriverID, req))

	s.l.Info(ctx, "ride request created", "distance_km", distance, "total_fare", fare.TotalFare, "expires_at", req.ExpiresAt)
	return req, nil
}

// resolve geocodes a location that has only an address.
func (s *Service) resolve(ctx context.Context, loc models.Location) (models.Location, error) {
	if loc.HasCoordinates() {
		if !loc.Valid() {
			return models.Location{}, types.ErrInvalidCoordinates
		}
		return loc, nil
	}
	if loc.Address == "" {
		return models.Location{}, types.ErrMissingLocation
	}
	if s.geocoder == nil {
		return models.Location{}, types.ErrLocationUnresolvable
	}

	resolved, err := s.geocoder.Geocode(ctx, loc.Address)
	if err != nil {
		s.l.Warn(ctx, "geocoding failed", "address", loc.Address, "error", err)
		return models.Location{}, types.ErrLocationUnresolvable
	}
	if !resolved.Valid() || !resolved.HasCoordinates() {
		return models.Location{}, types.ErrLocationUnresolvable
	}
	if resolved.Address == "" {
		resolved.Address = loc.Address
	}
	return resolved, nil
}

// Respond records the driver's answer. Accepting finalizes the request and creates the
// ride in one transaction; if the ride cannot be created the request stays PENDING.
func (s *Service) Respond(ctx context.Context, requestID, driverID uuid.UUID, accept bool) (*models.RideRequest, *models.Ride, error) {
	ctx = wrap.WithAction(ctx, types.ActionRespondRequest)
	ctx = wrap.WithRequestID(ctx, requestID.String())
	ctx = wrap.WithDriverID(ctx, driverID.String())

	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, nil, wrap.Error(ctx, err)
	}
	if req.DriverID != driverID {
		return nil, nil, wrap.Error(ctx, types.ErrNotRequestParticipant)
	}
	if req.Status.Terminal() {
		return nil, nil, wrap.Error(ctx, types.ErrRequestFinalized)
	}

	now := s.clock.Now()
	if req.Expired(now) {
		s.expire(ctx, req)
		return nil, nil, wrap.Error(ctx, types.ErrRequestExpired)
	}

	if !accept {
		if err := s.finalize(ctx, req, types.RequestRejected, now); err != nil {
			return nil, nil, wrap.Error(ctx, err)
		}
		s.notifier.Notify(ctx, notify.RideRejected(req.UserID))
		return req, nil, nil
	}

	var ride *models.Ride
	err = s.trm.Do(ctx, func(ctx context.Context) error {
		ok, err := s.requests.Finalize(ctx, req.ID, types.RequestAccepted, now)
		if err != nil {
			return fmt.Errorf("failed to finalize ride request: %w", err)
		}
		if !ok {
			return types.ErrRequestFinalized
		}

		ride, err = s.rides.CreateRide(ctx, models.CreateRideInput{
			RequestID:   req.ID,
			DriverID:    req.DriverID,
			RiderID:     req.UserID,
			Pickup:      req.Pickup,
			Destination: req.Destination,
		})
		return err
	})
	if err != nil {
		return nil, nil, wrap.Error(ctx, err)
	}

	s.watchdog.cancel(req.ID)
	req.Status = types.RequestAccepted
	req.FinalizedAt = &now
	req.RideID = &ride.ID
	metrics.RideRequestTransitions.WithLabelValues(types.RequestAccepted.String()).Inc()

	s.notifier.Notify(ctx, notify.RideAccepted(req.UserID, ride.ID))
	s.l.Info(ctx, "ride request accepted", "ride_id", ride.ID)
	return req, ride, nil
}

// Cancel withdraws a pending request on behalf of its rider.
func (s *Service) Cancel(ctx context.Context, requestID, userID uuid.UUID) (*models.RideRequest, error) {
	ctx = wrap.WithAction(ctx, types.ActionCancelRequest)
	ctx = wrap.WithRequestID(ctx, requestID.String())
	ctx = wrap.WithUserID(ctx, userID.String())

	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if req.UserID != userID {
		return nil, wrap.Error(ctx, types.ErrNotRequestParticipant)
	}
	if req.Status.Terminal() {
		return nil, wrap.Error(ctx, types.ErrRequestFinalized)
	}

	if err := s.finalize(ctx, req, types.RequestCancelled, s.clock.Now()); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.notifier.Notify(ctx, notify.RideCancelled(req.DriverID))
	return req, nil
}

// finalize moves req out of PENDING and stops its watchdog.
func (s *Service) finalize(ctx context.Context, req *models.RideRequest, status types.RideRequestStatus, at time.Time) error {
	ok, err := s.requests.Finalize(ctx, req.ID, status, at)
	if err != nil {
		return fmt.Errorf("failed to finalize ride request: %w", err)
	}
	if !ok {
		return types.ErrRequestFinalized
	}

	s.watchdog.cancel(req.ID)
	req.Status = status
	req.FinalizedAt = &at
	metrics.RideRequestTransitions.WithLabelValues(status.String()).Inc()

	s.l.Info(ctx, "ride request finalized", "status", status)
	return nil
}

// timeout is the watchdog callback.
func (s *Service) timeout(id uuid.UUID) {
	ctx := wrap.WithAction(context.Background(), types.ActionRequestTimeout)
	ctx = wrap.WithRequestID(ctx, id.String())

	req, err := s.requests.Get(ctx, id)
	if err != nil {
		s.l.Error(ctx, "failed to load ride request on timeout", err)
		return
	}
	if req.Status.Terminal() {
		return
	}
	s.expire(ctx, req)
}

// expire times out a pending request. Losing the race to another transition is not an error.
func (s *Service) expire(ctx context.Context, req *models.RideRequest) {
	err := s.finalize(ctx, req, types.RequestTimedOut, s.clock.Now())
	if errors.Is(err, types.ErrRequestFinalized) {
		return
	}
	if err != nil {
		s.l.Error(ctx, "failed to time out ride request", err)
		return
	}

	s.notifier.Notify(ctx, notify.RideTimedOut(req.UserID))
}

// Restore re-arms watchdogs for requests left PENDING by a previous process.
func (s *Service) Restore(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionRestorePending)

	pending, err := s.requests.ListPending(ctx)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to list pending requests: %w", err))
	}

	now := s.clock.Now()
	var expired int
	for i := range pending {
		req := &pending[i]
		if req.Expired(now) {
			s.expire(ctx, req)
			expired++
			continue
		}
		s.watchdog.schedule(req.ID, req.ExpiresAt.Sub(now), s.timeout)
	}

	s.l.Info(ctx, "pending ride requests restored", "total", len(pending), "expired", expired)
	return nil
}

// Stop cancels all watchdog timers. Pending requests are picked up again by Restore.
func (s *Service) Stop() {
	s.watchdog.stopAll()
}
