package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/geo"
	"github.com/Temutjin2k/ride-dispatch/pkg/keylock"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
	"github.com/google/uuid"
)

// Matcher finds priced candidates for a rider and binds a driver to a ride.
type Matcher struct {
	drivers  DriverRepo
	requests RequestRepo
	rides    RideRepo
	locator  Locator
	pricer   Pricer
	trm      trm.TxManager
	locks    *keylock.Keyed[uuid.UUID]
	now      func() time.Time
	l        logger.Logger
}

func New(drivers DriverRepo, requests RequestRepo, rides RideRepo, locator Locator, pricer Pricer, trm trm.TxManager, l logger.Logger) *Matcher {
	return &Matcher{
		drivers:  drivers,
		requests: requests,
		rides:    rides,
		locator:  locator,
		pricer:   pricer,
		trm:      trm,
		locks:    keylock.New[uuid.UUID](),
		now:      time.Now,
		l:        l,
	}
}

// Nearby returns dispatchable drivers around a point ordered as the geo index orders them.
func (m *Matcher) Nearby(ctx context.Context, at models.Location, radiusKm float64) ([]models.Candidate, error) {
	hits, err := m.locator.QueryRadius(ctx, at.Latitude, at.Longitude, radiusKm)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if len(hits) == 0 {
		return []models.Candidate{}, nil
	}

	ids := make([]uuid.UUID, len(hits))
	for i := range hits {
		ids[i] = hits[i].ID
	}
	drivers, err := m.drivers.GetMany(ctx, ids)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to load drivers: %w", err))
	}

	out := make([]models.Candidate, 0, len(hits))
	for _, h := range hits {
		d, ok := drivers[h.ID]
		if !ok || !d.Dispatchable() {
			continue
		}
		out = append(out, models.Candidate{
			Driver:     *d,
			DistanceKm: h.DistanceKm,
		})
	}
	return out, nil
}

// FindCandidates returns available drivers within radiusKm of the rider, each with a fare quote
// for the trip to destination. Ranking is by proximity to the rider.
func (m *Matcher) FindCandidates(ctx context.Context, rider, destination models.Location, radiusKm float64) ([]models.Candidate, error) {
	ctx = wrap.WithAction(ctx, types.ActionFindCandidates)

	if !rider.Valid() || !destination.Valid() {
		return nil, wrap.Error(ctx, types.ErrInvalidCoordinates)
	}

	candidates, err := m.Nearby(ctx, rider, radiusKm)
	if err != nil {
		return nil, err
	}

	tripKm := geo.DistanceKm(rider, destination)
	now := m.now()

	// тариф одинаков для всех водителей одного класса
	quotes := make(map[types.VehicleClass]models.FareBreakdown)
	priced := candidates[:0]
	for _, c := range candidates {
		class := c.Driver.Vehicle.Type

		q, ok := quotes[class]
		if !ok {
			q, err = m.pricer.Quote(ctx, tripKm, class, rider.Latitude, rider.Longitude, now)
			if errors.Is(err, types.ErrUnknownVehicle) {
				// водитель без тарифа не мешает остальным
				m.l.Warn(wrap.WithDriverID(ctx, c.Driver.ID.String()), "driver skipped: no rate for vehicle class", "vehicle", class)
				continue
			}
			if err != nil {
				return nil, wrap.Error(ctx, fmt.Errorf("failed to quote %s: %w", class, err))
			}
			quotes[class] = q
		}

		c.Fare = q
		c.TotalDistanceKm = models.Round2(c.DistanceKm + tripKm)
		priced = append(priced, c)
	}

	m.l.Debug(ctx, "candidates found", "count", len(priced), "radius_km", radiusKm)
	return priced, nil
}

// CreateRide binds the driver of an accepted request to a new ride. The request check,
// the driver status flip and the ride insert happen in one transaction; concurrent calls
// for the same driver are serialized and the loser gets ErrDriverUnavailable.
func (m *Matcher) CreateRide(ctx context.Context, in models.CreateRideInput) (*models.Ride, error) {
	ctx = wrap.WithAction(ctx, types.ActionCreateRide)
	ctx = wrap.WithDriverID(ctx, in.DriverID.String())

	if in.DriverID == uuid.Nil || in.RiderID == uuid.Nil || in.RequestID == uuid.Nil {
		return nil, wrap.Error(ctx, types.ErrInvalidID)
	}

	unlock := m.locks.Lock(in.DriverID)
	defer unlock()

	var ride *models.Ride
	fn := func(ctx context.Context) error {
		req, err := m.requests.Get(ctx, in.RequestID)
		if err != nil {
			if errors.Is(err, types.ErrRequestNotFound) {
				return types.ErrDriverUnavailable
			}
			return fmt.Errorf("failed to get ride request: %w", err)
		}
		if req.Status != types.RequestAccepted || req.DriverID != in.DriverID ||
			req.UserID != in.RiderID || req.RideID != nil {
			return types.ErrDriverUnavailable
		}

		driver, err := m.drivers.Get(ctx, in.DriverID)
		if err != nil {
			return err
		}
		if !driver.IsActive || driver.Vehicle == nil {
			return types.ErrDriverUnavailable
		}

		swapped, err := m.drivers.CompareAndSetStatus(ctx, in.DriverID, types.DriverAvailable, types.DriverUnavailable)
		if err != nil {
			return fmt.Errorf("failed to change driver status: %w", err)
		}
		if !swapped {
			return types.ErrDriverUnavailable
		}

		pickup, destination := in.Pickup, in.Destination
		if !pickup.HasCoordinates() {
			pickup = req.Pickup
		}
		if !destination.HasCoordinates() {
			destination = req.Destination
		}

		vehicleID := driver.Vehicle.ID
		ride = &models.Ride{
			ID:           uuid.New(),
			RequestID:    req.ID,
			UserID:       in.RiderID,
			DriverID:     in.DriverID,
			VehicleID:    &vehicleID,
			VehicleType:  driver.Vehicle.Type,
			Pickup:       pickup,
			Destination:  destination,
			DistanceKm:   req.DistanceKm,
			Fare:         req.Fare,
			Status:       types.RideAccepted,
			PaymentState: types.RidePaymentPending,
			CreatedAt:    m.now(),
		}
		if err := m.rides.Create(ctx, ride); err != nil {
			return fmt.Errorf("failed to create ride: %w", err)
		}

		if err := m.requests.LinkRide(ctx, req.ID, ride.ID); err != nil {
			return fmt.Errorf("failed to link ride to request: %w", err)
		}
		return nil
	}

	if err := m.trm.Do(ctx, fn); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	ctx = wrap.WithRideID(ctx, ride.ID.String())
	m.l.Info(ctx, "ride created", "request_id", in.RequestID.String())

	return ride, nil
}
