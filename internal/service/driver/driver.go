package driver

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
	"github.com/google/uuid"
)

/*
Service handles driver availability and live positions.
A driver is visible to dispatch only while AVAILABLE and present in the geo index.
*/
type Service struct {
	repos         repos
	index         Index
	addressGetter GeoCoder
	trm           trm.TxManager
	l             logger.Logger
}

type repos struct {
	driver DriverRepo
	ride   RideRepo
}

// New returns a new instance of the driver service. addressGetter may be nil.
func New(driverRepo DriverRepo, rideRepo RideRepo, index Index, addressGetter GeoCoder, trm trm.TxManager, l logger.Logger) *Service {
	return &Service{
		repos: repos{
			driver: driverRepo,
			ride:   rideRepo,
		},
		index:         index,
		addressGetter: addressGetter,
		trm:           trm,
		l:             l,
	}
}

// GoOnline puts a driver into AVAILABLE mode at the given position.
func (s *Service) GoOnline(ctx context.Context, driverID uuid.UUID, latitude, longitude float64) (*models.Driver, error) {
	ctx = wrap.WithAction(ctx, types.ActionDriverOnline)
	ctx = wrap.WithDriverID(ctx, driverID.String())

	if !(models.Location{Latitude: latitude, Longitude: longitude}).Valid() {
		return nil, wrap.Error(ctx, types.ErrInvalidCoordinates)
	}

	var driver *models.Driver
	fn := func(ctx context.Context) error {
		var err error
		if driver, err = s.repos.driver.Get(ctx, driverID); err != nil {
			return err
		}
		if !driver.IsActive || driver.Vehicle == nil {
			return types.ErrDriverUnavailable
		}

		busy, err := s.repos.ride.HasActiveRide(ctx, driverID)
		if err != nil {
			return fmt.Errorf("failed to check active ride: %w", err)
		}
		if busy {
			return types.ErrDriverAlreadyOnRide
		}

		if err := s.repos.driver.SetStatus(ctx, driverID, types.DriverAvailable); err != nil {
			return fmt.Errorf("failed to change driver status: %w", err)
		}
		driver.Status = types.DriverAvailable
		return nil
	}

	// Execute logic within transaction
	if err := s.trm.Do(ctx, fn); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if err := s.index.Upsert(ctx, driverID, latitude, longitude); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to store driver location: %w", err))
	}

	s.l.Info(ctx, "driver is online", "address", s.address(ctx, latitude, longitude))
	return driver, nil
}

// GoOffline hides the driver from dispatch. A driver on a ride must finish it first.
func (s *Service) GoOffline(ctx context.Context, driverID uuid.UUID) error {
	ctx = wrap.WithAction(ctx, types.ActionDriverOffline)
	ctx = wrap.WithDriverID(ctx, driverID.String())

	fn := func(ctx context.Context) error {
		if _, err := s.repos.driver.Get(ctx, driverID); err != nil {
			return err
		}

		busy, err := s.repos.ride.HasActiveRide(ctx, driverID)
		if err != nil {
			return fmt.Errorf("failed to check active ride: %w", err)
		}
		if busy {
			return types.ErrDriverAlreadyOnRide
		}

		return s.repos.driver.SetStatus(ctx, driverID, types.DriverUnavailable)
	}

	if err := s.trm.Do(ctx, fn); err != nil {
		return wrap.Error(ctx, err)
	}

	if err := s.index.Remove(ctx, driverID); err != nil {
		s.l.Warn(ctx, "failed to remove driver location", "error", err)
	}

	s.l.Info(ctx, "driver is offline")
	return nil
}

// UpdateLocation records the latest position of a known driver. Last write wins.
func (s *Service) UpdateLocation(ctx context.Context, driverID uuid.UUID, latitude, longitude float64) error {
	ctx = wrap.WithAction(ctx, types.ActionLocationUpdate)
	ctx = wrap.WithDriverID(ctx, driverID.String())

	if !(models.Location{Latitude: latitude, Longitude: longitude}).Valid() {
		return wrap.Error(ctx, types.ErrInvalidCoordinates)
	}

	if _, err := s.repos.driver.Get(ctx, driverID); err != nil {
		return wrap.Error(ctx, err)
	}

	if err := s.index.Upsert(ctx, driverID, latitude, longitude); err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to store driver location: %w", err))
	}

	s.l.Debug(ctx, "driver location updated", "lat", latitude, "lng", longitude)
	return nil
}

// HandleLocation applies one message of the driver location stream.
func (s *Service) HandleLocation(ctx context.Context, msg models.LocationMessage) error {
	return s.UpdateLocation(ctx, msg.DriverID, msg.Lat, msg.Lng)
}

func (s *Service) address(ctx context.Context, latitude, longitude float64) string {
	if s.addressGetter == nil {
		return ""
	}
	address, err := s.addressGetter.GetAddress(ctx, longitude, latitude)
	if err != nil {
		s.l.Warn(ctx, "Failed to get address", "error", err.Error())
		return ""
	}
	return address
}
