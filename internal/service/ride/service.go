package ride

import (
	"context"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/notify"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
	"github.com/google/uuid"
)

/*
RideService moves a ride through ACCEPTED -> IN_PROGRESS -> COMPLETED,
updates the driver's totals and triggers settlement after completion.
*/
type RideService struct {
	repos      repos
	settler    Settler
	notifier   Notifier
	trm      trm.TxManager
	now      func() time.Time
	l        logger.Logger
}

type repos struct {
	ride   RideRepo
	driver DriverRepo
	rating RatingRepo
}

func NewRideService(rideRepo RideRepo, driverRepo DriverRepo, ratingRepo RatingRepo, settler Settler, notifier Notifier, trm trm.TxManager, l logger.Logger) *RideService {
	return &RideService{
		repos: repos{
			ride:   rideRepo,
			driver: driverRepo,
			rating: ratingRepo,
		},
		settler:  settler,
		notifier: notifier,
		trm:      trm,
		now:      time.Now,
		l:        l,
	}
}

// MarkPickup starts the ride once the driver has picked the rider up.
func (s *RideService) MarkPickup(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	ctx = wrap.WithAction(ctx, types.ActionMarkPickup)
	ctx = wrap.WithRideID(ctx, rideID.String())
	ctx = wrap.WithDriverID(ctx, driverID.String())

	ride, err := s.repos.ride.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if ride.DriverID != driverID {
		return nil, wrap.Error(ctx, types.ErrNotRideParticipant)
	}
	if !types.CanTransition(ride.Status, types.RideInProgress) {
		return nil, wrap.Error(ctx, types.ErrInvalidRideTransition)
	}

	now := s.now()
	ok, err := s.repos.ride.Start(ctx, rideID, now)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to start ride: %w", err))
	}
	if !ok {
		return nil, wrap.Error(ctx, types.ErrInvalidRideTransition)
	}

	ride.Status = types.RideInProgress
	ride.PickupTime = &now
	metrics.RideTransitions.WithLabelValues(types.RideInProgress.String()).Inc()

	s.notifier.Notify(ctx, notify.RideStarted(ride.UserID, ride.Destination.Address))
	s.l.Info(ctx, "ride started")
	return ride, nil
}

/*
CompleteRide finishes an IN_PROGRESS ride. The ride status, driver totals and
driver availability change together. Settlement runs afterwards: if it fails the
ride stays COMPLETED and is flagged UNPAID for reconciliation.
*/
func (s *RideService) CompleteRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.RideCompletion, error) {
	ctx = wrap.WithAction(ctx, types.ActionCompleteRide)
	ctx = wrap.WithRideID(ctx, rideID.String())
	ctx = wrap.WithDriverID(ctx, driverID.String())

	ride, err := s.repos.ride.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if ride.DriverID != driverID {
		return nil, wrap.Error(ctx, types.ErrNotRideParticipant)
	}
	if !types.CanTransition(ride.Status, types.RideCompleted) {
		return nil, wrap.Error(ctx, types.ErrInvalidRideTransition)
	}
	if ride.PickupTime == nil {
		s.l.Error(ctx, "in-progress ride has no pickup time", types.ErrPickupTimeMissing)
		return nil, wrap.Error(ctx, types.ErrPickupTimeMissing)
	}

	now := s.now()
	minutes := int(now.Sub(*ride.PickupTime).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	// earnings считаются по полной стоимости поездки, доля водителя видна в кошельке
	earnings := models.FromAmount(ride.Fare.TotalFare)

	fn := func(ctx context.Context) error {
		ok, err := s.repos.ride.Complete(ctx, rideID, now, minutes)
		if err != nil {
			return fmt.Errorf("failed to complete ride: %w", err)
		}
		if !ok {
			return types.ErrInvalidRideTransition
		}

		if err := s.repos.driver.AddTotals(ctx, driverID, models.TotalsDelta{
			DistanceKm: ride.DistanceKm,
			Minutes:    minutes,
			Earnings:   earnings,
		}); err != nil {
			return fmt.Errorf("failed to update driver totals: %w", err)
		}

		if err := s.repos.driver.SetStatus(ctx, driverID, types.DriverAvailable); err != nil {
			return fmt.Errorf("failed to release driver: %w", err)
		}
		return nil
	}

	if err := s.trm.Do(ctx, fn); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	ride.Status = types.RideCompleted
	ride.DropTime = &now
	ride.DurationMinutes = minutes
	metrics.RideTransitions.WithLabelValues(types.RideCompleted.String()).Inc()
	s.notifier.Notify(ctx, notify.RideCompleted(ride.UserID, ride.Fare.TotalFare))
	s.l.Info(ctx, "ride completed", "duration_minutes", minutes, "distance_km", ride.DistanceKm)

	result := &models.RideCompletion{Ride: ride}

	settlement, err := s.settler.SettleRide(ctx, driverID, ride.UserID, rideID)
	if err != nil {
		s.l.Error(ctx, "ride settlement failed", err)
		if stateErr := s.repos.ride.SetPaymentState(ctx, rideID, types.RidePaymentUnpaid); stateErr != nil {
			s.l.Error(ctx, "failed to flag ride as unpaid", stateErr)
		}
		ride.PaymentState = types.RidePaymentUnpaid
		result.PaymentErr = err.Error()
		s.notifier.Notify(ctx, notify.PaymentFailed(ride.UserID, err.Error()))
		return result, nil
	}

	ride.PaymentState = types.RidePaymentPaid
	result.Settlement = settlement
	return result, nil
}

// RateRide stores the rider's score for a completed ride and refreshes the driver's average.
func (s *RideService) RateRide(ctx context.Context, rideID, userID uuid.UUID, score int, comment string) (*models.Rating, error) {
	ctx = wrap.WithAction(ctx, types.ActionRateRide)
	ctx = wrap.WithRideID(ctx, rideID.String())
	ctx = wrap.WithUserID(ctx, userID.String())

	if score < 1 || score > 5 {
		return nil, wrap.Error(ctx, types.ErrInvalidRating)
	}

	ride, err := s.repos.ride.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if ride.UserID != userID {
		return nil, wrap.Error(ctx, types.ErrNotRideParticipant)
	}
	if ride.Status != types.RideCompleted {
		return nil, wrap.Error(ctx, types.ErrRideNotCompleted)
	}

	rating := &models.Rating{
		ID:        uuid.New(),
		RideID:    rideID,
		DriverID:  ride.DriverID,
		UserID:    userID,
		Score:     score,
		Comment:   comment,
		CreatedAt: s.now(),
	}

	err = s.trm.Do(ctx, func(ctx context.Context) error {
		if err := s.repos.rating.Create(ctx, rating); err != nil {
			return err
		}
		avg, err := s.repos.rating.Average(ctx, ride.DriverID)
		if err != nil {
			return fmt.Errorf("failed to compute driver rating: %w", err)
		}
		return s.repos.driver.SetRating(ctx, ride.DriverID, models.Round2(avg))
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	return rating, nil
}
