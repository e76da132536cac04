package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RideRepo struct {
	db *pgxpool.Pool
}

func NewRideRepo(db *pgxpool.Pool) *RideRepo {
	return &RideRepo{db: db}
}

const rideColumns = `id, request_id, user_id, driver_id, vehicle_id, vehicle_type,
	pickup_lat, pickup_lng, pickup_address, dest_lat, dest_lng, dest_address,
	distance_km, fare, status, payment_state, created_at, pickup_time, drop_time, duration_minutes`

func scanRide(row scanner) (*models.Ride, error) {
	var ride models.Ride
	if err := row.Scan(
		&ride.ID, &ride.RequestID, &ride.UserID, &ride.DriverID, &ride.VehicleID, &ride.VehicleType,
		&ride.Pickup.Latitude, &ride.Pickup.Longitude, &ride.Pickup.Address,
		&ride.Destination.Latitude, &ride.Destination.Longitude, &ride.Destination.Address,
		&ride.DistanceKm, &ride.Fare, &ride.Status, &ride.PaymentState,
		&ride.CreatedAt, &ride.PickupTime, &ride.DropTime, &ride.DurationMinutes,
	); err != nil {
		return nil, err
	}
	return &ride, nil
}

func (r *RideRepo) Create(ctx context.Context, ride *models.Ride) error {
	const op = "RideRepo.Create"
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query,
		ride.ID, ride.RequestID, ride.UserID, ride.DriverID, ride.VehicleID, ride.VehicleType,
		ride.Pickup.Latitude, ride.Pickup.Longitude, ride.Pickup.Address,
		ride.Destination.Latitude, ride.Destination.Longitude, ride.Destination.Address,
		ride.DistanceKm, ride.Fare, ride.Status, ride.PaymentState,
		ride.CreatedAt, ride.PickupTime, ride.DropTime, ride.DurationMinutes,
	); err != nil {
		// частичный уникальный индекс: у водителя уже есть незавершённая поездка
		if postgres.IsUniqueViolation(err) {
			return types.ErrDriverUnavailable
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RideRepo) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Ride, error) {
	const op = "RideRepo.Get"
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	if forUpdate && inTx(ctx) {
		query += ` FOR UPDATE`
	}

	ride, err := scanRide(TxorDB(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrRideNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ride, nil
}

func (r *RideRepo) Get(ctx context.Context, id uuid.UUID) (*models.Ride, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate locks the ride row until the surrounding transaction ends.
func (r *RideRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Ride, error) {
	return r.get(ctx, id, true)
}

// Start moves ACCEPTED -> IN_PROGRESS. False means the ride was not ACCEPTED.
func (r *RideRepo) Start(ctx context.Context, id uuid.UUID, pickupAt time.Time) (bool, error) {
	const op = "RideRepo.Start"
	query := `
		UPDATE rides
		SET status = $2, pickup_time = $3
		WHERE id = $1 AND status = $4`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, id, types.RideInProgress, pickupAt, types.RideAccepted)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return r.applied(ctx, id, tag.RowsAffected())
}

// Complete moves IN_PROGRESS -> COMPLETED. False means the ride was not IN_PROGRESS.
func (r *RideRepo) Complete(ctx context.Context, id uuid.UUID, dropAt time.Time, durationMinutes int) (bool, error) {
	const op = "RideRepo.Complete"
	query := `
		UPDATE rides
		SET status = $2, drop_time = $3, duration_minutes = $4
		WHERE id = $1 AND status = $5`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, id, types.RideCompleted, dropAt, durationMinutes, types.RideInProgress)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return r.applied(ctx, id, tag.RowsAffected())
}

// applied tells a lost compare-and-set apart from a missing ride.
func (r *RideRepo) applied(ctx context.Context, id uuid.UUID, rows int64) (bool, error) {
	if rows == 1 {
		return true, nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *RideRepo) SetPaymentState(ctx context.Context, id uuid.UUID, state types.RidePaymentState) error {
	const op = "RideRepo.SetPaymentState"

	tag, err := TxorDB(ctx, r.db).Exec(ctx, `UPDATE rides SET payment_state = $2 WHERE id = $1`, id, state)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrRideNotFound
	}

	return nil
}

func (r *RideRepo) HasActiveRide(ctx context.Context, driverID uuid.UUID) (bool, error) {
	const op = "RideRepo.HasActiveRide"
	query := `SELECT EXISTS(SELECT 1 FROM rides WHERE driver_id = $1 AND status <> $2)`

	var exists bool
	if err := TxorDB(ctx, r.db).QueryRow(ctx, query, driverID, types.RideCompleted).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

type RatingRepo struct {
	db *pgxpool.Pool
}

func NewRatingRepo(db *pgxpool.Pool) *RatingRepo {
	return &RatingRepo{db: db}
}

func (r *RatingRepo) Create(ctx context.Context, rating *models.Rating) error {
	const op = "RatingRepo.Create"
	query := `
		INSERT INTO ratings (id, ride_id, driver_id, user_id, score, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query,
		rating.ID, rating.RideID, rating.DriverID, rating.UserID, rating.Score, rating.Comment, rating.CreatedAt,
	); err != nil {
		if postgres.IsUniqueViolation(err) {
			return types.ErrRideAlreadyRated
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Average is 0 for a driver without ratings.
func (r *RatingRepo) Average(ctx context.Context, driverID uuid.UUID) (float64, error) {
	const op = "RatingRepo.Average"

	var avg float64
	query := `SELECT COALESCE(AVG(score), 0)::float8 FROM ratings WHERE driver_id = $1`
	if err := TxorDB(ctx, r.db).QueryRow(ctx, query, driverID).Scan(&avg); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return avg, nil
}
