package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RequestRepo struct {
	db *pgxpool.Pool
}

func NewRequestRepo(db *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{db: db}
}

const requestColumns = `id, user_id, driver_id, vehicle_type,
	pickup_lat, pickup_lng, pickup_address, dest_lat, dest_lng, dest_address,
	distance_km, eta_minutes, fare, status, expires_at, created_at, finalized_at, ride_id`

func scanRequest(row scanner) (*models.RideRequest, error) {
	var req models.RideRequest
	if err := row.Scan(
		&req.ID, &req.UserID, &req.DriverID, &req.VehicleType,
		&req.Pickup.Latitude, &req.Pickup.Longitude, &req.Pickup.Address,
		&req.Destination.Latitude, &req.Destination.Longitude, &req.Destination.Address,
		&req.DistanceKm, &req.ETAMinutes, &req.Fare, &req.Status,
		&req.ExpiresAt, &req.CreatedAt, &req.FinalizedAt, &req.RideID,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepo) Create(ctx context.Context, req *models.RideRequest) error {
	const op = "RequestRepo.Create"
	query := `
		INSERT INTO ride_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query,
		req.ID, req.UserID, req.DriverID, req.VehicleType,
		req.Pickup.Latitude, req.Pickup.Longitude, req.Pickup.Address,
		req.Destination.Latitude, req.Destination.Longitude, req.Destination.Address,
		req.DistanceKm, req.ETAMinutes, req.Fare, req.Status,
		req.ExpiresAt, req.CreatedAt, req.FinalizedAt, req.RideID,
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RequestRepo) Get(ctx context.Context, id uuid.UUID) (*models.RideRequest, error) {
	const op = "RequestRepo.Get"
	query := `SELECT ` + requestColumns + ` FROM ride_requests WHERE id = $1`

	req, err := scanRequest(TxorDB(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrRequestNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return req, nil
}

// Finalize moves a pending request to status. The WHERE clause makes the first finalizer the only one.
func (r *RequestRepo) Finalize(ctx context.Context, id uuid.UUID, status types.RideRequestStatus, at time.Time) (bool, error) {
	const op = "RequestRepo.Finalize"
	query := `
		UPDATE ride_requests
		SET status = $2, finalized_at = $3
		WHERE id = $1 AND status = $4`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, id, status, at, types.RequestPending)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *RequestRepo) LinkRide(ctx context.Context, requestID, rideID uuid.UUID) error {
	const op = "RequestRepo.LinkRide"

	tag, err := TxorDB(ctx, r.db).Exec(ctx, `UPDATE ride_requests SET ride_id = $2 WHERE id = $1`, requestID, rideID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrRequestNotFound
	}

	return nil
}

// ListPending returns pending requests, oldest first.
func (r *RequestRepo) ListPending(ctx context.Context) ([]models.RideRequest, error) {
	const op = "RequestRepo.ListPending"
	query := `SELECT ` + requestColumns + ` FROM ride_requests WHERE status = $1 ORDER BY created_at`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, types.RequestPending)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.RideRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
