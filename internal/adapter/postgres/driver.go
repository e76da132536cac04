package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DriverRepo struct {
	db *pgxpool.Pool
}

func NewDriverRepo(db *pgxpool.Pool) *DriverRepo {
	return &DriverRepo{
		db: db,
	}
}

const driverColumns = `id, name, status, is_active, vehicle_attrs, rating,
	total_rides, total_distance, total_minutes, total_earnings, created_at, updated_at`

func scanDriver(row scanner) (*models.Driver, error) {
	var d models.Driver
	if err := row.Scan(
		&d.ID, &d.Name, &d.Status, &d.IsActive, &d.Vehicle, &d.Rating,
		&d.Totals.Rides, &d.Totals.DistanceKm, &d.Totals.Minutes, &d.Totals.Earnings,
		&d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a driver or replaces its profile. Totals and rating are left untouched on conflict.
func (r *DriverRepo) Create(ctx context.Context, driver *models.Driver) error {
	const op = "DriverRepo.Create"
	query := `
		INSERT INTO drivers(id, name, status, is_active, vehicle_type, vehicle_attrs, rating)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			is_active = EXCLUDED.is_active,
			vehicle_type = EXCLUDED.vehicle_type,
			vehicle_attrs = EXCLUDED.vehicle_attrs,
			updated_at = now()`

	var vehicleType *types.VehicleClass
	if driver.Vehicle != nil {
		vehicleType = &driver.Vehicle.Type
	}

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query,
		driver.ID,
		driver.Name,
		driver.Status,
		driver.IsActive,
		vehicleType,
		driver.Vehicle,
		driver.Rating,
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *DriverRepo) Get(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	const op = "DriverRepo.Get"
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`

	d, err := scanDriver(TxorDB(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrDriverNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return d, nil
}

func (r *DriverRepo) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Driver, error) {
	const op = "DriverRepo.GetMany"
	out := make(map[uuid.UUID]*models.Driver, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = ANY($1::uuid[])`
	rows, err := TxorDB(ctx, r.db).Query(ctx, query, idStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out[d.ID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// CompareAndSetStatus is the driver lock: the update only matches while the status is still from.
func (r *DriverRepo) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to types.DriverStatus) (bool, error) {
	const op = "DriverRepo.CompareAndSetStatus"
	query := `
		UPDATE drivers
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, id, from, to)
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

func (r *DriverRepo) SetStatus(ctx context.Context, id uuid.UUID, status types.DriverStatus) error {
	const op = "DriverRepo.SetStatus"
	query := `UPDATE drivers SET status = $2, updated_at = now() WHERE id = $1`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrDriverNotFound
	}

	return nil
}

func (r *DriverRepo) AddTotals(ctx context.Context, id uuid.UUID, delta models.TotalsDelta) error {
	const op = "DriverRepo.AddTotals"
	query := `
		UPDATE drivers
		SET total_rides = total_rides + 1,
			total_distance = total_distance + $2,
			total_minutes = total_minutes + $3,
			total_earnings = total_earnings + $4,
			updated_at = now()
		WHERE id = $1`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, id, models.Round2(delta.DistanceKm), delta.Minutes, delta.Earnings)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrDriverNotFound
	}

	return nil
}

func (r *DriverRepo) SetRating(ctx context.Context, id uuid.UUID, rating float64) error {
	const op = "DriverRepo.SetRating"
	query := `UPDATE drivers SET rating = $2, updated_at = now() WHERE id = $1`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, id, rating)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrDriverNotFound
	}

	return nil
}

// Ratings implements geo.RatingSource.
func (r *DriverRepo) Ratings(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]float64, error) {
	const op = "DriverRepo.Ratings"
	out := make(map[uuid.UUID]float64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := TxorDB(ctx, r.db).Query(ctx, `SELECT id, rating FROM drivers WHERE id = ANY($1::uuid[])`, idStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     uuid.UUID
			rating float64
		)
		if err := rows.Scan(&id, &rating); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out[id] = rating
	}
	return out, rows.Err()
}

// AvailableIDs implements geo.AvailabilityFilter.
func (r *DriverRepo) AvailableIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	const op = "DriverRepo.AvailableIDs"
	out := make([]uuid.UUID, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `
		SELECT id FROM drivers
		WHERE id = ANY($1::uuid[])
			AND is_active
			AND status = $2
			AND vehicle_attrs IS NOT NULL`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, idStrings(ids), types.DriverAvailable)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
