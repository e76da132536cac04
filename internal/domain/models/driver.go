package models

import (
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

type Driver struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	Status    types.DriverStatus `json:"status"`
	IsActive  bool               `json:"is_active"`
	Vehicle   *Vehicle           `json:"vehicle,omitempty"` // nil when no vehicle is assigned
	Rating    float64            `json:"rating"`
	Totals    DriverTotals       `json:"totals"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Dispatchable reports whether the driver may be offered a ride. Location is checked by the geo index.
func (d *Driver) Dispatchable() bool {
	return d.IsActive && d.Status == types.DriverAvailable && d.Vehicle != nil
}

type Vehicle struct {
	ID    uuid.UUID          `json:"id"`
	Type  types.VehicleClass `json:"type"`
	Plate string             `json:"plate"`
	Model string             `json:"model"`
	Seats int                `json:"seats"`
}

// DriverTotals are cumulative counters incremented on each completed ride.
type DriverTotals struct {
	Rides      int     `json:"rides"`
	DistanceKm float64 `json:"distance_km"`
	Minutes    int     `json:"minutes"`
	Earnings   Money   `json:"earnings"`
}

// TotalsDelta is what one completed ride adds to DriverTotals.
type TotalsDelta struct {
	DistanceKm float64
	Minutes    int
	Earnings   Money
}

// Candidate is a priced, ranked driver offered to a rider.
type Candidate struct {
	Driver          Driver        `json:"driver"`
	DistanceKm      float64       `json:"distance_km"`       // driver -> rider
	TotalDistanceKm float64       `json:"total_distance_km"` // driver -> rider -> destination
	Fare            FareBreakdown `json:"fare"`
}

type Rating struct {
	ID        uuid.UUID `json:"id"`
	RideID    uuid.UUID `json:"ride_id"`
	DriverID  uuid.UUID `json:"driver_id"`
	UserID    uuid.UUID `json:"user_id"`
	Score     int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
