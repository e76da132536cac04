package models

import (
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

// RideRequest is an offer of a ride to a single driver.
type RideRequest struct {
	ID          uuid.UUID               `json:"id"`
	UserID      uuid.UUID               `json:"user_id"`
	DriverID    uuid.UUID               `json:"driver_id"`
	VehicleType types.VehicleClass      `json:"vehicle_type"`
	Pickup      Location                `json:"pickup"`
	Destination Location                `json:"destination"`
	DistanceKm  float64                 `json:"distance_km"`
	ETAMinutes  int                     `json:"eta_minutes,omitempty"`
	Fare        FareBreakdown           `json:"fare"`
	Status      types.RideRequestStatus `json:"status"`
	ExpiresAt   time.Time               `json:"expires_at"`
	CreatedAt   time.Time               `json:"created_at"`
	FinalizedAt *time.Time              `json:"finalized_at,omitempty"`
	RideID      *uuid.UUID              `json:"ride_id,omitempty"` // set once the request spawned a ride
}

// Expired reports whether the accept window has elapsed at now.
func (r *RideRequest) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

type Ride struct {
	ID           uuid.UUID              `json:"id"`
	RequestID    uuid.UUID              `json:"request_id"`
	UserID       uuid.UUID              `json:"user_id"`
	DriverID     uuid.UUID              `json:"driver_id"`
	VehicleID    *uuid.UUID             `json:"vehicle_id,omitempty"`
	VehicleType  types.VehicleClass     `json:"vehicle_type"`
	Pickup       Location               `json:"pickup"`
	Destination  Location               `json:"destination"`
	DistanceKm   float64                `json:"distance_km"`
	Fare         FareBreakdown          `json:"fare"`
	Status       types.RideStatus       `json:"status"`
	PaymentState types.RidePaymentState `json:"payment_state"`

	// Временные метки
	CreatedAt       time.Time  `json:"created_at"`
	PickupTime      *time.Time `json:"pickup_time,omitempty"`
	DropTime        *time.Time `json:"drop_time,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
}

// RideRequestInput is what a rider submits to request a ride from a chosen driver.
type RideRequestInput struct {
	UserID      uuid.UUID
	DriverID    uuid.UUID
	Pickup      Location
	Destination Location
}

// CreateRideInput correlates an accepted request with the ride it spawns.
type CreateRideInput struct {
	RequestID   uuid.UUID
	DriverID    uuid.UUID
	RiderID     uuid.UUID
	Pickup      Location
	Destination Location
}

// RideCompletion is the result of completing a ride. Settlement errors do not undo completion.
type RideCompletion struct {
	Ride       *Ride       `json:"ride"`
	Settlement *Settlement `json:"settlement,omitempty"`
	PaymentErr string      `json:"payment_error,omitempty"`
}
