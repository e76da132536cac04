package models

import (
	"time"

	"github.com/google/uuid"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Valid reports whether the coordinates are within WGS84 bounds.
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// HasCoordinates is false for a zero location, which needs geocoding first.
func (l Location) HasCoordinates() bool {
	return l.Latitude != 0 || l.Longitude != 0
}

// DriverLocation is the live position of a driver. One entry per driver, overwritten on update.
type DriverLocation struct {
	DriverID  uuid.UUID `json:"driver_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocationMessage is the payload of the driver location stream.
type LocationMessage struct {
	DriverID  uuid.UUID `json:"driver_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}
