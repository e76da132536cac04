package dto

import (
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/google/uuid"
)

type CreateRideRequest struct {
	DriverID    uuid.UUID `json:"driver_id" validate:"required"`
	Pickup      Location  `json:"pickup"`
	Destination Location  `json:"destination"`
}

func (r *CreateRideRequest) ToModel(userID uuid.UUID) models.RideRequestInput {
	return models.RideRequestInput{
		UserID:      userID,
		DriverID:    r.DriverID,
		Pickup:      r.Pickup.ToModel(),
		Destination: r.Destination.ToModel(),
	}
}

type RespondRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}
