package dto

import (
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

type CandidatesRequest struct {
	Pickup      Coordinates `json:"pickup"`
	Destination Coordinates `json:"destination"`
	RadiusKm    float64     `json:"radius_km" validate:"omitempty,gt=0,lte=200"`
}

type DriverView struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Rating      float64            `json:"rating"`
	VehicleType types.VehicleClass `json:"vehicle_type"`
	Plate       string             `json:"plate,omitempty"`
	Model       string             `json:"model,omitempty"`
}

type CandidateResponse struct {
	Driver          DriverView           `json:"driver"`
	DistanceKm      float64              `json:"distance_km"`
	TotalDistanceKm float64              `json:"total_distance_km"`
	Fare            models.FareBreakdown `json:"fare"`
}

type NearbyDriverResponse struct {
	Driver     DriverView `json:"driver"`
	DistanceKm float64    `json:"distance_km"`
}

func driverView(d models.Driver) DriverView {
	v := DriverView{ID: d.ID, Name: d.Name, Rating: d.Rating}
	if d.Vehicle != nil {
		v.VehicleType = d.Vehicle.Type
		v.Plate = d.Vehicle.Plate
		v.Model = d.Vehicle.Model
	}
	return v
}

func NewCandidates(cs []models.Candidate) []CandidateResponse {
	out := make([]CandidateResponse, len(cs))
	for i, c := range cs {
		out[i] = CandidateResponse{
			Driver:          driverView(c.Driver),
			DistanceKm:      c.DistanceKm,
			TotalDistanceKm: c.TotalDistanceKm,
			Fare:            c.Fare,
		}
	}
	return out
}

func NewNearby(cs []models.Candidate) []NearbyDriverResponse {
	out := make([]NearbyDriverResponse, len(cs))
	for i, c := range cs {
		out[i] = NearbyDriverResponse{Driver: driverView(c.Driver), DistanceKm: c.DistanceKm}
	}
	return out
}
