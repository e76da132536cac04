package models

// FareBreakdown is a fare quote. Produced once, never mutated.
type FareBreakdown struct {
	BaseFare     float64 `json:"base_fare"` // per-km rate of the vehicle class
	DistanceFare float64 `json:"distance_fare"`
	TimeSurge    float64 `json:"time_surge"`
	WeatherSurge float64 `json:"weather_surge"`
	DemandSurge  float64 `json:"demand_surge"`
	TotalFare    float64 `json:"total_fare"`
}

// SurgeTotal is the sum of all surge components.
func (f FareBreakdown) SurgeTotal() float64 {
	return f.TimeSurge + f.WeatherSurge + f.DemandSurge
}

// Weather is what the weather oracle reports for a point.
type Weather struct {
	Rain          bool    `json:"rain"`
	RainIntensity float64 `json:"rain_intensity"` // mm/h
	Snow          bool    `json:"snow"`
	Storm         bool    `json:"storm"`
	Temperature   float64 `json:"temperature"` // celsius
}
