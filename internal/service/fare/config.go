package fare

import (
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

type Config struct {
	Rates   map[types.VehicleClass]float64
	Time    TimeTable
	Weather WeatherTable
	Demand  DemandTable

	WeatherTimeout time.Duration
	DemandTimeout  time.Duration

	// Location is the zone hour-of-day bands are evaluated in.
	Location *time.Location
}

// TimeTable is the flat surcharge per time band.
type TimeTable struct {
	Night        float64 // hour <= 6 or hour >= 22
	WeekdayRush  float64 // Mon-Fri, 7-9 and 16-19
	WeekendNight float64 // Fri/Sat after 19
}

type WeatherTable struct {
	Rain               float64
	HeavyRain          float64
	HeavyRainThreshold float64 // mm/h
	Snow               float64
	Storm              float64
	ExtremeTemp        float64
	ColdBelow          float64
	HotAbove           float64
}

type DemandTable struct {
	RadiusKm  float64
	HighRatio float64
	MidRatio  float64
	High      float64
	Mid       float64
	Low       float64
}

func DefaultConfig() Config {
	return Config{
		Rates: map[types.VehicleClass]float64{
			types.EconomyClass: 10,
			types.PremiumClass: 20,
			types.LuxuryClass:  30,
		},
		Time: TimeTable{
			Night:        5,
			WeekdayRush:  3,
			WeekendNight: 4,
		},
		Weather: WeatherTable{
			Rain:               2,
			HeavyRain:          4,
			HeavyRainThreshold: 5,
			Snow:               5,
			Storm:              7,
			ExtremeTemp:        2,
			ColdBelow:          -10,
			HotAbove:           40,
		},
		Demand: DemandTable{
			RadiusKm:  50,
			HighRatio: 3,
			MidRatio:  2,
			High:      8,
			Mid:       5,
			Low:       2,
		},
		WeatherTimeout: 2 * time.Second,
		DemandTimeout:  time.Second,
		Location:       time.Local,
	}
}
