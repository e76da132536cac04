package app

import (
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/fare"
	"github.com/Temutjin2k/ride-dispatch/internal/service/wallet"
	"github.com/google/uuid"
)

func fareSettings(c config.FareConfig, api config.ExternalAPIConfig) (fare.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return fare.Config{}, fmt.Errorf("invalid fare time zone %q: %w", c.TimeZone, err)
	}

	return fare.Config{
		Rates: map[types.VehicleClass]float64{
			types.EconomyClass: c.EconomyRate,
			types.PremiumClass: c.PremiumRate,
			types.LuxuryClass:  c.LuxuryRate,
		},
		Time: fare.TimeTable{
			Night:        c.NightSurge,
			WeekdayRush:  c.WeekdayRushSurge,
			WeekendNight: c.WeekendNightSurge,
		},
		Weather: fare.WeatherTable{
			Rain:               c.RainSurge,
			HeavyRain:          c.HeavyRainSurge,
			HeavyRainThreshold: c.HeavyRainThreshold,
			Snow:               c.SnowSurge,
			Storm:              c.StormSurge,
			ExtremeTemp:        c.ExtremeTempSurge,
			ColdBelow:          c.ColdBelow,
			HotAbove:           c.HotAbove,
		},
		Demand: fare.DemandTable{
			RadiusKm:  c.DemandRadiusKm,
			HighRatio: c.DemandHighRatio,
			MidRatio:  c.DemandMidRatio,
			High:      c.DemandHigh,
			Mid:       c.DemandMid,
			Low:       c.DemandLow,
		},
		WeatherTimeout: api.WeatherTimeout,
		DemandTimeout:  c.DemandTimeout,
		Location:       loc,
	}, nil
}

func walletSettings(c config.WalletConfig, currency string) (wallet.Config, error) {
	owner, err := uuid.Parse(c.PlatformOwnerID)
	if err != nil {
		return wallet.Config{}, fmt.Errorf("invalid platform owner id %q: %w", c.PlatformOwnerID, err)
	}
	if c.CommissionRate <= 0 || c.CommissionRate >= 1 {
		return wallet.Config{}, fmt.Errorf("commission rate must be in (0, 1), got %v", c.CommissionRate)
	}

	return wallet.Config{
		CommissionRate:  c.CommissionRate,
		TopUpCeiling:    models.FromAmount(c.TopUpCeiling),
		PlatformOwnerID: owner,
		StatementLimit:  c.StatementLimit,
		Currency:        currency,
	}, nil
}
