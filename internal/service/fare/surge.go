package fare

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
)

var ErrNoSource = errors.New("signal source not configured")

// timeSurge is a pure lookup on the local hour and weekday of now.
func (e *Engine) timeSurge(now time.Time) Signal {
	t := now.In(e.cfg.Location)
	hour := t.Hour()
	day := t.Weekday()

	switch {
	case hour <= 6 || hour >= 22:
		return available(e.cfg.Time.Night)
	case day >= time.Monday && day <= time.Friday &&
		((hour >= 7 && hour <= 9) || (hour >= 16 && hour <= 19)):
		return available(e.cfg.Time.WeekdayRush)
	case (day == time.Friday || day == time.Saturday) && hour >= 19:
		return available(e.cfg.Time.WeekendNight)
	}
	return available(0)
}

func (e *Engine) weatherSurge(ctx context.Context, lat, lng float64) Signal {
	if e.weather == nil {
		return unavailable(ErrNoSource)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.WeatherTimeout)
	defer cancel()

	w, err := e.weather.Weather(ctx, lat, lng)
	if err != nil {
		return unavailable(fmt.Errorf("weather: %w", err))
	}

	return available(e.weatherValue(w))
}

func (e *Engine) weatherValue(w models.Weather) float64 {
	tbl := e.cfg.Weather
	var surge float64

	if w.Rain {
		if w.RainIntensity > tbl.HeavyRainThreshold {
			surge += tbl.HeavyRain
		} else {
			surge += tbl.Rain
		}
	}
	if w.Snow {
		surge += tbl.Snow
	}
	if w.Storm {
		surge += tbl.Storm
	}
	if w.Temperature < tbl.ColdBelow || w.Temperature > tbl.HotAbove {
		surge += tbl.ExtremeTemp
	}
	return surge
}

func (e *Engine) demandSurge(ctx context.Context, lat, lng float64) Signal {
	if e.demand == nil {
		return unavailable(ErrNoSource)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.DemandTimeout)
	defer cancel()

	radius := e.cfg.Demand.RadiusKm
	riders, err := e.demand.Riders(ctx, lat, lng, radius)
	if err != nil {
		return unavailable(fmt.Errorf("demand riders: %w", err))
	}
	drivers, err := e.demand.Drivers(ctx, lat, lng, radius)
	if err != nil {
		return unavailable(fmt.Errorf("demand drivers: %w", err))
	}

	return available(e.demandValue(riders, drivers))
}

func (e *Engine) demandValue(riders, drivers int) float64 {
	tbl := e.cfg.Demand

	ratio := float64(riders)
	if drivers > 0 {
		ratio = float64(riders) / float64(drivers)
	}

	switch {
	case ratio > tbl.HighRatio:
		return tbl.High
	case ratio > tbl.MidRatio:
		return tbl.Mid
	}
	return tbl.Low
}
