package fare

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
)

// Engine prices trips. A quote never fails because of a surge signal.
type Engine struct {
	cfg     Config
	weather WeatherOracle
	demand  DemandSource
	l       logger.Logger
}

func New(cfg Config, weather WeatherOracle, demand DemandSource, l logger.Logger) *Engine {
	def := DefaultConfig()
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.WeatherTimeout <= 0 {
		cfg.WeatherTimeout = def.WeatherTimeout
	}
	if cfg.DemandTimeout <= 0 {
		cfg.DemandTimeout = def.DemandTimeout
	}
	if len(cfg.Rates) == 0 {
		cfg.Rates = def.Rates
	}

	return &Engine{
		cfg:     cfg,
		weather: weather,
		demand:  demand,
		l:       l,
	}
}

// Rate returns the per-km rate for a vehicle class.
func (e *Engine) Rate(vehicle types.VehicleClass) (float64, error) {
	rate, ok := e.cfg.Rates[vehicle]
	if !ok {
		return 0, types.ErrUnknownVehicle
	}
	return rate, nil
}

// Quote computes the fare of a trip of distanceKm starting at (lat, lng) at time now.
// Weather and demand run concurrently, each bounded by its own timeout.
func (e *Engine) Quote(ctx context.Context, distanceKm float64, vehicle types.VehicleClass, lat, lng float64, now time.Time) (models.FareBreakdown, error) {
	ctx = wrap.WithAction(ctx, types.ActionQuote)

	if distanceKm < 0 || math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) {
		return models.FareBreakdown{}, wrap.Error(ctx, types.ErrInvalidDistance)
	}
	if !(models.Location{Latitude: lat, Longitude: lng}).Valid() {
		return models.FareBreakdown{}, wrap.Error(ctx, types.ErrInvalidCoordinates)
	}
	rate, err := e.Rate(vehicle)
	if err != nil {
		return models.FareBreakdown{}, wrap.Error(ctx, err)
	}

	var (
		wg                    sync.WaitGroup
		weatherSig, demandSig Signal
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		weatherSig = e.weatherSurge(ctx, lat, lng)
	}()
	go func() {
		defer wg.Done()
		demandSig = e.demandSurge(ctx, lat, lng)
	}()
	timeSig := e.timeSurge(now)
	wg.Wait()

	e.record(ctx, "time", timeSig)
	e.record(ctx, "weather", weatherSig)
	e.record(ctx, "demand", demandSig)

	distanceFare := models.Round2(distanceKm * rate)
	breakdown := models.FareBreakdown{
		BaseFare:     rate,
		DistanceFare: distanceFare,
		TimeSurge:    timeSig.Or(0),
		WeatherSurge: weatherSig.Or(0),
		DemandSurge:  demandSig.Or(0),
	}
	breakdown.TotalFare = models.Round2(distanceFare + breakdown.SurgeTotal())

	return breakdown, nil
}

func (e *Engine) record(ctx context.Context, name string, s Signal) {
	metrics.RecordSurgeSignal(name, s.OK)
	if !s.OK && !errors.Is(s.Err, ErrNoSource) {
		e.l.Warn(ctx, "surge signal unavailable, contributing zero", "signal", name, "reason", s.Err.Error())
	}
}
