package fare

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weatherFunc func(ctx context.Context, lat, lng float64) (models.Weather, error)

func (f weatherFunc) Weather(ctx context.Context, lat, lng float64) (models.Weather, error) {
	return f(ctx, lat, lng)
}

type fakeDemand struct {
	riders, drivers int
	err             error
}

func (f fakeDemand) Riders(context.Context, float64, float64, float64) (int, error) {
	return f.riders, f.err
}

func (f fakeDemand) Drivers(context.Context, float64, float64, float64) (int, error) {
	return f.drivers, f.err
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Location = time.UTC
	cfg.WeatherTimeout = 50 * time.Millisecond
	cfg.DemandTimeout = 50 * time.Millisecond
	return cfg
}

func testLogger() logger.Logger {
	return logger.New(io.Discard, "fare-test", logger.LevelError)
}

// Wednesday noon: no time band applies.
var quietNoon = time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

func TestQuote_NoSurges(t *testing.T) {
	e := New(testConfig(), nil, nil, testLogger())

	got, err := e.Quote(context.Background(), 10, types.EconomyClass, 43.24, 76.89, quietNoon)
	require.NoError(t, err)

	assert.Equal(t, 10.0, got.BaseFare)
	assert.Equal(t, 100.0, got.DistanceFare)
	assert.Zero(t, got.TimeSurge)
	assert.Zero(t, got.WeatherSurge)
	assert.Zero(t, got.DemandSurge)
	assert.Equal(t, 100.0, got.TotalFare)
}

func TestQuote_BaseRates(t *testing.T) {
	e := New(testConfig(), nil, nil, testLogger())

	tests := []struct {
		vehicle types.VehicleClass
		want    float64
	}{
		{types.EconomyClass, 25},
		{types.PremiumClass, 50},
		{types.LuxuryClass, 75},
	}
	for _, tt := range tests {
		t.Run(tt.vehicle.String(), func(t *testing.T) {
			got, err := e.Quote(context.Background(), 2.5, tt.vehicle, 0, 0, quietNoon)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.TotalFare)
		})
	}

	_, err := e.Quote(context.Background(), 1, types.VehicleClass("BICYCLE"), 0, 0, quietNoon)
	assert.ErrorIs(t, err, types.ErrUnknownVehicle)

	_, err = e.Quote(context.Background(), -1, types.EconomyClass, 0, 0, quietNoon)
	assert.ErrorIs(t, err, types.ErrInvalidDistance)
}

func TestQuote_RoundsToCents(t *testing.T) {
	e := New(testConfig(), nil, nil, testLogger())

	got, err := e.Quote(context.Background(), 3.333, types.EconomyClass, 0, 0, quietNoon)
	require.NoError(t, err)
	assert.Equal(t, 33.33, got.TotalFare)
}

func TestTimeSurge(t *testing.T) {
	e := New(testConfig(), nil, nil, testLogger())

	tests := []struct {
		name string
		at   time.Time
		want float64
	}{
		{"sunday late night", time.Date(2024, time.May, 19, 23, 0, 0, 0, time.UTC), 5},
		{"early morning", time.Date(2024, time.May, 15, 6, 30, 0, 0, time.UTC), 5},
		{"tuesday morning rush", time.Date(2024, time.May, 14, 8, 0, 0, 0, time.UTC), 3},
		{"wednesday evening rush", time.Date(2024, time.May, 15, 17, 0, 0, 0, time.UTC), 3},
		{"friday 19h is still rush", time.Date(2024, time.May, 17, 19, 0, 0, 0, time.UTC), 3},
		{"friday night peak", time.Date(2024, time.May, 17, 20, 0, 0, 0, time.UTC), 4},
		{"saturday night peak", time.Date(2024, time.May, 18, 21, 0, 0, 0, time.UTC), 4},
		{"saturday morning", time.Date(2024, time.May, 18, 8, 0, 0, 0, time.UTC), 0},
		{"sunday noon", time.Date(2024, time.May, 19, 12, 0, 0, 0, time.UTC), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := e.timeSurge(tt.at)
			assert.True(t, s.OK)
			assert.Equal(t, tt.want, s.Value)
		})
	}
}

func TestWeatherValue(t *testing.T) {
	e := New(testConfig(), nil, nil, testLogger())

	tests := []struct {
		name string
		w    models.Weather
		want float64
	}{
		{"clear", models.Weather{Temperature: 20}, 0},
		{"light rain", models.Weather{Rain: true, RainIntensity: 2, Temperature: 15}, 2},
		{"heavy rain", models.Weather{Rain: true, RainIntensity: 8, Temperature: 15}, 4},
		{"snow and cold", models.Weather{Snow: true, Temperature: -15}, 7},
		{"storm with rain", models.Weather{Storm: true, Rain: true, RainIntensity: 1, Temperature: 25}, 9},
		{"heat", models.Weather{Temperature: 41}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.weatherValue(tt.w))
		})
	}
}

func TestDemandValue(t *testing.T) {
	e := New(testConfig(), nil, nil, testLogger())

	tests := []struct {
		riders, drivers int
		want            float64
	}{
		{riders: 10, drivers: 2, want: 8},
		{riders: 5, drivers: 2, want: 5},
		{riders: 4, drivers: 2, want: 2},
		{riders: 0, drivers: 5, want: 2},
		{riders: 4, drivers: 0, want: 8},
		{riders: 0, drivers: 0, want: 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, e.demandValue(tt.riders, tt.drivers), "riders=%d drivers=%d", tt.riders, tt.drivers)
	}
}

func TestQuote_SignalsAreSummed(t *testing.T) {
	weather := weatherFunc(func(context.Context, float64, float64) (models.Weather, error) {
		return models.Weather{Rain: true, RainIntensity: 1, Temperature: 10}, nil
	})
	e := New(testConfig(), weather, fakeDemand{riders: 7, drivers: 2}, testLogger())

	// Tuesday 8:00 -> rush
	got, err := e.Quote(context.Background(), 10, types.EconomyClass, 0, 0, time.Date(2024, time.May, 14, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 3.0, got.TimeSurge)
	assert.Equal(t, 2.0, got.WeatherSurge)
	assert.Equal(t, 8.0, got.DemandSurge)
	assert.Equal(t, 113.0, got.TotalFare)
}

func TestQuote_SignalFailuresDegradeToZero(t *testing.T) {
	weather := weatherFunc(func(context.Context, float64, float64) (models.Weather, error) {
		return models.Weather{}, errors.New("oracle down")
	})
	e := New(testConfig(), weather, fakeDemand{err: errors.New("redis down")}, testLogger())

	got, err := e.Quote(context.Background(), 10, types.EconomyClass, 0, 0, quietNoon)
	require.NoError(t, err)
	assert.Zero(t, got.WeatherSurge)
	assert.Zero(t, got.DemandSurge)
	assert.Equal(t, 100.0, got.TotalFare)
}

func TestQuote_SlowOracleIsTimeBounded(t *testing.T) {
	var calls atomic.Int32
	weather := weatherFunc(func(ctx context.Context, _, _ float64) (models.Weather, error) {
		calls.Add(1)
		<-ctx.Done()
		return models.Weather{}, ctx.Err()
	})
	e := New(testConfig(), weather, fakeDemand{riders: 1, drivers: 1}, testLogger())

	start := time.Now()
	got, err := e.Quote(context.Background(), 1, types.EconomyClass, 0, 0, quietNoon)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), calls.Load(), "no synchronous retry")
	assert.Zero(t, got.WeatherSurge)
	assert.Equal(t, 2.0, got.DemandSurge)
	assert.Equal(t, 12.0, got.TotalFare)
}

func TestQuote_Deterministic(t *testing.T) {
	e := New(testConfig(), nil, fakeDemand{riders: 3, drivers: 1}, testLogger())

	a, err := e.Quote(context.Background(), 7.25, types.PremiumClass, 10, 10, quietNoon)
	require.NoError(t, err)
	b, err := e.Quote(context.Background(), 7.25, types.PremiumClass, 10, 10, quietNoon)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
