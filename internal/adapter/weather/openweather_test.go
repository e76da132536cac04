package weather

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

func TestClient_Weather(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.Weather
	}{
		{
			name: "heavy rain",
			body: `{"weather":[{"main":"Rain"}],"main":{"temp":12.5},"rain":{"1h":7.2}}`,
			want: models.Weather{Rain: true, RainIntensity: 7.2, Temperature: 12.5},
		},
		{
			name: "storm",
			body: `{"weather":[{"main":"Thunderstorm"}],"main":{"temp":25}}`,
			want: models.Weather{Storm: true, Temperature: 25},
		},
		{
			name: "frost",
			body: `{"weather":[{"main":"Clear"}],"main":{"temp":-15}}`,
			want: models.Weather{Temperature: -15},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/data/2.5/weather", r.URL.Path)
				assert.Equal(t, "metric", r.URL.Query().Get("units"))
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := New("key", srv.URL, 0, logger.New(io.Discard, "test", "error"))
			got, err := c.Weather(context.Background(), 43.2383, 76.9453)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_WeatherUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New("key", srv.URL, 0, logger.New(io.Discard, "test", "error"))
	for range 4 {
		_, err := c.Weather(context.Background(), 0, 0)
		assert.ErrorIs(t, err, types.ErrWeatherUnavailable)
		assert.ErrorIs(t, err, types.ErrUpstream)
	}
}
