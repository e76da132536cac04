// Package weather reads current conditions from OpenWeatherMap.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/resilience"
)

const DefaultDomain = "https://api.openweathermap.org"

// Client implements fare.WeatherOracle. Failures surface as ErrWeatherUnavailable;
// the fare engine then prices without a weather surge.
type Client struct {
	apiKey  string
	domain  string
	http    *http.Client
	breaker *resilience.Breaker
}

func New(apiKey, domain string, timeout time.Duration, l logger.Logger) *Client {
	if domain == "" {
		domain = DefaultDomain
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		domain:  strings.TrimRight(domain, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: resilience.NewBreaker(resilience.Settings{Name: "weather", FailureThreshold: 3}, l),
	}
}

type currentPayload struct {
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Rain map[string]float64 `json:"rain"`
	Snow map[string]float64 `json:"snow"`
}

func (c *Client) Weather(ctx context.Context, lat, lng float64) (models.Weather, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', 4, 64))
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)

	w, err := resilience.Do(c.breaker, func() (models.Weather, error) {
		return c.fetch(ctx, c.domain+"/data/2.5/weather?"+q.Encode())
	})
	if err != nil {
		return models.Weather{}, fmt.Errorf("%w: %v", types.ErrWeatherUnavailable, err)
	}
	return w, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) (models.Weather, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Weather{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Weather{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Weather{}, fmt.Errorf("unexpected response status %d", resp.StatusCode)
	}

	var p currentPayload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return models.Weather{}, fmt.Errorf("failed to decode weather: %w", err)
	}
	return p.toModel(), nil
}

func (p currentPayload) toModel() models.Weather {
	w := models.Weather{Temperature: p.Main.Temp}
	for _, cond := range p.Weather {
		switch cond.Main {
		case "Rain", "Drizzle":
			w.Rain = true
		case "Snow":
			w.Snow = true
		case "Thunderstorm", "Squall", "Tornado":
			w.Storm = true
		}
	}
	if v, ok := p.Rain["1h"]; ok {
		w.Rain = true
		w.RainIntensity = v
	}
	if _, ok := p.Snow["1h"]; ok {
		w.Snow = true
	}
	return w
}
