package locationIQ

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/resilience"
)

var (
	ErrLocationNotFound = errors.New("location not found")
	ErrRouteNotFound    = errors.New("route not found")
)

const DefaultDomain = "https://us1.locationiq.com"

type LocationIQClient struct {
	apiKey  string
	domain  string
	http    *http.Client
	breaker *resilience.Breaker
}

func New(apiKey, domain string, timeout time.Duration, l logger.Logger) *LocationIQClient {
	if domain == "" {
		domain = DefaultDomain
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &LocationIQClient{
		apiKey:  apiKey,
		domain:  domain,
		http:    &http.Client{Timeout: timeout},
		breaker: resilience.NewBreaker(resilience.Settings{Name: "locationiq"}, l),
	}
}

// get decodes the JSON body of a GET on path into out. 404 means nothing matched.
func (c *LocationIQClient) get(ctx context.Context, path string, query url.Values, out any) error {
	query.Set("key", c.apiKey)
	query.Set("format", "json")
	endpoint := c.domain + path + "?" + query.Encode()

	_, err := resilience.Do(c.breaker, func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return struct{}{}, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to make request to LocationIQ: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			// пустой результат не ломает брейкер
			return struct{}{}, nil
		case resp.StatusCode != http.StatusOK:
			return struct{}{}, fmt.Errorf("unexpected response status %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return struct{}{}, fmt.Errorf("failed to decode data from LocationIQ response: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

type AddressPayload struct {
	Address string `json:"display_name"`
}

func (c *LocationIQClient) GetAddress(ctx context.Context, longitude, latitude float64) (string, error) {
	const op = "LocationIQClient.GetAddress"

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(latitude, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(longitude, 'f', 6, 64))

	var payload AddressPayload
	if err := c.get(ctx, "/v1/reverse", q, &payload); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return "", wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if payload.Address == "" {
		return "", ErrLocationNotFound
	}

	return payload.Address, nil
}

// Geocode resolves a free-form address to its first match.
func (c *LocationIQClient) Geocode(ctx context.Context, address string) (models.Location, error) {
	const op = "LocationIQClient.Geocode"

	q := url.Values{}
	q.Set("q", address)
	q.Set("limit", "1")

	var results []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := c.get(ctx, "/v1/search", q, &results); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return models.Location{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if len(results) == 0 {
		return models.Location{}, ErrLocationNotFound
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("%s: failed to parse latitude: %w", op, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("%s: failed to parse longitude: %w", op, err)
	}

	return models.Location{Latitude: lat, Longitude: lon, Address: results[0].DisplayName}, nil
}

// TravelTime is the driving duration of the fastest route between two points.
func (c *LocationIQClient) TravelTime(ctx context.Context, from, to models.Location) (time.Duration, error) {
	const op = "LocationIQClient.TravelTime"

	path := fmt.Sprintf("/v1/directions/driving/%f,%f;%f,%f", from.Longitude, from.Latitude, to.Longitude, to.Latitude)
	q := url.Values{}
	q.Set("overview", "false")

	var payload struct {
		Routes []struct {
			Duration float64 `json:"duration"` // seconds
		} `json:"routes"`
	}
	if err := c.get(ctx, path, q, &payload); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return 0, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if len(payload.Routes) == 0 {
		return 0, ErrRouteNotFound
	}

	return time.Duration(payload.Routes[0].Duration * float64(time.Second)), nil
}
