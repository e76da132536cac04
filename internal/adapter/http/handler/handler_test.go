package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/gateway"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logger.Logger {
	return logger.New(io.Discard, "test", logger.LevelError)
}

type fakeRequests struct {
	createIn  models.RideRequestInput
	createErr error
	respondFn func(requestID, driverID uuid.UUID, accept bool) (*models.RideRequest, *models.Ride, error)
}

func (f *fakeRequests) Create(_ context.Context, in models.RideRequestInput) (*models.RideRequest, error) {
	f.createIn = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.RideRequest{ID: uuid.New(), UserID: in.UserID, DriverID: in.DriverID, Status: types.RequestPending}, nil
}

func (f *fakeRequests) Respond(_ context.Context, requestID, driverID uuid.UUID, accept bool) (*models.RideRequest, *models.Ride, error) {
	return f.respondFn(requestID, driverID, accept)
}

func (f *fakeRequests) Cancel(context.Context, uuid.UUID, uuid.UUID) (*models.RideRequest, error) {
	return nil, types.ErrRequestFinalized
}

func serve(t *testing.T, pattern string, h http.HandlerFunc, r *http.Request, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	if user != nil {
		r = r.WithContext(models.WithUser(r.Context(), user))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{types.ErrInvalidCoordinates, http.StatusBadRequest},
		{types.ErrRideNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", types.ErrDriverUnavailable), http.StatusConflict},
		{types.ErrUpstream, http.StatusBadGateway},
		{types.ErrInvariant, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetCode(tt.err), tt.err.Error())
	}
}

func TestRideRequest_Create(t *testing.T) {
	rider := &models.User{ID: uuid.New(), Role: types.RiderRole}
	driverID := uuid.New()

	t.Run("created", func(t *testing.T) {
		svc := &fakeRequests{}
		h := NewRideRequest(svc, testLogger())
		body := fmt.Sprintf(`{"driver_id":%q,"pickup":{"latitude":43.23,"longitude":76.94},"destination":{"address":"Abay 10"}}`, driverID)

		w := serve(t, "POST /ride-requests", h.Create, httptest.NewRequest(http.MethodPost, "/ride-requests", strings.NewReader(body)), rider)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, rider.ID, svc.createIn.UserID)
		assert.Equal(t, driverID, svc.createIn.DriverID)
		assert.InDelta(t, 43.23, svc.createIn.Pickup.Latitude, 1e-9)
		assert.Equal(t, "Abay 10", svc.createIn.Destination.Address)
	})

	t.Run("missing destination", func(t *testing.T) {
		h := NewRideRequest(&fakeRequests{}, testLogger())
		body := fmt.Sprintf(`{"driver_id":%q,"pickup":{"latitude":43.23,"longitude":76.94},"destination":{}}`, driverID)

		w := serve(t, "POST /ride-requests", h.Create, httptest.NewRequest(http.MethodPost, "/ride-requests", strings.NewReader(body)), rider)

		require.Equal(t, http.StatusBadRequest, w.Code)
		fields, ok := decode(t, w)["error"].(map[string]any)
		require.True(t, ok, w.Body.String())
		assert.Contains(t, fields, "destination.latitude")
	})

	t.Run("unknown field", func(t *testing.T) {
		h := NewRideRequest(&fakeRequests{}, testLogger())
		w := serve(t, "POST /ride-requests", h.Create, httptest.NewRequest(http.MethodPost, "/ride-requests", strings.NewReader(`{"vehicle":"x"}`)), rider)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("service conflict", func(t *testing.T) {
		h := NewRideRequest(&fakeRequests{createErr: types.ErrDriverUnavailable}, testLogger())
		body := fmt.Sprintf(`{"driver_id":%q,"pickup":{"latitude":1,"longitude":1},"destination":{"latitude":2,"longitude":2}}`, driverID)

		w := serve(t, "POST /ride-requests", h.Create, httptest.NewRequest(http.MethodPost, "/ride-requests", strings.NewReader(body)), rider)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, types.ErrDriverUnavailable.Error(), decode(t, w)["error"])
	})

	t.Run("internal error is hidden", func(t *testing.T) {
		h := NewRideRequest(&fakeRequests{createErr: errors.New("pq: connection refused")}, testLogger())
		body := fmt.Sprintf(`{"driver_id":%q,"pickup":{"latitude":1,"longitude":1},"destination":{"latitude":2,"longitude":2}}`, driverID)

		w := serve(t, "POST /ride-requests", h.Create, httptest.NewRequest(http.MethodPost, "/ride-requests", strings.NewReader(body)), rider)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestRideRequest_Respond(t *testing.T) {
	driver := &models.User{ID: uuid.New(), Role: types.DriverRole}
	requestID := uuid.New()
	rideID := uuid.New()

	svc := &fakeRequests{respondFn: func(gotReq, gotDriver uuid.UUID, accept bool) (*models.RideRequest, *models.Ride, error) {
		assert.Equal(t, requestID, gotReq)
		assert.Equal(t, driver.ID, gotDriver)
		if !accept {
			return &models.RideRequest{ID: gotReq, Status: types.RequestRejected}, nil, nil
		}
		return &models.RideRequest{ID: gotReq, Status: types.RequestAccepted}, &models.Ride{ID: rideID}, nil
	}}
	h := NewRideRequest(svc, testLogger())
	path := "/ride-requests/" + requestID.String() + "/respond"

	w := serve(t, "POST /ride-requests/{id}/respond", h.Respond, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"accept":true}`)), driver)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decode(t, w), "ride")

	w = serve(t, "POST /ride-requests/{id}/respond", h.Respond, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"accept":false}`)), driver)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, decode(t, w), "ride")

	// accept is required; false must not be treated as missing
	w = serve(t, "POST /ride-requests/{id}/respond", h.Respond, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`)), driver)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, "POST /ride-requests/{id}/respond", h.Respond, httptest.NewRequest(http.MethodPost, "/ride-requests/nope/respond", strings.NewReader(`{"accept":true}`)), driver)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeParser struct {
	event gateway.IntentEvent
	err   error
	sig   string
}

func (f *fakeParser) ParseEvent(_ []byte, signature string) (gateway.IntentEvent, error) {
	f.sig = signature
	return f.event, f.err
}

type fakeConfirmer struct {
	confirmed, failed string
	err               error
}

func (f *fakeConfirmer) ConfirmTopUp(_ context.Context, ref string, _ models.Money) (*models.Payment, error) {
	f.confirmed = ref
	return &models.Payment{ID: uuid.New()}, f.err
}

func (f *fakeConfirmer) FailTopUp(_ context.Context, ref, _ string) (*models.Payment, error) {
	f.failed = ref
	return &models.Payment{ID: uuid.New()}, f.err
}

func TestWebhook_Stripe(t *testing.T) {
	post := func(h *Webhook) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
		r.Header.Set("Stripe-Signature", "t=1,v1=abc")
		return serve(t, "POST /webhooks/stripe", h.Stripe, r, nil)
	}

	t.Run("succeeded", func(t *testing.T) {
		parser := &fakeParser{event: gateway.IntentEvent{Type: gateway.EventIntentSucceeded, IntentID: "pi_1", Amount: 500}}
		wallets := &fakeConfirmer{}

		w := post(NewWebhook(parser, wallets, testLogger()))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "t=1,v1=abc", parser.sig)
		assert.Equal(t, "pi_1", wallets.confirmed)
		assert.Empty(t, wallets.failed)
	})

	t.Run("failed", func(t *testing.T) {
		wallets := &fakeConfirmer{}
		w := post(NewWebhook(&fakeParser{event: gateway.IntentEvent{Type: gateway.EventIntentFailed, IntentID: "pi_2"}}, wallets, testLogger()))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "pi_2", wallets.failed)
	})

	t.Run("other events are acknowledged", func(t *testing.T) {
		wallets := &fakeConfirmer{}
		w := post(NewWebhook(&fakeParser{event: gateway.IntentEvent{Type: "charge.refunded"}}, wallets, testLogger()))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, wallets.confirmed)
	})

	t.Run("bad signature", func(t *testing.T) {
		w := post(NewWebhook(&fakeParser{err: errors.New("bad sig")}, &fakeConfirmer{}, testLogger()))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown intent", func(t *testing.T) {
		parser := &fakeParser{event: gateway.IntentEvent{Type: gateway.EventIntentSucceeded, IntentID: "pi_x"}}
		w := post(NewWebhook(parser, &fakeConfirmer{err: types.ErrPaymentNotFound}, testLogger()))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("down") }

	w := serve(t, "GET /health", NewHealth("test", map[string]Check{"postgres": ok}, testLogger()).HealthCheck,
		httptest.NewRequest(http.MethodGet, "/health", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(t, "GET /health", NewHealth("test", map[string]Check{"postgres": ok, "redis": down}, testLogger()).HealthCheck,
		httptest.NewRequest(http.MethodGet, "/health", nil), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
