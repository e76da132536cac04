package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

type RequestRepo struct {
	s *Store
}

func cloneRequest(r *models.RideRequest) *models.RideRequest {
	c := *r
	return &c
}

func (r *RequestRepo) Create(ctx context.Context, req *models.RideRequest) error {
	return r.s.write(ctx, func() (func(), error) {
		r.s.requests[req.ID] = cloneRequest(req)
		return func() { delete(r.s.requests, req.ID) }, nil
	})
}

func (r *RequestRepo) Get(_ context.Context, id uuid.UUID) (*models.RideRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	req, ok := r.s.requests[id]
	if !ok {
		return nil, types.ErrRequestNotFound
	}
	return cloneRequest(req), nil
}

func (r *RequestRepo) Finalize(ctx context.Context, id uuid.UUID, status types.RideRequestStatus, at time.Time) (bool, error) {
	var ok bool
	err := r.s.write(ctx, func() (func(), error) {
		req, found := r.s.requests[id]
		if !found {
			return nil, types.ErrRequestNotFound
		}
		if req.Status != types.RequestPending {
			return nil, nil
		}
		prev := cloneRequest(req)
		req.Status = status
		req.FinalizedAt = &at
		ok = true
		return func() { r.s.requests[id] = prev }, nil
	})
	return ok, err
}

func (r *RequestRepo) LinkRide(ctx context.Context, requestID, rideID uuid.UUID) error {
	return r.s.write(ctx, func() (func(), error) {
		req, found := r.s.requests[requestID]
		if !found {
			return nil, types.ErrRequestNotFound
		}
		prev := cloneRequest(req)
		req.RideID = &rideID
		return func() { r.s.requests[requestID] = prev }, nil
	})
}

// ListPending returns pending requests, oldest first.
func (r *RequestRepo) ListPending(_ context.Context) ([]models.RideRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.RideRequest, 0)
	for _, req := range r.s.requests {
		if req.Status == types.RequestPending {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
